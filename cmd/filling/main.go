// filling 从 CSV 文件导入食材、标签等数据
//
//	go run ./cmd/filling -m ingredient -f ingredients.csv
//
// 相对路径先按当前目录查找, 找不到时在 import.data_dir 下查找
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"terminal-terrace/foodgram/config"
	"terminal-terrace/foodgram/internal/database"
	"terminal-terrace/foodgram/internal/importer"
	"terminal-terrace/foodgram/internal/logging"
)

func main() {
	model := flag.String("m", "", "模型名, 如 ingredient, tag")
	file := flag.String("f", "", "CSV 文件")
	configPath := flag.String("config", "config.yaml", "配置文件路径")
	flag.Parse()

	if *model == "" || *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	config.MustLoad(*configPath)
	logging.Init(logging.Config{Level: config.Conf.Log.Level, Format: config.Conf.Log.Format})

	mappings, err := importer.FromConfig(config.Conf.Import)
	if err != nil {
		logging.Fatal().Err(err).Msg("导入映射配置有误")
	}

	database.InitDatabase()
	defer database.Close()

	path := resolvePath(*file, config.Conf.Import.DataDir)
	result, err := importer.New(database.PostgresDB, mappings).ImportFile(context.Background(), *model, path)
	if err != nil {
		logging.Error().Err(err).Str("file", path).Msg("导入失败")
		database.Close()
		os.Exit(1)
	}

	fmt.Printf("Successfully filled %s: %d rows read, %d inserted\n", *model, result.Rows, result.Inserted)
}

func resolvePath(file, dataDir string) string {
	if filepath.IsAbs(file) {
		return file
	}
	if _, err := os.Stat(file); err == nil {
		return file
	}
	return filepath.Join(dataDir, file)
}
