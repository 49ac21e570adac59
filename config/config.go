// config/config.go - 配置管理文件
package config

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix 环境变量前缀, 例如 FOODGRAM_DATABASE_HOST -> database.host
const EnvPrefix = "FOODGRAM_"

var (
	Conf *AppConfig
	once sync.Once
	k    *koanf.Koanf
)

// AppConfig 应用配置结构
type AppConfig struct {
	Server       ServerConfig       `koanf:"server"`
	Database     DatabaseConfig     `koanf:"database"`
	Redis        RedisConfig        `koanf:"redis"`
	Log          LogConfig          `koanf:"log"`
	JWT          JWTConfig          `koanf:"jwt"`
	Pagination   PaginationConfig   `koanf:"pagination"`
	Storage      StorageConfig      `koanf:"storage"`
	ShoppingList ShoppingListConfig `koanf:"shopping_list"`
	GRPC         GRPCConfig         `koanf:"grpc"`
	Import       ImportConfig       `koanf:"import"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Mode            string        `koanf:"mode"` // debug, release, test
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	FrontendURL     string        `koanf:"frontend_url"`
}

type DatabaseConfig struct {
	Driver       string `koanf:"driver"`
	Host         string `koanf:"host"`
	Port         int    `koanf:"port"`
	Username     string `koanf:"username"`
	Password     string `koanf:"password"`
	Database     string `koanf:"database"`
	SSLMode      bool   `koanf:"sslmode"`
	LogLevel     string `koanf:"log_level"` // 数据库日志级别
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	MaxLifetime  int    `koanf:"max_lifetime"` // 秒
}

type RedisConfig struct {
	Enabled  bool   `koanf:"enabled"` // 关闭时令牌保存在进程内存中
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	PoolSize int    `koanf:"pool_size"`
}

type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json, console
}

type JWTConfig struct {
	Secret     string `koanf:"secret"`
	ExpireTime int    `koanf:"expire_time"` // 小时
}

type PaginationConfig struct {
	PageSize    int `koanf:"page_size"`
	MaxPageSize int `koanf:"max_page_size"`
}

type StorageConfig struct {
	Driver string             `koanf:"driver"` // local, s3
	Local  LocalStorageConfig `koanf:"local"`
	S3     S3StorageConfig    `koanf:"s3"`
}

type LocalStorageConfig struct {
	Root    string `koanf:"root"`     // 文件保存目录
	BaseURL string `koanf:"base_url"` // 对外访问前缀, 如 /media
}

type S3StorageConfig struct {
	Bucket    string `koanf:"bucket"`
	Region    string `koanf:"region"`
	Prefix    string `koanf:"prefix"`
	PublicURL string `koanf:"public_url"` // CDN 地址, 为空时使用 bucket 默认域名
}

type ShoppingListConfig struct {
	Filename string `koanf:"filename"`
	FontPath string `koanf:"font_path"` // UTF-8 TTF 字体, 为空时使用内置 Helvetica
}

type GRPCConfig struct {
	Enabled bool `koanf:"enabled"`
	Port    int  `koanf:"port"`
}

type ImportConfig struct {
	DataDir  string          `koanf:"data_dir"`
	Mappings []ImportMapping `koanf:"mappings"`
}

// ImportMapping CSV 导入映射, 追加或覆盖内置映射
type ImportMapping struct {
	Model   string         `koanf:"model"`
	Table   string         `koanf:"table"`
	Columns []ImportColumn `koanf:"columns"`
}

type ImportColumn struct {
	Name      string `koanf:"name"`  // CSV 表头
	Field     string `koanf:"field"` // 数据库列
	Kind      string `koanf:"kind"`  // string, int, ref
	RefTable  string `koanf:"ref_table"`
	RefColumn string `koanf:"ref_column"`
}

// Load 加载配置文件
func Load(configPath string) error {
	var err error
	once.Do(func() {
		// 首先加载 .env 文件到环境变量
		if envErr := godotenv.Load(); envErr != nil {
			log.Printf("警告: 无法加载 .env 文件: %v", envErr)
		}

		k = koanf.New(".")
		Conf, err = load(k, configPath)
	})

	return err
}

func load(k *koanf.Koanf, configPath string) (*AppConfig, error) {
	// 加载配置文件
	if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("加载配置文件失败: %w", err)
	}

	// 加载环境变量（会覆盖配置文件）
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		log.Printf("加载环境变量失败: %v", err)
	}

	conf := &AppConfig{}
	if err := k.Unmarshal("", conf); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// 转换时间单位
	conf.Server.ReadTimeout = conf.Server.ReadTimeout * time.Second
	conf.Server.WriteTimeout = conf.Server.WriteTimeout * time.Second
	conf.Server.ShutdownTimeout = conf.Server.ShutdownTimeout * time.Second

	applyDefaults(conf)
	return conf, nil
}

// envKey FOODGRAM_SHOPPING__LIST_FILENAME 这类双下划线保留为单个下划线
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	s = strings.ReplaceAll(s, "__", "\x00")
	s = strings.ReplaceAll(s, "_", ".")
	return strings.ReplaceAll(s, "\x00", "_")
}

func applyDefaults(c *AppConfig) {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "debug"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Server.FrontendURL == "" {
		c.Server.FrontendURL = "http://localhost:3000"
	}
	if c.JWT.ExpireTime == 0 {
		c.JWT.ExpireTime = 24 * 7
	}
	if c.Pagination.PageSize == 0 {
		c.Pagination.PageSize = 6
	}
	if c.Pagination.MaxPageSize == 0 {
		c.Pagination.MaxPageSize = 100
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "local"
	}
	if c.Storage.Local.Root == "" {
		c.Storage.Local.Root = "media"
	}
	if c.Storage.Local.BaseURL == "" {
		c.Storage.Local.BaseURL = "/media"
	}
	if c.ShoppingList.Filename == "" {
		c.ShoppingList.Filename = "shopping_list.pdf"
	}
	if c.GRPC.Port == 0 {
		c.GRPC.Port = 9090
	}
	if c.Import.DataDir == "" {
		c.Import.DataDir = "data"
	}
}

// MustLoad 加载配置，失败则 panic
func MustLoad(configPath string) {
	if err := Load(configPath); err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}
}

// GetString 获取字符串配置
func GetString(key string) string {
	if k == nil {
		log.Fatal("配置未初始化")
	}
	return k.String(key)
}

// GetInt 获取整数配置
func GetInt(key string) int {
	if k == nil {
		log.Fatal("配置未初始化")
	}
	return k.Int(key)
}

// Reload 重新加载配置
func Reload(configPath string) error {
	if k == nil {
		return fmt.Errorf("配置未初始化")
	}

	fresh := koanf.New(".")
	conf, err := load(fresh, configPath)
	if err != nil {
		return err
	}
	k = fresh
	Conf = conf
	return nil
}
