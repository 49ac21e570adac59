package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"terminal-terrace/foodgram/config"
	_ "terminal-terrace/foodgram/docs"
	"terminal-terrace/foodgram/internal/auth"
	"terminal-terrace/foodgram/internal/database"
	"terminal-terrace/foodgram/internal/dto"
	foodgramgrpc "terminal-terrace/foodgram/internal/grpc"
	"terminal-terrace/foodgram/internal/logging"
	"terminal-terrace/foodgram/internal/middleware"
	"terminal-terrace/foodgram/internal/route"
	"terminal-terrace/foodgram/internal/storage"

	"github.com/gin-gonic/gin"
)

// @title Foodgram API
// @version 1.0
// @description 菜谱分享服务: 菜谱、收藏、购物车、关注与购物清单导出
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	configPath := flag.String("config", "config.yaml", "配置文件路径")
	swag := flag.Bool("swag", false, "重新生成 swagger 文档后退出")
	flag.Parse()

	if *swag {
		if err := config.GenerateSwagger(context.Background()); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	// 1. 加载配置
	config.MustLoad(*configPath)
	conf := config.Conf
	logging.Init(logging.Config{Level: conf.Log.Level, Format: conf.Log.Format})
	gin.SetMode(conf.Server.Mode)

	// 2. 初始化数据库
	database.InitDatabase()
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. 初始化依赖
	dto.RegisterValidators()
	tokens := auth.NewTokenStore(database.RedisClient)
	middleware.SetTokenValidator(tokens)

	store, err := storage.New(ctx, conf.Storage)
	if err != nil {
		logging.Fatal().Err(err).Msg("初始化存储失败")
	}

	// 4. 可选的 gRPC 健康检查
	if conf.GRPC.Enabled {
		sqlDB, err := database.PostgresDB.DB()
		if err != nil {
			logging.Fatal().Err(err).Msg("获取数据库连接失败")
		}
		grpcServer, err := foodgramgrpc.NewServer(conf.GRPC.Port, conf.JWT.Secret, sqlDB)
		if err != nil {
			logging.Fatal().Err(err).Msg("启动 gRPC 失败")
		}
		go grpcServer.WatchHealth(ctx, 15*time.Second)
		go func() {
			logging.Info().Str("addr", grpcServer.GetAddr()).Msg("gRPC 服务已启动")
			if err := grpcServer.Start(); err != nil {
				logging.Error().Err(err).Msg("gRPC 服务退出")
			}
		}()
		defer grpcServer.Stop()
	}

	// 5. 设置路由并启动服务
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", conf.Server.Host, conf.Server.Port),
		Handler:      route.SetupRouter(database.PostgresDB, store, tokens),
		ReadTimeout:  conf.Server.ReadTimeout,
		WriteTimeout: conf.Server.WriteTimeout,
	}

	go func() {
		logging.Info().Str("addr", srv.Addr).Msg("HTTP 服务已启动")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("HTTP 服务异常退出")
			stop()
		}
	}()

	<-ctx.Done()
	logging.Info().Msg("正在关闭服务")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("HTTP 服务关闭失败")
	}
}
