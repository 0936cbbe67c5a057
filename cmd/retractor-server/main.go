// retractor-server：HTTP 解析接口与 RabbitMQ 解析请求消费者
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"retractor-go/internal/api/handler"
	"retractor-go/internal/api/router"
	"retractor-go/internal/bootstrap"
	"retractor-go/internal/config"
	"retractor-go/internal/logger"
	"retractor-go/internal/service"
	"retractor-go/internal/storage"
	"retractor-go/internal/tracing"
	"retractor-go/internal/worker"
)

var version = "1.0.0" //nolint:gochecknoglobals

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "", "配置文件路径，默认按搜索路径查找")
	pflag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("加载配置失败")
	}

	logger.Init(cfg.Logger)
	glog.SetLogger(hertzadapter.From(logger.Logger))
	log := logger.Component("server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.InitProvider(ctx, tracing.ProviderConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Version:     version,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("初始化链路追踪失败")
	}

	st, err := storage.NewStorage(ctx, cfg, logger.Component("storage"))
	if err != nil {
		log.Fatal().Err(err).Msg("初始化存储失败")
	}

	p, err := bootstrap.NewParser(ctx, cfg, logger.Component("parser"))
	if err != nil {
		log.Fatal().Err(err).Msg("初始化解析器失败")
	}

	// 组件为nil时不能传入接口，否则会得到非nil的接口值
	svcOpts := []service.Option{
		service.WithLogger(logger.Component("service")),
		service.WithMaxUploadBytes(int64(cfg.Server.MaxUploadMB) << 20),
	}
	if st.Redis != nil {
		svcOpts = append(svcOpts, service.WithCache(st.Redis))
	}
	if st.MinIO != nil {
		svcOpts = append(svcOpts, service.WithObjectStore(st.MinIO))
	}
	svc, err := service.NewResumeService(p, svcOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("初始化解析服务失败")
	}

	workerCtx, stopWorker := context.WithCancel(ctx)
	var w *worker.Worker
	if st.RabbitMQ != nil {
		wopts := []worker.Option{worker.WithLogger(logger.Component("worker"))}
		if st.Redis != nil {
			wopts = append(wopts, worker.WithDeduper(st.Redis))
		}
		w, err = worker.New(st.RabbitMQ, svc, worker.Config{
			RequestQueue:     cfg.RabbitMQ.RequestQueue,
			ResultExchange:   cfg.RabbitMQ.ResultExchange,
			ResultRoutingKey: cfg.RabbitMQ.ResultRoutingKey,
			PrefetchCount:    cfg.RabbitMQ.PrefetchCount,
			Workers:          cfg.RabbitMQ.ConsumerWorkers,
		}, wopts...)
		if err != nil {
			log.Fatal().Err(err).Msg("创建解析请求消费者失败")
		}
		if err := w.Start(workerCtx); err != nil {
			log.Fatal().Err(err).Msg("启动解析请求消费者失败")
		}
	} else {
		log.Info().Msg("未配置RabbitMQ，不启动队列消费")
	}

	tracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
		server.WithMaxRequestBodySize((cfg.Server.MaxUploadMB+1)<<20),
		server.WithReadTimeout(config.GetDuration(cfg.Server.ReadTimeout, 30*time.Second)),
		tracer,
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))

	router.RegisterRoutes(h, handler.NewResumeHandler(svc, logger.Component("handler")), router.Options{
		APIKeys:      cfg.Server.APIKeys,
		RequestLimit: cfg.Server.RequestLimit,
	})

	log.Info().Str("address", cfg.Server.Address).Str("version", version).Msg("HTTP 服务器启动中")
	go func() {
		if err := h.Run(); err != nil {
			log.Fatal().Err(err).Msg("启动HTTP服务器失败")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("接收到终止信号，正在优雅退出...")

	wait := config.GetDuration(cfg.Server.ShutdownWait, 10*time.Second)
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), wait)
	defer cancelShutdown()

	if err := h.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP服务器关闭失败")
	}

	stopWorker()
	if w != nil {
		w.Wait()
	}
	st.Close()

	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("关闭链路追踪导出器失败")
	}
	log.Info().Msg("优雅退出完成")
}
