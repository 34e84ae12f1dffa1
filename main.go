package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bqrelay/relay/config"
	_ "bqrelay/relay/pkg/handler"
	_ "bqrelay/relay/pkg/reg"
	"bqrelay/supervisor"
	"bqrelay/tools/ioc"
	"bqrelay/tools/logger"
	"bqrelay/tools/middleware"
)

func main() {
	// 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 创建日志记录器
	log := cfg.NewLogger()

	if cfg.Supervised() {
		if err := runSupervisor(cfg, log); err != nil {
			log.Fatal("Supervisor failed: %v", err)
			os.Exit(1)
		}
		return
	}

	if err := runWorker(cfg, log); err != nil {
		log.Fatal("Worker failed: %v", err)
		os.Exit(1)
	}
}

// runSupervisor 只管理 worker 进程，不监听端口
func runSupervisor(cfg *config.Config, log *logger.Logger) error {
	log.Info("Starting supervisor with %d workers on port %s...", cfg.Workers, cfg.Port)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := supervisor.New(cfg.Workers, cfg.WorkerRestartDelay, log).Run(ctx); err != nil {
		return err
	}

	log.Info("Supervisor exited")
	return nil
}

// runWorker 初始化 sink 和路由并对外提供服务，收到信号后优雅退出
func runWorker(cfg *config.Config, log *logger.Logger) error {
	log.Info("Starting bqrelay worker...")

	// 中间件必须在路由注册之前挂载
	engine := cfg.Application.GinServer()
	engine.Use(middleware.ExitOnPanic(log), middleware.AccessLog(log))

	// 初始化 IOC 容器
	if err := ioc.ConController.Init(); err != nil {
		return fmt.Errorf("failed to init controllers: %w", err)
	}
	defer func() {
		if err := ioc.ConController.Close(); err != nil {
			log.Error("Failed to close controllers: %v", err)
		}
	}()

	if err := ioc.Api.Init(); err != nil {
		return fmt.Errorf("failed to init api: %w", err)
	}

	ln, err := supervisor.Listen(context.Background(), cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Addr(), err)
	}

	// 配置HTTP服务器
	server := &http.Server{
		Handler:      engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting on port %s...", cfg.Port)
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		return fmt.Errorf("server stopped: %w", err)
	}

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
	return nil
}
