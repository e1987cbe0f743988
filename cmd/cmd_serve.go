package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"llmdesk/internal/client"
	"llmdesk/internal/config"
	"llmdesk/internal/handler"
	"llmdesk/internal/service"
	"llmdesk/internal/storage"
	"llmdesk/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func newGenerator(cfg *config.Config, backend *client.Client) (service.Generator, error) {
	switch cfg.Generation.Provider {
	case "ollama", "":
		return backend, nil
	case "openai":
		return client.NewOpenAIGenerator(cfg.OpenAI), nil
	default:
		return nil, fmt.Errorf("unknown generation provider: %s", cfg.Generation.Provider)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// 初始化存储
	backend := storage.New(cfg.Storage)
	defer backend.Close()

	repo := service.NewSessionRepository(storage.NewKV(backend))
	if err := repo.EnsureInitialized(); err != nil {
		return fmt.Errorf("failed to initialize sessions: %w", err)
	}
	pipeline := service.NewMessagePipeline(repo)

	// 初始化服务
	platform := client.New(cfg.Backend)
	generator, err := newGenerator(cfg, platform)
	if err != nil {
		return err
	}
	tracker := service.NewGenerationTracker(generator, pipeline, repo)
	catalog := service.NewModelCatalog(platform)

	downloads := service.NewOperationPoller("downloads", client.DownloadOperations{Client: platform}, service.PollerOptions{
		Interval:    cfg.Poller.Interval,
		GracePeriod: cfg.Poller.GracePeriod,
		OnCompleted: catalog.OnOperationCompleted,
	})
	defer downloads.Close()

	training := service.NewOperationPoller("training", client.TrainingOperations{Client: platform}, service.PollerOptions{
		Interval:    cfg.Poller.Interval,
		GracePeriod: cfg.Poller.GracePeriod,
	})
	defer training.Close()

	// 初始化处理器
	gin.SetMode(gin.ReleaseMode)
	router := handler.SetupRouter(cfg, handler.Handlers{
		Chat:      handler.NewChatHandler(tracker, repo, cfg.Generation.DefaultModel),
		Sessions:  handler.NewSessionHandler(repo, pipeline, tracker),
		Models:    handler.NewModelHandler(catalog),
		Downloads: handler.NewOperationHandler(downloads, "name"),
		Training:  handler.NewOperationHandler(training, "id"),
		Health:    platform,
	})

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Infof("服务器启动在端口 %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	// 预热模型列表，失败不影响启动
	g.Go(func() error {
		if _, err := catalog.Refresh(gctx); err != nil {
			logger.Warnf("Initial model refresh failed: %v", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("服务器正在关闭...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("服务器关闭失败: %v", err)
		}
		downloads.Close()
		training.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("服务器已关闭")
	return nil
}
