package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/knowhub-ai/knowhub/internal/ai"
	"github.com/knowhub-ai/knowhub/internal/config"
	"github.com/knowhub-ai/knowhub/internal/filestore"
	"github.com/knowhub-ai/knowhub/internal/handler"
	"github.com/knowhub-ai/knowhub/internal/job"
	"github.com/knowhub-ai/knowhub/internal/middleware"
	"github.com/knowhub-ai/knowhub/internal/repo"
	"github.com/knowhub-ai/knowhub/internal/schedule"
	"github.com/knowhub-ai/knowhub/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "knowhub",
		Short: "knowhub knowledge base server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run knowhub server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			db, err := repo.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := repo.ApplyMigrations(db); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, db)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

// buildGenerator resolves a chat provider config, including its fallbacks,
// into a single generator.
func buildGenerator(cfg config.ProviderConfig) (ai.IStreamGenerator, error) {
	primary, err := ai.NewProvider(cfg.Provider, cfg.Data)
	if err != nil {
		return nil, err
	}
	if len(cfg.Fallbacks) == 0 {
		return ai.NewGenerator(primary, cfg.Model), nil
	}
	entries := []ai.GeneratorEntry{{
		Name:      cfg.Provider + "/" + cfg.Model,
		Generator: ai.NewGenerator(primary, cfg.Model),
	}}
	for _, fb := range cfg.Fallbacks {
		provider, err := ai.NewProvider(fb.Provider, fb.Data)
		if err != nil {
			return nil, fmt.Errorf("init fallback provider %s: %w", fb.Provider, err)
		}
		entries = append(entries, ai.GeneratorEntry{
			Name:      fb.Provider + "/" + fb.Model,
			Generator: ai.NewGenerator(provider, fb.Model),
		})
	}
	return ai.NewGroupGenerator(entries), nil
}

func buildEmbedder(cfg config.ProviderConfig) (ai.IEmbedder, error) {
	primary, err := ai.NewProvider(cfg.Provider, cfg.Data)
	if err != nil {
		return nil, err
	}
	if len(cfg.Fallbacks) == 0 {
		return ai.NewEmbedder(primary, cfg.Model), nil
	}
	entries := []ai.EmbedderEntry{{
		Name:     cfg.Model,
		Embedder: ai.NewEmbedder(primary, cfg.Model),
	}}
	for _, fb := range cfg.Fallbacks {
		provider, err := ai.NewProvider(fb.Provider, fb.Data)
		if err != nil {
			return nil, fmt.Errorf("init fallback provider %s: %w", fb.Provider, err)
		}
		entries = append(entries, ai.EmbedderEntry{
			Name:     fb.Model,
			Embedder: ai.NewEmbedder(provider, fb.Model),
		})
	}
	return ai.NewGroupEmbedder(entries), nil
}

func runServer(cfg *config.Config, db *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
		zap.String("chat_model", cfg.AI.Chat.Model),
		zap.String("embedding_model", cfg.AI.Embedding.Model),
	)

	docRepo := repo.NewDocumentRepo(db)
	chunkRepo := repo.NewChunkRepo(db)
	feedbackRepo := repo.NewFeedbackRepo(db)

	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}
	generator, err := buildGenerator(cfg.AI.Chat)
	if err != nil {
		return fmt.Errorf("init chat provider: %w", err)
	}
	embedder, err := buildEmbedder(cfg.AI.Embedding)
	if err != nil {
		return fmt.Errorf("init embedding provider: %w", err)
	}
	chatProvider, err := ai.NewProvider(cfg.AI.Chat.Provider, cfg.AI.Chat.Data)
	if err != nil {
		return fmt.Errorf("init chat provider: %w", err)
	}
	override := func(model string) ai.IStreamGenerator {
		return ai.NewGenerator(chatProvider, model)
	}

	ingestService := service.NewIngestService(docRepo, chunkRepo, store, embedder, cfg.Ingest, cfg.AI.Dimension)
	retrievalService := service.NewRetrievalService(chunkRepo, embedder, cfg.Retrieval, cfg.AI.Dimension)
	answerService := service.NewAnswerService(retrievalService, generator, override, cfg.Answer)
	feedbackService := service.NewFeedbackService(feedbackRepo)

	deps := handler.RouterDeps{
		Documents:     handler.NewDocumentHandler(ingestService),
		Chat:          handler.NewChatHandler(answerService),
		Feedback:      handler.NewFeedbackHandler(feedbackService),
		JWTSecret:     []byte(cfg.JWTSecret),
		AskRateWindow: time.Second,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(nil),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	scheduler := schedule.NewCronScheduler()
	reaper := job.NewStuckProcessingReaper(docRepo, time.Duration(cfg.Reaper.LeaseMinutes)*time.Minute)
	if err := scheduler.AddJob(reaper, cfg.Reaper.Spec); err != nil {
		return fmt.Errorf("schedule reaper: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	scheduler.Start(ctx)

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	scheduler.Stop()
	ingestService.Wait()
	return nil
}
