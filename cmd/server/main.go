package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/alira/internal/ai"
	"github.com/suPer8Hu/alira/internal/chat"
	"github.com/suPer8Hu/alira/internal/config"
	"github.com/suPer8Hu/alira/internal/httpapi"
	"github.com/suPer8Hu/alira/internal/httpapi/handlers"
	"github.com/suPer8Hu/alira/internal/logging"
	"github.com/suPer8Hu/alira/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	gin.SetMode(gin.ReleaseMode)

	reg := buildRegistry(cfg)
	relay := chat.NewRelay(reg, chat.RelayOptions{
		Provider:     cfg.AIProvider,
		Model:        cfg.ProviderModel(),
		SystemPrompt: cfg.SystemPrompt,
		MaxTokens:    cfg.MaxTokens,
	})
	collector := metrics.NewCollector("alira")
	h := handlers.NewHandler(relay, collector, logger, cfg.AIProvider)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(h, collector, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server started",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("provider", cfg.AIProvider),
			zap.Strings("providers", reg.Names()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildRegistry registers every provider the server knows. Only the one
// named by AI_PROVIDER serves turns.
func buildRegistry(cfg config.Config) *ai.Registry {
	reg := ai.NewRegistry()

	reg.Register("anthropic", func(ctx context.Context, model string) (ai.Provider, error) {
		if strings.TrimSpace(cfg.AnthropicAPIKey) == "" {
			return nil, ai.ErrMissingCredential
		}
		return ai.NewAnthropicProvider(cfg.AnthropicBaseURL, cfg.AnthropicAPIKey, model), nil
	})

	reg.Register("ollama", func(ctx context.Context, model string) (ai.Provider, error) {
		m := strings.TrimSpace(model)
		if m == "" {
			m = cfg.OllamaModel
		}
		return ai.NewOllamaProvider(cfg.OllamaBaseURL, m), nil
	})

	reg.Register("openrouter", func(ctx context.Context, model string) (ai.Provider, error) {
		if strings.TrimSpace(cfg.OpenRouterAPIKey) == "" {
			return nil, ai.ErrMissingCredential
		}
		return ai.NewOpenRouterProvider(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, model,
			cfg.OpenRouterSiteURL, cfg.OpenRouterAppName), nil
	})

	return reg
}
