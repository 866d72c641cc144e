// Command moviemesh runs the movie agent as an A2A server. It wires the
// environment configuration, the TMDB toolset, the selected model provider
// and the task executor into a trpc-a2a-go task manager and serves the JSON-RPC
// endpoint plus the well-known agent card over HTTP.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/gorilla/mux"
	"trpc.group/trpc-go/trpc-a2a-go/server"
	"trpc.group/trpc-go/trpc-a2a-go/taskmanager"

	"github.com/hupe1980/moviemesh"
	"github.com/hupe1980/moviemesh/a2a"
	"github.com/hupe1980/moviemesh/agent"
	"github.com/hupe1980/moviemesh/config"
	"github.com/hupe1980/moviemesh/logging"
	"github.com/hupe1980/moviemesh/model"
	"github.com/hupe1980/moviemesh/model/anthropic"
	"github.com/hupe1980/moviemesh/model/openai"
	"github.com/hupe1980/moviemesh/session"
	"github.com/hupe1980/moviemesh/tmdb"
	"github.com/hupe1980/moviemesh/tool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.NewSlogLogger(cfg.Level(), cfg.LogFormat, os.Stdout)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger logging.Logger) error {
	client := tmdb.NewClient(cfg.TMDBAPIToken, func(o *tmdb.Options) {
		if cfg.TMDBBaseURL != "" {
			o.BaseURL = cfg.TMDBBaseURL
		}
		if cfg.TMDBImageBaseURL != "" {
			o.ImageBaseURL = cfg.TMDBImageBaseURL
		}
		o.Logger = logger
	})
	toolset := tmdb.NewToolset(client, tmdb.WithLogger(logger))

	registry := tool.NewRegistry(tool.WithLogger(logger))
	toolset.Register(registry)

	m, err := newModel(cfg)
	if err != nil {
		return err
	}
	logger.Info("model configured", "provider", m.Info().Provider, "model", m.Info().Name)

	store := session.NewInMemoryStore()
	canceled := agent.NewCancelRegistry()

	executor := agent.NewExecutor(m, registry, toolset.Definitions(), store, canceled, func(o *agent.Options) {
		o.Logger = logger
	})

	processor := a2a.NewProcessor(executor, func(o *a2a.Options) {
		o.Logger = logger
	})

	tm, err := taskmanager.NewMemoryTaskManager(processor)
	if err != nil {
		return fmt.Errorf("create task manager: %w", err)
	}
	// tasks/cancel must reach the executor's cancellation checkpoint.
	manager := a2a.NewCancelAwareManager(tm, canceled, func(o *a2a.Options) {
		o.Logger = logger
	})

	card := a2a.NewAgentCard(a2a.BaseURL(cfg.Port), moviemesh.Version)
	srv, err := server.NewA2AServer(card, manager)
	if err != nil {
		return fmt.Errorf("create a2a server: %w", err)
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	router.PathPrefix("/").Handler(srv.Handler())

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started",
			"addr", httpServer.Addr,
			"agent_card", fmt.Sprintf("http://localhost:%d/.well-known/agent.json", cfg.Port),
		)
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(ctx)
}

// newModel selects the completion backend from the configuration.
func newModel(cfg *config.Config) (model.Model, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return openai.NewModel(func(o *openai.Options) {
			o.BaseURL = openai.OpenRouterBaseURL
			o.APIKey = cfg.OpenRouterAPIKey
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
		}), nil
	case config.ProviderAnthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.APIKey = cfg.AnthropicAPIKey
			if cfg.Model != "" {
				o.Model = anthropicsdk.Model(cfg.Model)
			}
		}), nil
	default:
		return nil, fmt.Errorf("unsupported model provider: %s", cfg.Provider)
	}
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
