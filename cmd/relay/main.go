// relay - streaming chat relay entry point
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tabpilot/relay/internal/api"
	"github.com/tabpilot/relay/internal/domain/chat"
	"github.com/tabpilot/relay/internal/domain/requestlog"
	"github.com/tabpilot/relay/internal/infra/config"
	"github.com/tabpilot/relay/internal/infra/eventbus"
	"github.com/tabpilot/relay/internal/infra/llm"
	"github.com/tabpilot/relay/internal/infra/sqlite"
	"github.com/tabpilot/relay/internal/server"
	"github.com/tabpilot/relay/internal/version"
)

const shutdownGrace = 10 * time.Second

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("relay", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	showVersion := fs.Bool("version", false, "Show version information")
	configPath := fs.String("config", "", "Path to YAML configuration file")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Fprintln(out, version.String()) //nolint:errcheck
		return 0
	}

	// .env is a development convenience; missing is fine
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR loading config: %v\n", err)
		return 1
	}

	if err := serve(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}
	return 0
}

func serve(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := eventbus.New()
	if cfg.RequestLogPath != "" {
		db, err := sqlite.NewDB(cfg.RequestLogPath)
		if err != nil {
			return fmt.Errorf("opening request log: %w", err)
		}
		defer db.Close()
		if err := sqlite.MigrateUp(db); err != nil {
			return fmt.Errorf("migrating request log: %w", err)
		}
		logSvc := requestlog.NewService(db)
		go logSvc.Start(ctx, bus)
	} else {
		log.Println("request log disabled")
	}

	router := llm.NewRouter(providerRegistrations(cfg), "openai")
	service := chat.NewService(router, cfg.FlushThreshold)
	handler := api.NewRouter(service, bus)

	srvCfg := server.DefaultConfig()
	srvCfg.Host = cfg.Host
	srvCfg.Port = cfg.Port
	srv := server.NewServer(handler, srvCfg)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// providerRegistrations binds the configured credentials and model menus to
// the router. Adapter construction stays per-request so a missing key only
// fails requests that target that provider.
func providerRegistrations(cfg config.Config) map[string]llm.Registration {
	return map[string]llm.Registration{
		"openai": {
			Default: cfg.OpenAIModel,
			Models:  []string{"gpt-4o", "gpt-4o-mini", "gpt-4.1", "gpt-4.1-mini"},
			New: func() (llm.StreamingChatProvider, error) {
				return llm.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
			},
		},
		"gemini": {
			Default: cfg.GeminiModel,
			Models:  []string{"gemini-1.5-flash", "gemini-1.5-pro", "gemini-2.0-flash"},
			New: func() (llm.StreamingChatProvider, error) {
				return llm.NewGeminiProvider(cfg.GeminiAPIKey, cfg.GeminiBaseURL)
			},
		},
	}
}
