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

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/xiy/toolbelt-mcp/internal/admin"
	"github.com/xiy/toolbelt-mcp/internal/bootstrap"
	"github.com/xiy/toolbelt-mcp/internal/config"
	"github.com/xiy/toolbelt-mcp/internal/currency"
	"github.com/xiy/toolbelt-mcp/internal/httpserver"
	"github.com/xiy/toolbelt-mcp/internal/mailer"
	"github.com/xiy/toolbelt-mcp/internal/mcp"
	"github.com/xiy/toolbelt-mcp/internal/registry"
	"github.com/xiy/toolbelt-mcp/internal/retention"
	"github.com/xiy/toolbelt-mcp/internal/store"
	"github.com/xiy/toolbelt-mcp/internal/tasks"
	"github.com/xiy/toolbelt-mcp/internal/weather"
	"github.com/xiy/toolbelt-mcp/internal/websearch"
)

func main() {
	// Credentials commonly live in a local .env during development.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	sub := os.Args[1]
	switch sub {
	case "serve":
		if err := runServe(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "mcp":
		if err := runMCP(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "bootstrap-clis":
		if err := runBootstrap(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "admin":
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "version", "--version", "-v":
		fmt.Println("toolbelt-mcp v0.1.0")
	default:
		usage()
		os.Exit(2)
	}
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "config/toolbelt-mcp.yaml", "Path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: cfg.ServerName})
	setLogLevel(logger, cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	audit, err := store.OpenSQLite(ctx, cfg.DBPath, logger)
	if err != nil {
		return err
	}
	defer audit.Close()

	deps := buildDeps(cfg, logger)
	reg, err := registry.Catalog(deps)
	if err != nil {
		return err
	}

	go retention.Start(ctx, logger,
		time.Duration(cfg.RetentionCheckInterval)*time.Second,
		time.Duration(cfg.RetentionDays)*24*time.Hour,
		audit)

	srv := httpserver.New(httpserver.Options{
		Logger:      logger,
		Registry:    reg,
		Search:      deps.Search,
		Retriever:   websearch.NewRetriever(cfg.ContentMaxLength),
		Audit:       audit,
		SearchLimit: cfg.SearchLimit,
	})

	server := &http.Server{Addr: cfg.ListenAddr, Handler: srv.Handler()}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP tool server", "addr", cfg.ListenAddr, "tools", len(reg.Names()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}

func runMCP(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	configPath := fs.String("config", "config/toolbelt-mcp.yaml", "Path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: cfg.ServerName})
	setLogLevel(logger, cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	audit, err := store.OpenSQLite(ctx, cfg.DBPath, logger)
	if err != nil {
		return err
	}
	defer audit.Close()

	go retention.Start(ctx, logger,
		time.Duration(cfg.RetentionCheckInterval)*time.Second,
		time.Duration(cfg.RetentionDays)*24*time.Hour,
		audit)

	server := mcp.NewServer(weather.NewNWSClient(), logger, audit)
	logger.Info("starting MCP stdio server", "db", cfg.DBPath)
	if err := server.Serve(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// buildDeps constructs provider clients once at startup. A missing
// credential leaves that client nil; the catalog registers a stub for it
// so the process still starts with the remaining tools functional.
func buildDeps(cfg config.Config, logger *log.Logger) registry.Deps {
	deps := registry.Deps{
		Search:      websearch.NewDuckDuckGo(logger),
		Tasks:       tasks.NewStore(cfg.TasksPath, logger),
		SearchLimit: cfg.SearchLimit,
	}

	if c, err := weather.NewClient(cfg.Providers.OpenWeatherMapKey); err != nil {
		logger.Warn("weather tool disabled", "reason", err)
	} else {
		deps.Weather = c
	}
	if c, err := currency.NewClient(cfg.Providers.ExchangeRateKey); err != nil {
		logger.Warn("currency tools disabled", "reason", err)
	} else {
		deps.Currency = c
	}
	if c, err := mailer.NewClient(cfg.Providers.MailgunKey, cfg.Providers.MailgunDomain); err != nil {
		logger.Warn("email tool disabled", "reason", err)
	} else {
		deps.Mailer = c
	}
	return deps
}

func runBootstrap(args []string) error {
	fs := flag.NewFlagSet("bootstrap-clis", flag.ContinueOnError)
	configPath := fs.String("config", "config/toolbelt-mcp.yaml", "Path to config file")
	scope := fs.String("scope", "user", "Config scope: user or project")
	serverName := fs.String("server-name", "toolbelt", "MCP server registration name")
	serveCmd := fs.String("serve-command", "toolbelt-mcp mcp", "Command used by MCP clients to launch the stdio server")
	all := fs.Bool("all", false, "Configure all available CLIs")
	codex := fs.Bool("codex", false, "Configure Codex CLI")
	claude := fs.Bool("claude", false, "Configure Claude CLI")
	gemini := fs.Bool("gemini", false, "Configure Gemini CLI")
	dryRun := fs.Bool("dry-run", false, "Print intended commands without executing")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := log.New(os.Stderr)
	return bootstrap.Bootstrap(logger, bootstrap.Options{
		ConfigPath: *configPath,
		Scope:      *scope,
		ServerName: *serverName,
		ServeCmd:   *serveCmd,
		All:        *all,
		Codex:      *codex,
		Claude:     *claude,
		Gemini:     *gemini,
		DryRun:     *dryRun,
	}, nil)
}

func runAdmin(args []string) error {
	fs := flag.NewFlagSet("admin", flag.ContinueOnError)
	configPath := fs.String("config", "config/toolbelt-mcp.yaml", "Path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	logger := log.New(os.Stderr)
	audit, err := store.OpenSQLite(context.Background(), cfg.DBPath, logger)
	if err != nil {
		return err
	}
	defer audit.Close()

	taskStore := tasks.NewStore(cfg.TasksPath, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return admin.Run(ctx, audit, taskStore)
}

func setLogLevel(logger *log.Logger, level string) {
	switch level {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}
}

func usage() {
	fmt.Print(`toolbelt-mcp

Usage:
  toolbelt-mcp serve [--config path]
  toolbelt-mcp mcp [--config path]
  toolbelt-mcp bootstrap-clis [--config path] [--all|--codex --claude --gemini] [--scope user|project]
  toolbelt-mcp admin [--config path]
  toolbelt-mcp version
`)
}
