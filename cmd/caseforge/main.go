// caseforge serves the casefile workspace over HTTP and MCP.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nlatta/caseforge/internal/api"
	"github.com/nlatta/caseforge/internal/domain/audit"
	"github.com/nlatta/caseforge/internal/domain/casefile"
	"github.com/nlatta/caseforge/internal/domain/dispatch"
	"github.com/nlatta/caseforge/internal/domain/operation"
	"github.com/nlatta/caseforge/internal/domain/session"
	"github.com/nlatta/caseforge/internal/domain/tool"
	"github.com/nlatta/caseforge/internal/domain/tool/gen"
	"github.com/nlatta/caseforge/internal/infra/config"
	"github.com/nlatta/caseforge/internal/infra/eventbus"
	"github.com/nlatta/caseforge/internal/infra/sqlite"
	"github.com/nlatta/caseforge/internal/server"
	"github.com/nlatta/caseforge/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("caseforge", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	showVersion := fs.Bool("version", false, "Show version information")
	showHelp := fs.Bool("help", false, "Show help")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Fprintln(out, version.String()) //nolint:errcheck
		return 0
	}
	if *showHelp {
		printHelp(out)
		return 0
	}

	switch fs.Arg(0) {
	case "", "serve":
		return serve(out)
	case "migrate":
		return migrate(out)
	default:
		fmt.Fprintf(out, "unknown command %q\n\n", fs.Arg(0)) //nolint:errcheck
		printHelp(out)
		return 2
	}
}

func serve(out io.Writer) int {
	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	deps, bus, err := bootstrap(cfg, logger)
	if err != nil {
		fmt.Fprintf(out, "ERROR: %v\n", err) //nolint:errcheck
		return 1
	}

	recorderCtx, stopRecorder := context.WithCancel(context.Background())
	defer stopRecorder()
	go deps.Auditor.StartRecorder(recorderCtx, bus)

	srvCfg := server.DefaultConfig()
	srvCfg.Host = cfg.HTTPHost
	srvCfg.Port = cfg.HTTPPort
	if !cfg.MCPEnabled {
		srvCfg.MCPPath = ""
	} else {
		srvCfg.MCPPath = cfg.MCPPath
	}

	srv := server.NewServer(deps, srvCfg, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", "error", err)
			return 1
		}
	case sig := <-sigCh:
		logger.Info("signal received", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("shutdown failed", "error", err)
			return 1
		}
	}
	return 0
}

func migrate(out io.Writer) int {
	cfg := config.Load()

	db, err := sqlite.NewDB(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(out, "ERROR: open database: %v\n", err) //nolint:errcheck
		return 1
	}
	defer db.Close()

	if err := sqlite.MigrateUp(db); err != nil {
		fmt.Fprintf(out, "ERROR: migrate: %v\n", err) //nolint:errcheck
		return 1
	}
	fmt.Fprintf(out, "migrations applied to %s\n", cfg.DBPath) //nolint:errcheck
	return 0
}

// bootstrap opens the database, seals both registries, and assembles the
// dispatch orchestrator. Registry bootstrap failures are fatal: a partially
// loaded inventory must never serve.
func bootstrap(cfg config.Config, logger *slog.Logger) (api.Deps, eventbus.EventBus, error) {
	db, err := sqlite.NewDB(cfg.DBPath)
	if err != nil {
		return api.Deps{}, nil, fmt.Errorf("open database: %w", err)
	}
	if err := sqlite.MigrateUp(db); err != nil {
		db.Close() //nolint:errcheck
		return api.Deps{}, nil, fmt.Errorf("migrate: %w", err)
	}

	ops := operation.NewRegistry()
	if err := operation.BootstrapInventory(ops); err != nil {
		db.Close() //nolint:errcheck
		return api.Deps{}, nil, fmt.Errorf("bootstrap operations: %w", err)
	}

	tools := tool.NewRegistry()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := gen.LoadGenerated(ctx, db, ops, tools); err != nil {
		db.Close() //nolint:errcheck
		return api.Deps{}, nil, fmt.Errorf("load tools: %w", err)
	}
	logger.Info("registries sealed", "operations", len(ops.List()), "tools", tools.Len())

	bus := eventbus.New()
	sessions := session.NewStore(db, cfg.SessionTTL)
	auditor := audit.NewService(db, logger)
	orch := dispatch.New(ops, tools, casefile.NewService(db), sessions,
		dispatch.BuiltinHooks(sessions, auditor, logger), bus, logger)

	return api.Deps{DB: db, Ops: ops, Tools: tools, Orch: orch, Auditor: auditor}, bus, nil
}

func printHelp(out io.Writer) {
	helpText := `caseforge - casefile workspace server

Usage:
  caseforge [options] [command]

Options:
  --version    Show version information
  --help       Show this help message

Commands:
  serve        Start the HTTP/MCP server (default)
  migrate      Apply database migrations and exit

Configuration is read from CASEFORGE_* environment variables; see
internal/infra/config for the full list.

Examples:
  caseforge --version
  caseforge serve
  CASEFORGE_DB=cases.db caseforge migrate`
	fmt.Fprintln(out, helpText) //nolint:errcheck
}
