// Tinker is a conversational AI assistant.
//
// It answers chat over HTTP, Discord, and iMessage, routing each
// message either to a direct completion or to a tool-use loop that can
// search the web, read pages, and remember facts per user.
// Configuration is loaded from a single YAML file discovered
// automatically (see [config.DefaultSearchPaths]).
//
// Usage:
//
//	tinker serve                       Start the API server and chat surfaces
//	tinker ask <question>              Ask a single question (for testing)
//	tinker ingest -user <id> <file.md> Import a markdown document into memory
//	tinker version                     Print version and build information
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kurtgav/tinker/internal/agent"
	"github.com/kurtgav/tinker/internal/api"
	"github.com/kurtgav/tinker/internal/buildinfo"
	"github.com/kurtgav/tinker/internal/config"
	"github.com/kurtgav/tinker/internal/discord"
	"github.com/kurtgav/tinker/internal/fetch"
	"github.com/kurtgav/tinker/internal/imsg"
	"github.com/kurtgav/tinker/internal/ingest"
	"github.com/kurtgav/tinker/internal/llm"
	"github.com/kurtgav/tinker/internal/memory"
	"github.com/kurtgav/tinker/internal/ratelimit"
	"github.com/kurtgav/tinker/internal/search"
	"github.com/kurtgav/tinker/internal/tools"

	_ "github.com/mattn/go-sqlite3" // SQLite driver for database/sql
)

// main constructs the OS-level environment (context, stdio, argv) and
// delegates immediately to [run]. This keeps os.Exit, os.Stdout, and
// os.Args out of the application logic so the full lifecycle can be
// driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the tinker command. Arguments are
// parsed by hand: the flag package relies on package-level globals,
// which makes it impossible to call run() concurrently from tests, and
// the argument surface is small enough that manual parsing stays clear.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var outputFmt string // "text" (default) or "json"
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, configPath)
	case "ask":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: tinker ask <question>")
		}
		return runAsk(ctx, stdout, configPath, cmdArgs)
	case "ingest":
		return runIngest(stdout, configPath, cmdArgs)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// printUsage writes the top-level help text to w.
func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Tinker - Conversational AI Assistant")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: tinker [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve                        Start the API server and chat surfaces")
	fmt.Fprintln(w, "  ask <question>               Ask a single question (for testing)")
	fmt.Fprintln(w, "  ingest -user <id> <file.md>  Import markdown sections into memory")
	fmt.Fprintln(w, "  version                      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./config.yaml, ~/.config/tinker/config.yaml, /etc/tinker/config.yaml")
	return nil
}

// buildAgent wires the full agent stack: LLM client, memory store,
// tool registry, and rate limiter. The caller closes the returned
// store on shutdown.
func buildAgent(cfg *config.Config, logger *slog.Logger) (*agent.Agent, *memory.Store, error) {
	if cfg.Groq.APIKey == "" {
		return nil, nil, fmt.Errorf("no Groq API key configured (set groq.api_key or GROQ_API_KEY)")
	}
	client := llm.NewGroqClient(cfg.Groq.APIKey, cfg.Groq.BaseURL, logger)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("create data directory %s: %w", cfg.DataDir, err)
	}
	store, err := memory.NewStore(cfg.DataDir + "/memory.db")
	if err != nil {
		return nil, nil, fmt.Errorf("open memory database: %w", err)
	}

	registry := tools.NewRegistry()

	mgr := search.NewManager(cfg.Search.Provider)
	mgr.Register(search.NewDuckDuckGo(""))
	if cfg.Search.BraveAPIKey != "" {
		mgr.Register(search.NewBrave(cfg.Search.BraveAPIKey))
	}
	search.RegisterTool(registry, mgr)
	fetch.RegisterTool(registry, fetch.New())
	tools.RegisterSummarizeTool(registry, client, cfg.Groq.FastModel)
	tools.RegisterMemoryTools(registry, store)

	period := time.Duration(cfg.Agent.RateLimit.PeriodSeconds) * time.Second
	limiter := ratelimit.New(cfg.Agent.RateLimit.MaxRequests, period)

	ag := agent.New(logger, agent.Config{
		Client:           client,
		Registry:         registry,
		Limiter:          limiter,
		FastModel:        cfg.Groq.FastModel,
		ReasoningModel:   cfg.Groq.ReasoningModel,
		MaxSteps:         cfg.Agent.MaxSteps,
		RateLimitMessage: agent.RateLimitMessage(cfg.Agent.RateLimit.MaxRequests, period),
	})
	logger.Info("agent initialized",
		"tools", registry.Names(),
		"fast_model", cfg.Groq.FastModel,
		"reasoning_model", cfg.Groq.ReasoningModel,
		"max_steps", cfg.Agent.MaxSteps,
	)
	return ag, store, nil
}

// runAsk handles "tinker ask <question>": boot the agent, process one
// question as the default user, and print the response.
func runAsk(ctx context.Context, stdout io.Writer, configPath string, args []string) error {
	logger := newLogger(stdout, slog.LevelWarn)
	question := strings.Join(args, " ")

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	ag, store, err := buildAgent(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	response, err := ag.HandleMessage(ctx, question, nil, tools.DefaultUserID)
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}

	fmt.Fprintln(stdout, response)
	return nil
}

// runIngest handles "tinker ingest -user <id> <file.md>": parse a
// markdown document and store each section as a remembered fact.
func runIngest(stdout io.Writer, configPath string, args []string) error {
	logger := newLogger(stdout, slog.LevelInfo)

	userID := tools.DefaultUserID
	var filePath string
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-user" && i+1 < len(args):
			userID = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-user="):
			userID = strings.TrimPrefix(args[i], "-user=")
		default:
			filePath = args[i]
		}
	}
	if filePath == "" {
		return fmt.Errorf("usage: tinker ingest -user <id> <file.md>")
	}

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	store, err := memory.NewStore(cfg.DataDir + "/memory.db")
	if err != nil {
		return fmt.Errorf("open memory database: %w", err)
	}
	defer store.Close()

	count, err := ingest.New(store).File(userID, filePath)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	logger.Info("ingestion complete", "sections", count, "user_id", userID, "file", filePath)
	fmt.Fprintf(stdout, "Stored %d sections from %s for user %s\n", count, filePath, userID)
	return nil
}

// runServe handles "tinker serve", the primary operating mode. It
// loads config, builds the agent, starts the enabled chat surfaces
// (HTTP API, Discord, iMessage), and blocks until a shutdown signal.
func runServe(ctx context.Context, stdout io.Writer, configPath string) error {
	logger := newLogger(stdout, slog.LevelInfo)
	logger.Info("starting Tinker", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "built", buildinfo.BuildTime)

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// Reconfigure the logger now that the desired level is known. The
	// initial Info-level logger covers only the startup banner.
	if cfg.LogLevel != "" {
		level, err := config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		logger = newLogger(stdout, level)
	}
	logger.Info("config loaded", "path", cfgPath, "port", cfg.Listen.Port)

	ag, store, err := buildAgent(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	// SIGINT/SIGTERM cancellation flows through the same ctx used by
	// every surface.
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	addr := fmt.Sprintf("%s:%d", cfg.Listen.Address, cfg.Listen.Port)
	server := api.NewServer(addr, ag, logger)

	if cfg.Discord.Enabled {
		if cfg.Discord.Token == "" {
			return fmt.Errorf("discord enabled but no token configured (set discord.token or DISCORD_TOKEN)")
		}
		bot := discord.NewBot(cfg.Discord.Token, ag, logger)
		go func() {
			if err := bot.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("discord bot stopped", "error", err)
			}
		}()
		logger.Info("discord surface enabled")
	}

	if cfg.IMessage.Enabled {
		poller, err := imsg.NewPoller(cfg.IMessage.DBPath, cfg.IMessage.Trigger, ag, logger)
		if err != nil {
			return fmt.Errorf("start imessage poller: %w", err)
		}
		defer poller.Close()
		go func() {
			if err := poller.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("imessage poller stopped", "error", err)
			}
		}()
		logger.Info("imessage surface enabled", "trigger", cfg.IMessage.Trigger)
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.Start(ctx); err != nil {
		if ctx.Err() == nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	logger.Info("Tinker stopped")
	return nil
}

// newLogger creates a structured text logger writing to w at the given
// level. All log output goes through slog; this helper standardizes
// the handler configuration across subcommands.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
}

// loadConfig loads the .env file (if present), then locates and parses
// the YAML configuration. If explicit is non-empty, that exact path is
// used and must exist.
func loadConfig(explicit string) (*config.Config, string, error) {
	config.LoadEnv()

	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	return cfg, cfgPath, nil
}
