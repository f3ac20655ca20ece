package main

import (
	"cmp"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/BTreeMap/PromptCanvas/internal/api"
	"github.com/BTreeMap/PromptCanvas/internal/artifact"
	"github.com/BTreeMap/PromptCanvas/internal/genai"
	"github.com/BTreeMap/PromptCanvas/internal/imgutil"
	"github.com/BTreeMap/PromptCanvas/internal/lockfile"
	"github.com/BTreeMap/PromptCanvas/internal/models"
	"github.com/BTreeMap/PromptCanvas/internal/store"
	"github.com/BTreeMap/PromptCanvas/internal/terminal"
	"github.com/BTreeMap/PromptCanvas/internal/util"
	"github.com/BTreeMap/PromptCanvas/internal/workflow"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for PromptCanvas state data
	DefaultStateDir = "/var/lib/promptcanvas"
	// DefaultDBFileName is the SQLite receipt database filename used with -db-dsn=sqlite
	DefaultDBFileName = "receipts.db"
	// DefaultSource is the artifact source used when none is configured
	DefaultSource = artifact.PlaceholderName
	// DefaultShutdownTimeout bounds graceful HTTP shutdown
	DefaultShutdownTimeout = 10 * time.Second
)

func main() {
	initializeLogger(os.Stdout, slog.LevelInfo)

	config := loadEnvironmentConfig()

	flags, err := parseCommandLineFlags(config, os.Args[1:])
	if err != nil {
		slog.Error("Failed to parse command line flags", "error", err)
		os.Exit(2)
	}

	if err := run(flags); err != nil {
		slog.Error("PromptCanvas failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("PromptCanvas exited successfully")
}

// Config holds environment configuration
type Config struct {
	StateDir      string
	DatabaseURL   string
	APIAddr       string
	Source        string
	OpenAIKey     string
	OpenAIModel   string
	OpenAISize    string
	OpenAIQuality string
	GeminiKey     string
	GeminiModel   string
	JPEGQuality   int
	HistoryLimit  int
	Timeout       time.Duration
	MaxAttempts   int
	Grayscale     bool
	KeepAlive     time.Duration
	Interactive   bool
	Debug         bool
}

// Flags holds command line flag values
type Flags struct {
	stateDir      string
	dbDSN         string
	apiAddr       string
	source        string
	openaiKey     string
	openaiModel   string
	openaiSize    string
	openaiQuality string
	geminiKey     string
	geminiModel   string
	jpegQuality   int
	historyLimit  int
	timeout       time.Duration
	maxAttempts   int
	grayscale     bool
	keepAlive     time.Duration
	interactive   bool
	debug         bool
}

// initializeLogger sets up structured logging at the given level
func initializeLogger(w io.Writer, level slog.Level) {
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		StateDir:      os.Getenv("PROMPTCANVAS_STATE_DIR"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		APIAddr:       os.Getenv("API_ADDR"),
		Source:        os.Getenv("PROMPTCANVAS_SOURCE"),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   os.Getenv("OPENAI_IMAGE_MODEL"),
		OpenAISize:    os.Getenv("OPENAI_IMAGE_SIZE"),
		OpenAIQuality: os.Getenv("OPENAI_IMAGE_QUALITY"),
		GeminiKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   os.Getenv("GEMINI_IMAGE_MODEL"),
		JPEGQuality:   util.ParseIntEnv("PROMPTCANVAS_JPEG_QUALITY", imgutil.DefaultJPEGQuality),
		HistoryLimit:  util.ParseIntEnv("PROMPTCANVAS_HISTORY_LIMIT", models.DefaultHistoryLimit),
		Timeout:       util.ParseDurationEnv("PROMPTCANVAS_TIMEOUT", 0),
		MaxAttempts:   util.ParseIntEnv("PROMPTCANVAS_MAX_ATTEMPTS", 1),
		Grayscale:     util.ParseBoolEnv("PROMPTCANVAS_GRAYSCALE", true),
		KeepAlive:     util.ParseDurationEnv("PROMPTCANVAS_SSE_KEEPALIVE", api.DefaultKeepAliveInterval),
		Interactive:   util.ParseBoolEnv("PROMPTCANVAS_INTERACTIVE", false),
		Debug:         util.ParseBoolEnv("PROMPTCANVAS_DEBUG", false),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No PROMPTCANVAS_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	if config.Source == "" {
		config.Source = DefaultSource
	}
	if config.APIAddr == "" {
		config.APIAddr = api.DefaultAddr
	}

	slog.Debug("environment variables loaded",
		"PROMPTCANVAS_STATE_DIR", config.StateDir,
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"API_ADDR", config.APIAddr,
		"PROMPTCANVAS_SOURCE", config.Source,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"GEMINI_API_KEY_SET", config.GeminiKey != "",
		"PROMPTCANVAS_HISTORY_LIMIT", config.HistoryLimit,
		"PROMPTCANVAS_TIMEOUT", config.Timeout,
		"PROMPTCANVAS_MAX_ATTEMPTS", config.MaxAttempts,
		"PROMPTCANVAS_GRAYSCALE", config.Grayscale)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config, args []string) (Flags, error) {
	var flags Flags
	fs := flag.NewFlagSet("PromptCanvas", flag.ContinueOnError)
	fs.StringVar(&flags.stateDir, "state-dir", config.StateDir, "state directory for PromptCanvas data (overrides $PROMPTCANVAS_STATE_DIR)")
	fs.StringVar(&flags.dbDSN, "db-dsn", config.DatabaseURL, "receipt store DSN: empty for in-memory, a postgres DSN, an SQLite path, or \"sqlite\" for the state directory (overrides $DATABASE_URL)")
	fs.StringVar(&flags.apiAddr, "api-addr", config.APIAddr, "API server address (overrides $API_ADDR)")
	fs.StringVar(&flags.source, "source", config.Source, "artifact source: placeholder, openai or gemini (overrides $PROMPTCANVAS_SOURCE)")
	fs.StringVar(&flags.openaiKey, "openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)")
	fs.StringVar(&flags.openaiModel, "openai-model", config.OpenAIModel, "OpenAI image model (overrides $OPENAI_IMAGE_MODEL)")
	fs.StringVar(&flags.openaiSize, "openai-size", config.OpenAISize, "OpenAI image size, e.g. 1024x1024 (overrides $OPENAI_IMAGE_SIZE)")
	fs.StringVar(&flags.openaiQuality, "openai-quality", config.OpenAIQuality, "OpenAI image quality (overrides $OPENAI_IMAGE_QUALITY)")
	fs.StringVar(&flags.geminiKey, "gemini-api-key", config.GeminiKey, "Gemini API key (overrides $GEMINI_API_KEY)")
	fs.StringVar(&flags.geminiModel, "gemini-model", config.GeminiModel, "Gemini image model (overrides $GEMINI_IMAGE_MODEL)")
	fs.IntVar(&flags.jpegQuality, "jpeg-quality", config.JPEGQuality, "JPEG quality (1-100) for recompressed Gemini images (overrides $PROMPTCANVAS_JPEG_QUALITY)")
	fs.IntVar(&flags.historyLimit, "history-limit", config.HistoryLimit, "number of artifacts kept in history, at most 5 (overrides $PROMPTCANVAS_HISTORY_LIMIT)")
	fs.DurationVar(&flags.timeout, "timeout", config.Timeout, "per-attempt generation timeout, 0 for none (overrides $PROMPTCANVAS_TIMEOUT)")
	fs.IntVar(&flags.maxAttempts, "max-attempts", config.MaxAttempts, "generation attempts before failing (overrides $PROMPTCANVAS_MAX_ATTEMPTS)")
	fs.BoolVar(&flags.grayscale, "grayscale", config.Grayscale, "request the grayscale placeholder variant (overrides $PROMPTCANVAS_GRAYSCALE)")
	fs.DurationVar(&flags.keepAlive, "sse-keepalive", config.KeepAlive, "interval between keep-alive comments on the event stream (overrides $PROMPTCANVAS_SSE_KEEPALIVE)")
	fs.BoolVar(&flags.interactive, "interactive", config.Interactive, "run the interactive terminal alongside the API (overrides $PROMPTCANVAS_INTERACTIVE)")
	fs.BoolVar(&flags.debug, "debug", config.Debug, "enable debug logging and OpenAI request dumps (overrides $PROMPTCANVAS_DEBUG)")

	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}

	flags.source = strings.ToLower(strings.TrimSpace(flags.source))
	if flags.dbDSN == "sqlite" {
		flags.dbDSN = filepath.Join(flags.stateDir, DefaultDBFileName)
		slog.Debug("Resolved sqlite shorthand to state directory", "db_path", flags.dbDSN)
	}

	slog.Debug("flags parsed",
		"stateDir", flags.stateDir,
		"dbDSN_set", flags.dbDSN != "",
		"apiAddr", flags.apiAddr,
		"source", flags.source,
		"openaiKeySet", flags.openaiKey != "",
		"geminiKeySet", flags.geminiKey != "",
		"historyLimit", flags.historyLimit,
		"timeout", flags.timeout,
		"maxAttempts", flags.maxAttempts,
		"grayscale", flags.grayscale,
		"interactive", flags.interactive)

	return flags, nil
}

// usesFileStore reports whether the receipt store lives on the local filesystem.
func usesFileStore(flags Flags) bool {
	return flags.dbDSN != "" && store.DetectDSNType(flags.dbDSN) == store.DSNTypeSQLite
}

// run wires the modules together and blocks until shutdown.
func run(flags Flags) error {
	if flags.interactive {
		// Logs go to stderr so they do not tear the menu.
		initializeLogger(os.Stderr, slog.LevelWarn)
	}
	if flags.debug {
		out := io.Writer(os.Stdout)
		if flags.interactive {
			out = os.Stderr
		}
		initializeLogger(out, slog.LevelDebug)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if usesFileStore(flags) {
		lock, err := lockfile.AcquireLock(flags.stateDir)
		if err != nil {
			return err
		}
		defer lock.Release()
	}

	st, err := store.Open(buildStoreOptions(flags)...)
	if err != nil {
		return fmt.Errorf("failed to open receipt store: %w", err)
	}
	defer st.Close()

	source, err := buildSource(ctx, flags)
	if err != nil {
		return fmt.Errorf("failed to create artifact source: %w", err)
	}

	wf := workflow.New(source, buildWorkflowOptions(flags, st)...)
	server := api.NewServer(wf, st, buildAPIOptions(flags)...)

	slog.Info("Bootstrapping PromptCanvas", "source", source.Name(), "api_addr", server.Addr(), "interactive", flags.interactive)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	termDone := make(chan error, 1)
	if flags.interactive {
		go func() {
			termDone <- terminal.New(wf).Run(ctx)
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case runErr = <-serverErr:
	case runErr = <-termDone:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("API server shutdown incomplete", "error", err)
	}
	return runErr
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if flags.dbDSN == "" {
		slog.Debug("No database DSN provided, will use in-memory store")
		return storeOpts
	}
	if store.DetectDSNType(flags.dbDSN) == store.DSNTypePostgres {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql")
		storeOpts = append(storeOpts, store.WithPostgresDSN(flags.dbDSN))
	} else {
		slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", flags.dbDSN)
		storeOpts = append(storeOpts, store.WithSQLiteDSN(flags.dbDSN))
	}
	return storeOpts
}

// buildGenAIOptions constructs OpenAI image client options
func buildGenAIOptions(flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	if flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(flags.openaiKey))
	}
	if flags.openaiModel != "" {
		genaiOpts = append(genaiOpts, genai.WithModel(flags.openaiModel))
	}
	if flags.openaiSize != "" {
		genaiOpts = append(genaiOpts, genai.WithSize(flags.openaiSize))
	}
	if flags.openaiQuality != "" {
		genaiOpts = append(genaiOpts, genai.WithQuality(flags.openaiQuality))
	}
	if flags.debug {
		genaiOpts = append(genaiOpts, genai.WithDebug(flags.stateDir))
	}
	return genaiOpts
}

// buildSource creates the configured artifact source
func buildSource(ctx context.Context, flags Flags) (artifact.Source, error) {
	switch flags.source {
	case "", artifact.PlaceholderName:
		return artifact.NewPlaceholder(), nil
	case artifact.OpenAIName:
		client, err := genai.NewClient(buildGenAIOptions(flags)...)
		if err != nil {
			return nil, err
		}
		slog.Info("buildSource: OpenAI source configured", "model", client.Model())
		return artifact.NewOpenAI(client), nil
	case artifact.GeminiName:
		g, err := artifact.NewGemini(ctx, flags.geminiKey, buildGeminiOptions(flags)...)
		if err != nil {
			return nil, err
		}
		slog.Info("buildSource: Gemini source configured", "model", cmp.Or(flags.geminiModel, artifact.DefaultGeminiModel), "jpegQuality", flags.jpegQuality)
		return g, nil
	default:
		return nil, fmt.Errorf("unknown artifact source %q (want placeholder, openai or gemini)", flags.source)
	}
}

// buildGeminiOptions constructs Gemini source options
func buildGeminiOptions(flags Flags) []artifact.GeminiOption {
	var geminiOpts []artifact.GeminiOption
	if flags.geminiModel != "" {
		geminiOpts = append(geminiOpts, artifact.WithGeminiModel(flags.geminiModel))
	}
	if flags.jpegQuality > 0 {
		geminiOpts = append(geminiOpts, artifact.WithJPEGQuality(flags.jpegQuality))
	}
	return geminiOpts
}

// buildWorkflowOptions constructs workflow configuration options
func buildWorkflowOptions(flags Flags, st store.Store) []workflow.Option {
	return []workflow.Option{
		workflow.WithHistoryLimit(flags.historyLimit),
		workflow.WithTimeout(flags.timeout),
		workflow.WithMaxAttempts(flags.maxAttempts),
		workflow.WithVariant(flags.grayscale),
		workflow.WithRecorder(st),
	}
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(flags.apiAddr))
	}
	if flags.keepAlive > 0 {
		apiOpts = append(apiOpts, api.WithKeepAliveInterval(flags.keepAlive))
	}
	return apiOpts
}
