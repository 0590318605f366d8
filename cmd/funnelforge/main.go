package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/numtema/funnelforge/internal/api"
	"github.com/numtema/funnelforge/internal/genai"
	"github.com/numtema/funnelforge/internal/messaging"
	"github.com/numtema/funnelforge/internal/store"
	"github.com/numtema/funnelforge/internal/twiliowhatsapp"
	"github.com/numtema/funnelforge/internal/util"
	"github.com/numtema/funnelforge/internal/whatsapp"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for FunnelForge state data.
	DefaultStateDir = "/var/lib/funnelforge"
	// DefaultDBFileName is the default SQLite database filename.
	DefaultDBFileName = "funnelforge.db"
	// DefaultWhatsmeowDBFileName is the default whatsmeow session filename.
	DefaultWhatsmeowDBFileName = "whatsmeow.db"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	st, err := store.Open(buildStoreOptions(flags)...)
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	apiOpts := buildAPIOptions(flags)

	if gaClient := buildGenAIClient(flags); gaClient != nil {
		apiOpts = append(apiOpts, api.WithGenAI(gaClient))
	}
	notifier, svc := buildNotifier(flags)
	if notifier != nil {
		if err := svc.Start(context.Background()); err != nil {
			slog.Error("Failed to start messaging service", "error", err)
			os.Exit(1)
		}
		apiOpts = append(apiOpts, api.WithNotifier(notifier))
		defer svc.Stop()
	}

	slog.Info("Bootstrapping FunnelForge with configured modules")
	slog.Debug("Final configuration", "state_dir", *flags.stateDir, "dsn_set", *flags.dbDSN != "", "api_addr", *flags.apiAddr, "backend", *flags.backend)
	if err := api.NewServer(st, apiOpts...).Run(); err != nil {
		slog.Error("FunnelForge failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("FunnelForge exited successfully")
}

// Config holds environment configuration.
type Config struct {
	DatabaseURL string
	WhatsAppDSN string
	StateDir    string
	OpenAIKey   string
	APIAddr     string
	Backend     string
}

// Flags holds command line flag values.
type Flags struct {
	qrOutput  *string
	numeric   *bool
	stateDir  *string
	dbDSN     *string
	waDSN     *string
	openaiKey *string
	apiAddr   *string
	backend   *string
}

// initializeLogger sets up structured logging. FUNNELFORGE_DEBUG=1 enables
// debug output.
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("FUNNELFORGE_DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and a
// .env file.
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		WhatsAppDSN: os.Getenv("WHATSAPP_DB_DSN"),
		StateDir:    os.Getenv("FUNNELFORGE_STATE_DIR"),
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		APIAddr:     os.Getenv("API_ADDR"),
		Backend:     os.Getenv("MESSAGING_BACKEND"),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No FUNNELFORGE_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	if config.WhatsAppDSN == "" {
		config.WhatsAppDSN = filepath.Join(config.StateDir, DefaultWhatsmeowDBFileName)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"WHATSAPP_DB_DSN_SET", config.WhatsAppDSN != "",
		"FUNNELFORGE_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr,
		"MESSAGING_BACKEND", config.Backend)

	return config
}

// parseCommandLineFlags parses command line arguments with environment
// defaults.
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		qrOutput:  flag.String("qr-output", "", "path to write WhatsApp login QR code"),
		numeric:   flag.Bool("numeric-code", false, "use numeric WhatsApp login code instead of QR code"),
		stateDir:  flag.String("state-dir", config.StateDir, "state directory for FunnelForge data (overrides $FUNNELFORGE_STATE_DIR)"),
		dbDSN:     flag.String("db-dsn", config.DatabaseURL, "database DSN for the funnel store (overrides $DATABASE_URL)"),
		waDSN:     flag.String("whatsapp-db-dsn", config.WhatsAppDSN, "database DSN for the whatsmeow session (overrides $WHATSAPP_DB_DSN)"),
		openaiKey: flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		apiAddr:   flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		backend:   flag.String("messaging-backend", config.Backend, "lead notification backend: whatsmeow, twilio or empty to disable (overrides $MESSAGING_BACKEND)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"qrOutput", *flags.qrOutput,
		"numeric", *flags.numeric,
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"waDSN_set", *flags.waDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr,
		"backend", *flags.backend)

	return flags
}

// ensureDirectoriesExist creates the state directory for file-based storage.
func ensureDirectoriesExist(flags Flags) error {
	if err := os.MkdirAll(*flags.stateDir, 0755); err != nil {
		slog.Error("Failed to create state directory", "error", err, "state_dir", *flags.stateDir)
		return err
	}
	if *flags.dbDSN != "" && store.DetectDSNType(*flags.dbDSN) == "sqlite" {
		dir := filepath.Dir(*flags.dbDSN)
		if err := os.MkdirAll(dir, 0755); err != nil {
			slog.Error("Failed to create database directory", "error", err, "dir", dir)
			return err
		}
	}
	return nil
}

// buildStoreOptions constructs store configuration options. The SQLite file
// in the state directory serves as the fallback when the primary database is
// unreachable.
func buildStoreOptions(flags Flags) []store.Option {
	storeOpts := []store.Option{
		store.WithFallbackDSN(filepath.Join(*flags.stateDir, DefaultDBFileName)),
	}
	if *flags.dbDSN != "" {
		storeOpts = append(storeOpts, store.WithDSN(*flags.dbDSN))
	} else {
		slog.Debug("No database DSN provided, using local SQLite store")
	}
	return storeOpts
}

// buildAPIOptions constructs API server configuration options.
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	return apiOpts
}

// buildGenAIClient constructs the optional GenAI client. Authoring
// assistance is simply disabled when no API key is configured.
func buildGenAIClient(flags Flags) *genai.Client {
	if *flags.openaiKey == "" {
		slog.Info("OPENAI_API_KEY not set, GenAI endpoints disabled")
		return nil
	}
	client, err := genai.NewClient(genai.WithAPIKey(*flags.openaiKey))
	if err != nil {
		slog.Error("Failed to initialize GenAI client, continuing without it", "error", err)
		return nil
	}
	return client
}

// buildNotifier constructs the optional lead notifier for the configured
// messaging backend. The returned service must be stopped on shutdown.
func buildNotifier(flags Flags) (*messaging.LeadNotifier, messaging.Service) {
	var svc messaging.Service
	switch *flags.backend {
	case "whatsmeow":
		waOpts := []whatsapp.Option{whatsapp.WithDBDSN(*flags.waDSN)}
		if *flags.qrOutput != "" {
			waOpts = append(waOpts, whatsapp.WithQRCodeOutput(*flags.qrOutput))
		}
		if *flags.numeric {
			waOpts = append(waOpts, whatsapp.WithNumericCode())
		}
		client, err := whatsapp.NewClient(waOpts...)
		if err != nil {
			slog.Error("Failed to initialize WhatsApp client, lead notifications disabled", "error", err)
			return nil, nil
		}
		svc = messaging.NewWhatsAppService(client)
	case "twilio":
		client, err := twiliowhatsapp.NewClient()
		if err != nil {
			slog.Error("Failed to initialize Twilio client, lead notifications disabled", "error", err)
			return nil, nil
		}
		svc = messaging.NewTwilioService(client)
	case "":
		slog.Info("MESSAGING_BACKEND not set, lead notifications disabled")
		return nil, nil
	default:
		slog.Error("Unknown messaging backend, lead notifications disabled", "backend", *flags.backend)
		return nil, nil
	}
	return messaging.NewLeadNotifier(svc), svc
}
