package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"go.etcd.io/bbolt"

	"github.com/anikets/bachatbuddy/internal/auth"
	"github.com/anikets/bachatbuddy/internal/catalog"
	"github.com/anikets/bachatbuddy/internal/extraction"
	"github.com/anikets/bachatbuddy/internal/history"
	"github.com/anikets/bachatbuddy/internal/savings"
	"github.com/anikets/bachatbuddy/internal/server"
	"github.com/anikets/bachatbuddy/internal/shop"
	"github.com/anikets/bachatbuddy/internal/user"
	"github.com/anikets/bachatbuddy/pkg/logging"
	"github.com/google/uuid"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("bachatbuddy")
	var (
		port          = fs.IntLong("port", 8080, "HTTP server port")
		dbPath        = fs.StringLong("db", "bachatbuddy.db", "Database file path")
		extractorType = fs.StringLong("extractor", "gemini", "Bill extractor: 'gemini' or 'ollama'")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL     = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, qwen2-vl)")
		jwtSecret     = fs.StringLong("jwt-secret", "", "Secret for signing session tokens")
		strict        = fs.BoolLong("strict-reconcile", "Reject whole bills containing malformed line items")
		showVersion   = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("BACHATBUDDY"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	logging.Setup()

	if *jwtSecret == "" {
		slog.Error("JWT secret is required. Set --jwt-secret flag or BACHATBUDDY_JWT_SECRET environment variable")
		os.Exit(1)
	}

	slog.Info("Initializing database...", "path", *dbPath)
	db, err := bbolt.Open(*dbPath, 0600, nil)
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	events, err := history.NewBoltStore(db)
	if err != nil {
		slog.Error("Failed to initialize history store", "error", err)
		os.Exit(1)
	}
	prices, err := catalog.NewBoltDB(db)
	if err != nil {
		slog.Error("Failed to initialize price catalog", "error", err)
		os.Exit(1)
	}
	shops, err := shop.NewBoltDirectory(db)
	if err != nil {
		slog.Error("Failed to initialize shop directory", "error", err)
		os.Exit(1)
	}
	if err := shops.Seed(shop.DefaultShops()); err != nil {
		slog.Error("Failed to seed shop directory", "error", err)
		os.Exit(1)
	}
	users, err := user.NewBoltStore(db)
	if err != nil {
		slog.Error("Failed to initialize user store", "error", err)
		os.Exit(1)
	}

	// Initialize extractor based on type
	var extractor extraction.Extractor
	switch *extractorType {
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini extractor...", "model", *geminiModel)
		extractor, err = extraction.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
	case "ollama":
		slog.Info("Initializing Ollama extractor...", "url", *ollamaURL, "model", *ollamaModel)
		extractor, err = extraction.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid extractor type", "type", *extractorType, "valid", "gemini or ollama")
		os.Exit(1)
	}
	defer extractor.Close()

	reconciler := catalog.NewReconcilerWithDeps(prices, shops, *strict, nil)
	if *strict {
		slog.Info("Strict reconciliation enabled")
	}

	service := savings.NewService(events, prices, reconciler, extractor, shops, shop.NewGridLocator())
	authenticator := auth.NewPasswordAuthenticator(users, &uuidGenerator{})
	tokens := auth.NewTokenManager(*jwtSecret, auth.DefaultTokenDuration)

	srv := server.NewServer(service, authenticator, tokens)

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := srv.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
