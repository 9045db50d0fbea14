package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"golang.org/x/sync/errgroup"

	"github.com/orbitravel/receipts/internal/receipt"
	"github.com/orbitravel/receipts/internal/suggestion"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	os.Exit(run())
}

// run returns the exit code so deferred teardown runs before the process exits
func run() int {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			return 0
		}
	}

	// A missing .env file is fine
	_ = godotenv.Load()

	fs := ff.NewFlagSet("orbitravel-receipts")
	var (
		port          = fs.IntLong("port", 8080, "HTTP server port")
		suggesterType = fs.StringLong("suggester", "gemini", "Suggestion provider: 'gemini' or 'ollama'")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY or API_KEY)")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL     = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = fs.StringLong("ollama-model", "llama3.1", "Ollama model name")
		authUser      = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass      = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		generateDelay = fs.DurationLong("generate-delay", 500*time.Millisecond, "Delay before a submitted receipt is shown")
		resetDelay    = fs.DurationLong("reset-delay", 300*time.Millisecond, "Delay before a discarded receipt is cleared")
		sessionTTL    = fs.DurationLong("session-ttl", 2*time.Hour, "Idle time after which a session is dropped")
		debug         = fs.BoolLong("debug", "Enable debug logging")
		showVersion   = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("ORBITRAVEL"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	if *showVersion {
		fmt.Println(version)
		return 0
	}

	if *debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	suggester, err := newSuggester(*suggesterType, *geminiKey, *geminiModel, *ollamaURL, *ollamaModel)
	if err != nil {
		slog.Error("Failed to initialize suggester", "type", *suggesterType, "error", err)
		return 1
	}
	defer suggester.Close()

	assembler := receipt.NewAssembler()
	shellConfig := receipt.ShellConfig{
		GenerateDelay: *generateDelay,
		ResetDelay:    *resetDelay,
	}

	sessionConfig := receipt.DefaultSessionConfig()
	sessionConfig.TTL = *sessionTTL
	sessions := receipt.NewSessionStore(sessionConfig, func() *receipt.Shell {
		return receipt.NewShell(assembler, suggester, shellConfig)
	})
	defer sessions.Close()

	server := receipt.NewServer(sessions, receipt.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	})
	addr := fmt.Sprintf(":%d", *port)
	httpServer := server.HTTPServer(addr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
		if *authUser != "" || *authPass != "" {
			slog.Info("Basic auth enabled", "user", *authUser)
		}
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server error", "error", err)
		return 1
	}
	return 0
}

// newSuggester builds the configured suggestion provider
func newSuggester(kind, geminiKey, geminiModel, ollamaURL, ollamaModel string) (suggestion.Suggester, error) {
	switch kind {
	case "gemini":
		apiKey := geminiKey
		for _, env := range []string{"GEMINI_API_KEY", "API_KEY"} {
			if apiKey != "" {
				break
			}
			apiKey = os.Getenv(env)
		}
		if apiKey == "" {
			return nil, errors.New("gemini API key is required: set --gemini-key, GEMINI_API_KEY or API_KEY")
		}
		slog.Info("Initializing Gemini suggester...", "model", geminiModel)
		return suggestion.NewGemini(apiKey, geminiModel)
	case "ollama":
		slog.Info("Initializing Ollama suggester...", "url", ollamaURL, "model", ollamaModel)
		return suggestion.NewOllama(ollamaURL, ollamaModel)
	default:
		return nil, fmt.Errorf("invalid suggester type %q: valid values are gemini or ollama", kind)
	}
}
