// Command starlit runs the story generation service: an HTTP API over a
// stateful, multi-stage storytelling workflow for children.
package main

import (
	"bufio"
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"starlit/pkg/config"
	"starlit/pkg/llm/factory"
	llmmetrics "starlit/pkg/llm/middleware/metrics"
	"starlit/pkg/logx"
	"starlit/pkg/metrics"
	"starlit/pkg/persistence"
	"starlit/pkg/server"
	"starlit/pkg/stages"
	"starlit/pkg/state"
	"starlit/pkg/version"
	"starlit/pkg/workflow"
)

func main() {
	var (
		configPath    = flag.String("config", "", "Path to config file (defaults built in when omitted)")
		projectDir    = flag.String("projectdir", ".", "Project directory (holds "+config.ProjectDir+"/)")
		input         = flag.String("input", "", "Run one story request from the command line and exit")
		threadID      = flag.String("thread", "", "Thread ID for -input mode (optional)")
		lengthTier    = flag.String("length", "medium", "Story length for -input mode: short, medium, or long")
		prometheusURL = flag.String("prometheus-url", "", "Prometheus base URL for the usage endpoint (optional)")
		setupSecrets  = flag.Bool("setup-secrets", false, "Interactively create the encrypted secrets file and exit")
		showVersion   = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("starlit %s\n", version.Version)
		fmt.Printf("  commit: %s\n", version.Commit)
		fmt.Printf("  built:  %s\n", version.Date)
		os.Exit(0)
	}

	os.Exit(run(*configPath, *projectDir, *input, *threadID, *lengthTier, *prometheusURL, *setupSecrets))
}

// run contains the main application logic and returns an exit code, so that
// defers execute before the process exits.
func run(configPath, projectDir, input, threadID, lengthTier, prometheusURL string, setupSecrets bool) int {
	logger := logx.NewLogger("starlit")

	if setupSecrets {
		if err := runSecretsSetup(projectDir); err != nil {
			fmt.Fprintf(os.Stderr, "Secrets setup failed: %v\n", err)
			return 1
		}
		return 0
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	if err := loadSecrets(projectDir); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load secrets: %v\n", err)
		return 1
	}

	store, cleanup, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open state store: %v\n", err)
		return 1
	}
	defer cleanup()

	clients := factory.NewClientFactory(llmmetrics.NewPrometheusRecorder())
	collab, err := stages.New(clients, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build pipeline stages: %v\n", err)
		return 1
	}

	engine := workflow.NewEngine(store, collab, cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if input != "" {
		return runOneShot(ctx, engine, threadID, input, lengthTier)
	}

	var usage *metrics.QueryService
	if prometheusURL != "" {
		usage, err = metrics.NewQueryService(prometheusURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create metrics query service: %v\n", err)
			return 1
		}
	}

	logger.Info("Starting starlit %s", version.Version)
	srv := server.New(engine, store, cfg, usage)
	if err := srv.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
		return 1
	}
	return 0
}

func loadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		return config.DefaultConfig(), nil
	}
	return config.LoadConfig(configPath)
}

// loadSecrets decrypts the project secrets file into memory when one exists.
// The password comes from STARLIT_PASSWORD or an interactive prompt.
func loadSecrets(projectDir string) error {
	if !config.SecretsFileExists(projectDir) {
		return nil
	}

	password := os.Getenv("STARLIT_PASSWORD")
	if password == "" {
		fmt.Print("Enter project password: ")
		raw, err := term.ReadPassword(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = string(raw)
	}

	secrets, err := config.DecryptSecretsFile(projectDir, password)
	if err != nil {
		return fmt.Errorf("failed to decrypt secrets: %w", err)
	}
	config.SetDecryptedSecrets(secrets)
	return nil
}

// runOneShot executes a single turn and prints the result, for trying the
// pipeline without running the server.
func runOneShot(ctx context.Context, engine *workflow.Engine, threadID, input, lengthTier string) int {
	result, err := engine.RunTurn(ctx, threadID, input, lengthTier)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Turn failed: %v\n", err)
		return 1
	}

	if !result.Success {
		fmt.Fprintf(os.Stderr, "%s\n", result.Error)
		return 1
	}

	if result.Document != "" {
		fmt.Println(result.Document)
	} else {
		fmt.Println(result.Story)
	}
	fmt.Fprintf(os.Stderr, "\nthread: %s\n", result.ThreadID)
	return 0
}

// runSecretsSetup interactively collects API keys and writes the encrypted
// secrets file.
func runSecretsSetup(projectDir string) error {
	password, err := promptForPassword()
	if err != nil {
		return err
	}

	secrets := make(map[string]string)
	scanner := bufio.NewScanner(os.Stdin)

	prompts := []struct {
		name  string
		label string
	}{
		{"GEMINI_API_KEY", "Enter GEMINI_API_KEY (press Enter to skip): "},
		{"ANTHROPIC_API_KEY", "Enter ANTHROPIC_API_KEY (press Enter to skip): "},
		{"OPENAI_API_KEY", "Enter OPENAI_API_KEY (press Enter to skip): "},
		{"OLLAMA_HOST", "Enter OLLAMA_HOST (press Enter to skip): "},
	}

	for _, p := range prompts {
		fmt.Print(p.label)
		if scanner.Scan() {
			if value := strings.TrimSpace(scanner.Text()); value != "" {
				secrets[p.name] = value
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	if len(secrets) == 0 {
		return fmt.Errorf("no secrets entered, nothing to save")
	}

	fmt.Println("Encrypting and saving credentials...")
	if err := config.EncryptSecretsFile(projectDir, password, secrets); err != nil {
		return fmt.Errorf("failed to encrypt secrets: %w", err)
	}

	fmt.Printf("Saved %d secrets to %s/secrets.json.enc\n", len(secrets), config.ProjectDir)
	fmt.Println("Set STARLIT_PASSWORD to skip the password prompt at startup.")
	return nil
}

// promptForPassword prompts for a password with confirmation.
func promptForPassword() (string, error) {
	const maxAttempts = 3
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		fmt.Print("Enter a password for this project: ")
		password1, err := term.ReadPassword(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}

		fmt.Print("Confirm password: ")
		password2, err := term.ReadPassword(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}

		if !bytes.Equal(password1, password2) {
			if attempt < maxAttempts {
				fmt.Println("Passwords do not match. Please try again.")
				continue
			}
			return "", fmt.Errorf("passwords do not match after %d attempts", maxAttempts)
		}

		password := string(password1)
		for i := range password1 {
			password1[i] = 0
		}
		for i := range password2 {
			password2[i] = 0
		}
		return password, nil
	}
	return "", fmt.Errorf("failed to get matching passwords")
}

// openStore selects the state store backend from configuration.
func openStore(cfg *config.Config) (state.Store, func(), error) {
	switch cfg.Storage.Backend {
	case "memory":
		return state.NewMemoryStore(), func() {}, nil
	case "file":
		store, err := state.NewFileStore(cfg.Storage.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	case "sqlite":
		store, err := persistence.Open(cfg.Storage.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
