// Command flashpool is the backend entry point for the flash-loan pool
// service. It loads configuration, validates it, wires dependencies, sets up
// signal handling, and starts the application in the configured mode.
//
// Two operator utilities ship in the same binary:
//
//	flashpool hash-token [-secret <secret>] <token>
//	flashpool encrypt-key [-key <hex>] [-password <password>] [-out <path>]
//
// hash-token prints the HMAC digest of a raw API token for the
// [server] api_tokens config list; encrypt-key turns a raw operator private
// key into an encrypted keystore file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/solvios/flashpool/internal/app"
	"github.com/solvios/flashpool/internal/config"
	"github.com/solvios/flashpool/internal/crypto"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "hash-token":
			os.Exit(runHashToken(os.Args[2:]))
		case "encrypt-key":
			os.Exit(runEncryptKey(os.Args[2:]))
		}
	}

	configPath := flag.String("config", "config.toml", "path to configuration file")
	flag.Parse()

	// Setup structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration.
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// Set log level from config.
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("flashpool starting",
		slog.String("mode", cfg.Mode),
		slog.String("config", *configPath),
	)

	// Create the application.
	application := app.New(cfg, logger)
	defer application.Close()

	// Setup signal handling for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run the application.
	if err := application.Run(ctx); err != nil {
		// context.Canceled is expected on clean shutdown.
		if err == context.Canceled {
			logger.Info("application shut down gracefully")
		} else {
			logger.Error("application exited with error",
				slog.String("error", err.Error()),
			)
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
	}

	logger.Info("flashpool stopped")
}

// runHashToken prints the HMAC digest of a raw API token so operators can list
// the digest in the config instead of the token itself.
func runHashToken(args []string) int {
	fs := flag.NewFlagSet("hash-token", flag.ExitOnError)
	secret := fs.String("secret", "", "HMAC secret (defaults to FLASHPOOL_KEYS_TOKEN_SECRET)")
	_ = fs.Parse(args)

	// Pick up .env so secrets do not have to be passed on the command line.
	_ = godotenv.Load()

	if *secret == "" {
		*secret = os.Getenv("FLASHPOOL_KEYS_TOKEN_SECRET")
	}
	if *secret == "" {
		fmt.Fprintln(os.Stderr, "hash-token: no secret given and FLASHPOOL_KEYS_TOKEN_SECRET is not set")
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: flashpool hash-token [-secret <secret>] <token>")
		return 1
	}

	fmt.Println(crypto.NewTokenAuthority(*secret).Digest(fs.Arg(0)))
	return 0
}

// runEncryptKey encrypts an operator private key and writes the keystore file
// that [keys] encrypted_key_path points at.
func runEncryptKey(args []string) int {
	fs := flag.NewFlagSet("encrypt-key", flag.ExitOnError)
	key := fs.String("key", "", "private key hex (defaults to FLASHPOOL_KEYS_OPERATOR_PRIVATE_KEY)")
	password := fs.String("password", "", "encryption password (defaults to FLASHPOOL_KEYS_KEY_PASSWORD)")
	out := fs.String("out", "keystore.json", "output path for the encrypted keystore")
	_ = fs.Parse(args)

	_ = godotenv.Load()

	if *key == "" {
		*key = os.Getenv("FLASHPOOL_KEYS_OPERATOR_PRIVATE_KEY")
	}
	if *password == "" {
		*password = os.Getenv("FLASHPOOL_KEYS_KEY_PASSWORD")
	}
	if *key == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: flashpool encrypt-key [-key <hex>] [-password <password>] [-out <path>]")
		return 1
	}

	// Derive the address first so a malformed key fails before anything is
	// written.
	signer, err := crypto.NewSigner(*key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "encrypt-key: %v\n", err)
		return 1
	}

	blob, err := crypto.EncryptKey(*key, *password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "encrypt-key: %v\n", err)
		return 1
	}
	if err := os.WriteFile(*out, blob, 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "encrypt-key: %v\n", err)
		return 1
	}

	fmt.Printf("wrote %s for operator %s\n", *out, signer.Address().Hex())
	return 0
}
