package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"kubli/stego"
)

const (
	Version = "1.0.0"

	// Environment variable for passphrase
	PassphraseEnvVar = "KUBLI_PASSPHRASE"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 1 {
		printUsage()
		return fmt.Errorf("no command specified")
	}

	command := args[0]
	switch command {
	case "--help", "-h", "help":
		printUsage()
		return nil
	case "--version", "-v", "version":
		fmt.Fprintf(os.Stderr, "kubli version %s\n", Version)
		return nil
	}

	cfg, err := parseConfig(args[1:])
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Verbose)

	switch command {
	case "encode", "--encode", "-e":
		return encode(cfg, logger)
	case "decode", "--decode", "-d":
		return decode(cfg, logger)
	case "reveal", "--reveal", "-r":
		return reveal()
	case "stats", "--stats", "-s":
		return stats(cfg)
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

// parseConfig loads the config file named by --config, if any, then applies flags on top
func parseConfig(args []string) (Config, error) {
	cfg := defaultConfig()

	for _, arg := range args {
		if path, ok := flagValue(arg, "--config", "-c"); ok {
			if err := loadConfigFile(path, &cfg); err != nil {
				return cfg, err
			}
		}
	}

	for _, arg := range args {
		if arg == "--hamming" {
			cfg.Hamming = true
		} else if arg == "--verbose" || arg == "-V" {
			cfg.Verbose = true
		} else if _, ok := flagValue(arg, "--config", "-c"); ok {
			continue
		} else if val, ok := flagValue(arg, "--mode", "-m"); ok {
			mode, err := stego.ParseMode(val)
			if err != nil {
				return cfg, err
			}
			cfg.Mode = string(mode)
		} else if val, ok := flagValue(arg, "--order", "-n"); ok {
			n, err := parsePositive(val)
			if err != nil {
				return cfg, fmt.Errorf("invalid order value: %w", err)
			}
			cfg.Order = n
		} else if val, ok := flagValue(arg, "--words", "-w"); ok {
			n, err := parsePositive(val)
			if err != nil {
				return cfg, fmt.Errorf("invalid words value: %w", err)
			}
			cfg.MaxWords = n
		} else if val, ok := flagValue(arg, "--cover-words", ""); ok {
			n, err := parsePositive(val)
			if err != nil {
				return cfg, fmt.Errorf("invalid cover-words value: %w", err)
			}
			cfg.CoverWords = n
		} else if val, ok := flagValue(arg, "--seed", ""); ok {
			seed, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return cfg, fmt.Errorf("invalid seed value: %w", err)
			}
			cfg.Seed = &seed
		} else if val, ok := flagValue(arg, "--strategy", ""); ok {
			cfg.Strategy = val
		} else if val, ok := flagValue(arg, "--iterations", "-i"); ok {
			n, err := parsePositive(val)
			if err != nil {
				return cfg, fmt.Errorf("invalid iterations value: %w", err)
			}
			cfg.KDF.Iterations = n
		} else if val, ok := flagValue(arg, "--kdf", ""); ok {
			cfg.KDF.Algorithm = val
		} else if val, ok := flagValue(arg, "--corpus", ""); ok {
			cfg.Corpus = val
		} else if val, ok := flagValue(arg, "--db", ""); ok {
			cfg.Table = val
		} else {
			return cfg, fmt.Errorf("unknown option: %s", arg)
		}
	}

	if err := cfg.KDF.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// flagValue matches "--long=value" or "-s=value"
func flagValue(arg, long, short string) (string, bool) {
	if strings.HasPrefix(arg, long+"=") {
		return strings.TrimPrefix(arg, long+"="), true
	}
	if short != "" && strings.HasPrefix(arg, short+"=") {
		return strings.TrimPrefix(arg, short+"="), true
	}
	return "", false
}

func parsePositive(s string) (int, error) {
	val, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if val < 1 {
		return 0, fmt.Errorf("must be at least 1")
	}
	return val, nil
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// stegoOptions converts the CLI config into pipeline options
func (c Config) stegoOptions(logger *slog.Logger) (stego.Options, error) {
	mode, err := stego.ParseMode(c.Mode)
	if err != nil {
		return stego.Options{}, err
	}
	return stego.Options{
		Mode:       mode,
		Order:      c.Order,
		MaxWords:   c.MaxWords,
		CoverWords: c.CoverWords,
		Seed:       c.Seed,
		Strategy:   stego.Strategy(c.Strategy),
		KDF:        c.KDF,
		Hamming:    c.Hamming,
		Logger:     logger,
	}, nil
}

func printUsage() {
	usage := `kubli - Hide encrypted messages in generated cover text

USAGE:
    kubli <command> [options]

COMMANDS:
    encode, -e       Read a secret from STDIN, write stego text to STDOUT
    decode, -d       Read stego text from STDIN, write the secret to STDOUT
    reveal, -r       Show the visible text and hidden markers of STDIN
    stats, -s        Print statistics of the trained n-gram model
    --help, -h       Show this help message
    --version, -v    Show version information

OPTIONS:
    --corpus=PATH           Training text: a .txt file or a folder of .txt files
    --db=FILE               Pre-built n-gram SQLite table (instead of --corpus)
    --mode=MODE, -m=MODE    zerowidth (default) or linguistic
    --order=N, -n=N         N-gram order (default: 3)
    --words=N, -w=N         Maximum words in linguistic mode (default: 50)
    --cover-words=N         Cover sentence words in zerowidth mode (default: 15)
    --seed=N                Seed word selection for reproducible output
    --strategy=NAME         markov (default), viterbi or beam
    --hamming               Protect the payload with Hamming(7,4)
    --iterations=N, -i=N    PBKDF2 iterations (default: 100000)
    --kdf=NAME              pbkdf2-sha256 (default) or argon2id
    --config=FILE, -c=FILE  YAML configuration file
    --verbose, -V           Debug logging on STDERR

PASSPHRASE:
    Set KUBLI_PASSPHRASE environment variable, or enter interactively.

EXAMPLES:
    # Hide a message in a sentence generated from a corpus folder
    echo "Magkita tayo sa plaza" | kubli encode --corpus=filipino_corpus/ > message.txt

    # Recover it
    kubli decode < message.txt

    # Generate bit-steered text (one-way)
    echo "hello" | kubli encode --mode=linguistic --db=filipino_3gram.db

SECURITY:
    - AES-256-GCM with a fresh salt and nonce per message
    - Key derived with PBKDF2-SHA256 (or Argon2id)
    - Zero-width markers are lost if the text is normalized or stripped

`
	fmt.Fprint(os.Stderr, usage)
}
