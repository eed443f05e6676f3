package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"kubli/stego"
)

func decode(cfg Config, logger *slog.Logger) error {
	opts, err := cfg.stegoOptions(logger)
	if err != nil {
		return err
	}
	if opts.Mode == stego.ModeLinguistic {
		return fmt.Errorf("linguistic output cannot be decoded: %w", stego.ErrIrreversibleMode)
	}

	// Read stego text from STDIN
	text, err := readInput(os.Stdin)
	if err != nil {
		return fmt.Errorf("failed to read input (is it a kubli message?): %w", err)
	}
	if !stego.HasHidden(text) {
		return fmt.Errorf("no hidden data found (was the text normalized or retyped?)")
	}

	passphrase, err := getPassphrase("Enter passphrase: ")
	if err != nil {
		return fmt.Errorf("failed to get passphrase: %w", err)
	}
	defer stego.ZeroBytes(passphrase)

	if len(passphrase) == 0 {
		return fmt.Errorf("passphrase cannot be empty")
	}

	secret, err := stego.Decode(text, string(passphrase), opts)
	if errors.Is(err, stego.ErrAuthentication) {
		return fmt.Errorf("decryption failed (wrong passphrase or corrupted text?): %w", err)
	}
	if err != nil {
		return fmt.Errorf("decoding failed: %w", err)
	}

	if _, err := fmt.Fprintln(os.Stdout, secret); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// reveal prints what a stego text carries without decrypting it
func reveal() error {
	text, err := readInput(os.Stdin)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	in := stego.Inspect(text, 150)
	fmt.Fprintln(os.Stdout, "Visible text:")
	fmt.Fprintln(os.Stdout, in.Visible)
	fmt.Fprintf(os.Stdout, "Visible length: %d characters\n", in.VisibleLen)
	fmt.Fprintf(os.Stdout, "Hidden markers: %d\n", in.MarkerCount)
	fmt.Fprintln(os.Stdout, "Preview:")
	fmt.Fprintln(os.Stdout, in.Preview)
	return nil
}
