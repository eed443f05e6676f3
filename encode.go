package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"kubli/stego"
)

func encode(cfg Config, logger *slog.Logger) error {
	opts, err := cfg.stegoOptions(logger)
	if err != nil {
		return err
	}

	// Read the secret from STDIN
	secret, err := readInput(os.Stdin)
	if err != nil {
		return fmt.Errorf("failed to read secret: %w", err)
	}
	if secret == "" {
		return fmt.Errorf("%w: secret message cannot be empty", stego.ErrEmptyInput)
	}

	model, err := loadModel(context.Background(), cfg)
	if err != nil {
		return err
	}
	logger.Debug("model ready", slog.Int("order", model.Order()), slog.Int("contexts", model.Stats().Contexts))

	passphrase, err := getPassphraseWithConfirm("Enter passphrase: ", "Confirm passphrase: ")
	if err != nil {
		return fmt.Errorf("failed to get passphrase: %w", err)
	}
	defer stego.ZeroBytes(passphrase)

	if len(passphrase) == 0 {
		return fmt.Errorf("passphrase cannot be empty")
	}

	out, err := stego.EncodeWithModel(secret, string(passphrase), model, opts)
	if err != nil {
		return fmt.Errorf("encoding failed: %w", err)
	}
	if opts.Mode == stego.ModeZeroWidth && len(strings.Fields(stego.Visible(out))) < 3 {
		logger.Warn("cover text is very short; most markers are appended at the end")
	}

	writer := bufio.NewWriter(os.Stdout)
	if _, err := writer.WriteString(out + "\n"); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}
	return nil
}

// readInput reads all of r and drops one trailing line break
func readInput(r io.Reader) (string, error) {
	data, err := io.ReadAll(bufio.NewReader(r))
	if err != nil {
		return "", err
	}
	s := strings.TrimSuffix(string(data), "\n")
	return strings.TrimSuffix(s, "\r"), nil
}
