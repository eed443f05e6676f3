package main

import (
	"bytes"
	"fmt"
	"os"
	"runtime"
	"syscall"

	"golang.org/x/term"

	"kubli/stego"
)

// passphraseSource reads a passphrase from the environment, falling back to a prompt
type passphraseSource struct {
	getenv func(string) string
	prompt func(string) ([]byte, error)
}

var defaultPassphraseSource = passphraseSource{
	getenv: os.Getenv,
	prompt: readPassword,
}

func getPassphrase(prompt string) ([]byte, error) {
	return defaultPassphraseSource.get(prompt)
}

func getPassphraseWithConfirm(prompt, confirmPrompt string) ([]byte, error) {
	return defaultPassphraseSource.getWithConfirm(prompt, confirmPrompt)
}

func (s passphraseSource) get(prompt string) ([]byte, error) {
	if envPass := s.getenv(PassphraseEnvVar); envPass != "" {
		return []byte(envPass), nil
	}
	return s.prompt(prompt)
}

func (s passphraseSource) getWithConfirm(prompt, confirmPrompt string) ([]byte, error) {
	if envPass := s.getenv(PassphraseEnvVar); envPass != "" {
		return []byte(envPass), nil
	}

	passphrase, err := s.prompt(prompt)
	if err != nil {
		return nil, err
	}

	confirm, err := s.prompt(confirmPrompt)
	if err != nil {
		stego.ZeroBytes(passphrase)
		return nil, err
	}
	defer stego.ZeroBytes(confirm)

	if !bytes.Equal(passphrase, confirm) {
		stego.ZeroBytes(passphrase)
		return nil, fmt.Errorf("passphrases do not match")
	}
	return passphrase, nil
}

// readPassword prompts on stderr and reads without echo. STDIN carries the
// message, so a piped STDIN falls back to the controlling terminal.
func readPassword(prompt string) ([]byte, error) {
	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		tty, err := os.Open("/dev/tty")
		if err != nil {
			return nil, noTerminalError()
		}
		defer tty.Close()
		fd = int(tty.Fd())
	}

	fmt.Fprint(os.Stderr, prompt)
	defer fmt.Fprintln(os.Stderr)
	return term.ReadPassword(fd)
}

func noTerminalError() error {
	if runtime.GOOS == "windows" {
		return fmt.Errorf("passphrase must be set via %s environment variable when STDIN is piped", PassphraseEnvVar)
	}
	return fmt.Errorf("cannot read passphrase: STDIN is piped and /dev/tty is not available. Set %s environment variable", PassphraseEnvVar)
}
