package stego

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Mode selects how the payload is carried by the output text.
type Mode string

const (
	// ModeLinguistic lets payload bits choose the generated words. One-way.
	ModeLinguistic Mode = "linguistic"
	// ModeZeroWidth interleaves invisible markers with a generated cover sentence.
	ModeZeroWidth Mode = "zerowidth"

	DefaultCoverWords = 15
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeLinguistic, ModeZeroWidth:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMode, s)
	}
}

// Options configures Encode and Decode. Zero values take defaults.
type Options struct {
	Mode       Mode
	Order      int
	MaxWords   int // linguistic output budget
	CoverWords int // zero-width cover budget
	Seed       *int64
	Strategy   Strategy
	KDF        KDFParams

	// Hamming frames the payload with a length header and Hamming(7,4).
	// Encoder and decoder must agree.
	Hamming bool

	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Mode == "" {
		o.Mode = ModeZeroWidth
	}
	if o.Order == 0 {
		o.Order = DefaultOrder
	}
	if o.MaxWords <= 0 {
		o.MaxWords = DefaultMaxWords
	}
	if o.CoverWords <= 0 {
		o.CoverWords = DefaultCoverWords
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

// Encode encrypts secret, trains a fresh model on corpus and returns stego text.
func Encode(secret, passphrase string, corpus Corpus, opts Options) (string, error) {
	if err := validateSecret(secret, passphrase); err != nil {
		return "", err
	}
	if corpus.Len() < MinCorpusLen {
		return "", fmt.Errorf("%w: need at least %d characters, got %d", ErrInsufficientCorpus, MinCorpusLen, corpus.Len())
	}
	opts = opts.withDefaults()
	mode, err := ParseMode(string(opts.Mode))
	if err != nil {
		return "", err
	}
	opts.Mode = mode

	model, err := NewModel(opts.Order)
	if err != nil {
		return "", err
	}
	if err = model.Train(corpus.Text()); err != nil {
		return "", err
	}
	return encode(secret, passphrase, model, opts)
}

// EncodeWithModel is Encode over an already trained model, such as one loaded with LoadTable.
func EncodeWithModel(secret, passphrase string, model *Model, opts Options) (string, error) {
	if err := validateSecret(secret, passphrase); err != nil {
		return "", err
	}
	opts = opts.withDefaults()
	mode, err := ParseMode(string(opts.Mode))
	if err != nil {
		return "", err
	}
	opts.Mode = mode
	if model == nil || !model.Trained() {
		return "", ErrModelNotTrained
	}
	return encode(secret, passphrase, model, opts)
}

func validateSecret(secret, passphrase string) error {
	if secret == "" {
		return fmt.Errorf("%w: secret message cannot be empty", ErrEmptyInput)
	}
	if passphrase == "" {
		return fmt.Errorf("%w: passphrase cannot be empty", ErrEmptyInput)
	}
	return nil
}

func encode(secret, passphrase string, model *Model, opts Options) (string, error) {
	log := opts.Logger

	payload, err := Encrypt(secret, passphrase, opts.KDF)
	if err != nil {
		return "", err
	}

	bits := Frame(payload)
	if opts.Hamming {
		bits = HammingEncode(payload)
	}
	log.Debug("payload framed",
		slog.Int("payload_bytes", payload.Len()),
		slog.Int("bits", len(bits)),
		slog.Bool("hamming", opts.Hamming),
	)

	switch opts.Mode {
	case ModeLinguistic:
		g, err := model.GenerateTrace(GenerateOptions{
			Bits:     bits,
			MaxWords: opts.MaxWords,
			Seed:     opts.Seed,
			Strategy: StrategyMarkov,
		})
		if err != nil {
			return "", err
		}
		log.Debug("linguistic text generated",
			slog.Int("words", len(g.Words)),
			slog.Int("bits_consumed", g.BitsConsumed),
		)
		return g.Text, nil

	case ModeZeroWidth:
		cover, err := model.Generate(GenerateOptions{
			MaxWords: opts.CoverWords,
			Seed:     opts.Seed,
			Strategy: opts.Strategy,
		})
		if err != nil {
			return "", err
		}
		log.Debug("cover text generated",
			slog.Int("chars", len(cover)),
			slog.Int("capacity", Capacity(cover)),
		)
		return Embed(cover, bits), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedMode, opts.Mode)
}

// Decode recovers the secret from zero-width stego text.
// Linguistic output cannot be decoded and returns ErrIrreversibleMode.
func Decode(stego, passphrase string, opts Options) (string, error) {
	opts = opts.withDefaults()
	mode, err := ParseMode(string(opts.Mode))
	if err != nil {
		return "", err
	}
	if mode == ModeLinguistic {
		return "", fmt.Errorf("%w: linguistic text carries no recoverable payload", ErrIrreversibleMode)
	}
	if passphrase == "" {
		return "", fmt.Errorf("%w: passphrase cannot be empty", ErrEmptyInput)
	}
	if !HasHidden(stego) {
		return "", ErrNoHiddenData
	}

	bits := Extract(stego)
	var payload *Payload
	if opts.Hamming {
		var corrected int
		payload, corrected, err = HammingDecode(bits)
		if corrected > 0 {
			opts.Logger.Debug("hamming corrected bit errors", slog.Int("blocks", corrected))
		}
	} else {
		payload, err = Unframe(bits)
	}
	if err != nil {
		return "", err
	}
	opts.Logger.Debug("payload extracted", slog.Int("bits", len(bits)), slog.Int("payload_bytes", payload.Len()))

	return Decrypt(payload, passphrase, opts.KDF)
}

// Inspection describes what a stego text carries, without decrypting it.
type Inspection struct {
	Visible     string
	VisibleLen  int
	MarkerCount int
	Preview     string
}

// Inspect summarizes stego text; Preview is the visualized text cut to previewLen runes.
func Inspect(stego string, previewLen int) Inspection {
	visible := Visible(stego)
	preview := []rune(Visualize(stego))
	if previewLen > 0 && len(preview) > previewLen {
		preview = preview[:previewLen]
	}
	return Inspection{
		Visible:     visible,
		VisibleLen:  len([]rune(visible)),
		MarkerCount: len(Extract(stego)),
		Preview:     string(preview),
	}
}
