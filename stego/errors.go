package stego

import "errors"

var (
	// ErrEmptyInput is returned when the secret or passphrase is empty
	ErrEmptyInput = errors.New("empty input")

	// ErrInsufficientCorpus is returned when the corpus is too short or yields no usable sentence
	ErrInsufficientCorpus = errors.New("insufficient corpus")

	ErrModelNotTrained = errors.New("model not trained")
	ErrModelTrained    = errors.New("model already trained")
	ErrInvalidOrder    = errors.New("invalid n-gram order")

	// ErrUnsupportedMode is returned for encoding modes other than linguistic and zerowidth
	ErrUnsupportedMode = errors.New("unsupported mode")

	// ErrIrreversibleMode is returned when decoding linguistic stego text through the pipeline
	ErrIrreversibleMode = errors.New("mode cannot be decoded")

	// ErrCrypto is returned when the random source or cipher setup fails
	ErrCrypto = errors.New("crypto failure")

	// ErrAuthentication is returned when the AEAD tag does not verify
	ErrAuthentication = errors.New("authentication failed (wrong passphrase or corrupted data?)")

	// ErrDecode is returned when decrypted bytes are not valid UTF-8
	ErrDecode = errors.New("decrypted data is not valid text")

	ErrMalformedPayload = errors.New("malformed payload")
	ErrNoHiddenData     = errors.New("no hidden data found")
	ErrInvalidKDF       = errors.New("invalid key derivation parameters")
)
