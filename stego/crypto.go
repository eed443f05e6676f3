package stego

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"runtime"
	"unicode/utf8"

	"github.com/tink-crypto/tink-go/v2/aead"
	"github.com/tink-crypto/tink-go/v2/insecurecleartextkeyset"
	"github.com/tink-crypto/tink-go/v2/keyset"
	gcmpb "github.com/tink-crypto/tink-go/v2/proto/aes_gcm_go_proto"
	tinkpb "github.com/tink-crypto/tink-go/v2/proto/tink_go_proto"
	"github.com/tink-crypto/tink-go/v2/tink"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
	"google.golang.org/protobuf/proto"
)

const (
	SaltSize  = 16
	NonceSize = 12
	KeySize   = 32 // 256 bits for AES-256
	TagSize   = 16

	// PBKDF2 iteration bounds
	DefaultIterations = 100000
	MaxIterations     = 10000000

	KDFPBKDF2   = "pbkdf2-sha256"
	KDFArgon2id = "argon2id"

	// Argon2id defaults, only used when KDFArgon2id is selected
	DefaultArgon2Time    = 3
	DefaultArgon2Memory  = 64 * 1024 // in KB
	DefaultArgon2Threads = 4
	MaxArgon2Time        = 16

	aesGcmTypeURL = "type.googleapis.com/google.crypto.tink.AesGcmKey"
)

// randReader is the source of salts. It is never seeded from the generation seed.
var randReader io.Reader = rand.Reader

// KDFParams selects and tunes the passphrase key derivation.
// Zero values are replaced with defaults.
type KDFParams struct {
	Algorithm  string `yaml:"algorithm"`
	Iterations int    `yaml:"iterations"`

	// Argon2id only
	Time    uint32 `yaml:"time"`
	Memory  uint32 `yaml:"memory"` // in KB
	Threads uint8  `yaml:"threads"`
}

// DefaultKDF returns PBKDF2-SHA256 with DefaultIterations.
func DefaultKDF() KDFParams {
	return KDFParams{Algorithm: KDFPBKDF2, Iterations: DefaultIterations}
}

func (k KDFParams) withDefaults() KDFParams {
	if k.Algorithm == "" {
		k.Algorithm = KDFPBKDF2
	}
	if k.Iterations == 0 {
		k.Iterations = DefaultIterations
	}
	if k.Time == 0 {
		k.Time = DefaultArgon2Time
	}
	if k.Memory == 0 {
		k.Memory = DefaultArgon2Memory
	}
	if k.Threads == 0 {
		k.Threads = DefaultArgon2Threads
	}
	return k
}

// Validate reports whether the parameters (after defaults) are usable.
func (k KDFParams) Validate() error {
	k = k.withDefaults()
	switch k.Algorithm {
	case KDFPBKDF2:
		if k.Iterations < 1 || k.Iterations > MaxIterations {
			return fmt.Errorf("%w: iterations must be between 1 and %d, got %d", ErrInvalidKDF, MaxIterations, k.Iterations)
		}
	case KDFArgon2id:
		if k.Time > MaxArgon2Time {
			return fmt.Errorf("%w: argon2 time must be at most %d, got %d", ErrInvalidKDF, MaxArgon2Time, k.Time)
		}
		if k.Memory < 1024 {
			return fmt.Errorf("%w: argon2 memory must be at least 1MB", ErrInvalidKDF)
		}
	default:
		return fmt.Errorf("%w: unsupported algorithm %q", ErrInvalidKDF, k.Algorithm)
	}
	return nil
}

// Payload is the encrypted secret as it travels: salt ‖ nonce ‖ ciphertext.
// Ciphertext carries the GCM tag at its end.
type Payload struct {
	Salt       []byte
	Nonce      []byte
	Ciphertext []byte
}

// Bytes returns the wire layout of the payload.
func (p *Payload) Bytes() []byte {
	out := make([]byte, 0, p.Len())
	out = append(out, p.Salt...)
	out = append(out, p.Nonce...)
	out = append(out, p.Ciphertext...)
	return out
}

// Len returns the number of payload bytes.
func (p *Payload) Len() int {
	return len(p.Salt) + len(p.Nonce) + len(p.Ciphertext)
}

// Encrypt seals plaintext under a key derived from passphrase and a fresh salt.
// The nonce is generated per call by the AEAD, so no two calls share salt or nonce.
func Encrypt(plaintext, passphrase string, kdf KDFParams) (*Payload, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("%w: passphrase cannot be empty", ErrEmptyInput)
	}
	if err := kdf.Validate(); err != nil {
		return nil, err
	}
	kdf = kdf.withDefaults()

	// Generate random salt
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(randReader, salt); err != nil {
		return nil, fmt.Errorf("%w: failed to generate salt: %v", ErrCrypto, err)
	}

	pass := []byte(passphrase)
	defer ZeroBytes(pass)
	key := deriveKey(pass, salt, kdf)
	defer ZeroBytes(key)

	primitive, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	// No associated data; output is iv ‖ ciphertext ‖ tag
	sealed, err := primitive.Encrypt([]byte(plaintext), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: encryption failed: %v", ErrCrypto, err)
	}
	if len(sealed) < NonceSize+TagSize {
		return nil, fmt.Errorf("%w: unexpected ciphertext length %d", ErrCrypto, len(sealed))
	}

	return &Payload{
		Salt:       salt,
		Nonce:      sealed[:NonceSize:NonceSize],
		Ciphertext: sealed[NonceSize:],
	}, nil
}

// Decrypt re-derives the key from passphrase and the payload salt and opens the ciphertext.
// Any tag failure returns ErrAuthentication and no plaintext.
func Decrypt(p *Payload, passphrase string, kdf KDFParams) (string, error) {
	if p == nil || len(p.Salt) != SaltSize || len(p.Nonce) != NonceSize {
		return "", fmt.Errorf("%w: salt must be %d bytes and nonce %d bytes", ErrMalformedPayload, SaltSize, NonceSize)
	}
	if passphrase == "" {
		return "", fmt.Errorf("%w: passphrase cannot be empty", ErrEmptyInput)
	}
	if err := kdf.Validate(); err != nil {
		return "", err
	}
	kdf = kdf.withDefaults()

	pass := []byte(passphrase)
	defer ZeroBytes(pass)
	key := deriveKey(pass, p.Salt, kdf)
	defer ZeroBytes(key)

	primitive, err := newAEAD(key)
	if err != nil {
		return "", err
	}

	sealed := make([]byte, 0, NonceSize+len(p.Ciphertext))
	sealed = append(sealed, p.Nonce...)
	sealed = append(sealed, p.Ciphertext...)

	plaintext, err := primitive.Decrypt(sealed, nil)
	if err != nil {
		return "", ErrAuthentication
	}
	if !utf8.Valid(plaintext) {
		ZeroBytes(plaintext)
		return "", ErrDecode
	}
	return string(plaintext), nil
}

// deriveKey derives an AES-256 key from a passphrase
func deriveKey(passphrase, salt []byte, kdf KDFParams) []byte {
	if kdf.Algorithm == KDFArgon2id {
		return argon2.IDKey(passphrase, salt, kdf.Time, kdf.Memory, kdf.Threads, KeySize)
	}
	return pbkdf2.Key(passphrase, salt, kdf.Iterations, KeySize, sha256.New)
}

// newAEAD wraps a raw key into an AES-GCM primitive with no output prefix
func newAEAD(key []byte) (tink.AEAD, error) {
	handle, err := createKeysetFromKey(key)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create keyset: %v", ErrCrypto, err)
	}
	primitive, err := aead.New(handle)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create AEAD: %v", ErrCrypto, err)
	}
	return primitive, nil
}

// createKeysetFromKey creates a Tink keyset handle holding a single RAW AES-GCM key
func createKeysetFromKey(key []byte) (*keyset.Handle, error) {
	keyValue, err := proto.Marshal(&gcmpb.AesGcmKey{
		Version:  0,
		KeyValue: key,
	})
	if err != nil {
		return nil, err
	}

	ks := &tinkpb.Keyset{
		PrimaryKeyId: 1,
		Key: []*tinkpb.Keyset_Key{{
			KeyData: &tinkpb.KeyData{
				TypeUrl:         aesGcmTypeURL,
				Value:           keyValue,
				KeyMaterialType: tinkpb.KeyData_SYMMETRIC,
			},
			Status:           tinkpb.KeyStatusType_ENABLED,
			KeyId:            1,
			OutputPrefixType: tinkpb.OutputPrefixType_RAW,
		}},
	}
	return insecurecleartextkeyset.Read(&keyset.MemReaderWriter{Keyset: ks})
}

// ZeroBytes overwrites a byte slice with zeros. Callers holding passphrases
// or key material use it once the bytes are no longer needed.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}
