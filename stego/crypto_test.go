package stego

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keeps PBKDF2 cheap in tests
var testKDF = KDFParams{Iterations: 1000}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("entropy source unavailable")
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	secrets := []string{
		"a",
		"Hello world!",
		"Magkita tayo sa plaza mamayang alas-singko.",
		"ñ, ü, 日本語 and emoji 🙂",
	}
	for _, secret := range secrets {
		t.Run(secret, func(t *testing.T) {
			p, err := Encrypt(secret, "correct horse", testKDF)
			require.NoError(t, err)
			assert.Len(t, p.Salt, SaltSize)
			assert.Len(t, p.Nonce, NonceSize)
			assert.Len(t, p.Ciphertext, len(secret)+TagSize)

			got, err := Decrypt(p, "correct horse", testKDF)
			require.NoError(t, err)
			assert.Equal(t, secret, got)
		})
	}
}

func TestEncryptFreshSaltAndNonce(t *testing.T) {
	a, err := Encrypt("same secret", "same passphrase", testKDF)
	require.NoError(t, err)
	b, err := Encrypt("same secret", "same passphrase", testKDF)
	require.NoError(t, err)

	assert.NotEqual(t, a.Salt, b.Salt)
	assert.NotEqual(t, a.Nonce, b.Nonce)
	assert.NotEqual(t, a.Ciphertext, b.Ciphertext)
}

func TestDecryptWrongPassphrase(t *testing.T) {
	p, err := Encrypt("secret", "right", testKDF)
	require.NoError(t, err)

	got, err := Decrypt(p, "wrong", testKDF)
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.Empty(t, got)
}

func TestDecryptDetectsEveryBitFlip(t *testing.T) {
	p, err := Encrypt("tamper me", "passphrase", testKDF)
	require.NoError(t, err)

	fields := map[string]*[]byte{
		"salt":       &p.Salt,
		"nonce":      &p.Nonce,
		"ciphertext": &p.Ciphertext,
	}
	for name, field := range fields {
		orig := bytes.Clone(*field)
		for i := 0; i < len(orig)*8; i++ {
			tampered := bytes.Clone(orig)
			tampered[i/8] ^= 0x80 >> uint(i%8)
			*field = tampered

			got, err := Decrypt(p, "passphrase", testKDF)
			if !errors.Is(err, ErrAuthentication) {
				t.Fatalf("%s bit %d: expected ErrAuthentication, got %v", name, i, err)
			}
			if got != "" {
				t.Fatalf("%s bit %d: plaintext leaked", name, i)
			}
		}
		*field = orig
	}

	got, err := Decrypt(p, "passphrase", testKDF)
	require.NoError(t, err)
	assert.Equal(t, "tamper me", got)
}

func TestDecryptInvalidUTF8(t *testing.T) {
	p, err := Encrypt(string([]byte{0xff, 0xfe, 0xfd}), "passphrase", testKDF)
	require.NoError(t, err)

	_, err = Decrypt(p, "passphrase", testKDF)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestDecryptMalformed(t *testing.T) {
	_, err := Decrypt(nil, "passphrase", testKDF)
	assert.ErrorIs(t, err, ErrMalformedPayload)

	_, err = Decrypt(&Payload{Salt: make([]byte, 8), Nonce: make([]byte, NonceSize)}, "passphrase", testKDF)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestEncryptRandomSourceFailure(t *testing.T) {
	orig := randReader
	randReader = failingReader{}
	defer func() { randReader = orig }()

	p, err := Encrypt("secret", "passphrase", testKDF)
	assert.ErrorIs(t, err, ErrCrypto)
	assert.Nil(t, p)
}

func TestEncryptEmptyPassphrase(t *testing.T) {
	_, err := Encrypt("secret", "", testKDF)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestDeriveKeyDeterministic(t *testing.T) {
	salt := bytes.Repeat([]byte{7}, SaltSize)
	kdf := testKDF.withDefaults()

	a := deriveKey([]byte("pass"), salt, kdf)
	b := deriveKey([]byte("pass"), salt, kdf)
	assert.Len(t, a, KeySize)
	assert.Equal(t, a, b)

	c := deriveKey([]byte("pass"), bytes.Repeat([]byte{8}, SaltSize), kdf)
	assert.NotEqual(t, a, c)
}

func TestArgon2RoundTrip(t *testing.T) {
	kdf := KDFParams{Algorithm: KDFArgon2id, Time: 1, Memory: 8 * 1024, Threads: 1}
	p, err := Encrypt("argon secret", "passphrase", kdf)
	require.NoError(t, err)

	got, err := Decrypt(p, "passphrase", kdf)
	require.NoError(t, err)
	assert.Equal(t, "argon secret", got)

	// a PBKDF2 key does not open an Argon2id payload
	_, err = Decrypt(p, "passphrase", testKDF)
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestKDFValidate(t *testing.T) {
	tests := []struct {
		name    string
		kdf     KDFParams
		wantErr bool
	}{
		{"defaults", KDFParams{}, false},
		{"pbkdf2 explicit", DefaultKDF(), false},
		{"negative iterations", KDFParams{Iterations: -1}, true},
		{"too many iterations", KDFParams{Iterations: MaxIterations + 1}, true},
		{"argon2 defaults", KDFParams{Algorithm: KDFArgon2id}, false},
		{"argon2 tiny memory", KDFParams{Algorithm: KDFArgon2id, Memory: 512}, true},
		{"argon2 slow", KDFParams{Algorithm: KDFArgon2id, Time: MaxArgon2Time + 1}, true},
		{"unknown", KDFParams{Algorithm: "scrypt"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.kdf.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidKDF)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
