package stego

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCorpus = NewCorpus(`Ang bata ay tumakbo sa parke. Ang aso ay tumahol nang malakas.
Ang guro ay nagturo ng aralin sa klase. Ang bata ay kumain ng tinapay sa umaga.
Ang aso ay natulog sa ilalim ng mesa. Ang mga ibon ay lumipad sa langit!
Kumain ka na ba? Ang nanay ay nagluto ng adobo para sa hapunan.`)

func testOptions(mode Mode) Options {
	return Options{Mode: mode, KDF: testKDF, Seed: seed(11)}
}

func TestZeroWidthRoundTrip(t *testing.T) {
	secrets := []string{"Magkita tayo sa tulay.", "x", "ñandú 🙂"}
	for _, secret := range secrets {
		stego, err := Encode(secret, "lihim", testCorpus, testOptions(ModeZeroWidth))
		require.NoError(t, err)
		require.True(t, HasHidden(stego))

		got, err := Decode(stego, "lihim", testOptions(ModeZeroWidth))
		require.NoError(t, err)
		assert.Equal(t, secret, got)
	}
}

func TestZeroWidthCoverMatchesModel(t *testing.T) {
	opts := testOptions(ModeZeroWidth)
	stego, err := Encode("secret", "lihim", testCorpus, opts)
	require.NoError(t, err)

	m := trainedModel(t, DefaultOrder, testCorpus.Text())
	cover, err := m.Generate(GenerateOptions{MaxWords: DefaultCoverWords, Seed: opts.Seed})
	require.NoError(t, err)

	assert.Equal(t, cover, Visible(stego))
	// salt + nonce + ciphertext + tag, 8 markers per byte
	assert.Len(t, Extract(stego), 8*(SaltSize+NonceSize+len("secret")+TagSize))
}

func TestZeroWidthHammingRoundTrip(t *testing.T) {
	opts := testOptions(ModeZeroWidth)
	opts.Hamming = true

	stego, err := Encode("protected", "lihim", testCorpus, opts)
	require.NoError(t, err)

	// swap the first marker for its opposite
	runes := []rune(stego)
	for i, r := range runes {
		if r == Zero || r == One {
			if r == Zero {
				runes[i] = One
			} else {
				runes[i] = Zero
			}
			break
		}
	}

	got, err := Decode(string(runes), "lihim", opts)
	require.NoError(t, err)
	assert.Equal(t, "protected", got)

	// the same flip without Hamming framing breaks authentication
	plain := testOptions(ModeZeroWidth)
	stego, err = Encode("protected", "lihim", testCorpus, plain)
	require.NoError(t, err)
	flipped := strings.Replace(stego, string(Zero), string(One), 1)
	if flipped == stego {
		flipped = strings.Replace(stego, string(One), string(Zero), 1)
	}
	_, err = Decode(flipped, "lihim", plain)
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestDecodeWrongPassphrase(t *testing.T) {
	stego, err := Encode("secret", "right", testCorpus, testOptions(ModeZeroWidth))
	require.NoError(t, err)

	_, err = Decode(stego, "wrong", testOptions(ModeZeroWidth))
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestDecodeErrors(t *testing.T) {
	opts := testOptions(ModeZeroWidth)

	_, err := Decode("just visible words", "lihim", opts)
	assert.ErrorIs(t, err, ErrNoHiddenData)

	_, err = Decode(Embed("short", Bits{1, 0, 1}), "lihim", opts)
	assert.ErrorIs(t, err, ErrMalformedPayload)

	_, err = Decode("anything", "", opts)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = Decode("anything", "lihim", testOptions(ModeLinguistic))
	assert.ErrorIs(t, err, ErrIrreversibleMode)

	_, err = Decode("anything", "lihim", testOptions("rot13"))
	assert.ErrorIs(t, err, ErrUnsupportedMode)
}

func TestLinguisticEncode(t *testing.T) {
	opts := testOptions(ModeLinguistic)
	out, err := Encode("secret", "lihim", testCorpus, opts)
	require.NoError(t, err)

	assert.NotEmpty(t, out)
	assert.False(t, HasHidden(out))
	assert.LessOrEqual(t, len(strings.Fields(out)), DefaultMaxWords)

	m := trainedModel(t, DefaultOrder, testCorpus.Text())
	_, err = m.RecoverBits(out)
	assert.NoError(t, err)
}

func TestEncodeValidation(t *testing.T) {
	tests := []struct {
		name       string
		secret     string
		passphrase string
		corpus     Corpus
		mode       Mode
		want       error
	}{
		{"empty secret", "", "p", testCorpus, ModeZeroWidth, ErrEmptyInput},
		{"empty passphrase", "s", "", testCorpus, ModeZeroWidth, ErrEmptyInput},
		{"corpus 49 chars", "s", "p", NewCorpus("Ang bata ay tumakbo. Ang aso ay tumahol sa kanto."), ModeZeroWidth, ErrInsufficientCorpus},
		{"corpus padded with spaces", "s", "p", NewCorpus("   Ang bata ay tumakbo. Ang aso ay tumahol sa kanto.\n\n"), ModeZeroWidth, ErrInsufficientCorpus},
		{"corpus without sentences", "s", "p", NewCorpus(strings.Repeat("Oo. ", 20)), ModeZeroWidth, ErrInsufficientCorpus},
		{"unknown mode", "s", "p", testCorpus, "rot13", ErrUnsupportedMode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Encode(tt.secret, tt.passphrase, tt.corpus, testOptions(tt.mode))
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, out)
		})
	}
}

func TestEncodeMinimumCorpus(t *testing.T) {
	corpus := NewCorpus("Ang bata ay tumakbo. Ang aso ay tumahol sa kusina.")
	require.Equal(t, MinCorpusLen, corpus.Len())

	stego, err := Encode("s", "p", corpus, testOptions(ModeZeroWidth))
	require.NoError(t, err)

	got, err := Decode(stego, "p", testOptions(ModeZeroWidth))
	require.NoError(t, err)
	assert.Equal(t, "s", got)
}

func TestCorpusLengthCountsRawText(t *testing.T) {
	// 50 code points as given, 49 once n + combining tilde composes to ñ
	corpus := NewCorpus("Ang bata ay tumakbo. Ang aso ay tumahol sa kan\u0303to.")
	require.Equal(t, MinCorpusLen, corpus.Len())
	assert.Contains(t, corpus.Text(), "kañto")

	_, err := Encode("s", "p", corpus, testOptions(ModeZeroWidth))
	assert.NoError(t, err)
}

func TestZeroWidthCorpusWithMarkers(t *testing.T) {
	corpus := NewCorpus(strings.Repeat("Ang bata\u200b ay tumakbo sa parke\u200c. ", 3))
	assert.False(t, HasHidden(corpus.Text()))

	opts := testOptions(ModeZeroWidth)
	opts.Seed = seed(1)
	secret := "Magkita tayo sa tulay."

	stego, err := Encode(secret, "lihim", corpus, opts)
	require.NoError(t, err)
	assert.Len(t, Extract(stego), 8*(SaltSize+NonceSize+len(secret)+TagSize))

	got, err := Decode(stego, "lihim", opts)
	require.NoError(t, err)
	assert.Equal(t, secret, got)
}

func TestUnknownModeSkipsEncryption(t *testing.T) {
	orig := randReader
	randReader = failingReader{}
	defer func() { randReader = orig }()

	// a failing random source would surface as ErrCrypto if encryption ran
	_, err := Encode("s", "p", testCorpus, testOptions("rot13"))
	assert.ErrorIs(t, err, ErrUnsupportedMode)
}

func TestEncodeWithModel(t *testing.T) {
	m := trainedModel(t, 4, testCorpus.Text())
	opts := testOptions(ModeZeroWidth)
	opts.Strategy = StrategyViterbi

	stego, err := EncodeWithModel("secret", "lihim", m, opts)
	require.NoError(t, err)

	got, err := Decode(stego, "lihim", opts)
	require.NoError(t, err)
	assert.Equal(t, "secret", got)

	untrained, err := NewModel(3)
	require.NoError(t, err)
	_, err = EncodeWithModel("secret", "lihim", untrained, opts)
	assert.ErrorIs(t, err, ErrModelNotTrained)
}

func TestEncodeLogsWithoutSecrets(t *testing.T) {
	var buf bytes.Buffer
	opts := testOptions(ModeZeroWidth)
	opts.Logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := Encode("top secret words", "hunter2", testCorpus, opts)
	require.NoError(t, err)

	logged := buf.String()
	assert.Contains(t, logged, "payload framed")
	assert.NotContains(t, logged, "top secret words")
	assert.NotContains(t, logged, "hunter2")
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode(" ZeroWidth ")
	require.NoError(t, err)
	assert.Equal(t, ModeZeroWidth, m)

	_, err = ParseMode("rot13")
	assert.ErrorIs(t, err, ErrUnsupportedMode)
}

func TestInspect(t *testing.T) {
	stego := Embed("Hi, there.", Bits{1, 0, 1})
	in := Inspect(stego, 8)
	assert.Equal(t, "Hi, there.", in.Visible)
	assert.Equal(t, 10, in.VisibleLen)
	assert.Equal(t, 3, in.MarkerCount)
	assert.Equal(t, "Hi,[1] [", in.Preview)
}
