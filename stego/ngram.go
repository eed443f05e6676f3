package stego

import (
	"fmt"
	"math"
	"math/rand"
	"regexp"
	"sort"
	"strings"
	"time"
)

const (
	StartToken = "<START>"
	EndToken   = "<END>"

	DefaultOrder     = 3
	DefaultMaxWords  = 50
	DefaultBeamWidth = 5

	// joins context tokens into a map key; never produced by the tokenizer
	contextSep = "\x00"
)

var (
	sentenceSplit = regexp.MustCompile(`[.!?]+`)
	tokenPattern  = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]+|[^\p{L}\p{M}\p{N}_\s\p{Z}]`)
)

// Strategy selects how the next word is chosen during generation.
type Strategy string

const (
	// StrategyMarkov samples candidates by frequency. It is the only strategy that consumes bits.
	StrategyMarkov Strategy = "markov"
	// StrategyViterbi always takes the most frequent candidate.
	StrategyViterbi Strategy = "viterbi"
	// StrategyBeam keeps the BeamWidth most probable partial sentences.
	StrategyBeam Strategy = "beam"
)

// Candidate is one observed continuation of a context.
type Candidate struct {
	Token string
	Count int
}

type transitions struct {
	counts  map[string]int
	ordered []Candidate // descending count, then ascending token
	total   int
}

func (t *transitions) sample(rng *rand.Rand) string {
	r := rng.Intn(t.total)
	for _, c := range t.ordered {
		r -= c.Count
		if r < 0 {
			return c.Token
		}
	}
	return t.ordered[len(t.ordered)-1].Token
}

func (t *transitions) index(token string) int {
	for i, c := range t.ordered {
		if c.Token == token {
			return i
		}
	}
	return -1
}

// Model is an n-gram language model over word and punctuation tokens.
//
// A model is trained exactly once. After training it is read-only and safe
// for concurrent Generate calls; Train itself must not run concurrently.
type Model struct {
	order     int
	table     map[string]*transitions
	sentences int
	trained   bool
}

// Stats summarizes a trained model.
type Stats struct {
	Order        int `json:"ngram_order" yaml:"ngram_order"`
	Sentences    int `json:"sentences" yaml:"sentences"`
	Contexts     int `json:"unique_contexts" yaml:"unique_contexts"`
	Vocabulary   int `json:"vocabulary_size" yaml:"vocabulary_size"`
	Observations int `json:"observations" yaml:"observations"`
}

// GenerateOptions controls a single generation run.
type GenerateOptions struct {
	// Bits, when non-empty, steer word choice (Markov strategy only)
	Bits      Bits
	MaxWords  int
	Seed      *int64
	Strategy  Strategy
	BeamWidth int
}

// Generation is the result of a generation run.
type Generation struct {
	Text         string
	Words        []string
	BitsConsumed int
}

// NewModel returns an untrained model of the given order.
func NewModel(order int) (*Model, error) {
	if order < 2 {
		return nil, fmt.Errorf("%w: order must be at least 2, got %d", ErrInvalidOrder, order)
	}
	return &Model{
		order: order,
		table: make(map[string]*transitions),
	}, nil
}

func (m *Model) Order() int {
	return m.order
}

func (m *Model) Trained() bool {
	return m.trained
}

// Tokenize splits text into sentences and each sentence into tokens.
// Zero-width markers are dropped and any Unicode space separates tokens.
// Sentences shorter than the model order are dropped.
func (m *Model) Tokenize(text string) [][]string {
	var out [][]string
	for _, sentence := range sentenceSplit.Split(Visible(text), -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		tokens := tokenPattern.FindAllString(sentence, -1)
		if len(tokens) >= m.order {
			out = append(out, tokens)
		}
	}
	return out
}

// Train records every n-gram of the corpus text.
func (m *Model) Train(text string) error {
	if m.trained {
		return ErrModelTrained
	}

	sentences := m.Tokenize(text)
	if len(sentences) == 0 {
		return fmt.Errorf("%w: no sentence has at least %d tokens", ErrInsufficientCorpus, m.order)
	}

	for _, tokens := range sentences {
		marked := make([]string, 0, len(tokens)+m.order)
		for i := 0; i < m.order-1; i++ {
			marked = append(marked, StartToken)
		}
		marked = append(marked, tokens...)
		marked = append(marked, EndToken)

		for i := 0; i+m.order <= len(marked); i++ {
			m.observe(marked[i:i+m.order-1], marked[i+m.order-1], 1)
		}
	}
	m.sentences = len(sentences)
	m.finalize()
	return nil
}

func (m *Model) observe(context []string, next string, count int) {
	key := strings.Join(context, contextSep)
	t, ok := m.table[key]
	if !ok {
		t = &transitions{counts: make(map[string]int)}
		m.table[key] = t
	}
	t.counts[next] += count
	t.total += count
}

// finalize orders candidates canonically and marks the model trained
func (m *Model) finalize() {
	for _, t := range m.table {
		t.ordered = t.ordered[:0]
		for token, count := range t.counts {
			t.ordered = append(t.ordered, Candidate{Token: token, Count: count})
		}
		sort.Slice(t.ordered, func(i, j int) bool {
			if t.ordered[i].Count != t.ordered[j].Count {
				return t.ordered[i].Count > t.ordered[j].Count
			}
			return t.ordered[i].Token < t.ordered[j].Token
		})
	}
	m.trained = true
}

func (m *Model) lookup(context []string) *transitions {
	return m.table[strings.Join(context, contextSep)]
}

// Candidates returns the observed continuations of context in canonical order.
func (m *Model) Candidates(context ...string) []Candidate {
	t := m.lookup(context)
	if t == nil {
		return nil
	}
	out := make([]Candidate, len(t.ordered))
	copy(out, t.ordered)
	return out
}

// Stats reports the size of the trained model.
func (m *Model) Stats() Stats {
	s := Stats{Order: m.order, Sentences: m.sentences, Contexts: len(m.table)}
	vocab := make(map[string]struct{})
	for _, t := range m.table {
		s.Observations += t.total
		for token := range t.counts {
			if token != EndToken {
				vocab[token] = struct{}{}
			}
		}
	}
	s.Vocabulary = len(vocab)
	return s
}

// Generate produces space-joined tokens starting from the sentence-start context.
func (m *Model) Generate(opts GenerateOptions) (string, error) {
	g, err := m.GenerateTrace(opts)
	if err != nil {
		return "", err
	}
	return g.Text, nil
}

// GenerateTrace is Generate that also reports the chosen words and consumed bits.
func (m *Model) GenerateTrace(opts GenerateOptions) (*Generation, error) {
	if !m.trained {
		return nil, ErrModelNotTrained
	}

	maxWords := opts.MaxWords
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}

	var g *Generation
	switch opts.Strategy {
	case StrategyMarkov, "":
		seed := time.Now().UnixNano()
		if opts.Seed != nil {
			seed = *opts.Seed
		}
		g = m.generateMarkov(opts.Bits, maxWords, rand.New(rand.NewSource(seed)))
	case StrategyViterbi:
		g = m.generateViterbi(maxWords)
	case StrategyBeam:
		width := opts.BeamWidth
		if width <= 0 {
			width = DefaultBeamWidth
		}
		g = m.generateBeam(maxWords, width)
	default:
		return nil, fmt.Errorf("unknown generation strategy %q", opts.Strategy)
	}

	g.Text = strings.Join(g.Words, " ")
	return g, nil
}

func (m *Model) startContext() []string {
	context := make([]string, m.order-1)
	for i := range context {
		context[i] = StartToken
	}
	return context
}

func (m *Model) generateMarkov(bits Bits, maxWords int, rng *rand.Rand) *Generation {
	context := m.startContext()
	g := &Generation{}
	cursor := 0

	for len(g.Words) < maxWords {
		t := m.lookup(context)
		if t == nil {
			break
		}

		var next string
		if cursor < len(bits) && len(t.ordered) > 1 {
			// Bits index the canonical candidate list; missing trailing bits read as 0
			k := bitsPerStep(len(t.ordered))
			idx := 0
			for j := 0; j < k; j++ {
				idx <<= 1
				if cursor < len(bits) {
					idx |= int(bits[cursor] & 1)
				}
				cursor++
			}
			next = t.ordered[idx].Token
		} else {
			next = t.sample(rng)
		}

		if next == EndToken {
			break
		}
		g.Words = append(g.Words, next)
		context = append(context[1:], next)
	}

	g.BitsConsumed = cursor
	if g.BitsConsumed > len(bits) {
		g.BitsConsumed = len(bits)
	}
	return g
}

func (m *Model) generateViterbi(maxWords int) *Generation {
	context := m.startContext()
	g := &Generation{}

	for len(g.Words) < maxWords {
		t := m.lookup(context)
		if t == nil || t.ordered[0].Token == EndToken {
			break
		}
		next := t.ordered[0].Token
		g.Words = append(g.Words, next)
		context = append(context[1:], next)
	}
	return g
}

type beam struct {
	words   []string
	logProb float64
}

func (m *Model) generateBeam(maxWords, width int) *Generation {
	beams := []beam{{}}

	for step := 0; step < maxWords; step++ {
		var next []beam
		for _, b := range beams {
			context := append(m.startContext(), b.words...)
			t := m.lookup(context[len(context)-(m.order-1):])
			if t == nil {
				continue
			}
			for i, c := range t.ordered {
				if i >= width {
					break
				}
				if c.Token == EndToken {
					continue
				}
				words := make([]string, len(b.words), len(b.words)+1)
				copy(words, b.words)
				next = append(next, beam{
					words:   append(words, c.Token),
					logProb: b.logProb + math.Log(float64(c.Count)/float64(t.total)),
				})
			}
		}
		if len(next) == 0 {
			break
		}

		sort.SliceStable(next, func(i, j int) bool {
			return next[i].logProb > next[j].logProb
		})
		if len(next) > width {
			next = next[:width]
		}
		beams = next
	}

	return &Generation{Words: beams[0].words}
}

// RecoverBits re-walks text produced by bit-conditioned generation and returns the
// bits each word's candidate index encodes. The text does not mark where the
// embedded bits end: words sampled afterwards, and the zero-padded last step,
// still yield bits while their index is addressable, so the caller must truncate
// the result to the known payload length. Walking stops early at the first word
// whose index is outside the addressable range. Bits that selected the
// end-of-sentence marker are not visible in the text and cannot be recovered.
func (m *Model) RecoverBits(text string) (Bits, error) {
	if !m.trained {
		return nil, ErrModelNotTrained
	}

	context := m.startContext()
	var bits Bits
	for _, word := range strings.Fields(text) {
		t := m.lookup(context)
		if t == nil {
			return bits, fmt.Errorf("%w: no continuation known for %q", ErrMalformedPayload, word)
		}
		idx := t.index(word)
		if idx < 0 {
			return bits, fmt.Errorf("%w: %q never follows this context", ErrMalformedPayload, word)
		}

		if n := len(t.ordered); n > 1 {
			k := bitsPerStep(n)
			if idx >= 1<<uint(k) {
				return bits, nil
			}
			for j := k - 1; j >= 0; j-- {
				bits = append(bits, byte(idx>>uint(j))&1)
			}
		}
		context = append(context[1:], word)
	}
	return bits, nil
}

// bitsPerStep returns floor(log2(n)) for n >= 1
func bitsPerStep(n int) int {
	k := 0
	for 1<<uint(k+1) <= n {
		k++
	}
	return k
}
