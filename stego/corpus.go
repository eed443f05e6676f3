package stego

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MinCorpusLen is the minimum number of characters, after trimming, a corpus must hold.
const MinCorpusLen = 50

// Corpus is already-loaded training text. Text is normalized to NFC so that
// composed and decomposed spellings of the same word train the same token,
// and stripped of the zero-width markers so none can reach a cover text.
type Corpus struct {
	text  string
	chars int
}

// NewCorpus wraps text as a corpus. Its length is taken from text as given.
func NewCorpus(text string) Corpus {
	return Corpus{
		text:  Visible(norm.NFC.String(text)),
		chars: utf8.RuneCountInString(strings.TrimSpace(text)),
	}
}

// JoinCorpus joins several documents into one corpus, one document per line.
func JoinCorpus(docs ...string) Corpus {
	return NewCorpus(strings.Join(docs, "\n"))
}

func (c Corpus) Text() string {
	return c.text
}

// Len returns the character count of the trimmed text before normalization.
func (c Corpus) Len() int {
	return c.chars
}
