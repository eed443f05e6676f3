package main

import "kubli/stego"

// Config holds every tunable of the CLI. It is read from a YAML file
// and then overridden by command-line flags.
type Config struct {
	Mode       string          `yaml:"mode"` // "linguistic" or "zerowidth"
	Order      int             `yaml:"order"`
	MaxWords   int             `yaml:"max_words"`
	CoverWords int             `yaml:"cover_words"`
	Seed       *int64          `yaml:"seed"`
	Strategy   string          `yaml:"strategy"` // "markov", "viterbi" or "beam"
	Hamming    bool            `yaml:"hamming"`
	Corpus     string          `yaml:"corpus"` // .txt file or folder of .txt files
	Table      string          `yaml:"table"`  // pre-built n-gram SQLite table
	KDF        stego.KDFParams `yaml:"kdf"`
	Verbose    bool            `yaml:"verbose"`
}

// defaultConfig matches the library defaults
func defaultConfig() Config {
	return Config{
		Mode:       string(stego.ModeZeroWidth),
		Order:      stego.DefaultOrder,
		MaxWords:   stego.DefaultMaxWords,
		CoverWords: stego.DefaultCoverWords,
		Strategy:   string(stego.StrategyMarkov),
		KDF:        stego.DefaultKDF(),
	}
}
