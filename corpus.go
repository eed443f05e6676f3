package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"kubli/stego"
)

// ErrCorpusFile is returned when corpus files cannot be found or read
var ErrCorpusFile = errors.New("corpus file error")

// loadCorpus reads a single text file, or every .txt file of a folder joined by newlines
func loadCorpus(path string) (stego.Corpus, error) {
	info, err := os.Stat(path)
	if err != nil {
		return stego.Corpus{}, fmt.Errorf("%w: %v", ErrCorpusFile, err)
	}

	if !info.IsDir() {
		data, err := os.ReadFile(path)
		if err != nil {
			return stego.Corpus{}, fmt.Errorf("%w: %v", ErrCorpusFile, err)
		}
		return stego.NewCorpus(string(data)), nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return stego.Corpus{}, fmt.Errorf("%w: %v", ErrCorpusFile, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".txt") {
			files = append(files, filepath.Join(path, e.Name()))
		}
	}
	if len(files) == 0 {
		return stego.Corpus{}, fmt.Errorf("%w: no .txt files found in %s", ErrCorpusFile, path)
	}
	sort.Strings(files)

	docs := make([]string, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return stego.Corpus{}, fmt.Errorf("%w: %v", ErrCorpusFile, err)
		}
		docs = append(docs, string(data))
	}
	return stego.JoinCorpus(docs...), nil
}

// loadModel builds a trained model from the configured table, or else the corpus
func loadModel(ctx context.Context, cfg Config) (*stego.Model, error) {
	if cfg.Table != "" {
		db, err := stego.OpenTable(cfg.Table)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		return stego.LoadTable(ctx, db, cfg.Order)
	}

	if cfg.Corpus == "" {
		return nil, fmt.Errorf("no corpus specified (use --corpus or --db)")
	}
	corpus, err := loadCorpus(cfg.Corpus)
	if err != nil {
		return nil, err
	}
	if corpus.Len() < stego.MinCorpusLen {
		return nil, fmt.Errorf("%w: corpus has %d characters, need %d", stego.ErrInsufficientCorpus, corpus.Len(), stego.MinCorpusLen)
	}

	model, err := stego.NewModel(cfg.Order)
	if err != nil {
		return nil, err
	}
	if err := model.Train(corpus.Text()); err != nil {
		return nil, err
	}
	return model, nil
}

func stats(cfg Config) error {
	model, err := loadModel(context.Background(), cfg)
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(model.Stats())
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}
	_, err = os.Stdout.Write(out)
	return err
}
