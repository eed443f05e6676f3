package stego

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// Pre-built frequency tables are SQLite databases with a single table
//
//	ngrams(word1 TEXT, ..., wordN TEXT, frequency INTEGER)
//
// where N is the model order and the first N-1 words form the context.

// OpenTable opens a frequency table database read-only.
func OpenTable(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open n-gram table: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open n-gram table: %w", err)
	}
	return db, nil
}

// LoadTable reads every row of the ngrams table into a trained model.
// Only orders 3 and 4 have a table layout.
func LoadTable(ctx context.Context, db *sql.DB, order int) (*Model, error) {
	if order != 3 && order != 4 {
		return nil, fmt.Errorf("%w: frequency tables exist for orders 3 and 4, got %d", ErrInvalidOrder, order)
	}
	m, err := NewModel(order)
	if err != nil {
		return nil, err
	}

	cols := make([]string, order)
	for i := range cols {
		cols[i] = fmt.Sprintf("word%d", i+1)
	}
	query := fmt.Sprintf("SELECT %s, frequency FROM ngrams", strings.Join(cols, ", "))

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query n-gram table: %w", err)
	}
	defer rows.Close()

	words := make([]string, order)
	dest := make([]any, order+1)
	for i := range words {
		dest[i] = &words[i]
	}
	var freq int
	dest[order] = &freq

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to read n-gram row: %w", err)
		}
		if freq <= 0 || !cleanWords(words) {
			continue
		}
		m.observe(words[:order-1], words[order-1], freq)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read n-gram table: %w", err)
	}
	if len(m.table) == 0 {
		return nil, fmt.Errorf("%w: n-gram table is empty", ErrInsufficientCorpus)
	}

	m.finalize()
	return m, nil
}

// cleanWords strips zero-width markers in place and reports whether every word survives
func cleanWords(words []string) bool {
	for i, w := range words {
		words[i] = Visible(w)
		if words[i] == "" {
			return false
		}
	}
	return true
}
