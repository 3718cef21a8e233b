// Package notes stores the shopping list that add_notes actions append to.
package notes

import (
	"context"
	"errors"
	"strings"
	"time"
)

var ErrEmptyItems = errors.New("no note items provided")

// Note is one shopping list entry.
type Note struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists and lists notes, oldest first.
type Store interface {
	Add(ctx context.Context, items []string, source string) ([]Note, error)
	List(ctx context.Context, limit int) ([]Note, error)
	Close() error
}

// cleanItems trims entries and drops blanks and duplicates, keeping order.
func cleanItems(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" {
			continue
		}
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}
