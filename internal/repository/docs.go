// Package repository implements the domain repositories over a docstore
// backend. Documents are flat field maps; status strings are decoded
// strictly and timestamps are stored in a fixed-width UTC layout so string
// ordering matches chronological ordering.
package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"studwerk/internal/common"
	"studwerk/internal/docstore"
)

// Fixed fraction width keeps lexicographic order chronological.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// errMalformed marks a stored document missing required fields. Such records
// are treated as not-found on reads and skipped in listings.
var errMalformed = errors.New("malformed document")

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func stringField(data map[string]any, field string) string {
	value, _ := data[field].(string)
	return value
}

func floatField(data map[string]any, field string) float64 {
	value, _ := data[field].(float64)
	return value
}

func mapField(data map[string]any, field string) map[string]any {
	value, _ := data[field].(map[string]any)
	return value
}

// queryOrdered runs an ordered query and falls back to an unordered fetch
// with a local sort when the backend cannot satisfy the ordering request.
// The returned order always honors q.OrderBy/q.Desc.
func queryOrdered(ctx context.Context, col docstore.Collection, q docstore.Query) ([]docstore.Document, error) {
	docs, err := col.Query(ctx, q)
	if !errors.Is(err, docstore.ErrOrderUnsupported) {
		return docs, err
	}
	fallback := q
	fallback.OrderBy = ""
	fallback.Limit = 0
	docs, err = col.Query(ctx, fallback)
	if err != nil {
		return nil, err
	}
	sort.Slice(docs, func(i, j int) bool {
		left := stringField(docs[i].Data, q.OrderBy)
		right := stringField(docs[j].Data, q.OrderBy)
		if q.Desc {
			return left > right
		}
		return left < right
	})
	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return docs, nil
}

func storeError(err error, notFound, failed string) error {
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return common.NewError(common.CodeNotFound, notFound, err)
	case errors.Is(err, docstore.ErrConflict):
		return common.NewError(common.CodeConflict, failed, err)
	case errors.Is(err, docstore.ErrUnavailable):
		return common.NewError(common.CodeUnavailable, failed, err)
	default:
		return common.NewError(common.CodeInternal, failed, err)
	}
}
