package memory

import (
	"bytes"
	"cmp"
	"slices"

	"github.com/google/uuid"
)

// sortNewestFirst orders records by creation time descending, breaking ties on
// the time ordered UUIDv7 so results match the postgres ORDER BY.
func sortNewestFirst[T any](items []T, key func(T) (int64, uuid.UUID)) {
	slices.SortStableFunc(items, func(a, b T) int {
		return -compareKeys(key, a, b)
	})
}

func sortOldestFirst[T any](items []T, key func(T) (int64, uuid.UUID)) {
	slices.SortStableFunc(items, func(a, b T) int {
		return compareKeys(key, a, b)
	})
}

func compareKeys[T any](key func(T) (int64, uuid.UUID), a, b T) int {
	at, aid := key(a)
	bt, bid := key(b)
	if c := cmp.Compare(at, bt); c != 0 {
		return c
	}
	return bytes.Compare(aid[:], bid[:])
}

func limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}
