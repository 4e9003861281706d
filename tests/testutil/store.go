// Package testutil holds shared fixtures for package tests.
package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/calsync/internal/store"
)

// memoryDSN gives every store its own private database; the store keeps a
// single connection so the data lives as long as the store.
const memoryDSN = ":memory:"

// NewTestStore opens an in-memory store with the schema applied and closes
// it when the test ends.
func NewTestStore(t testing.TB) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(memoryDSN)
	require.NoError(t, err, "opening test store")
	t.Cleanup(func() {
		assert.NoError(t, s.Close(), "closing test store")
	})
	return s
}

// Ctx returns the context used for fixture writes.
func Ctx() context.Context {
	return context.Background()
}
