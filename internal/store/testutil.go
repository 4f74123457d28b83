package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// NewTestStore creates an in-memory SQLite store for testing. It is closed
// automatically when the test completes.
func NewTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(":memory:")
	require.NoError(t, err, "failed to create test store")

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}
