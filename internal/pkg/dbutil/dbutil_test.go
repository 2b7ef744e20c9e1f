package dbutil

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestFinalizeRebindsPlaceholders(t *testing.T) {
	query, args := Finalize("SELECT id FROM t WHERE a = ? AND b = ?", []interface{}{1, 2})
	require.Equal(t, "SELECT id FROM t WHERE a = $1 AND b = $2", query)
	require.Equal(t, []interface{}{1, 2}, args)
}

func TestFinalizeRewritesLimitOffset(t *testing.T) {
	// gendry emits mysql LIMIT offset,count; postgres wants LIMIT count
	// OFFSET offset with the args swapped to match.
	query, args := Finalize("SELECT id FROM t WHERE a = ? LIMIT ?,?", []interface{}{"x", 10, 5})
	require.Equal(t, "SELECT id FROM t WHERE a = $1 LIMIT $2 OFFSET $3", query)
	require.Equal(t, []interface{}{"x", 5, 10}, args)
}

func TestFinalizeNoLimit(t *testing.T) {
	query, args := Finalize("DELETE FROM t WHERE id = ?", []interface{}{"id1"})
	require.Equal(t, "DELETE FROM t WHERE id = $1", query)
	require.Len(t, args, 1)
}

func TestIsConflict(t *testing.T) {
	require.True(t, IsConflict(&pq.Error{Code: "23505"}))
	require.False(t, IsConflict(&pq.Error{Code: "23503"}))
	require.False(t, IsConflict(nil))
}
