package querylog

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/mxs-workbench/sqlscript/sqlsplit"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("empty", func(t *testing.T) {
		recent, err := NewMemoryStore(3).Recent(ctx, 10)
		require.NoError(t, err)
		require.Empty(t, recent)
	})

	t.Run("newest-first", func(t *testing.T) {
		s := NewMemoryStore(3)
		for i := 0; i < 2; i++ {
			require.NoError(t, s.Push(ctx, Entry{SQL: strconv.Itoa(i)}))
		}

		require.Equal(t, []string{"1", "0"}, sqls(t, s, 10))
		require.Equal(t, []string{"1"}, sqls(t, s, 1))
	})

	t.Run("bounded", func(t *testing.T) {
		s := NewMemoryStore(3)
		for i := 0; i < 7; i++ {
			require.NoError(t, s.Push(ctx, Entry{SQL: strconv.Itoa(i)}))
		}

		require.Equal(t, []string{"6", "5", "4"}, sqls(t, s, 10))
	})

	t.Run("concurrent", func(t *testing.T) {
		s := NewMemoryStore(50)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 10; j++ {
					_ = s.Push(ctx, Entry{SQL: "SELECT 1"})
				}
			}()
		}
		wg.Wait()

		require.Len(t, sqls(t, s, 100), 50)
	})

	t.Run("invalid-size", func(t *testing.T) {
		require.Panics(t, func() { NewMemoryStore(0) })
	})
}

func TestNewEntry(t *testing.T) {
	e := NewEntry("local", User, sqlsplit.Statement{
		Text:      "CREATE USER a IDENTIFIED BY 'pw'",
		Delimiter: "$$",
	})

	require.NotEqual(t, uuid.Nil, e.ID)
	require.False(t, e.Time.IsZero())
	require.Equal(t, "local", e.Connection)
	require.Equal(t, "CREATE USER a IDENTIFIED BY '***'", e.SQL)
	require.Equal(t, "$$", e.Delimiter)
	require.Equal(t, User, e.Type)
}

func sqls(t *testing.T, s Store, n int) []string {
	t.Helper()

	recent, err := s.Recent(context.Background(), n)
	require.NoError(t, err)

	out := make([]string, 0, len(recent))
	for _, e := range recent {
		out = append(out, e.SQL)
	}

	return out
}
