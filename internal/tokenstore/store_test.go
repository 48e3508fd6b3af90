package tokenstore

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pribylovaa/kelibe/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// contractCases — общий набор проверок контракта Store.
func contractCases(t *testing.T, st Store) {
	t.Helper()
	ctx := context.Background()

	got, err := st.Get(ctx)
	require.NoError(t, err)
	require.True(t, got.Empty())

	require.NoError(t, st.Set(ctx, models.TokenPair{Access: "AT1", Refresh: "RT1"}))
	got, err = st.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, models.TokenPair{Access: "AT1", Refresh: "RT1"}, got)

	// Пустое поле очищает только его.
	require.NoError(t, st.Set(ctx, models.TokenPair{Refresh: "RT1"}))
	got, err = st.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, models.TokenPair{Refresh: "RT1"}, got)

	require.NoError(t, st.Set(ctx, models.TokenPair{Access: "AT2", Refresh: "RT2"}))
	require.NoError(t, st.Clear(ctx))
	got, err = st.Get(ctx)
	require.NoError(t, err)
	require.True(t, got.Empty())
}

func TestMemory_Contract(t *testing.T) {
	t.Parallel()
	contractCases(t, NewMemory())
}

func TestMemory_ConcurrentPairsStayConsistent(t *testing.T) {
	t.Parallel()

	st := NewMemory()
	ctx := context.Background()

	pairs := []models.TokenPair{
		{Access: "A1", Refresh: "R1"},
		{Access: "A2", Refresh: "R2"},
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = st.Set(ctx, pairs[i%2])
		}(i)
		go func() {
			defer wg.Done()
			p, _ := st.Get(ctx)
			if p.Empty() {
				return
			}
			// Никогда не видим access от одной пары и refresh от другой.
			assert.Equal(t, p.Access[1:], p.Refresh[1:])
		}()
	}
	wg.Wait()
}

func TestFile_Contract(t *testing.T) {
	t.Parallel()
	contractCases(t, NewFile(filepath.Join(t.TempDir(), "nested", "tokens.json")))
}

func TestFile_PermissionsAndPersistence(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tokens.json")
	ctx := context.Background()

	require.NoError(t, NewFile(path).Set(ctx, models.TokenPair{Access: "AT", Refresh: "RT"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// Новый экземпляр видит сохранённую пару.
	got, err := NewFile(path).Get(ctx)
	require.NoError(t, err)
	require.Equal(t, models.TokenPair{Access: "AT", Refresh: "RT"}, got)

	require.NoError(t, NewFile(path).Clear(ctx))
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestFile_CorruptedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFile(path).Get(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode")
}

func TestFile_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	st := NewFile(filepath.Join(t.TempDir(), "tokens.json"))
	require.ErrorIs(t, st.Set(ctx, models.TokenPair{Access: "A", Refresh: "R"}), context.Canceled)
	_, err := st.Get(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
