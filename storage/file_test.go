//go:build !wasm

package storage

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFile_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := NewFile(dir)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "groundhogg_contact_id", "7"))
	require.NoError(t, first.Close())

	second, err := NewFile(dir)
	require.NoError(t, err)
	defer second.Close()

	value, err := second.Get(ctx, "groundhogg_contact_id")
	require.NoError(t, err)
	assert.Equal(t, "7", value)

	_, err = second.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFile_CorruptDocument(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile(dir)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, os.WriteFile(f.Path(), []byte("{not json"), 0o644))

	_, err = f.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestFile_SubscribeSeesOtherWriters(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	writer, err := NewFile(dir)
	require.NoError(t, err)
	defer writer.Close()

	reader, err := NewFile(dir)
	require.NoError(t, err)
	defer reader.Close()

	var mu sync.Mutex
	var got []Change
	cancel, err := reader.Subscribe(func(c Change) {
		mu.Lock()
		got = append(got, c)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, writer.Set(ctx, "groundhogg_contact_id", "99"))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, c := range got {
			if c.Key == "groundhogg_contact_id" && c.Value == "99" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFile_OwnWritesAreNotEchoed(t *testing.T) {
	ctx := context.Background()
	f, err := NewFile(t.TempDir())
	require.NoError(t, err)
	defer f.Close()

	var mu sync.Mutex
	calls := 0
	_, err = f.Subscribe(func(Change) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	require.NoError(t, err)

	require.NoError(t, f.Set(ctx, "k", "1"))

	assert.Never(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls > 0
	}, 200*time.Millisecond, 20*time.Millisecond)
}

func TestNewFile_EmptyDir(t *testing.T) {
	_, err := NewFile("")
	assert.Error(t, err)
}
