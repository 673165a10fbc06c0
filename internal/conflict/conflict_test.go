package conflict

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixpress/internal/config"
	"pixpress/internal/fault"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestResolveOverwrite(t *testing.T) {
	base := filepath.Join(t.TempDir(), "a_optimized.png")
	touch(t, base)

	got, ok, err := Resolve(base, config.ConflictOverwrite)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, base, got)
}

func TestResolveSkip(t *testing.T) {
	base := filepath.Join(t.TempDir(), "a_optimized.png")

	got, ok, err := Resolve(base, config.ConflictSkip)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, base, got)

	touch(t, base)
	_, ok, err = Resolve(base, config.ConflictSkip)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveRenameCounts(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "photo_optimized.webp")

	got, ok, err := Resolve(base, config.ConflictRename)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, base, got)

	touch(t, base)
	got, _, err = Resolve(base, config.ConflictRename)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "photo_optimized_(1).webp"), got)

	touch(t, got)
	got, _, err = Resolve(base, config.ConflictRename)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "photo_optimized_(2).webp"), got)
}

func TestResolveRenameExhausted(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "x.png")
	touch(t, base)
	for n := 1; n <= MaxRenameAttempts; n++ {
		p, err := Candidate(base, n)
		require.NoError(t, err)
		touch(t, p)
	}

	_, _, err := Resolve(base, config.ConflictRename)
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrConflictExhausted)

	_, _, err = Reserve(base, config.ConflictRename)
	assert.ErrorIs(t, err, fault.ErrConflictExhausted)
}

func TestResolveRenameWithoutExtension(t *testing.T) {
	base := filepath.Join(t.TempDir(), "noext")
	touch(t, base)

	_, _, err := Resolve(base, config.ConflictRename)
	require.Error(t, err)
	assert.Equal(t, fault.KindConfig, fault.KindOf(err))
}

func TestResolveDoesNotWrite(t *testing.T) {
	dir := t.TempDir()
	_, _, err := Resolve(filepath.Join(dir, "a.png"), config.ConflictRename)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReserveClaimsPlaceholder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	base := filepath.Join(dir, "a.jpg")

	r, ok, err := Reserve(base, config.ConflictSkip)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, base, r.Path)
	assert.FileExists(t, base)

	_, ok, err = Reserve(base, config.ConflictSkip)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Release())
	assert.NoFileExists(t, base)
}

func TestReserveOverwriteLeavesFileAlone(t *testing.T) {
	base := filepath.Join(t.TempDir(), "a.png")
	touch(t, base)

	r, ok, err := Reserve(base, config.ConflictOverwrite)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, r.Release())
	assert.FileExists(t, base)
}

func TestReserveRenameIsExclusive(t *testing.T) {
	base := filepath.Join(t.TempDir(), "same_optimized.png")
	const workers = 16

	var wg sync.WaitGroup
	paths := make([]string, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, _, err := Reserve(base, config.ConflictRename)
			paths[i], errs[i] = r.Path, err
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i := range paths {
		require.NoError(t, errs[i])
		assert.False(t, seen[paths[i]], "duplicate reservation %s", paths[i])
		seen[paths[i]] = true
	}
	assert.True(t, seen[base])
}
