package fileio

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageCommit(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out", "alarm.txt")
	staged, err := Stage(path, []byte("new"))
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "final file must not exist before commit")

	require.NoError(t, staged.Commit())
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))

	_, err = os.Stat(staged.TempPath())
	assert.True(t, os.IsNotExist(err))
}

func TestStageRollbackKeepsPrevious(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "alarm.txt")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	staged, err := Stage(path, []byte("new"))
	require.NoError(t, err)
	require.NoError(t, staged.Rollback())
	require.NoError(t, staged.Commit(), "commit after rollback is a no-op")

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old", string(got))
	_, err = os.Stat(path + TempSuffix)
	assert.True(t, os.IsNotExist(err))
}

func TestWriteFileAtomicReplaces(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "history.json")
	require.NoError(t, WriteFileAtomic(path, []byte("one")))
	require.NoError(t, WriteFileAtomic(path, []byte("two")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestAppendAndRename(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "a.cap")
	require.NoError(t, AppendFile(path, []byte("a")))
	require.NoError(t, AppendFile(path, []byte("b")))

	target, err := RenameWithSuffix(path, "success")
	require.NoError(t, err)
	assert.Equal(t, path+".success", target)

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "ab", string(got))

	_, err = RenameWithSuffix(path, "failure")
	assert.Error(t, err)
}

func TestLocksSerializePerKey(t *testing.T) {
	t.Parallel()

	locks := NewLocks()
	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := locks.Lock("history")
			defer release()
			counter++
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}
