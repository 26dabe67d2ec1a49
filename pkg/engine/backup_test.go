package engine

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListBackups_NewestFirst(t *testing.T) {
	path := writeEnvFile(t, testEnvFile)
	e := New(path, &fakeLifecycle{})

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		stamp := base.Add(time.Duration(i) * time.Hour)
		e.now = func() time.Time { return stamp }
		_, err := e.Update(context.Background(), UpdateRequest{PoolSize: intPtr(25 + i)})
		require.NoError(t, err)
	}

	backups, err := e.ListBackups()
	require.NoError(t, err)
	require.Len(t, backups, 3)

	assert.Equal(t, base.Add(2*time.Hour), backups[0].CreatedAt)
	assert.Equal(t, base, backups[2].CreatedAt)
}

func TestListBackups_SkipsForeignFiles(t *testing.T) {
	path := writeEnvFile(t, testEnvFile)
	e := New(path, &fakeLifecycle{})

	_, err := e.Update(context.Background(), UpdateRequest{PoolSize: intPtr(30)})
	require.NoError(t, err)

	// A stray file matching the glob but without a valid timestamp.
	require.NoError(t, os.WriteFile(path+backupInfix+"not-a-timestamp", []byte("x"), 0o644))

	backups, err := e.ListBackups()
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}

func TestCleanupOldBackups(t *testing.T) {
	path := writeEnvFile(t, testEnvFile)
	e := New(path, &fakeLifecycle{})

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		stamp := base.Add(time.Duration(i) * time.Minute)
		e.now = func() time.Time { return stamp }
		_, err := e.Update(context.Background(), UpdateRequest{PoolSize: intPtr(25 + i)})
		require.NoError(t, err)
	}

	require.NoError(t, e.CleanupOldBackups(2))

	backups, err := e.ListBackups()
	require.NoError(t, err)
	require.Len(t, backups, 2)

	// The two newest survive.
	assert.Equal(t, base.Add(4*time.Minute), backups[0].CreatedAt)
	assert.Equal(t, base.Add(3*time.Minute), backups[1].CreatedAt)
}

func TestCleanupOldBackups_KeepLargerThanCount(t *testing.T) {
	path := writeEnvFile(t, testEnvFile)
	e := New(path, &fakeLifecycle{})

	_, err := e.Update(context.Background(), UpdateRequest{PoolSize: intPtr(30)})
	require.NoError(t, err)

	require.NoError(t, e.CleanupOldBackups(10))
	backups, err := e.ListBackups()
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}
