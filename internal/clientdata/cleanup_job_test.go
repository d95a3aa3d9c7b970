package clientdata

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupJobName(t *testing.T) {
	job := NewCleanupJob(NewRepository(setupTestDB(t)), zerolog.Nop())
	assert.Equal(t, "client_data_cleanup", job.Name())
}

func TestCleanupJobRun(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	job := NewCleanupJob(repo, zerolog.Nop())
	now := time.Now()

	fixedClock(repo, now.Add(-72*time.Hour))
	require.NoError(t, repo.Store("expired-1", testSeries("AAPL"), time.Hour))
	require.NoError(t, repo.Store("expired-2", testSeries("MSFT"), time.Hour))
	fixedClock(repo, now)
	require.NoError(t, repo.Store("fresh", testSeries("GOOG"), time.Hour))

	require.NoError(t, job.Run())

	n, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	fresh, err := repo.GetIfFresh("fresh")
	require.NoError(t, err)
	assert.NotNil(t, fresh)
}

func TestCleanupJobRun_EmptyCache(t *testing.T) {
	job := NewCleanupJob(NewRepository(setupTestDB(t)), zerolog.Nop())
	assert.NoError(t, job.Run())
}
