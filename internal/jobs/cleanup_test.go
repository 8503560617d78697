package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wabridge/relay-server-go/internal/model"
)

type mockHandoffLogRepo struct {
	mock.Mock
}

func (m *mockHandoffLogRepo) Create(ctx context.Context, params model.CreateHandoffLogParams) (*model.HandoffLog, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.HandoffLog), args.Error(1)
}

func (m *mockHandoffLogRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func TestCleanupJob_Cleanup(t *testing.T) {
	now := time.Date(2024, 5, 10, 3, 0, 0, 0, time.UTC)

	t.Run("deletes entries older than the retention window", func(t *testing.T) {
		repo := new(mockHandoffLogRepo)
		repo.On("DeleteOlderThan", mock.Anything, now.Add(-90*24*time.Hour)).Return(int64(4), nil)

		job := NewCleanupJob(repo, 90*24*time.Hour, "@daily")
		job.now = func() time.Time { return now }
		job.cleanup()

		repo.AssertExpectations(t)
	})

	t.Run("repository error is logged and swallowed", func(t *testing.T) {
		repo := new(mockHandoffLogRepo)
		repo.On("DeleteOlderThan", mock.Anything, mock.Anything).Return(int64(0), errors.New("db down"))

		job := NewCleanupJob(repo, time.Hour, "@daily")
		job.now = func() time.Time { return now }

		assert.NotPanics(t, job.cleanup)
		repo.AssertExpectations(t)
	})
}

func TestCleanupJob_Start(t *testing.T) {
	t.Run("rejects an invalid schedule", func(t *testing.T) {
		job := NewCleanupJob(new(mockHandoffLogRepo), time.Hour, "every tuesday")

		assert.Error(t, job.Start())
	})

	t.Run("accepts descriptors and second fields", func(t *testing.T) {
		for _, schedule := range []string{"@daily", "0 30 3 * * *", "30 3 * * *"} {
			job := NewCleanupJob(new(mockHandoffLogRepo), time.Hour, schedule)
			require.NoError(t, job.Start(), schedule)
			job.Stop()
		}
	})
}
