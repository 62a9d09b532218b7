package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"taskmanager/internal/domain/models"
	"taskmanager/internal/service"
	"taskmanager/repository/repotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageContract(t *testing.T) {
	repotest.Run(t, func(t *testing.T) service.Repository {
		return NewStorage()
	})
}

func TestNewStorage(t *testing.T) {
	storage := NewStorage()

	assert.NotNil(t, storage.users)
	assert.NotNil(t, storage.tasks)
	assert.NotNil(t, storage.files)
	assert.Empty(t, storage.tasks)
}

func TestStorageReturnsCopies(t *testing.T) {
	ctx := context.Background()
	storage := NewStorage()
	assignee := "u-2"
	due := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	task := &models.Task{Title: "Original", CreatedByID: "u-1", AssignedToID: &assignee, DueDate: &due}
	require.NoError(t, storage.CreateTask(ctx, task))

	assignee = "mutated"
	got, err := storage.GetTaskByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "u-2", *got.AssignedToID)

	*got.AssignedToID = "changed-through-read"
	got.Title = "changed-through-read"
	again, err := storage.GetTaskByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "u-2", *again.AssignedToID)
	assert.Equal(t, "Original", again.Title)
}

func TestStorageConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	storage := NewStorage()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = storage.CreateTask(ctx, &models.Task{Title: "parallel", CreatedByID: "u-1"})
		}()
		go func() {
			defer wg.Done()
			_, _ = storage.GetTasks(ctx)
		}()
	}
	wg.Wait()

	tasks, err := storage.GetTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 50)
}
