// Package repotest проверяет общее поведение реализаций service.Repository.
package repotest

import (
	"context"
	"testing"
	"time"

	"taskmanager/internal/domain/errors"
	"taskmanager/internal/domain/models"
	"taskmanager/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// Run прогоняет набор проверок на свежем хранилище для каждого подтеста.
func Run(t *testing.T, newRepo func(t *testing.T) service.Repository) {
	t.Run("users", func(t *testing.T) { testUsers(t, newRepo(t)) })
	t.Run("tasks", func(t *testing.T) { testTasks(t, newRepo(t)) })
	t.Run("queries", func(t *testing.T) { testQueries(t, newRepo(t)) })
	t.Run("files", func(t *testing.T) { testFiles(t, newRepo(t)) })
	t.Run("delete cascades", func(t *testing.T) { testDeleteCascade(t, newRepo(t)) })
}

func user(t *testing.T, repo service.Repository, email string, offset time.Duration) *models.User {
	t.Helper()
	u := &models.User{
		Email:     email,
		Password:  "hash",
		FirstName: "First",
		LastName:  "Last",
		Role:      models.RoleMember,
		CreatedAt: base.Add(offset),
		UpdatedAt: base.Add(offset),
	}
	require.NoError(t, repo.CreateUser(context.Background(), u))
	require.NotEmpty(t, u.ID)
	return u
}

func task(t *testing.T, repo service.Repository, tk models.Task, offset time.Duration) *models.Task {
	t.Helper()
	if tk.Status == "" {
		tk.Status = models.StatusTodo
	}
	if tk.Priority == "" {
		tk.Priority = models.PriorityMedium
	}
	tk.CreatedAt = base.Add(offset)
	tk.UpdatedAt = base.Add(offset)
	require.NoError(t, repo.CreateTask(context.Background(), &tk))
	require.NotEmpty(t, tk.ID)
	return &tk
}

func titles(tasks []models.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, tk := range tasks {
		out = append(out, tk.Title)
	}
	return out
}

func testUsers(t *testing.T, repo service.Repository) {
	ctx := context.Background()
	second := user(t, repo, "b@example.com", time.Minute)
	first := user(t, repo, "a@example.com", 0)

	got, err := repo.GetUserByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Email, got.Email)
	assert.Equal(t, "hash", got.Password)
	assert.Equal(t, models.RoleMember, got.Role)
	assert.True(t, first.CreatedAt.Equal(got.CreatedAt))

	got, err = repo.GetUserByEmail(ctx, "b@example.com")
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)

	_, err = repo.GetUserByID(ctx, uuid.New().String())
	assert.ErrorIs(t, err, errors.ErrUserNotFound)
	_, err = repo.GetUserByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, errors.ErrNotFound)
	_, err = repo.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, errors.ErrUserNotFound)

	dup := &models.User{Email: "a@example.com", Password: "x", FirstName: "D", LastName: "U", Role: models.RoleMember, CreatedAt: base, UpdatedAt: base}
	assert.ErrorIs(t, repo.CreateUser(ctx, dup), errors.ErrConflict)

	users, err := repo.GetUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, []string{users[0].Email, users[1].Email})
}

func testTasks(t *testing.T, repo service.Repository) {
	ctx := context.Background()
	owner := user(t, repo, "owner@example.com", 0)
	assignee := user(t, repo, "assignee@example.com", 0)
	due := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	created := task(t, repo, models.Task{
		Title:        "Write report",
		Description:  "quarterly",
		Priority:     models.PriorityHigh,
		DueDate:      &due,
		CreatedByID:  owner.ID,
		AssignedToID: &assignee.ID,
	}, 0)

	got, err := repo.GetTaskByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Write report", got.Title)
	assert.Equal(t, "quarterly", got.Description)
	assert.Equal(t, models.StatusTodo, got.Status)
	assert.Equal(t, models.PriorityHigh, got.Priority)
	assert.Equal(t, owner.ID, got.CreatedByID)
	require.NotNil(t, got.AssignedToID)
	assert.Equal(t, assignee.ID, *got.AssignedToID)
	require.NotNil(t, got.DueDate)
	assert.Equal(t, "2025-04-01", got.DueDate.Format(models.DateLayout))

	got.Title = "Write final report"
	got.Status = models.StatusDone
	got.AssignedToID = nil
	got.DueDate = nil
	got.UpdatedAt = base.Add(time.Hour)
	require.NoError(t, repo.UpdateTask(ctx, created.ID, got))

	updated, err := repo.GetTaskByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Write final report", updated.Title)
	assert.Equal(t, models.StatusDone, updated.Status)
	assert.Nil(t, updated.AssignedToID)
	assert.Nil(t, updated.DueDate)
	assert.True(t, base.Add(time.Hour).Equal(updated.UpdatedAt))
	assert.True(t, base.Equal(updated.CreatedAt))

	missing := uuid.New().String()
	_, err = repo.GetTaskByID(ctx, missing)
	assert.ErrorIs(t, err, errors.ErrTaskNotFound)
	assert.ErrorIs(t, repo.UpdateTask(ctx, missing, got), errors.ErrTaskNotFound)
	assert.ErrorIs(t, repo.DeleteTask(ctx, missing), errors.ErrTaskNotFound)

	require.NoError(t, repo.DeleteTask(ctx, created.ID))
	_, err = repo.GetTaskByID(ctx, created.ID)
	assert.ErrorIs(t, err, errors.ErrTaskNotFound)
	assert.ErrorIs(t, repo.DeleteTask(ctx, created.ID), errors.ErrTaskNotFound)

	all, err := repo.GetTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func testQueries(t *testing.T, repo service.Repository) {
	ctx := context.Background()
	alice := user(t, repo, "alice@example.com", 0)
	bob := user(t, repo, "bob@example.com", 0)

	task(t, repo, models.Task{Title: "Fix login bug", Status: models.StatusTodo, Priority: models.PriorityHigh, CreatedByID: alice.ID}, 2*time.Minute)
	task(t, repo, models.Task{Title: "Write LOGIN tests", Status: models.StatusDone, Priority: models.PriorityLow, CreatedByID: alice.ID, AssignedToID: &bob.ID}, time.Minute)
	task(t, repo, models.Task{Title: "Deploy", Status: models.StatusTodo, Priority: models.PriorityHigh, CreatedByID: bob.ID, AssignedToID: &bob.ID}, 3*time.Minute)
	task(t, repo, models.Task{Title: "Plan sprint", Status: models.StatusInProgress, Priority: models.PriorityMedium, CreatedByID: bob.ID, AssignedToID: &alice.ID}, 0)

	all, err := repo.GetTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Plan sprint", "Write LOGIN tests", "Fix login bug", "Deploy"}, titles(all), "ordered by creation time")

	byStatus, err := repo.GetTasksByStatus(ctx, models.StatusTodo)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fix login bug", "Deploy"}, titles(byStatus))

	byPriority, err := repo.GetTasksByPriority(ctx, models.PriorityLow)
	require.NoError(t, err)
	assert.Equal(t, []string{"Write LOGIN tests"}, titles(byPriority))

	carol := user(t, repo, "carol@example.com", 0)
	cyr := task(t, repo, models.Task{Title: "Исправить ВХОД", Status: models.StatusInProgress, Priority: models.PriorityMedium, CreatedByID: carol.ID}, 4*time.Minute)

	login := "LoGiN"
	entry := "вход"
	fix := "ИСПРАВИТЬ"
	high := models.PriorityHigh
	todo := models.StatusTodo
	none := uuid.New().String()

	tests := []struct {
		name   string
		filter models.TaskFilter
		want   []string
	}{
		{name: "search ignores case", filter: models.TaskFilter{Search: &login}, want: []string{"Write LOGIN tests", "Fix login bug"}},
		{name: "search folds cyrillic", filter: models.TaskFilter{Search: &entry}, want: []string{"Исправить ВХОД"}},
		{name: "upper case cyrillic fragment", filter: models.TaskFilter{Search: &fix}, want: []string{"Исправить ВХОД"}},
		{name: "search with priority", filter: models.TaskFilter{Search: &login, Priority: &high}, want: []string{"Fix login bug"}},
		{name: "assignee with status", filter: models.TaskFilter{AssigneeID: &bob.ID, Status: &todo}, want: []string{"Deploy"}},
		{name: "unknown assignee", filter: models.TaskFilter{AssigneeID: &none}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.SearchTasks(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(got))
		})
	}

	cyr.Title = "Проверить Выход"
	cyr.UpdatedAt = cyr.CreatedAt
	require.NoError(t, repo.UpdateTask(ctx, cyr.ID, cyr))
	exit := "выход"
	renamed, err := repo.SearchTasks(ctx, models.TaskFilter{Search: &exit})
	require.NoError(t, err)
	assert.Equal(t, []string{"Проверить Выход"}, titles(renamed))
	stale, err := repo.SearchTasks(ctx, models.TaskFilter{Search: &fix})
	require.NoError(t, err)
	assert.Empty(t, stale, "search uses the updated title")

	forAlice, err := repo.GetTasksForUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Plan sprint", "Write LOGIN tests", "Fix login bug"}, titles(forAlice))

	forBob, err := repo.GetTasksForUser(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Plan sprint", "Write LOGIN tests", "Deploy"}, titles(forBob))
}

func testFiles(t *testing.T, repo service.Repository) {
	ctx := context.Background()
	owner := user(t, repo, "owner@example.com", 0)
	tk := task(t, repo, models.Task{Title: "With files", CreatedByID: owner.ID}, 0)

	newFile := func(name string, offset time.Duration) *models.FileAttachment {
		f := &models.FileAttachment{
			TaskID:           tk.ID,
			FileName:         uuid.New().String() + ".txt",
			OriginalFileName: name,
			FilePath:         "/uploads/" + name,
			FileSize:         42,
			ContentType:      "text/plain",
			CreatedAt:        base.Add(offset),
		}
		require.NoError(t, repo.CreateFile(ctx, f))
		require.NotEmpty(t, f.ID)
		return f
	}
	second := newFile("second.txt", time.Minute)
	first := newFile("first.txt", 0)

	got, err := repo.GetFileByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "first.txt", got.OriginalFileName)
	assert.Equal(t, "/uploads/first.txt", got.FilePath)
	assert.Equal(t, int64(42), got.FileSize)
	assert.Equal(t, tk.ID, got.TaskID)

	files, err := repo.GetFilesByTaskID(ctx, tk.ID)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, first.ID, files[0].ID)
	assert.Equal(t, second.ID, files[1].ID)

	orphan := &models.FileAttachment{TaskID: uuid.New().String(), FileName: "x", OriginalFileName: "x", FilePath: "x", FileSize: 1, CreatedAt: base}
	assert.ErrorIs(t, repo.CreateFile(ctx, orphan), errors.ErrNotFound)

	require.NoError(t, repo.DeleteFile(ctx, first.ID))
	_, err = repo.GetFileByID(ctx, first.ID)
	assert.ErrorIs(t, err, errors.ErrFileNotFound)
	assert.ErrorIs(t, repo.DeleteFile(ctx, first.ID), errors.ErrFileNotFound)

	require.NoError(t, repo.DeleteFilesByTaskID(ctx, tk.ID))
	files, err = repo.GetFilesByTaskID(ctx, tk.ID)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func testDeleteCascade(t *testing.T, repo service.Repository) {
	ctx := context.Background()
	owner := user(t, repo, "owner@example.com", 0)
	tk := task(t, repo, models.Task{Title: "Doomed", CreatedByID: owner.ID}, 0)
	keep := task(t, repo, models.Task{Title: "Survivor", CreatedByID: owner.ID}, time.Minute)

	f := &models.FileAttachment{TaskID: tk.ID, FileName: "a", OriginalFileName: "a", FilePath: "a", FileSize: 1, CreatedAt: base}
	require.NoError(t, repo.CreateFile(ctx, f))

	require.NoError(t, repo.DeleteTask(ctx, tk.ID))

	all, err := repo.GetTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Survivor"}, titles(all))
	mine, err := repo.GetTasksForUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{keep.Title}, titles(mine))
}
