package service

import (
	"context"
	"testing"
	"time"

	"taskmanager/internal/domain/errors"
	"taskmanager/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskServiceCreate(t *testing.T) {
	tests := []struct {
		name string
		req  func(assignee string) models.TaskRequest
		want struct {
			err      error
			status   models.TaskStatus
			assigned bool
			dueDate  string
		}
	}{
		{
			name: "defaults status to TODO",
			req: func(string) models.TaskRequest {
				return models.TaskRequest{Title: "Write docs", Priority: models.PriorityLow}
			},
			want: struct {
				err      error
				status   models.TaskStatus
				assigned bool
				dueDate  string
			}{status: models.StatusTodo},
		},
		{
			name: "explicit status, assignee and due date",
			req: func(assignee string) models.TaskRequest {
				return models.TaskRequest{
					Title:        "Ship release",
					Status:       models.StatusInProgress,
					Priority:     models.PriorityHigh,
					DueDate:      "2025-04-01",
					AssignedToID: &assignee,
				}
			},
			want: struct {
				err      error
				status   models.TaskStatus
				assigned bool
				dueDate  string
			}{status: models.StatusInProgress, assigned: true, dueDate: "2025-04-01"},
		},
		{
			name: "blank title",
			req: func(string) models.TaskRequest {
				return models.TaskRequest{Title: "   ", Priority: models.PriorityLow}
			},
			want: struct {
				err      error
				status   models.TaskStatus
				assigned bool
				dueDate  string
			}{err: errors.ErrInvalidInput},
		},
		{
			name: "missing priority",
			req: func(string) models.TaskRequest {
				return models.TaskRequest{Title: "No priority"}
			},
			want: struct {
				err      error
				status   models.TaskStatus
				assigned bool
				dueDate  string
			}{err: errors.ErrInvalidInput},
		},
		{
			name: "unknown status",
			req: func(string) models.TaskRequest {
				return models.TaskRequest{Title: "Bad status", Status: "BLOCKED", Priority: models.PriorityLow}
			},
			want: struct {
				err      error
				status   models.TaskStatus
				assigned bool
				dueDate  string
			}{err: errors.ErrInvalidInput},
		},
		{
			name: "malformed due date",
			req: func(string) models.TaskRequest {
				return models.TaskRequest{Title: "Bad date", Priority: models.PriorityLow, DueDate: "01/04/2025"}
			},
			want: struct {
				err      error
				status   models.TaskStatus
				assigned bool
				dueDate  string
			}{err: errors.ErrInvalidInput},
		},
		{
			name: "unknown assignee",
			req: func(string) models.TaskRequest {
				return models.TaskRequest{Title: "Orphan", Priority: models.PriorityLow, AssignedToID: strPtr("nobody")}
			},
			want: struct {
				err      error
				status   models.TaskStatus
				assigned bool
				dueDate  string
			}{err: errors.ErrNotFound},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			owner := f.user(t, "owner@example.com", models.RoleMember)
			other := f.user(t, "other@example.com", models.RoleMember)

			resp, err := f.svc.Tasks.Create(context.Background(), tt.req(other.UserID), owner)
			if tt.want.err != nil {
				assert.ErrorIs(t, err, tt.want.err)
				assert.Nil(t, resp)
				all, _ := f.repo.GetTasks(context.Background())
				assert.Empty(t, all)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, resp.ID)
			assert.Equal(t, tt.want.status, resp.Status)
			assert.Equal(t, owner.UserID, resp.CreatedByID)
			assert.Equal(t, "First-owner@example.com", resp.CreatedByFirstName)
			assert.Equal(t, resp.CreatedAt, resp.UpdatedAt)
			assert.NotNil(t, resp.Files)
			assert.Empty(t, resp.Files)
			if tt.want.assigned {
				require.NotNil(t, resp.AssignedToID)
				assert.Equal(t, other.UserID, *resp.AssignedToID)
				assert.Equal(t, "First-other@example.com", *resp.AssignedToFirstName)
			} else {
				assert.Nil(t, resp.AssignedToID)
				assert.Nil(t, resp.AssignedToFirstName)
			}
			if tt.want.dueDate != "" {
				require.NotNil(t, resp.DueDate)
				assert.Equal(t, tt.want.dueDate, *resp.DueDate)
			} else {
				assert.Nil(t, resp.DueDate)
			}
		})
	}
}

func TestTaskServiceCreateUnknownCreator(t *testing.T) {
	tests := []struct {
		name string
		req  models.TaskRequest
	}{
		{name: "valid request", req: models.TaskRequest{Title: "x", Priority: models.PriorityLow}},
		{name: "empty title", req: models.TaskRequest{Title: "", Priority: models.PriorityLow}},
		{name: "bad priority", req: models.TaskRequest{Title: "x", Priority: "URGENT"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.svc.Tasks.Create(context.Background(), tt.req, models.Principal{UserID: "ghost"})

			assert.ErrorIs(t, err, errors.ErrUserNotFound)
			assert.Equal(t, errors.ErrNotFound, errors.Kind(err))
		})
	}
}

func TestTaskServiceUpdate(t *testing.T) {
	tests := []struct {
		name   string
		actor  string
		req    models.TaskRequest
		want   error
		status models.TaskStatus
	}{
		{
			name:   "creator updates",
			actor:  "creator",
			req:    models.TaskRequest{Title: "Renamed", Status: models.StatusDone, Priority: models.PriorityHigh},
			status: models.StatusDone,
		},
		{
			name:   "assignee updates",
			actor:  "assignee",
			req:    models.TaskRequest{Title: "Progress", Status: models.StatusInProgress, Priority: models.PriorityLow},
			status: models.StatusInProgress,
		},
		{
			name:  "stranger is rejected",
			actor: "stranger",
			req:   models.TaskRequest{Title: "Hijack", Status: models.StatusDone, Priority: models.PriorityLow},
			want:  errors.ErrUnauthorized,
		},
		{
			name:  "admin without relation is rejected",
			actor: "admin",
			req:   models.TaskRequest{Title: "Override", Status: models.StatusDone, Priority: models.PriorityLow},
			want:  errors.ErrUnauthorized,
		},
		{
			name:  "status is required",
			actor: "creator",
			req:   models.TaskRequest{Title: "No status", Priority: models.PriorityLow},
			want:  errors.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			actors := map[string]models.Principal{
				"creator":  f.user(t, "creator@example.com", models.RoleMember),
				"assignee": f.user(t, "assignee@example.com", models.RoleMember),
				"stranger": f.user(t, "stranger@example.com", models.RoleMember),
				"admin":    f.user(t, "admin@example.com", models.RoleAdmin),
			}
			assignee := actors["assignee"].UserID
			created := f.task(t, actors["creator"], models.TaskRequest{Title: "Original", AssignedToID: &assignee})

			resp, err := f.svc.Tasks.Update(context.Background(), created.ID, tt.req, actors[tt.actor])
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
				stored, getErr := f.svc.Tasks.GetByID(context.Background(), created.ID)
				require.NoError(t, getErr)
				assert.Equal(t, "Original", stored.Title)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.req.Title, resp.Title)
			assert.Equal(t, tt.status, resp.Status)
			assert.Equal(t, created.CreatedAt, resp.CreatedAt)
			assert.True(t, resp.UpdatedAt.After(created.UpdatedAt))
			assert.Nil(t, resp.AssignedToID, "full replacement clears the assignee")
		})
	}
}

func TestTaskServiceUpdateClampsUpdatedAt(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner@example.com", models.RoleMember)
	created := f.task(t, owner, models.TaskRequest{Title: "Clock skew"})

	f.clock.advance(-24 * time.Hour)
	resp, err := f.svc.Tasks.Update(context.Background(), created.ID,
		models.TaskRequest{Title: "Clock skew", Status: models.StatusDone, Priority: models.PriorityLow}, owner)

	require.NoError(t, err)
	assert.Equal(t, resp.CreatedAt, resp.UpdatedAt)
}

func TestTaskServiceUpdateMissingTask(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner@example.com", models.RoleMember)

	_, err := f.svc.Tasks.Update(context.Background(), "missing",
		models.TaskRequest{Title: "x", Status: models.StatusDone, Priority: models.PriorityLow}, owner)

	assert.ErrorIs(t, err, errors.ErrTaskNotFound)
}

func TestTaskServiceDelete(t *testing.T) {
	tests := []struct {
		name  string
		actor string
		want  error
	}{
		{name: "creator deletes", actor: "creator"},
		{name: "assignee cannot delete", actor: "assignee", want: errors.ErrUnauthorized},
		{name: "admin cannot delete", actor: "admin", want: errors.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			actors := map[string]models.Principal{
				"creator":  f.user(t, "creator@example.com", models.RoleMember),
				"assignee": f.user(t, "assignee@example.com", models.RoleMember),
				"admin":    f.user(t, "admin@example.com", models.RoleAdmin),
			}
			assignee := actors["assignee"].UserID
			created := f.task(t, actors["creator"], models.TaskRequest{Title: "Disposable", AssignedToID: &assignee})
			file, err := f.svc.Files.Upload(context.Background(), Upload{
				TaskID:           created.ID,
				OriginalFileName: "notes.txt",
				ContentType:      "text/plain",
				Size:             5,
				Body:             stringsReader("hello"),
			})
			require.NoError(t, err)

			err = f.svc.Tasks.Delete(context.Background(), created.ID, actors[tt.actor])
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
				_, getErr := f.svc.Tasks.GetByID(context.Background(), created.ID)
				assert.NoError(t, getErr)
				assert.True(t, f.blobs.has(file.FilePath))
				return
			}

			require.NoError(t, err)
			_, err = f.svc.Tasks.GetByID(context.Background(), created.ID)
			assert.ErrorIs(t, err, errors.ErrNotFound)
			_, err = f.repo.GetFileByID(context.Background(), file.ID)
			assert.ErrorIs(t, err, errors.ErrNotFound)
			assert.False(t, f.blobs.has(file.FilePath))
		})
	}
}

func TestTaskServiceDeleteIgnoresBlobFailure(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner@example.com", models.RoleMember)
	created := f.task(t, owner, models.TaskRequest{Title: "Sticky blob"})
	_, err := f.svc.Files.Upload(context.Background(), Upload{
		TaskID: created.ID, OriginalFileName: "a.txt", ContentType: "text/plain", Size: 1, Body: stringsReader("a"),
	})
	require.NoError(t, err)
	f.blobs.failRm = true

	err = f.svc.Tasks.Delete(context.Background(), created.ID, owner)

	require.NoError(t, err)
	assert.Len(t, f.blobs.removed, 1)
	_, err = f.repo.GetTaskByID(context.Background(), created.ID)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestTaskServiceDeleteMissing(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner@example.com", models.RoleMember)

	err := f.svc.Tasks.Delete(context.Background(), "missing", owner)

	assert.ErrorIs(t, err, errors.ErrTaskNotFound)
}

func TestTaskServiceSearch(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice@example.com", models.RoleMember)
	bob := f.user(t, "bob@example.com", models.RoleMember)
	bobID := bob.UserID

	f.task(t, alice, models.TaskRequest{Title: "Fix login bug", Status: models.StatusTodo, Priority: models.PriorityHigh})
	f.task(t, alice, models.TaskRequest{Title: "Write LOGIN tests", Status: models.StatusDone, Priority: models.PriorityLow, AssignedToID: &bobID})
	f.task(t, bob, models.TaskRequest{Title: "Deploy", Status: models.StatusTodo, Priority: models.PriorityHigh, AssignedToID: &bobID})

	todo := models.StatusTodo
	high := models.PriorityHigh
	login := "login"
	none := "nothing-matches"

	tests := []struct {
		name   string
		filter models.TaskFilter
		titles []string
	}{
		{name: "empty filter returns all", filter: models.TaskFilter{}, titles: []string{"Fix login bug", "Write LOGIN tests", "Deploy"}},
		{name: "case-insensitive title search", filter: models.TaskFilter{Search: &login}, titles: []string{"Fix login bug", "Write LOGIN tests"}},
		{name: "status only", filter: models.TaskFilter{Status: &todo}, titles: []string{"Fix login bug", "Deploy"}},
		{name: "priority only", filter: models.TaskFilter{Priority: &high}, titles: []string{"Fix login bug", "Deploy"}},
		{name: "assignee only", filter: models.TaskFilter{AssigneeID: &bobID}, titles: []string{"Write LOGIN tests", "Deploy"}},
		{name: "conjunction", filter: models.TaskFilter{Search: &login, Status: &todo, Priority: &high}, titles: []string{"Fix login bug"}},
		{name: "no match", filter: models.TaskFilter{Search: &none}, titles: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.Tasks.Search(context.Background(), tt.filter)
			require.NoError(t, err)

			titles := make([]string, 0, len(got))
			for _, task := range got {
				titles = append(titles, task.Title)
			}
			assert.ElementsMatch(t, tt.titles, titles)
		})
	}
}

func TestTaskServiceGetMine(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice@example.com", models.RoleMember)
	bob := f.user(t, "bob@example.com", models.RoleMember)
	aliceID := alice.UserID

	f.task(t, alice, models.TaskRequest{Title: "Created and assigned", AssignedToID: &aliceID})
	f.task(t, bob, models.TaskRequest{Title: "Assigned by bob", AssignedToID: &aliceID})
	f.task(t, bob, models.TaskRequest{Title: "Bob only"})

	mine, err := f.svc.Tasks.GetMine(context.Background(), alice)
	require.NoError(t, err)

	titles := make([]string, 0, len(mine))
	for _, task := range mine {
		titles = append(titles, task.Title)
	}
	assert.ElementsMatch(t, []string{"Created and assigned", "Assigned by bob"}, titles)

	_, err = f.svc.Tasks.GetMine(context.Background(), models.Principal{UserID: "ghost"})
	assert.ErrorIs(t, err, errors.ErrUserNotFound)
}

func TestTaskServiceGetAllIncludesFiles(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner@example.com", models.RoleMember)
	created := f.task(t, owner, models.TaskRequest{Title: "With attachment"})
	_, err := f.svc.Files.Upload(context.Background(), Upload{
		TaskID: created.ID, OriginalFileName: "notes.md", ContentType: "text/markdown", Size: 3, Body: stringsReader("abc"),
	})
	require.NoError(t, err)

	all, err := f.svc.Tasks.GetAll(context.Background())

	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Len(t, all[0].Files, 1)
	assert.Equal(t, "notes.md", all[0].Files[0].OriginalFileName)
}

func TestRecent(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tasks := []models.Task{
		{ID: "a", CreatedAt: base},
		{ID: "b", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "c", CreatedAt: base.Add(time.Hour)},
		{ID: "d", CreatedAt: base.Add(2 * time.Hour)},
	}

	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{name: "newest first with id tiebreak", limit: 5, want: []string{"d", "b", "c", "a"}},
		{name: "truncated", limit: 2, want: []string{"d", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := recent(tasks, tt.limit)
			ids := make([]string, 0, len(got))
			for _, task := range got {
				ids = append(ids, task.ID)
			}
			assert.Equal(t, tt.want, ids)
			assert.Equal(t, "a", tasks[0].ID, "input is not reordered")
		})
	}
}
