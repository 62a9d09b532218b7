package service

import (
	"testing"

	"taskmanager/internal/domain/models"

	"github.com/stretchr/testify/assert"
)

func TestPolicy(t *testing.T) {
	assignee := "u-assignee"
	task := &models.Task{ID: "t-1", CreatedByID: "u-creator", AssignedToID: &assignee}
	unassigned := &models.Task{ID: "t-2", CreatedByID: "u-creator"}

	tests := []struct {
		name string
		user *models.User
		task *models.Task
		want struct {
			modify bool
			delete bool
		}
	}{
		{
			name: "creator",
			user: &models.User{ID: "u-creator", Role: models.RoleMember},
			task: task,
			want: struct {
				modify bool
				delete bool
			}{modify: true, delete: true},
		},
		{
			name: "assignee",
			user: &models.User{ID: "u-assignee", Role: models.RoleMember},
			task: task,
			want: struct {
				modify bool
				delete bool
			}{modify: true},
		},
		{
			name: "unrelated admin",
			user: &models.User{ID: "u-admin", Role: models.RoleAdmin},
			task: task,
			want: struct {
				modify bool
				delete bool
			}{},
		},
		{
			name: "stranger on unassigned task",
			user: &models.User{ID: "u-assignee", Role: models.RoleMember},
			task: unassigned,
			want: struct {
				modify bool
				delete bool
			}{},
		},
		{
			name: "nil user",
			task: task,
			want: struct {
				modify bool
				delete bool
			}{},
		},
		{
			name: "nil task",
			user: &models.User{ID: "u-creator"},
			want: struct {
				modify bool
				delete bool
			}{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want.modify, CanModify(tt.user, tt.task))
			assert.Equal(t, tt.want.delete, CanDelete(tt.user, tt.task))
		})
	}
}

func TestParseTaskFilter(t *testing.T) {
	tests := []struct {
		name     string
		args     [4]string
		wantErr  bool
		empty    bool
		status   models.TaskStatus
		priority models.Priority
	}{
		{name: "all empty", empty: true},
		{name: "lowercase enums", args: [4]string{"", "in_progress", "high", ""}, status: models.StatusInProgress, priority: models.PriorityHigh},
		{name: "search and assignee", args: [4]string{"bug", "", "", "u-1"}},
		{name: "bad status", args: [4]string{"", "blocked", "", ""}, wantErr: true},
		{name: "bad priority", args: [4]string{"", "", "urgent", ""}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := ParseTaskFilter(tt.args[0], tt.args[1], tt.args[2], tt.args[3])
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.empty, filter.IsEmpty())
			if tt.status != "" {
				assert.Equal(t, tt.status, *filter.Status)
			}
			if tt.priority != "" {
				assert.Equal(t, tt.priority, *filter.Priority)
			}
			if tt.args[0] != "" {
				assert.Equal(t, tt.args[0], *filter.Search)
				assert.Equal(t, tt.args[3], *filter.AssigneeID)
			}
		})
	}
}
