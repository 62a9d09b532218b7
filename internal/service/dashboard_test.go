package service

import (
	"context"
	"testing"

	"taskmanager/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardStats(t *testing.T) {
	tests := []struct {
		name  string
		tasks []models.TaskRequest
		want  struct {
			total      int
			byStatus   map[models.TaskStatus]int
			byPriority map[models.Priority]int
			recent     []string
		}
	}{
		{
			name: "empty store reports zeros",
			want: struct {
				total      int
				byStatus   map[models.TaskStatus]int
				byPriority map[models.Priority]int
				recent     []string
			}{
				byStatus:   map[models.TaskStatus]int{models.StatusTodo: 0, models.StatusInProgress: 0, models.StatusDone: 0},
				byPriority: map[models.Priority]int{models.PriorityLow: 0, models.PriorityMedium: 0, models.PriorityHigh: 0},
				recent:     []string{},
			},
		},
		{
			name: "fewer than five tasks are all recent",
			tasks: []models.TaskRequest{
				{Title: "a", Status: models.StatusTodo, Priority: models.PriorityLow},
				{Title: "b", Status: models.StatusInProgress, Priority: models.PriorityMedium},
				{Title: "c", Status: models.StatusInProgress, Priority: models.PriorityMedium},
			},
			want: struct {
				total      int
				byStatus   map[models.TaskStatus]int
				byPriority map[models.Priority]int
				recent     []string
			}{
				total:      3,
				byStatus:   map[models.TaskStatus]int{models.StatusTodo: 1, models.StatusInProgress: 2, models.StatusDone: 0},
				byPriority: map[models.Priority]int{models.PriorityLow: 1, models.PriorityMedium: 2, models.PriorityHigh: 0},
				recent:     []string{"c", "b", "a"},
			},
		},
		{
			name: "counts and five most recent",
			tasks: []models.TaskRequest{
				{Title: "t1", Status: models.StatusTodo, Priority: models.PriorityLow},
				{Title: "t2", Status: models.StatusTodo, Priority: models.PriorityHigh},
				{Title: "t3", Status: models.StatusInProgress, Priority: models.PriorityHigh},
				{Title: "t4", Status: models.StatusDone, Priority: models.PriorityMedium},
				{Title: "t5", Status: models.StatusDone, Priority: models.PriorityHigh},
				{Title: "t6", Status: models.StatusDone, Priority: models.PriorityLow},
			},
			want: struct {
				total      int
				byStatus   map[models.TaskStatus]int
				byPriority map[models.Priority]int
				recent     []string
			}{
				total:      6,
				byStatus:   map[models.TaskStatus]int{models.StatusTodo: 2, models.StatusInProgress: 1, models.StatusDone: 3},
				byPriority: map[models.Priority]int{models.PriorityLow: 2, models.PriorityMedium: 1, models.PriorityHigh: 3},
				recent:     []string{"t6", "t5", "t4", "t3", "t2"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			owner := f.user(t, "owner@example.com", models.RoleMember)
			for _, req := range tt.tasks {
				f.task(t, owner, req)
			}

			stats, err := f.svc.Dashboard.Stats(context.Background())
			require.NoError(t, err)

			assert.Equal(t, tt.want.total, stats.TotalTasks)
			assert.Equal(t, tt.want.byStatus, stats.TasksByStatus)
			assert.Equal(t, tt.want.byPriority, stats.TasksByPriority)

			titles := make([]string, 0, len(stats.RecentTasks))
			for _, task := range stats.RecentTasks {
				titles = append(titles, task.Title)
			}
			assert.Equal(t, tt.want.recent, titles)
			for i := 1; i < len(stats.RecentTasks); i++ {
				assert.True(t, stats.RecentTasks[i-1].CreatedAt.After(stats.RecentTasks[i].CreatedAt))
			}
		})
	}
}
