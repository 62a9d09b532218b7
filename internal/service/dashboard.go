package service

import (
	"context"
	"log"

	"taskmanager/internal/domain/models"
)

const recentTasksLimit = 5

type DashboardService struct {
	tasks    TaskRepository
	composer *TaskService
}

func NewDashboardService(tasks TaskRepository, composer *TaskService) *DashboardService {
	return &DashboardService{tasks: tasks, composer: composer}
}

// Stats считает все показатели по одному снимку задач, поэтому сумма по
// статусам и по приоритетам всегда равна общему числу.
func (s *DashboardService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	tasks, err := s.tasks.GetTasks(ctx)
	if err != nil {
		return nil, err
	}

	stats := &models.DashboardStats{
		TotalTasks:      len(tasks),
		TasksByStatus:   make(map[models.TaskStatus]int, len(models.TaskStatuses)),
		TasksByPriority: make(map[models.Priority]int, len(models.Priorities)),
	}
	for _, st := range models.TaskStatuses {
		stats.TasksByStatus[st] = 0
	}
	for _, pr := range models.Priorities {
		stats.TasksByPriority[pr] = 0
	}
	for _, t := range tasks {
		stats.TasksByStatus[t.Status]++
		stats.TasksByPriority[t.Priority]++
	}

	stats.RecentTasks, err = s.composer.composeAll(ctx, recent(tasks, recentTasksLimit))
	if err != nil {
		return nil, err
	}

	log.Printf("[INFO] Статистика: всего %d, по статусам %v, по приоритетам %v",
		stats.TotalTasks, stats.TasksByStatus, stats.TasksByPriority)
	return stats, nil
}
