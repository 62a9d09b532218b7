package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"taskmanager/internal/domain/errors"
	"taskmanager/internal/domain/models"

	"github.com/google/uuid"
)

type Storage struct {
	mu    sync.RWMutex
	users map[string]models.User
	tasks map[string]models.Task
	files map[string]models.FileAttachment
}

func NewStorage() *Storage {
	return &Storage{
		users: make(map[string]models.User),
		tasks: make(map[string]models.Task),
		files: make(map[string]models.FileAttachment),
	}
}

func (s *Storage) GetUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, exists := s.users[id]
	if !exists {
		return nil, errors.ErrUserNotFound
	}
	return &user, nil
}

func (s *Storage) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Email == email {
			return &user, nil
		}
	}
	return nil, errors.ErrUserNotFound
}

func (s *Storage) GetUsers(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].Email < users[j].Email
	})
	return users, nil
}

func (s *Storage) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existingUser := range s.users {
		if existingUser.Email == user.Email {
			return errors.ErrUserAlreadyExists
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	s.users[user.ID] = *user
	return nil
}

func (s *Storage) GetTaskByID(_ context.Context, id string) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, exists := s.tasks[id]
	if !exists {
		return nil, errors.ErrTaskNotFound
	}
	t := cloneTask(task)
	return &t, nil
}

func (s *Storage) GetTasks(_ context.Context) ([]models.Task, error) {
	return s.collectTasks(func(models.Task) bool { return true }), nil
}

func (s *Storage) GetTasksByStatus(_ context.Context, status models.TaskStatus) ([]models.Task, error) {
	return s.collectTasks(func(t models.Task) bool { return t.Status == status }), nil
}

func (s *Storage) GetTasksByPriority(_ context.Context, priority models.Priority) ([]models.Task, error) {
	return s.collectTasks(func(t models.Task) bool { return t.Priority == priority }), nil
}

func (s *Storage) SearchTasks(_ context.Context, filter models.TaskFilter) ([]models.Task, error) {
	var needle string
	if filter.Search != nil {
		needle = strings.ToLower(*filter.Search)
	}
	return s.collectTasks(func(t models.Task) bool {
		if filter.Search != nil && !strings.Contains(strings.ToLower(t.Title), needle) {
			return false
		}
		if filter.Status != nil && t.Status != *filter.Status {
			return false
		}
		if filter.Priority != nil && t.Priority != *filter.Priority {
			return false
		}
		if filter.AssigneeID != nil && (t.AssignedToID == nil || *t.AssignedToID != *filter.AssigneeID) {
			return false
		}
		return true
	}), nil
}

func (s *Storage) GetTasksForUser(_ context.Context, userID string) ([]models.Task, error) {
	return s.collectTasks(func(t models.Task) bool {
		return t.CreatedByID == userID || (t.AssignedToID != nil && *t.AssignedToID == userID)
	}), nil
}

func (s *Storage) CreateTask(_ context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	s.tasks[task.ID] = cloneTask(*task)
	return nil
}

func (s *Storage) UpdateTask(_ context.Context, id string, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tasks[id]; !exists {
		return errors.ErrTaskNotFound
	}
	task.ID = id
	s.tasks[id] = cloneTask(*task)
	return nil
}

func (s *Storage) DeleteTask(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tasks[id]; !exists {
		return errors.ErrTaskNotFound
	}
	delete(s.tasks, id)
	for fid, f := range s.files {
		if f.TaskID == id {
			delete(s.files, fid)
		}
	}
	return nil
}

func (s *Storage) GetFileByID(_ context.Context, id string) (*models.FileAttachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	file, exists := s.files[id]
	if !exists {
		return nil, errors.ErrFileNotFound
	}
	return &file, nil
}

func (s *Storage) GetFilesByTaskID(_ context.Context, taskID string) ([]models.FileAttachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	files := []models.FileAttachment{}
	for _, f := range s.files {
		if f.TaskID == taskID {
			files = append(files, f)
		}
	}
	sort.Slice(files, func(i, j int) bool {
		if !files[i].CreatedAt.Equal(files[j].CreatedAt) {
			return files[i].CreatedAt.Before(files[j].CreatedAt)
		}
		return files[i].ID < files[j].ID
	})
	return files, nil
}

func (s *Storage) CreateFile(_ context.Context, file *models.FileAttachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tasks[file.TaskID]; !exists {
		return errors.ErrTaskNotFound
	}
	if file.ID == "" {
		file.ID = uuid.New().String()
	}
	s.files[file.ID] = *file
	return nil
}

func (s *Storage) DeleteFile(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.files[id]; !exists {
		return errors.ErrFileNotFound
	}
	delete(s.files, id)
	return nil
}

func (s *Storage) DeleteFilesByTaskID(_ context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, f := range s.files {
		if f.TaskID == taskID {
			delete(s.files, id)
		}
	}
	return nil
}

func (s *Storage) collectTasks(match func(models.Task) bool) []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tasks := []models.Task{}
	for _, t := range s.tasks {
		if match(t) {
			tasks = append(tasks, cloneTask(t))
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})
	return tasks
}

func cloneTask(t models.Task) models.Task {
	if t.AssignedToID != nil {
		id := *t.AssignedToID
		t.AssignedToID = &id
	}
	if t.DueDate != nil {
		d := *t.DueDate
		t.DueDate = &d
	}
	return t
}
