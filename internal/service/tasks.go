package service

import (
	"context"
	"log"
	"sort"
	"time"

	"taskmanager/internal/domain/errors"
	"taskmanager/internal/domain/models"
)

type TaskService struct {
	users UserRepository
	tasks TaskRepository
	files FileRepository
	blobs BlobStore
	now   func() time.Time
}

func NewTaskService(repo Repository, blobs BlobStore) *TaskService {
	return &TaskService{
		users: repo,
		tasks: repo,
		files: repo,
		blobs: blobs,
		now:   time.Now,
	}
}

func (s *TaskService) Create(ctx context.Context, req models.TaskRequest, p models.Principal) (*models.TaskResponse, error) {
	user, err := s.users.GetUserByID(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	due, err := validateTaskRequest(&req, false)
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] Создание задачи %q пользователем %s", req.Title, user.ID)

	status := req.Status
	if status == "" {
		status = models.StatusTodo
	}

	task := models.Task{
		Title:       req.Title,
		Description: req.Description,
		Status:      status,
		Priority:    req.Priority,
		DueDate:     due,
		CreatedByID: user.ID,
	}
	if req.AssignedToID != nil {
		assignee, err := s.users.GetUserByID(ctx, *req.AssignedToID)
		if err != nil {
			return nil, err
		}
		task.AssignedToID = &assignee.ID
	}

	now := s.now()
	task.CreatedAt = now
	task.UpdatedAt = now

	if err := s.tasks.CreateTask(ctx, &task); err != nil {
		return nil, err
	}
	log.Println("[SUCCESS] Задача создана:", task.ID)
	return s.compose(ctx, &task)
}

func (s *TaskService) Update(ctx context.Context, id string, req models.TaskRequest, p models.Principal) (*models.TaskResponse, error) {
	due, err := validateTaskRequest(&req, true)
	if err != nil {
		return nil, err
	}

	task, err := s.tasks.GetTaskByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetUserByID(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if !CanModify(user, task) {
		log.Printf("[WARN] Попытка изменить задачу %s без прав пользователем %s", id, user.ID)
		return nil, errors.ErrModifyForbidden
	}

	task.Title = req.Title
	task.Description = req.Description
	task.Status = req.Status
	task.Priority = req.Priority
	task.DueDate = due
	if req.AssignedToID != nil {
		assignee, err := s.users.GetUserByID(ctx, *req.AssignedToID)
		if err != nil {
			return nil, err
		}
		task.AssignedToID = &assignee.ID
	} else {
		task.AssignedToID = nil
	}

	task.UpdatedAt = s.now()
	if task.UpdatedAt.Before(task.CreatedAt) {
		task.UpdatedAt = task.CreatedAt
	}

	if err := s.tasks.UpdateTask(ctx, id, task); err != nil {
		return nil, err
	}
	log.Println("[SUCCESS] Задача обновлена:", id)
	return s.compose(ctx, task)
}

// Delete удаляет задачу вместе с вложениями. Записи удаляются до содержимого,
// поэтому задача никогда не ссылается на удалённый файл. Ошибки удаления
// содержимого только логируются.
func (s *TaskService) Delete(ctx context.Context, id string, p models.Principal) error {
	task, err := s.tasks.GetTaskByID(ctx, id)
	if err != nil {
		return err
	}
	user, err := s.users.GetUserByID(ctx, p.UserID)
	if err != nil {
		return err
	}
	if !CanDelete(user, task) {
		log.Printf("[WARN] Попытка удалить задачу %s без прав пользователем %s", id, user.ID)
		return errors.ErrDeleteForbidden
	}

	files, err := s.files.GetFilesByTaskID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.files.DeleteFilesByTaskID(ctx, id); err != nil {
		return err
	}
	if err := s.tasks.DeleteTask(ctx, id); err != nil {
		return err
	}

	if s.blobs != nil {
		for _, f := range files {
			if err := s.blobs.Remove(ctx, f.FilePath); err != nil {
				log.Printf("[WARN] Не удалось удалить содержимое файла %s: %v", f.ID, err)
			}
		}
	}
	log.Println("[SUCCESS] Задача удалена:", id)
	return nil
}

func (s *TaskService) GetByID(ctx context.Context, id string) (*models.TaskResponse, error) {
	task, err := s.tasks.GetTaskByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.compose(ctx, task)
}

func (s *TaskService) GetAll(ctx context.Context) ([]models.TaskResponse, error) {
	tasks, err := s.tasks.GetTasks(ctx)
	if err != nil {
		return nil, err
	}
	return s.composeAll(ctx, tasks)
}

// Search применяет все заданные фильтры одновременно. Пустой фильтр
// эквивалентен GetAll.
func (s *TaskService) Search(ctx context.Context, filter models.TaskFilter) ([]models.TaskResponse, error) {
	var (
		tasks []models.Task
		err   error
	)
	switch {
	case filter.IsEmpty():
		tasks, err = s.tasks.GetTasks(ctx)
	case filter.Status != nil && filter.Search == nil && filter.Priority == nil && filter.AssigneeID == nil:
		tasks, err = s.tasks.GetTasksByStatus(ctx, *filter.Status)
	case filter.Priority != nil && filter.Search == nil && filter.Status == nil && filter.AssigneeID == nil:
		tasks, err = s.tasks.GetTasksByPriority(ctx, *filter.Priority)
	default:
		tasks, err = s.tasks.SearchTasks(ctx, filter)
	}
	if err != nil {
		return nil, err
	}
	log.Println("[INFO] Найдено задач по фильтру:", len(tasks))
	return s.composeAll(ctx, tasks)
}

func (s *TaskService) GetMine(ctx context.Context, p models.Principal) ([]models.TaskResponse, error) {
	user, err := s.users.GetUserByID(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.tasks.GetTasksForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(tasks))
	unique := tasks[:0]
	for _, t := range tasks {
		if _, ok := seen[t.ID]; ok {
			continue
		}
		seen[t.ID] = struct{}{}
		unique = append(unique, t)
	}
	return s.composeAll(ctx, unique)
}

// recent возвращает не более limit последних созданных задач.
func recent(tasks []models.Task, limit int) []models.Task {
	sorted := make([]models.Task, len(tasks))
	copy(sorted, tasks)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].ID > sorted[j].ID
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

type userCache struct {
	repo  UserRepository
	users map[string]*models.User
}

func (c *userCache) get(ctx context.Context, id string) (*models.User, error) {
	if u, ok := c.users[id]; ok {
		return u, nil
	}
	u, err := c.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.users[id] = u
	return u, nil
}

func (s *TaskService) compose(ctx context.Context, task *models.Task) (*models.TaskResponse, error) {
	cache := &userCache{repo: s.users, users: make(map[string]*models.User)}
	return s.composeWith(ctx, cache, task)
}

func (s *TaskService) composeAll(ctx context.Context, tasks []models.Task) ([]models.TaskResponse, error) {
	cache := &userCache{repo: s.users, users: make(map[string]*models.User)}
	out := make([]models.TaskResponse, 0, len(tasks))
	for i := range tasks {
		resp, err := s.composeWith(ctx, cache, &tasks[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *resp)
	}
	return out, nil
}

func (s *TaskService) composeWith(ctx context.Context, cache *userCache, task *models.Task) (*models.TaskResponse, error) {
	creator, err := cache.get(ctx, task.CreatedByID)
	if err != nil {
		return nil, err
	}

	resp := &models.TaskResponse{
		ID:                 task.ID,
		Title:              task.Title,
		Description:        task.Description,
		Status:             task.Status,
		Priority:           task.Priority,
		CreatedByID:        creator.ID,
		CreatedByFirstName: creator.FirstName,
		CreatedByLastName:  creator.LastName,
		CreatedAt:          task.CreatedAt,
		UpdatedAt:          task.UpdatedAt,
	}
	if task.DueDate != nil {
		due := task.DueDate.Format(models.DateLayout)
		resp.DueDate = &due
	}
	if task.AssignedToID != nil {
		assignee, err := cache.get(ctx, *task.AssignedToID)
		if err != nil {
			return nil, err
		}
		resp.AssignedToID = &assignee.ID
		resp.AssignedToFirstName = &assignee.FirstName
		resp.AssignedToLastName = &assignee.LastName
	}

	files, err := s.files.GetFilesByTaskID(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	resp.Files = make([]models.FileResponse, 0, len(files))
	for _, f := range files {
		resp.Files = append(resp.Files, toFileResponse(f))
	}
	return resp, nil
}

func toFileResponse(f models.FileAttachment) models.FileResponse {
	return models.FileResponse{
		ID:               f.ID,
		FileName:         f.FileName,
		OriginalFileName: f.OriginalFileName,
		FileSize:         f.FileSize,
		ContentType:      f.ContentType,
		CreatedAt:        f.CreatedAt,
	}
}
