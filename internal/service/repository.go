package service

import (
	"context"
	"io"

	"taskmanager/internal/domain/models"
)

type UserRepository interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUsers(ctx context.Context) ([]models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
}

type TaskRepository interface {
	GetTaskByID(ctx context.Context, id string) (*models.Task, error)
	GetTasks(ctx context.Context) ([]models.Task, error)
	GetTasksByStatus(ctx context.Context, status models.TaskStatus) ([]models.Task, error)
	GetTasksByPriority(ctx context.Context, priority models.Priority) ([]models.Task, error)
	SearchTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)
	// GetTasksForUser возвращает задачи, где пользователь автор или исполнитель.
	GetTasksForUser(ctx context.Context, userID string) ([]models.Task, error)
	CreateTask(ctx context.Context, task *models.Task) error
	UpdateTask(ctx context.Context, id string, task *models.Task) error
	DeleteTask(ctx context.Context, id string) error
}

type FileRepository interface {
	GetFileByID(ctx context.Context, id string) (*models.FileAttachment, error)
	GetFilesByTaskID(ctx context.Context, taskID string) ([]models.FileAttachment, error)
	CreateFile(ctx context.Context, file *models.FileAttachment) error
	DeleteFile(ctx context.Context, id string) error
	DeleteFilesByTaskID(ctx context.Context, taskID string) error
}

type Repository interface {
	UserRepository
	TaskRepository
	FileRepository
}

// BlobStore хранит содержимое вложений. Handle непрозрачен для сервиса.
type BlobStore interface {
	Store(ctx context.Context, r io.Reader, suggestedName string) (string, error)
	Retrieve(ctx context.Context, handle string) (io.ReadCloser, error)
	Remove(ctx context.Context, handle string) error
}
