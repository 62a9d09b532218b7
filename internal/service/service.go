package service

import "time"

type Options struct {
	JWTSecret     string
	JWTTTL        time.Duration
	MaxUploadSize int64
}

// Services собирает компоненты ядра поверх одного хранилища.
type Services struct {
	Auth      *AuthService
	Tasks     *TaskService
	Files     *FileService
	Dashboard *DashboardService
	Seeder    *Seeder
}

func New(repo Repository, blobs BlobStore, opts Options) *Services {
	tasks := NewTaskService(repo, blobs)
	return &Services{
		Auth:      NewAuthService(repo, NewTokenManager(opts.JWTSecret, opts.JWTTTL)),
		Tasks:     tasks,
		Files:     NewFileService(repo, blobs, opts.MaxUploadSize),
		Dashboard: NewDashboardService(repo, tasks),
		Seeder:    NewSeeder(repo, tasks, time.Now().UnixNano()),
	}
}
