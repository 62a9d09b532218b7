package app

import (
	"context"
	"fmt"
	"log"

	"taskmanager/internal/domain/errors"
	"taskmanager/internal/server"
	"taskmanager/internal/service"
	"taskmanager/repository/blob"
	"taskmanager/repository/db"
	storage "taskmanager/repository/inmemory"
	"taskmanager/repository/sqlite"
)

// App связывает хранилище, файловое хранилище и сервисы по конфигурации.
type App struct {
	Repo     service.Repository
	Blobs    service.BlobStore
	Services *service.Services

	closers []func()
}

// Options управляет поведением Open.
type Options struct {
	// AllowMemoryFallback разрешает работать в памяти, когда PostgreSQL
	// недоступен. Нужен только долгоживущему сервису.
	AllowMemoryFallback bool
}

func Open(ctx context.Context, cfg *server.Config, opts Options) (*App, error) {
	a := &App{}

	repo, err := a.openRepository(cfg, opts)
	if err != nil {
		return nil, err
	}
	a.Repo = repo

	blobs, err := a.openBlobStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Blobs = blobs

	a.Services = service.New(repo, blobs, service.Options{
		JWTSecret:     cfg.JWTSecret,
		JWTTTL:        cfg.JWTTTL,
		MaxUploadSize: cfg.MaxUploadSize,
	})
	return a, nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) openRepository(cfg *server.Config, opts Options) (service.Repository, error) {
	switch cfg.Storage {
	case server.StorageMemory:
		log.Println("[INFO] Используем хранилище в памяти")
		return storage.NewStorage(), nil

	case server.StorageSQLite:
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = store.Close() })
		return store, nil

	case server.StoragePostgres, "":
		if err := db.Migration(cfg.DBStr, cfg.MigratePath); err != nil {
			return fallback(opts, "Ошибка применения миграций", err)
		}
		log.Println("[SUCCESS] Миграции применены успешно")

		pg, err := db.NewStorage(cfg.DBStr)
		if err != nil {
			return fallback(opts, "Не удалось подключиться к БД", err)
		}
		a.closers = append(a.closers, pg.Close)
		return pg, nil

	default:
		return nil, fmt.Errorf("%w: %s", errors.ErrUnknownStorage, cfg.Storage)
	}
}

func fallback(opts Options, reason string, err error) (service.Repository, error) {
	if !opts.AllowMemoryFallback {
		log.Printf("[ERROR] %s: %v", reason, err)
		return nil, errors.Store(err)
	}
	log.Printf("[WARN] %s, используем память: %v", reason, err)
	return storage.NewStorage(), nil
}

func (a *App) openBlobStore(ctx context.Context, cfg *server.Config) (service.BlobStore, error) {
	switch cfg.BlobDriver {
	case server.BlobLocal, "":
		return blob.NewLocalStore(cfg.UploadDir)

	case server.BlobGCS:
		gcs, err := blob.NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSCredentialsFile)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = gcs.Close() })
		return gcs, nil

	default:
		return nil, fmt.Errorf("%w: %s", errors.ErrUnknownBlobDriver, cfg.BlobDriver)
	}
}
