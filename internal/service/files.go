package service

import (
	"bytes"
	"context"
	"io"
	"log"
	"path/filepath"
	"time"

	"taskmanager/internal/domain/errors"
	"taskmanager/internal/domain/models"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const (
	defaultContentType = "application/octet-stream"
	sniffLen           = 3072
)

type Upload struct {
	TaskID           string
	OriginalFileName string
	ContentType      string
	Size             int64
	Body             io.Reader
}

type FileService struct {
	tasks   TaskRepository
	files   FileRepository
	blobs   BlobStore
	maxSize int64
	now     func() time.Time
}

func NewFileService(repo Repository, blobs BlobStore, maxSize int64) *FileService {
	return &FileService{
		tasks:   repo,
		files:   repo,
		blobs:   blobs,
		maxSize: maxSize,
		now:     time.Now,
	}
}

func (s *FileService) Upload(ctx context.Context, up Upload) (*models.FileAttachment, error) {
	if up.Size <= 0 || up.Body == nil {
		return nil, errors.ErrEmptyFile
	}
	if s.maxSize > 0 && up.Size > s.maxSize {
		return nil, errors.ErrFileTooLarge
	}
	if _, err := s.tasks.GetTaskByID(ctx, up.TaskID); err != nil {
		return nil, err
	}
	log.Printf("[INFO] Загрузка файла %q для задачи %s (%d байт)", up.OriginalFileName, up.TaskID, up.Size)

	body := up.Body
	contentType := up.ContentType
	if contentType == "" || contentType == defaultContentType {
		head := make([]byte, sniffLen)
		n, err := io.ReadFull(body, head)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return nil, errors.Store(err)
		}
		head = head[:n]
		contentType = mimetype.Detect(head).String()
		body = io.MultiReader(bytes.NewReader(head), body)
	}

	name := uuid.New().String() + filepath.Ext(up.OriginalFileName)
	handle, err := s.blobs.Store(ctx, body, name)
	if err != nil {
		return nil, errors.Store(err)
	}

	file := models.FileAttachment{
		TaskID:           up.TaskID,
		FileName:         name,
		OriginalFileName: up.OriginalFileName,
		FilePath:         handle,
		FileSize:         up.Size,
		ContentType:      contentType,
		CreatedAt:        s.now(),
	}
	if err := s.files.CreateFile(ctx, &file); err != nil {
		if rmErr := s.blobs.Remove(ctx, handle); rmErr != nil {
			log.Printf("[WARN] Не удалось удалить содержимое %s: %v", handle, rmErr)
		}
		return nil, err
	}
	log.Println("[SUCCESS] Файл сохранён:", file.ID)
	return &file, nil
}

// Open возвращает метаданные и содержимое файла. Вызывающий закрывает reader.
func (s *FileService) Open(ctx context.Context, id string) (*models.FileAttachment, io.ReadCloser, error) {
	file, err := s.files.GetFileByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Retrieve(ctx, file.FilePath)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, nil, errors.ErrFileNotFound
		}
		return nil, nil, errors.Store(err)
	}
	if file.ContentType == "" {
		file.ContentType = defaultContentType
	}
	return file, rc, nil
}

func (s *FileService) Delete(ctx context.Context, id string) error {
	file, err := s.files.GetFileByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.files.DeleteFile(ctx, id); err != nil {
		return err
	}
	if err := s.blobs.Remove(ctx, file.FilePath); err != nil {
		log.Printf("[WARN] Не удалось удалить содержимое файла %s: %v", id, err)
	}
	log.Println("[SUCCESS] Файл удалён:", id)
	return nil
}

func (s *FileService) ListForTask(ctx context.Context, taskID string) ([]models.FileResponse, error) {
	if _, err := s.tasks.GetTaskByID(ctx, taskID); err != nil {
		return nil, err
	}
	files, err := s.files.GetFilesByTaskID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	out := make([]models.FileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, toFileResponse(f))
	}
	return out, nil
}
