package blob

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log"
	"strings"

	"taskmanager/internal/domain/errors"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const gcsScheme = "gs://"

// GCSStore хранит файлы в бакете Google Cloud Storage.
// Handle имеет вид gs://bucket/object.
type GCSStore struct {
	client *storage.Client
	bucket string
}

func NewGCSStore(ctx context.Context, bucket, credentialsFile string) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("empty gcs bucket")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	log.Println("[SUCCESS] Подключение к GCS, бакет:", bucket)
	return &GCSStore{client: client, bucket: bucket}, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) Store(ctx context.Context, r io.Reader, suggestedName string) (string, error) {
	w := s.client.Bucket(s.bucket).Object(suggestedName).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("gcs write %s: %w", suggestedName, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcs close %s: %w", suggestedName, err)
	}
	return gcsScheme + s.bucket + "/" + suggestedName, nil
}

func (s *GCSStore) Retrieve(ctx context.Context, handle string) (io.ReadCloser, error) {
	object, err := s.object(handle)
	if err != nil {
		return nil, err
	}
	rc, err := s.client.Bucket(s.bucket).Object(object).NewReader(ctx)
	if err != nil {
		if stderrors.Is(err, storage.ErrObjectNotExist) {
			return nil, errors.ErrFileNotFound
		}
		return nil, err
	}
	return rc, nil
}

func (s *GCSStore) Remove(ctx context.Context, handle string) error {
	object, err := s.object(handle)
	if err != nil {
		return err
	}
	err = s.client.Bucket(s.bucket).Object(object).Delete(ctx)
	if err != nil && !stderrors.Is(err, storage.ErrObjectNotExist) {
		return err
	}
	return nil
}

func (s *GCSStore) object(handle string) (string, error) {
	prefix := gcsScheme + s.bucket + "/"
	if !strings.HasPrefix(handle, prefix) {
		return "", errors.ErrFileNotFound
	}
	return strings.TrimPrefix(handle, prefix), nil
}
