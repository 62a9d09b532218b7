package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"taskmanager/internal/domain/errors"
	"taskmanager/internal/domain/models"
	storage "taskmanager/repository/inmemory"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memBlobs struct {
	mu        sync.Mutex
	objects   map[string][]byte
	failStore bool
	failRm    bool
	removed   []string
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: make(map[string][]byte)}
}

func (b *memBlobs) Store(_ context.Context, r io.Reader, name string) (string, error) {
	if b.failStore {
		return "", fmt.Errorf("disk full")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	handle := "mem://" + name
	b.objects[handle] = data
	return handle, nil
}

func (b *memBlobs) Retrieve(_ context.Context, handle string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[handle]
	if !ok {
		return nil, errors.ErrFileNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *memBlobs) Remove(_ context.Context, handle string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removed = append(b.removed, handle)
	if b.failRm {
		return fmt.Errorf("remove %s: permission denied", handle)
	}
	delete(b.objects, handle)
	return nil
}

func (b *memBlobs) has(handle string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[handle]
	return ok
}

type fixture struct {
	repo  *storage.Storage
	blobs *memBlobs
	svc   *Services
	clock *fakeClock
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := storage.NewStorage()
	blobs := newMemBlobs()
	clock := &fakeClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}

	svc := New(repo, blobs, Options{JWTSecret: "test-secret", JWTTTL: time.Hour, MaxUploadSize: 1024})
	svc.Tasks.now = clock.now
	svc.Files.now = clock.now
	svc.Auth.tokens.now = clock.now

	return &fixture{repo: repo, blobs: blobs, svc: svc, clock: clock}
}

func (f *fixture) user(t *testing.T, email string, role models.Role) models.Principal {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{
		Email:     email,
		FirstName: "First-" + email,
		LastName:  "Last",
		Role:      role,
		Password:  string(hash),
		CreatedAt: f.clock.now(),
		UpdatedAt: f.clock.now(),
	}
	require.NoError(t, f.repo.CreateUser(context.Background(), u))
	return models.Principal{UserID: u.ID, Email: u.Email}
}

func (f *fixture) task(t *testing.T, p models.Principal, req models.TaskRequest) *models.TaskResponse {
	t.Helper()
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}
	resp, err := f.svc.Tasks.Create(context.Background(), req, p)
	require.NoError(t, err)
	f.clock.advance(time.Minute)
	return resp
}

func strPtr(s string) *string { return &s }

func stringsReader(s string) io.Reader { return strings.NewReader(s) }
