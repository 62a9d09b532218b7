package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"

	domainerrors "taskmanager/internal/domain/errors"
	"taskmanager/internal/domain/models"
)

const taskColumns = `id, title, description, status, priority, due_date, created_by_id, assigned_to_id, created_at, updated_at`

const fileColumns = `id, task_id, file_name, original_file_name, file_path, file_size, content_type, created_at`

const userColumns = `id, email, password, first_name, last_name, role, created_at, updated_at`

// driverName - sqlite3 с функцией fold, которая приводит к нижнему регистру
// любые буквы Unicode. Встроенная lower() SQLite понимает только ASCII.
const driverName = "sqlite3_tasks"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("fold", strings.ToLower, true)
		},
	})
}

// Store - хранилище задач в файле SQLite.
type Store struct {
	db *sql.DB
}

// Open открывает базу и применяет схему.
func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("empty database path")
	}
	if err := ensureDir(dbPath); err != nil {
		return nil, err
	}

	conn, err := sql.Open(driverName, fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=ON", dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	s := &Store{db: conn}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	log.Println("[SUCCESS] База SQLite открыта:", dbPath)
	return s, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            email TEXT NOT NULL UNIQUE,
            password TEXT NOT NULL,
            first_name TEXT NOT NULL,
            last_name TEXT NOT NULL,
            role TEXT NOT NULL DEFAULT 'MEMBER',
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS tasks (
            id TEXT PRIMARY KEY,
            title TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'TODO',
            priority TEXT NOT NULL,
            due_date DATE,
            created_by_id TEXT NOT NULL,
            assigned_to_id TEXT,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL,
            FOREIGN KEY(created_by_id) REFERENCES users(id),
            FOREIGN KEY(assigned_to_id) REFERENCES users(id) ON DELETE SET NULL
        );`,
		`CREATE TABLE IF NOT EXISTS file_attachments (
            id TEXT PRIMARY KEY,
            task_id TEXT NOT NULL,
            file_name TEXT NOT NULL,
            original_file_name TEXT NOT NULL,
            file_path TEXT NOT NULL,
            file_size INTEGER NOT NULL,
            content_type TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL,
            FOREIGN KEY(task_id) REFERENCES tasks(id) ON DELETE CASCADE
        );`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_priority ON tasks(priority);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_created_by ON tasks(created_by_id);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_assigned_to ON tasks(assigned_to_id);`,
		`CREATE INDEX IF NOT EXISTS idx_files_task ON file_attachments(task_id);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (s *Store) GetUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, email`)
	if err != nil {
		return nil, domainerrors.Store(fmt.Errorf("list users: %w", err))
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, domainerrors.Store(err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, domainerrors.Store(err)
	}
	return users, nil
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.Password, user.FirstName, user.LastName, string(user.Role),
		user.CreatedAt.UTC(), user.UpdatedAt.UTC())
	if err != nil {
		if isConstraint(err, sqlite3.ErrConstraintUnique) {
			return domainerrors.ErrUserAlreadyExists
		}
		return domainerrors.Store(fmt.Errorf("create user: %w", err))
	}
	return nil
}

func (s *Store) GetTaskByID(ctx context.Context, id string) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainerrors.ErrTaskNotFound
		}
		return nil, domainerrors.Store(fmt.Errorf("get task: %w", err))
	}
	return task, nil
}

func (s *Store) GetTasks(ctx context.Context) ([]models.Task, error) {
	return s.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at, id`)
}

func (s *Store) GetTasksByStatus(ctx context.Context, status models.TaskStatus) ([]models.Task, error) {
	return s.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks WHERE status = ? ORDER BY created_at, id`, string(status))
}

func (s *Store) GetTasksByPriority(ctx context.Context, priority models.Priority) ([]models.Task, error) {
	return s.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks WHERE priority = ? ORDER BY created_at, id`, string(priority))
}

func (s *Store) SearchTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	var search, status, priority, assignee sql.NullString
	if filter.Search != nil {
		search = sql.NullString{String: strings.ToLower(*filter.Search), Valid: true}
	}
	if filter.Status != nil {
		status = sql.NullString{String: string(*filter.Status), Valid: true}
	}
	if filter.Priority != nil {
		priority = sql.NullString{String: string(*filter.Priority), Valid: true}
	}
	if filter.AssigneeID != nil {
		assignee = sql.NullString{String: *filter.AssigneeID, Valid: true}
	}
	return s.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks
        WHERE (?1 IS NULL OR instr(fold(title), ?1) > 0)
          AND (?2 IS NULL OR status = ?2)
          AND (?3 IS NULL OR priority = ?3)
          AND (?4 IS NULL OR assigned_to_id = ?4)
        ORDER BY created_at, id`, search, status, priority, assignee)
}

func (s *Store) GetTasksForUser(ctx context.Context, userID string) ([]models.Task, error) {
	return s.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks
        WHERE created_by_id = ?1 OR assigned_to_id = ?1
        ORDER BY created_at, id`, userID)
}

func (s *Store) CreateTask(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.Title, task.Description, string(task.Status), string(task.Priority), nullDate(task.DueDate),
		task.CreatedByID, nullString(task.AssignedToID), task.CreatedAt.UTC(), task.UpdatedAt.UTC())
	if err != nil {
		if isConstraint(err, sqlite3.ErrConstraintForeignKey) {
			return domainerrors.ErrUserNotFound
		}
		return domainerrors.Store(fmt.Errorf("create task: %w", err))
	}
	return nil
}

func (s *Store) UpdateTask(ctx context.Context, id string, task *models.Task) error {
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET title = ?, description = ?, status = ?, priority = ?,
        due_date = ?, assigned_to_id = ?, updated_at = ? WHERE id = ?`,
		task.Title, task.Description, string(task.Status), string(task.Priority), nullDate(task.DueDate),
		nullString(task.AssignedToID), task.UpdatedAt.UTC(), id)
	if err != nil {
		if isConstraint(err, sqlite3.ErrConstraintForeignKey) {
			return domainerrors.ErrUserNotFound
		}
		return domainerrors.Store(fmt.Errorf("update task: %w", err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domainerrors.ErrTaskNotFound
	}
	task.ID = id
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return domainerrors.Store(fmt.Errorf("delete task: %w", err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domainerrors.ErrTaskNotFound
	}
	return nil
}

func (s *Store) GetFileByID(ctx context.Context, id string) (*models.FileAttachment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM file_attachments WHERE id = ?`, id)
	file, err := scanFile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainerrors.ErrFileNotFound
		}
		return nil, domainerrors.Store(fmt.Errorf("get file: %w", err))
	}
	return file, nil
}

func (s *Store) GetFilesByTaskID(ctx context.Context, taskID string) ([]models.FileAttachment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+fileColumns+` FROM file_attachments WHERE task_id = ? ORDER BY created_at, id`, taskID)
	if err != nil {
		return nil, domainerrors.Store(fmt.Errorf("list files: %w", err))
	}
	defer rows.Close()

	files := []models.FileAttachment{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, domainerrors.Store(err)
		}
		files = append(files, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, domainerrors.Store(err)
	}
	return files, nil
}

func (s *Store) CreateFile(ctx context.Context, file *models.FileAttachment) error {
	if file.ID == "" {
		file.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO file_attachments (`+fileColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		file.ID, file.TaskID, file.FileName, file.OriginalFileName, file.FilePath, file.FileSize,
		file.ContentType, file.CreatedAt.UTC())
	if err != nil {
		if isConstraint(err, sqlite3.ErrConstraintForeignKey) {
			return domainerrors.ErrTaskNotFound
		}
		return domainerrors.Store(fmt.Errorf("create file: %w", err))
	}
	return nil
}

func (s *Store) DeleteFile(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM file_attachments WHERE id = ?`, id)
	if err != nil {
		return domainerrors.Store(fmt.Errorf("delete file: %w", err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domainerrors.ErrFileNotFound
	}
	return nil
}

func (s *Store) DeleteFilesByTaskID(ctx context.Context, taskID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM file_attachments WHERE task_id = ?`, taskID); err != nil {
		return domainerrors.Store(fmt.Errorf("delete task files: %w", err))
	}
	return nil
}

func (s *Store) getUser(ctx context.Context, query string, arg string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainerrors.ErrUserNotFound
		}
		return nil, domainerrors.Store(fmt.Errorf("get user: %w", err))
	}
	return u, nil
}

func (s *Store) queryTasks(ctx context.Context, query string, args ...any) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domainerrors.Store(fmt.Errorf("list tasks: %w", err))
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, domainerrors.Store(fmt.Errorf("scan task: %w", err))
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, domainerrors.Store(err)
	}
	return tasks, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*models.Task, error) {
	var (
		t        models.Task
		status   string
		priority string
		due      sql.NullTime
		assignee sql.NullString
	)
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &status, &priority, &due, &t.CreatedByID,
		&assignee, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Status = models.TaskStatus(status)
	t.Priority = models.Priority(priority)
	if due.Valid {
		d := due.Time
		t.DueDate = &d
	}
	if assignee.Valid {
		a := assignee.String
		t.AssignedToID = &a
	}
	return &t, nil
}

func scanUser(row scanner) (*models.User, error) {
	var (
		u    models.User
		role string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Password, &u.FirstName, &u.LastName, &role,
		&u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	return &u, nil
}

func scanFile(row scanner) (*models.FileAttachment, error) {
	var f models.FileAttachment
	if err := row.Scan(&f.ID, &f.TaskID, &f.FileName, &f.OriginalFileName, &f.FilePath, &f.FileSize,
		&f.ContentType, &f.CreatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

func nullDate(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func isConstraint(err error, code sqlite3.ErrNoExtended) bool {
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) {
		return sqErr.ExtendedCode == code
	}
	return false
}
