package db

import (
	"context"
	stderrors "errors"
	"log"
	"strings"
	"time"

	"taskmanager/internal/domain/errors"
	"taskmanager/internal/domain/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	queryTimeout      = 15 * time.Second
	deleteQueueSize   = 10
	pgUniqueViolation = "23505"
	pgFKViolation     = "23503"
)

const taskColumns = `id, title, description, status, priority, due_date, created_by_id, assigned_to_id, created_at, updated_at`

const fileColumns = `id, task_id, file_name, original_file_name, file_path, file_size, content_type, created_at`

const userColumns = `id, email, password, first_name, last_name, role, created_at, updated_at`

type Storage struct {
	pool                    *pgxpool.Pool
	prepCreateTask          string
	prepGetTaskByID         string
	prepGetTasks            string
	prepGetTasksByStatus    string
	prepGetTasksByPriority  string
	prepSearchTasks         string
	prepGetTasksForUser     string
	prepUpdateTask          string
	prepDeleteTask          string
	prepCreateUser          string
	prepGetUserByID         string
	prepGetUserByEmail      string
	prepGetUsers            string
	prepCreateFile          string
	prepGetFileByID         string
	prepGetFilesByTaskID    string
	prepDeleteFile          string
	prepDeleteFilesByTaskID string
	deleteQueue             chan struct{}
}

func NewStorage(connStr string) (*Storage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Println("[ERROR] Не удалось подключиться к базе данных:", err)
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		log.Println("[ERROR] База данных недоступна:", err)
		pool.Close()
		return nil, err
	}

	s := &Storage{
		pool:                   pool,
		prepCreateTask:         `INSERT INTO tasks (` + taskColumns + `, title_folded) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		prepGetTaskByID:        `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND deleted = false`,
		prepGetTasks:           `SELECT ` + taskColumns + ` FROM tasks WHERE deleted = false ORDER BY created_at, id`,
		prepGetTasksByStatus:   `SELECT ` + taskColumns + ` FROM tasks WHERE status = $1 AND deleted = false ORDER BY created_at, id`,
		prepGetTasksByPriority: `SELECT ` + taskColumns + ` FROM tasks WHERE priority = $1 AND deleted = false ORDER BY created_at, id`,
		prepSearchTasks: `SELECT ` + taskColumns + ` FROM tasks WHERE deleted = false
			AND ($1::text IS NULL OR strpos(title_folded, $1::text) > 0)
			AND ($2::text IS NULL OR status = $2::text)
			AND ($3::text IS NULL OR priority = $3::text)
			AND ($4::uuid IS NULL OR assigned_to_id = $4::uuid)
			ORDER BY created_at, id`,
		prepGetTasksForUser:     `SELECT ` + taskColumns + ` FROM tasks WHERE deleted = false AND (created_by_id = $1 OR assigned_to_id = $1) ORDER BY created_at, id`,
		prepUpdateTask:          `UPDATE tasks SET title = $1, description = $2, status = $3, priority = $4, due_date = $5, assigned_to_id = $6, updated_at = $7, title_folded = $9 WHERE id = $8 AND deleted = false`,
		prepDeleteTask:          `UPDATE tasks SET deleted = true WHERE id = $1 AND deleted = false`,
		prepCreateUser:          `INSERT INTO users (` + userColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		prepGetUserByID:         `SELECT ` + userColumns + ` FROM users WHERE id = $1`,
		prepGetUserByEmail:      `SELECT ` + userColumns + ` FROM users WHERE email = $1`,
		prepGetUsers:            `SELECT ` + userColumns + ` FROM users ORDER BY created_at, email`,
		prepCreateFile:          `INSERT INTO file_attachments (` + fileColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		prepGetFileByID:         `SELECT ` + fileColumns + ` FROM file_attachments WHERE id = $1`,
		prepGetFilesByTaskID:    `SELECT ` + fileColumns + ` FROM file_attachments WHERE task_id = $1 ORDER BY created_at, id`,
		prepDeleteFile:          `DELETE FROM file_attachments WHERE id = $1`,
		prepDeleteFilesByTaskID: `DELETE FROM file_attachments WHERE task_id = $1`,
		deleteQueue:             make(chan struct{}, deleteQueueSize),
	}
	log.Println("[SUCCESS] Соединение с базой данных установлено успешно")
	return s, nil
}

func (s *Storage) Close() {
	s.pool.Close()
}

func (s *Storage) CreateTask(ctx context.Context, task *models.Task) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx, s.prepCreateTask, task.ID, task.Title, task.Description, string(task.Status),
		string(task.Priority), task.DueDate, task.CreatedByID, task.AssignedToID, task.CreatedAt, task.UpdatedAt,
		strings.ToLower(task.Title))
	if err != nil {
		log.Println("[ERROR] Не удалось создать задачу:", err)
		if pgCode(err) == pgFKViolation {
			return errors.ErrUserNotFound
		}
		return errors.Store(err)
	}
	log.Println("[SUCCESS] Задача успешно создана:", task.ID)
	return nil
}

func (s *Storage) GetTaskByID(ctx context.Context, id string) (*models.Task, error) {
	if !validUUID(id) {
		return nil, errors.ErrTaskNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	row := s.pool.QueryRow(ctx, s.prepGetTaskByID, id)
	task, err := scanTask(row)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			log.Println("[ERROR] Задача не найдена:", id)
			return nil, errors.ErrTaskNotFound
		}
		log.Println("[ERROR] Ошибка при получении задачи:", err)
		return nil, errors.Store(err)
	}
	return task, nil
}

func (s *Storage) GetTasks(ctx context.Context) ([]models.Task, error) {
	return s.queryTasks(ctx, s.prepGetTasks)
}

func (s *Storage) GetTasksByStatus(ctx context.Context, status models.TaskStatus) ([]models.Task, error) {
	return s.queryTasks(ctx, s.prepGetTasksByStatus, string(status))
}

func (s *Storage) GetTasksByPriority(ctx context.Context, priority models.Priority) ([]models.Task, error) {
	return s.queryTasks(ctx, s.prepGetTasksByPriority, string(priority))
}

func (s *Storage) SearchTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	var search, status, priority *string
	if filter.Search != nil {
		// title_folded хранит strings.ToLower(title): lower() в PostgreSQL
		// зависит от локали базы.
		v := strings.ToLower(*filter.Search)
		search = &v
	}
	if filter.Status != nil {
		v := string(*filter.Status)
		status = &v
	}
	if filter.Priority != nil {
		v := string(*filter.Priority)
		priority = &v
	}
	if filter.AssigneeID != nil && !validUUID(*filter.AssigneeID) {
		return []models.Task{}, nil
	}
	return s.queryTasks(ctx, s.prepSearchTasks, search, status, priority, filter.AssigneeID)
}

func (s *Storage) GetTasksForUser(ctx context.Context, userID string) ([]models.Task, error) {
	if !validUUID(userID) {
		return []models.Task{}, nil
	}
	return s.queryTasks(ctx, s.prepGetTasksForUser, userID)
}

func (s *Storage) UpdateTask(ctx context.Context, id string, task *models.Task) error {
	if !validUUID(id) {
		return errors.ErrTaskNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	ct, err := s.pool.Exec(ctx, s.prepUpdateTask, task.Title, task.Description, string(task.Status),
		string(task.Priority), task.DueDate, task.AssignedToID, task.UpdatedAt, id, strings.ToLower(task.Title))
	if err != nil {
		log.Println("[ERROR] Не удалось обновить задачу:", err)
		if pgCode(err) == pgFKViolation {
			return errors.ErrUserNotFound
		}
		return errors.Store(err)
	}
	if ct.RowsAffected() == 0 {
		log.Println("[ERROR] Задача для обновления не найдена:", id)
		return errors.ErrTaskNotFound
	}
	log.Println("[SUCCESS] Задача успешно обновлена:", id)
	return nil
}

// DeleteTask помечает задачу удалённой. Помеченные строки удаляются пачкой,
// когда очередь заполняется; вложения удаляются каскадно.
func (s *Storage) DeleteTask(ctx context.Context, id string) error {
	if !validUUID(id) {
		return errors.ErrTaskNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	ct, err := s.pool.Exec(ctx, s.prepDeleteTask, id)
	if err != nil {
		log.Println("[ERROR] Не удалось пометить задачу как удалённую:", err)
		return errors.Store(err)
	}
	if ct.RowsAffected() == 0 {
		log.Println("[ERROR] Задача для удаления не найдена:", id)
		return errors.ErrTaskNotFound
	}
	log.Println("[SUCCESS] Задача помечена как удалённая:", id)
	s.tryEnqueueOrFlush()
	return nil
}

func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx, s.prepCreateUser, user.ID, user.Email, user.Password, user.FirstName,
		user.LastName, string(user.Role), user.CreatedAt, user.UpdatedAt)
	if err != nil {
		log.Println("[ERROR] Не удалось создать пользователя:", err)
		if pgCode(err) == pgUniqueViolation {
			return errors.ErrUserAlreadyExists
		}
		return errors.Store(err)
	}
	log.Println("[SUCCESS] Пользователь успешно создан:", user.ID)
	return nil
}

func (s *Storage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if !validUUID(id) {
		return nil, errors.ErrUserNotFound
	}
	return s.getUser(ctx, s.prepGetUserByID, id)
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, s.prepGetUserByEmail, email)
}

func (s *Storage) GetUsers(ctx context.Context) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	rows, err := s.pool.Query(ctx, s.prepGetUsers)
	if err != nil {
		log.Println("[ERROR] Не удалось получить пользователей:", err)
		return nil, errors.Store(err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			log.Println("[ERROR] Ошибка при чтении пользователей:", err)
			return nil, errors.Store(err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Store(err)
	}
	return users, nil
}

func (s *Storage) CreateFile(ctx context.Context, file *models.FileAttachment) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	if file.ID == "" {
		file.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx, s.prepCreateFile, file.ID, file.TaskID, file.FileName, file.OriginalFileName,
		file.FilePath, file.FileSize, file.ContentType, file.CreatedAt)
	if err != nil {
		log.Println("[ERROR] Не удалось сохранить файл:", err)
		if pgCode(err) == pgFKViolation {
			return errors.ErrTaskNotFound
		}
		return errors.Store(err)
	}
	log.Println("[SUCCESS] Файл сохранён:", file.ID)
	return nil
}

func (s *Storage) GetFileByID(ctx context.Context, id string) (*models.FileAttachment, error) {
	if !validUUID(id) {
		return nil, errors.ErrFileNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	file, err := scanFile(s.pool.QueryRow(ctx, s.prepGetFileByID, id))
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.ErrFileNotFound
		}
		log.Println("[ERROR] Ошибка при получении файла:", err)
		return nil, errors.Store(err)
	}
	return file, nil
}

func (s *Storage) GetFilesByTaskID(ctx context.Context, taskID string) ([]models.FileAttachment, error) {
	if !validUUID(taskID) {
		return []models.FileAttachment{}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	rows, err := s.pool.Query(ctx, s.prepGetFilesByTaskID, taskID)
	if err != nil {
		log.Println("[ERROR] Не удалось получить файлы задачи:", err)
		return nil, errors.Store(err)
	}
	defer rows.Close()

	files := []models.FileAttachment{}
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, errors.Store(err)
		}
		files = append(files, *file)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Store(err)
	}
	return files, nil
}

func (s *Storage) DeleteFile(ctx context.Context, id string) error {
	if !validUUID(id) {
		return errors.ErrFileNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	ct, err := s.pool.Exec(ctx, s.prepDeleteFile, id)
	if err != nil {
		log.Println("[ERROR] Не удалось удалить файл:", err)
		return errors.Store(err)
	}
	if ct.RowsAffected() == 0 {
		return errors.ErrFileNotFound
	}
	return nil
}

func (s *Storage) DeleteFilesByTaskID(ctx context.Context, taskID string) error {
	if !validUUID(taskID) {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	ct, err := s.pool.Exec(ctx, s.prepDeleteFilesByTaskID, taskID)
	if err != nil {
		log.Println("[ERROR] Не удалось удалить файлы задачи:", err)
		return errors.Store(err)
	}
	log.Printf("[SUCCESS] Удалено файлов задачи %s: %d", taskID, ct.RowsAffected())
	return nil
}

func (s *Storage) EnqueueHardDelete() {
	s.tryEnqueueOrFlush()
}

func (s *Storage) tryEnqueueOrFlush() {
	if s.deleteQueue == nil {
		return
	}
	select {
	case s.deleteQueue <- struct{}{}:
	default:
		s.drainDeleteQueue()
		if affected, err := s.hardDeleteAllFlagged(context.Background()); err != nil {
			log.Println("[ERROR] Ошибка при удалении задач с признаком deleted:", err)
		} else if affected > 0 {
			log.Println("[SUCCESS] Жёстко удалено задач:", affected)
		}
	}
}

func (s *Storage) drainDeleteQueue() {
	if s.deleteQueue == nil {
		return
	}
	for {
		select {
		case <-s.deleteQueue:
		default:
			return
		}
	}
}

func (s *Storage) hardDeleteAllFlagged(ctx context.Context) (int64, error) {
	c, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	tx, err := s.pool.Begin(c)
	if err != nil {
		return 0, err
	}
	ct, err := tx.Exec(c, `DELETE FROM tasks WHERE deleted = true`)
	if err != nil {
		_ = tx.Rollback(c)
		return 0, err
	}
	if err := tx.Commit(c); err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func (s *Storage) queryTasks(ctx context.Context, query string, args ...any) ([]models.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		log.Println("[ERROR] Не удалось получить задачи:", err)
		return nil, errors.Store(err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			log.Println("[ERROR] Ошибка при чтении задач:", err)
			return nil, errors.Store(err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Store(err)
	}
	log.Println("[SUCCESS] Получено задач:", len(tasks))
	return tasks, nil
}

func (s *Storage) getUser(ctx context.Context, query, arg string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	user, err := scanUser(s.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			log.Println("[ERROR] Пользователь не найден:", arg)
			return nil, errors.ErrUserNotFound
		}
		log.Println("[ERROR] Ошибка при получении пользователя:", err)
		return nil, errors.Store(err)
	}
	return user, nil
}

func scanTask(row pgx.Row) (*models.Task, error) {
	task := &models.Task{}
	var status, priority string
	if err := row.Scan(&task.ID, &task.Title, &task.Description, &status, &priority, &task.DueDate,
		&task.CreatedByID, &task.AssignedToID, &task.CreatedAt, &task.UpdatedAt); err != nil {
		return nil, err
	}
	task.Status = models.TaskStatus(status)
	task.Priority = models.Priority(priority)
	return task, nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	user := &models.User{}
	var role string
	if err := row.Scan(&user.ID, &user.Email, &user.Password, &user.FirstName, &user.LastName, &role,
		&user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, err
	}
	user.Role = models.Role(role)
	return user, nil
}

func scanFile(row pgx.Row) (*models.FileAttachment, error) {
	file := &models.FileAttachment{}
	if err := row.Scan(&file.ID, &file.TaskID, &file.FileName, &file.OriginalFileName, &file.FilePath,
		&file.FileSize, &file.ContentType, &file.CreatedAt); err != nil {
		return nil, err
	}
	return file, nil
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func validUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
