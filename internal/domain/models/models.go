package models

import "time"

type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

type TaskStatus string

const (
	StatusTodo       TaskStatus = "TODO"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusDone       TaskStatus = "DONE"
)

// TaskStatuses перечисляет все статусы в порядке жизненного цикла.
var TaskStatuses = []TaskStatus{StatusTodo, StatusInProgress, StatusDone}

func (s TaskStatus) Valid() bool {
	for _, v := range TaskStatuses {
		if s == v {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

func (p Priority) Valid() bool {
	for _, v := range Priorities {
		if p == v {
			return true
		}
	}
	return false
}

const DateLayout = "2006-01-02"

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Role      Role      `json:"role"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Principal - аутентифицированный пользователь, выполняющий запрос.
type Principal struct {
	UserID string
	Email  string
}

type Task struct {
	ID           string
	Title        string
	Description  string
	Status       TaskStatus
	Priority     Priority
	DueDate      *time.Time
	CreatedByID  string
	AssignedToID *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type FileAttachment struct {
	ID               string    `json:"id"`
	TaskID           string    `json:"taskId"`
	FileName         string    `json:"fileName"`
	OriginalFileName string    `json:"originalFileName"`
	FilePath         string    `json:"-"`
	FileSize         int64     `json:"fileSize"`
	ContentType      string    `json:"contentType"`
	CreatedAt        time.Time `json:"createdAt"`
}

type TaskFilter struct {
	Search     *string
	Status     *TaskStatus
	Priority   *Priority
	AssigneeID *string
}

func (f TaskFilter) IsEmpty() bool {
	return f.Search == nil && f.Status == nil && f.Priority == nil && f.AssigneeID == nil
}

type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6,max=100"`
	FirstName string `json:"firstName" validate:"required,min=1,max=50"`
	LastName  string `json:"lastName" validate:"required,min=1,max=50"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type TaskRequest struct {
	Title        string     `json:"title" validate:"required,min=1,max=255"`
	Description  string     `json:"description" validate:"omitempty,max=5000"`
	Status       TaskStatus `json:"status" validate:"omitempty,oneof=TODO IN_PROGRESS DONE"`
	Priority     Priority   `json:"priority" validate:"required,oneof=LOW MEDIUM HIGH"`
	DueDate      string     `json:"dueDate" validate:"omitempty"`
	AssignedToID *string    `json:"assignedToId"`
}

type AuthResponse struct {
	Token     string `json:"token"`
	Type      string `json:"type"`
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      Role   `json:"role"`
}

type UserInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type FileResponse struct {
	ID               string    `json:"id"`
	FileName         string    `json:"fileName"`
	OriginalFileName string    `json:"originalFileName"`
	FileSize         int64     `json:"fileSize"`
	ContentType      string    `json:"contentType"`
	CreatedAt        time.Time `json:"createdAt"`
}

type TaskResponse struct {
	ID                  string         `json:"id"`
	Title               string         `json:"title"`
	Description         string         `json:"description"`
	Status              TaskStatus     `json:"status"`
	Priority            Priority       `json:"priority"`
	DueDate             *string        `json:"dueDate"`
	CreatedByID         string         `json:"createdById"`
	CreatedByFirstName  string         `json:"createdByFirstName"`
	CreatedByLastName   string         `json:"createdByLastName"`
	AssignedToID        *string        `json:"assignedToId"`
	AssignedToFirstName *string        `json:"assignedToFirstName"`
	AssignedToLastName  *string        `json:"assignedToLastName"`
	Files               []FileResponse `json:"files"`
	CreatedAt           time.Time      `json:"createdAt"`
	UpdatedAt           time.Time      `json:"updatedAt"`
}

type DashboardStats struct {
	TotalTasks      int                `json:"totalTasks"`
	TasksByStatus   map[TaskStatus]int `json:"tasksByStatus"`
	TasksByPriority map[Priority]int   `json:"tasksByPriority"`
	RecentTasks     []TaskResponse     `json:"recentTasks"`
}
