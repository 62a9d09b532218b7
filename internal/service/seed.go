package service

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"taskmanager/internal/domain/models"

	"golang.org/x/crypto/bcrypt"
)

const sampleTaskCount = 20

var sampleTitles = []string{
	"Implement user authentication",
	"Design database schema",
	"Create REST API endpoints",
	"Build frontend components",
	"Write unit tests",
	"Setup CI/CD pipeline",
	"Optimize database queries",
	"Implement caching strategy",
	"Add error handling",
	"Create documentation",
	"Setup monitoring",
	"Implement logging",
	"Add input validation",
	"Create admin dashboard",
	"Implement file upload",
	"Add search functionality",
	"Create task filters",
	"Implement pagination",
	"Add email notifications",
	"Create API documentation",
}

var sampleDescriptions = []string{
	"Implement JWT-based authentication system",
	"Design and create database tables with proper relationships",
	"Create RESTful API endpoints for all operations",
	"Build responsive components",
	"Write comprehensive unit tests for all services",
	"Setup continuous integration and deployment",
	"Optimize slow database queries",
	"Implement caching for better performance",
	"Add comprehensive error handling throughout the application",
	"Create detailed API and user documentation",
}

var sampleMembers = [][2]string{
	{"John", "Smith"},
	{"Jane", "Doe"},
	{"Bob", "Johnson"},
	{"Alice", "Williams"},
	{"Charlie", "Brown"},
}

type Seeder struct {
	users UserRepository
	tasks *TaskService
	rnd   *rand.Rand
}

func NewSeeder(users UserRepository, tasks *TaskService, seed int64) *Seeder {
	return &Seeder{users: users, tasks: tasks, rnd: rand.New(rand.NewSource(seed))}
}

// Seed заполняет пустую базу демонстрационными данными. Возвращает false,
// если пользователи уже есть.
func (s *Seeder) Seed(ctx context.Context) (bool, error) {
	existing, err := s.users.GetUsers(ctx)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		log.Println("[INFO] База уже содержит данные, заполнение пропущено")
		return false, nil
	}

	log.Println("[INFO] Заполнение демонстрационными данными...")
	for i, last := range []string{"One", "Two"} {
		email := fmt.Sprintf("admin%d@taskmanagement.com", i+1)
		if _, err := s.createUser(ctx, email, "admin123", "Admin", last, models.RoleAdmin); err != nil {
			return false, err
		}
	}

	members := make([]*models.User, 0, len(sampleMembers))
	for i, name := range sampleMembers {
		email := fmt.Sprintf("member%d@taskmanagement.com", i+1)
		u, err := s.createUser(ctx, email, "member123", name[0], name[1], models.RoleMember)
		if err != nil {
			return false, err
		}
		members = append(members, u)
	}

	for i := 0; i < sampleTaskCount; i++ {
		creator := members[s.rnd.Intn(len(members))]
		req := models.TaskRequest{
			Title:       sampleTitles[i%len(sampleTitles)],
			Description: sampleDescriptions[i%len(sampleDescriptions)],
			Status:      models.TaskStatuses[s.rnd.Intn(len(models.TaskStatuses))],
			Priority:    models.Priorities[s.rnd.Intn(len(models.Priorities))],
			DueDate:     time.Now().AddDate(0, 0, s.rnd.Intn(30)).Format(models.DateLayout),
		}
		if s.rnd.Float64() < 0.7 {
			assignee := members[s.rnd.Intn(len(members))].ID
			req.AssignedToID = &assignee
		}
		if _, err := s.tasks.Create(ctx, req, models.Principal{UserID: creator.ID, Email: creator.Email}); err != nil {
			return false, err
		}
	}

	log.Printf("[SUCCESS] Создано %d пользователей и %d задач", 2+len(members), sampleTaskCount)
	return true, nil
}

func (s *Seeder) createUser(ctx context.Context, email, password, first, last string, role models.Role) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	u := &models.User{
		Email:     email,
		FirstName: first,
		LastName:  last,
		Role:      role,
		Password:  string(hash),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
