package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"taskmanager/internal/domain/errors"
	"taskmanager/internal/domain/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const tokenType = "Bearer"

type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (m *TokenManager) Issue(user *models.User) (string, error) {
	now := m.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    string(user.Role),
		"iat":     now.Unix(),
		"exp":     now.Add(m.ttl).Unix(),
	})
	return token.SignedString(m.secret)
}

func (m *TokenManager) Parse(tokenString string) (models.Principal, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return models.Principal{}, errors.ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.Principal{}, errors.ErrTokenInvalid
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return models.Principal{}, errors.ErrTokenInvalid
	}
	email, _ := claims["email"].(string)
	return models.Principal{UserID: userID, Email: email}, nil
}

type AuthService struct {
	users  UserRepository
	tokens *TokenManager
}

func NewAuthService(users UserRepository, tokens *TokenManager) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	if err := validateRegisterRequest(&req); err != nil {
		return nil, err
	}
	log.Println("[INFO] Регистрация пользователя:", req.Email)

	existing, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		log.Println("[WARN] Email уже занят:", req.Email)
		return nil, errors.ErrUserAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	user := models.User{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      models.RoleMember,
		Password:  string(hash),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.CreateUser(ctx, &user); err != nil {
		return nil, err
	}
	log.Println("[SUCCESS] Пользователь зарегистрирован:", user.ID)
	return s.authResponse(&user)
}

func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	if err := validateLoginRequest(&req); err != nil {
		return nil, err
	}
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	log.Println("[SUCCESS] Вход выполнен:", user.Email)
	return s.authResponse(user)
}

// Authenticate проверяет учётные данные и возвращает принципала.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (models.Principal, error) {
	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return models.Principal{}, err
	}
	return models.Principal{UserID: user.ID, Email: user.Email}, nil
}

func (s *AuthService) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			log.Println("[WARN] Неверные учетные данные:", email)
			return nil, errors.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		log.Println("[WARN] Неверные учетные данные:", email)
		return nil, errors.ErrInvalidCredentials
	}
	return user, nil
}

// VerifyToken разбирает токен запроса.
func (s *AuthService) VerifyToken(token string) (models.Principal, error) {
	return s.tokens.Parse(token)
}

func (s *AuthService) ListUsers(ctx context.Context) ([]models.UserInfo, error) {
	users, err := s.users.GetUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.UserInfo, 0, len(users))
	for _, u := range users {
		out = append(out, models.UserInfo{
			ID:    u.ID,
			Name:  u.FirstName + " " + u.LastName,
			Email: u.Email,
		})
	}
	return out, nil
}

func (s *AuthService) authResponse(user *models.User) (*models.AuthResponse, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{
		Token:     token,
		Type:      tokenType,
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
	}, nil
}
