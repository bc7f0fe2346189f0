package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"helpdesk-go/internal/config"
	"helpdesk-go/internal/model"
	"helpdesk-go/internal/repository"
	"helpdesk-go/pkg/hash"
	"helpdesk-go/pkg/log"
	"helpdesk-go/pkg/token"

	"gorm.io/gorm"
)

// UserListResponse 定义了用户列表 API 的响应结构。
type UserListResponse struct {
	Content       []UserDetailResponse `json:"content"`
	TotalElements int64                `json:"totalElements"`
	TotalPages    int                  `json:"totalPages"`
	Size          int                  `json:"size"`
	Number        int                  `json:"number"`
}

// UserDetailResponse 定义了用户列表项的详细结构。
type UserDetailResponse struct {
	UserID     uint            `json:"userId"`
	Username   string          `json:"username"`
	Email      string          `json:"email"`
	Department string          `json:"department"`
	Role       string          `json:"role"`
	CreatedAt  model.LocalTime `json:"createdAt"`
}

// UserService 接口定义了所有与用户相关的业务操作。
type UserService interface {
	Register(username, password, email, department string) (*model.User, error)
	Login(username, password string) (accessToken, refreshToken string, err error)
	GetProfile(username string) (*model.User, error)
	Logout(ctx context.Context, tokenString string) error
	IsTokenRevoked(ctx context.Context, tokenString string) (bool, error)
	RefreshToken(refreshTokenString string) (newAccessToken, newRefreshToken string, err error)
	ListUsers(page, size int) (*UserListResponse, error)
	EnsureAdmin(seed config.AdminSeedConfig) error
}

type userService struct {
	userRepo   repository.UserRepository
	blacklist  repository.TokenBlacklist
	jwtManager *token.JWTManager
}

// NewUserService 创建一个新的 UserService 实例。blacklist 为 nil 时登出不生效。
func NewUserService(userRepo repository.UserRepository, blacklist repository.TokenBlacklist, jwtManager *token.JWTManager) UserService {
	return &userService{
		userRepo:   userRepo,
		blacklist:  blacklist,
		jwtManager: jwtManager,
	}
}

// Register 处理用户注册的业务逻辑。
func (s *userService) Register(username, password, email, department string) (*model.User, error) {
	return s.create(username, password, email, department, model.RoleUser)
}

func (s *userService) create(username, password, email, department, role string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	_, err := s.userRepo.FindByUsername(username)
	if err == nil {
		return nil, ErrUserExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashedPassword, err := hash.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Username:   username,
		Password:   hashedPassword,
		Email:      strings.TrimSpace(email),
		Department: strings.TrimSpace(department),
		Role:       role,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login 校验密码并签发 access token 与 refresh token。
func (s *userService) Login(username, password string) (accessToken, refreshToken string, err error) {
	user, err := s.userRepo.FindByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", ErrInvalidCredentials
		}
		return "", "", err
	}
	if !hash.CheckPasswordHash(password, user.Password) {
		return "", "", ErrInvalidCredentials
	}
	return s.issue(user)
}

func (s *userService) issue(user *model.User) (string, string, error) {
	accessToken, err := s.jwtManager.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		return "", "", err
	}
	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID, user.Username, user.Role)
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

func (s *userService) GetProfile(username string) (*model.User, error) {
	user, err := s.userRepo.FindByUsername(username)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// Logout 将 token 加入黑名单，过期时间为 token 的剩余有效期。
func (s *userService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.jwtManager.VerifyToken(tokenString)
	if err != nil {
		return ErrInvalidToken
	}
	if s.blacklist == nil {
		return nil
	}
	return s.blacklist.Add(ctx, tokenString, time.Until(claims.ExpiresAt.Time))
}

func (s *userService) IsTokenRevoked(ctx context.Context, tokenString string) (bool, error) {
	if s.blacklist == nil {
		return false, nil
	}
	return s.blacklist.Contains(ctx, tokenString)
}

// RefreshToken 验证 refresh token 并签发新的 token 对。
func (s *userService) RefreshToken(refreshTokenString string) (newAccessToken, newRefreshToken string, err error) {
	claims, err := s.jwtManager.VerifyRefreshToken(refreshTokenString)
	if err != nil {
		return "", "", ErrInvalidToken
	}
	user, err := s.userRepo.FindByUsername(claims.Username)
	if err != nil {
		return "", "", ErrUserNotFound
	}
	return s.issue(user)
}

// ListUsers 分页列出用户，page 从 1 开始。
func (s *userService) ListUsers(page, size int) (*UserListResponse, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	users, total, err := s.userRepo.FindWithPagination((page-1)*size, size)
	if err != nil {
		return nil, err
	}
	content := make([]UserDetailResponse, 0, len(users))
	for _, u := range users {
		content = append(content, UserDetailResponse{
			UserID:     u.ID,
			Username:   u.Username,
			Email:      u.Email,
			Department: u.Department,
			Role:       u.Role,
			CreatedAt:  model.LocalTime(u.CreatedAt),
		})
	}
	return &UserListResponse{
		Content:       content,
		TotalElements: total,
		TotalPages:    int((total + int64(size) - 1) / int64(size)),
		Size:          size,
		Number:        page,
	}, nil
}

// EnsureAdmin 在管理员账号不存在时创建它。
func (s *userService) EnsureAdmin(seed config.AdminSeedConfig) error {
	if seed.Username == "" || seed.Password == "" {
		return nil
	}
	_, err := s.create(seed.Username, seed.Password, seed.Email, "IT", model.RoleAdmin)
	if errors.Is(err, ErrUserExists) {
		return nil
	}
	if err == nil {
		log.Infof("[UserService] 已创建管理员账号: %s", seed.Username)
	}
	return err
}
