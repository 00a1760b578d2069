package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"go-forces/internal/codeforces"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrHandleNotFound     = errors.New("handle not found")
)

// Store is what the service needs from persistence.
type Store interface {
	CreateUser(ctx context.Context, u *User) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByID(ctx context.Context, id int) (*User, error)
	UpdateHandle(ctx context.Context, userID int, info codeforces.UserInfo) error
	SearchUsers(ctx context.Context, query string) ([]User, error)
}

// HandleChecker is the slice of the Codeforces client used for handle
// verification.
type HandleChecker interface {
	UserInfo(ctx context.Context, handles []string) ([]codeforces.UserInfo, error)
}

type Service struct {
	repo      Store
	cf        HandleChecker
	jwtSecret string
	tokenTTL  time.Duration
}

type Claims struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func NewService(repo Store, cf HandleChecker, secret string, tokenTTL time.Duration) *Service {
	return &Service{
		repo:      repo,
		cf:        cf,
		jwtSecret: secret,
		tokenTTL:  tokenTTL,
	}
}

func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*User, error) {
	hashedPwd, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &User{
		Username: req.Username,
		Password: string(hashedPwd),
	}

	return s.repo.CreateUser(ctx, u)
}

func (s *Service) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	u, err := s.repo.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ID:       u.ID,
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "go-forces",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.tokenTTL)),
		},
	})

	ss, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		AccessToken: ss,
		ID:          u.ID,
		Username:    u.Username,
	}, nil
}

func (s *Service) ValidateToken(tokenString string) (int, string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return 0, "", err
	}
	if !token.Valid {
		return 0, "", fmt.Errorf("invalid token")
	}

	return claims.ID, claims.Username, nil
}

func (s *Service) Me(ctx context.Context, userID int) (*User, error) {
	return s.repo.GetByID(ctx, userID)
}

// VerifyHandle checks the handle against Codeforces and, when it exists,
// links it to the account together with a snapshot of its rating stats.
func (s *Service) VerifyHandle(ctx context.Context, userID int, handle string) (*codeforces.UserInfo, error) {
	infos, err := s.cf.UserInfo(ctx, []string{handle})
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return nil, ErrHandleNotFound
	}

	info := infos[0]
	if err := s.repo.UpdateHandle(ctx, userID, info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (s *Service) SearchUsers(ctx context.Context, query string) ([]User, error) {
	return s.repo.SearchUsers(ctx, query)
}
