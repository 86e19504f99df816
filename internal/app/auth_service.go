package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"cocoaguard/internal/model"
	"cocoaguard/internal/pkg/jwtutil"
	"cocoaguard/internal/repository"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrEmailExists       = errors.New("email already exists")
	ErrInvalidCredential = errors.New("invalid email or password")
)

// FarmerStore is the slice of the farmer repository the service needs.
type FarmerStore interface {
	Create(farmer *model.Farmer) error
	GetByEmail(email string) (*model.Farmer, error)
	GetByID(id uint) (*model.Farmer, error)
}

type AuthService struct {
	farmers           FarmerStore
	sessionSecret     string
	sessionExpiration time.Duration
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResult struct {
	Token  string
	Farmer *model.Farmer
}

func NewAuthService(farmers FarmerStore, sessionSecret string, sessionExpiration time.Duration) *AuthService {
	return &AuthService{
		farmers:           farmers,
		sessionSecret:     sessionSecret,
		sessionExpiration: sessionExpiration,
	}
}

func (s *AuthService) Register(input RegisterInput) (*model.Farmer, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(strings.ToLower(input.Email))
	password := strings.TrimSpace(input.Password)

	if name == "" || email == "" || password == "" {
		return nil, ErrInvalidInput
	}

	existing, err := s.farmers.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password failed: %w", err)
	}

	farmer := &model.Farmer{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.farmers.Create(farmer); err != nil {
		// A concurrent registration can slip past the pre-check; the
		// unique index decides, and the losing insert leaves no row.
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailExists
		}
		return nil, err
	}
	return farmer, nil
}

// Login verifies the credentials and issues a signed session token.
// Unknown email and wrong password produce the same error.
func (s *AuthService) Login(input LoginInput) (*AuthResult, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	password := strings.TrimSpace(input.Password)
	if email == "" || password == "" {
		return nil, ErrInvalidInput
	}

	farmer, err := s.farmers.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if farmer == nil {
		return nil, ErrInvalidCredential
	}

	if err := bcrypt.CompareHashAndPassword([]byte(farmer.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredential
	}

	token, err := jwtutil.GenerateToken(s.sessionSecret, s.sessionExpiration, farmer.ID, farmer.Name)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, Farmer: farmer}, nil
}

func (s *AuthService) GetFarmerByID(id uint) (*model.Farmer, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}
	return s.farmers.GetByID(id)
}
