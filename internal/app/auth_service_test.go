package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cocoaguard/internal/model"
	"cocoaguard/internal/pkg/jwtutil"
	"cocoaguard/internal/repository"
)

type fakeFarmerStore struct {
	byEmail map[string]*model.Farmer
	nextID  uint
}

func newFakeFarmerStore() *fakeFarmerStore {
	return &fakeFarmerStore{byEmail: map[string]*model.Farmer{}, nextID: 1}
}

func (s *fakeFarmerStore) Create(farmer *model.Farmer) error {
	if _, exists := s.byEmail[farmer.Email]; exists {
		return repository.ErrDuplicateEmail
	}
	farmer.ID = s.nextID
	s.nextID++
	clone := *farmer
	s.byEmail[farmer.Email] = &clone
	return nil
}

func (s *fakeFarmerStore) GetByEmail(email string) (*model.Farmer, error) {
	if farmer, ok := s.byEmail[email]; ok {
		clone := *farmer
		return &clone, nil
	}
	return nil, nil
}

func (s *fakeFarmerStore) GetByID(id uint) (*model.Farmer, error) {
	for _, farmer := range s.byEmail {
		if farmer.ID == id {
			clone := *farmer
			return &clone, nil
		}
	}
	return nil, nil
}

func newTestAuthService() (*AuthService, *fakeFarmerStore) {
	store := newFakeFarmerStore()
	return NewAuthService(store, "test-secret", time.Hour), store
}

func TestRegisterThenLogin(t *testing.T) {
	svc, _ := newTestAuthService()

	farmer, err := svc.Register(RegisterInput{Name: "Ama", Email: "ama@example.com", Password: "cocoa-pass"})
	require.NoError(t, err)
	assert.NotZero(t, farmer.ID)
	assert.NotEqual(t, "cocoa-pass", farmer.PasswordHash)

	result, err := svc.Login(LoginInput{Email: "ama@example.com", Password: "cocoa-pass"})
	require.NoError(t, err)
	assert.Equal(t, farmer.ID, result.Farmer.ID)

	claims, err := jwtutil.ParseToken("test-secret", result.Token)
	require.NoError(t, err)
	assert.Equal(t, farmer.ID, claims.FarmerID)
	assert.Equal(t, "Ama", claims.Name)
}

func TestRegisterEmptyFields(t *testing.T) {
	svc, _ := newTestAuthService()

	tests := []struct {
		name  string
		input RegisterInput
	}{
		{"empty name", RegisterInput{Email: "a@b.com", Password: "secret123"}},
		{"empty email", RegisterInput{Name: "Ama", Password: "secret123"}},
		{"empty password", RegisterInput{Name: "Ama", Email: "a@b.com"}},
		{"whitespace only", RegisterInput{Name: "  ", Email: " ", Password: " "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(tt.input)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestRegisterDuplicateEmailLeavesRecordUnchanged(t *testing.T) {
	svc, store := newTestAuthService()

	first, err := svc.Register(RegisterInput{Name: "Ama", Email: "ama@example.com", Password: "first-pass"})
	require.NoError(t, err)

	_, err = svc.Register(RegisterInput{Name: "Impostor", Email: "ama@example.com", Password: "other-pass"})
	assert.ErrorIs(t, err, ErrEmailExists)

	stored, err := store.GetByEmail("ama@example.com")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, first.ID, stored.ID)
	assert.Equal(t, "Ama", stored.Name)
	assert.Equal(t, first.PasswordHash, stored.PasswordHash)

	// The original password still logs in.
	_, err = svc.Login(LoginInput{Email: "ama@example.com", Password: "first-pass"})
	assert.NoError(t, err)
}

type racingFarmerStore struct {
	*fakeFarmerStore
}

// GetByEmail misses so the pre-check passes and the uniqueness
// constraint has to decide, as under a concurrent registration.
func (s *racingFarmerStore) GetByEmail(string) (*model.Farmer, error) {
	return nil, nil
}

func (s *racingFarmerStore) Create(*model.Farmer) error {
	return repository.ErrDuplicateEmail
}

func TestRegisterDuplicateFromStoreConstraint(t *testing.T) {
	svc := NewAuthService(&racingFarmerStore{newFakeFarmerStore()}, "test-secret", time.Hour)

	_, err := svc.Register(RegisterInput{Name: "Late", Email: "race@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestLoginInvalidCredentialsIndistinguishable(t *testing.T) {
	svc, _ := newTestAuthService()

	_, err := svc.Register(RegisterInput{Name: "Ama", Email: "ama@example.com", Password: "cocoa-pass"})
	require.NoError(t, err)

	_, wrongPassword := svc.Login(LoginInput{Email: "ama@example.com", Password: "wrong"})
	_, noSuchUser := svc.Login(LoginInput{Email: "ghost@example.com", Password: "cocoa-pass"})

	assert.ErrorIs(t, wrongPassword, ErrInvalidCredential)
	assert.ErrorIs(t, noSuchUser, ErrInvalidCredential)
	assert.Equal(t, wrongPassword, noSuchUser)
}

func TestLoginEmailCaseInsensitive(t *testing.T) {
	svc, _ := newTestAuthService()

	_, err := svc.Register(RegisterInput{Name: "Ama", Email: "Ama@Example.com", Password: "cocoa-pass"})
	require.NoError(t, err)

	_, err = svc.Login(LoginInput{Email: "ama@example.com", Password: "cocoa-pass"})
	assert.NoError(t, err)
}
