package repository

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"cocoaguard/internal/model"
)

// ErrDuplicateEmail is returned by Create when the email uniqueness
// constraint rejects the insert. The database is the arbiter for
// concurrent registrations; the row state is unchanged on failure.
var ErrDuplicateEmail = errors.New("email already registered")

type FarmerRepository struct {
	db *gorm.DB
}

func NewFarmerRepository(db *gorm.DB) *FarmerRepository {
	return &FarmerRepository{db: db}
}

func (r *FarmerRepository) Create(farmer *model.Farmer) error {
	if err := r.db.Create(farmer).Error; err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("create farmer failed: %w", err)
	}
	return nil
}

func (r *FarmerRepository) GetByEmail(email string) (*model.Farmer, error) {
	var farmer model.Farmer
	if err := r.db.Where("email = ?", email).First(&farmer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query farmer by email failed: %w", err)
	}
	return &farmer, nil
}

func (r *FarmerRepository) GetByID(id uint) (*model.Farmer, error) {
	var farmer model.Farmer
	if err := r.db.First(&farmer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query farmer by id failed: %w", err)
	}
	return &farmer, nil
}

func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// MySQL error 1062 surfaces without the gorm translation when the
	// dialector is opened with translation disabled.
	return strings.Contains(err.Error(), "Error 1062") ||
		strings.Contains(err.Error(), "Duplicate entry")
}
