package repository

import (
	"fmt"

	"gorm.io/gorm"

	"cocoaguard/internal/model"
)

type PredictionRepository struct {
	db *gorm.DB
}

func NewPredictionRepository(db *gorm.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

func (r *PredictionRepository) Create(prediction *model.Prediction) error {
	if err := r.db.Create(prediction).Error; err != nil {
		return fmt.Errorf("create prediction failed: %w", err)
	}
	return nil
}

func (r *PredictionRepository) ListByFarmerID(farmerID uint, limit int) ([]model.Prediction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var predictions []model.Prediction
	if err := r.db.Where("farmer_id = ?", farmerID).Order("created_at DESC").Limit(limit).Find(&predictions).Error; err != nil {
		return nil, fmt.Errorf("list predictions failed: %w", err)
	}
	return predictions, nil
}
