package model

import "time"

// Prediction is one classification result for an uploaded pod image.
// Rows are written asynchronously by the persist worker.
type Prediction struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	FarmerID    uint      `gorm:"not null;index" json:"farmer_id"`
	ImagePath   string    `gorm:"size:255;not null" json:"image_path"`
	ClassIndex  int       `gorm:"not null" json:"class_index"`
	Disease     string    `gorm:"size:64;not null" json:"disease"`
	Probability float64   `gorm:"not null" json:"probability"`
	CreatedAt   time.Time `json:"created_at"`
}
