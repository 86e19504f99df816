package app

import (
	"context"
	"log"
	"time"

	"cocoaguard/internal/agronomy"
	"cocoaguard/internal/model"
	"cocoaguard/internal/storage"
	"cocoaguard/internal/vision"
)

// ImageStore persists uploaded images and hands back their storage path.
type ImageStore interface {
	Save(filename string, data []byte) (*storage.StoredFile, error)
}

// PodClassifier runs the model on raw image bytes.
type PodClassifier interface {
	Classify(imageData []byte) (vision.Prediction, error)
}

// AsyncPredictionPublisher enqueues results for the persist worker.
type AsyncPredictionPublisher interface {
	Publish(ctx context.Context, prediction model.Prediction) error
}

// PredictionCache fronts the prediction history reads.
type PredictionCache interface {
	GetHistory(ctx context.Context, farmerID uint) ([]model.Prediction, bool, error)
	SetHistory(ctx context.Context, farmerID uint, predictions []model.Prediction) error
	DeleteHistory(ctx context.Context, farmerID uint) error
	MarkDirty(ctx context.Context, farmerID uint) error
	IsDirty(ctx context.Context, farmerID uint) (bool, error)
}

// PredictionLister reads persisted prediction rows.
type PredictionLister interface {
	ListByFarmerID(farmerID uint, limit int) ([]model.Prediction, error)
}

type PredictService struct {
	images     ImageStore
	classifier PodClassifier
	publisher  AsyncPredictionPublisher
	cache      PredictionCache
	history    PredictionLister

	// inferenceSlots bounds how many requests can sit in the model at
	// once; the rest queue here instead of piling onto the session mutex.
	inferenceSlots chan struct{}
}

type PredictInput struct {
	FarmerID uint
	Filename string
	Data     []byte
}

type PredictOutput struct {
	// ImageKey is the storage key inside the uploads directory; the
	// transport layer turns it into a servable URL. ImagePath is the
	// filesystem path recorded in the history row.
	ImageKey    string   `json:"image_key"`
	ImagePath   string   `json:"image_path"`
	ClassIndex  int      `json:"class_index"`
	Disease     string   `json:"disease"`
	Probability float64  `json:"probability"`
	Advice      []string `json:"recommendations"`
}

func NewPredictService(
	images ImageStore,
	classifier PodClassifier,
	publisher AsyncPredictionPublisher,
	cache PredictionCache,
	history PredictionLister,
	maxConcurrent int,
) *PredictService {
	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}
	return &PredictService{
		images:         images,
		classifier:     classifier,
		publisher:      publisher,
		cache:          cache,
		history:        history,
		inferenceSlots: make(chan struct{}, maxConcurrent),
	}
}

// Predict stores the image, classifies it, and resolves the agronomic
// advice. The result row is enqueued for async persistence; a broker
// outage does not fail the request, the farmer still gets the answer.
func (s *PredictService) Predict(ctx context.Context, input PredictInput) (*PredictOutput, error) {
	stored, err := s.images.Save(input.Filename, input.Data)
	if err != nil {
		return nil, err
	}

	prediction, err := s.classify(ctx, input.Data)
	if err != nil {
		return nil, err
	}

	advice := agronomy.Lookup(prediction.ClassIndex)

	// History is only recorded for logged-in farmers; anonymous
	// predictions still get an answer.
	if input.FarmerID != 0 {
		record := model.Prediction{
			FarmerID:    input.FarmerID,
			ImagePath:   stored.Path,
			ClassIndex:  prediction.ClassIndex,
			Disease:     advice.Disease,
			Probability: float64(prediction.Probability),
			CreatedAt:   time.Now(),
		}
		if s.cache != nil {
			_ = s.cache.MarkDirty(ctx, input.FarmerID)
			_ = s.cache.DeleteHistory(ctx, input.FarmerID)
		}
		if s.publisher != nil {
			if err := s.publisher.Publish(ctx, record); err != nil {
				log.Printf("enqueue prediction for farmer %d failed: %v", input.FarmerID, err)
			}
		}
	}

	return &PredictOutput{
		ImageKey:    stored.Key,
		ImagePath:   stored.Path,
		ClassIndex:  prediction.ClassIndex,
		Disease:     advice.Disease,
		Probability: float64(prediction.Probability),
		Advice:      advice.Recommendations,
	}, nil
}

func (s *PredictService) classify(ctx context.Context, data []byte) (vision.Prediction, error) {
	select {
	case s.inferenceSlots <- struct{}{}:
	case <-ctx.Done():
		return vision.Prediction{}, ctx.Err()
	}
	defer func() { <-s.inferenceSlots }()

	return s.classifier.Classify(data)
}

// History returns a farmer's recent predictions, read through the cache
// when it is clean.
func (s *PredictService) History(ctx context.Context, farmerID uint, limit int) ([]model.Prediction, error) {
	if farmerID == 0 {
		return nil, ErrInvalidInput
	}

	if s.cache != nil {
		dirty, err := s.cache.IsDirty(ctx, farmerID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.cache.GetHistory(ctx, farmerID); cacheErr == nil && hit {
				return trimPredictions(cached, limit), nil
			}
		}
	}

	predictions, err := s.history.ListByFarmerID(farmerID, limit)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if dirty, dirtyErr := s.cache.IsDirty(ctx, farmerID); dirtyErr == nil && !dirty {
			_ = s.cache.SetHistory(ctx, farmerID, predictions)
		}
	}
	return predictions, nil
}

func trimPredictions(predictions []model.Prediction, limit int) []model.Prediction {
	if limit <= 0 || limit >= len(predictions) {
		return predictions
	}
	return predictions[:limit]
}
