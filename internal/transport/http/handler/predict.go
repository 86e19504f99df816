package handler

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"cocoaguard/internal/app"
	"cocoaguard/internal/storage"
	"cocoaguard/internal/transport/http/middleware"
	"cocoaguard/internal/transport/http/response"
	"cocoaguard/internal/vision"
)

// UploadsRoutePrefix is where the router serves stored uploads; rendered
// image URLs are built from it so they resolve regardless of which
// directory backs the store.
const UploadsRoutePrefix = "/static/uploads"

type PredictHandler struct {
	predictService *app.PredictService
	maxUploadSize  int64
}

func NewPredictHandler(predictService *app.PredictService, maxUploadSize int64) *PredictHandler {
	if maxUploadSize <= 0 {
		maxUploadSize = 5 << 20
	}
	return &PredictHandler{
		predictService: predictService,
		maxUploadSize:  maxUploadSize,
	}
}

// Predict accepts a multipart form with field "file", classifies the pod
// image, and renders the dashboard with the result. Failures answer with
// a JSON error body instead of a page.
func (h *PredictHandler) Predict(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	if file.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file selected"})
		return
	}
	if file.Size > h.maxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File too large"})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to open uploaded file"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUploadSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	if int64(len(data)) > h.maxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File too large"})
		return
	}

	farmerID, _ := farmerIDFromContext(c)
	result, err := h.predictService.Predict(c.Request.Context(), app.PredictInput{
		FarmerID: farmerID,
		Filename: file.Filename,
		Data:     data,
	})
	if err != nil {
		h.writePredictError(c, err)
		return
	}

	c.HTML(http.StatusOK, "dashboard.html", gin.H{
		"Name":           c.GetString(middleware.ContextFarmerNameKey),
		"Result":         result.Disease,
		"Probability":    result.Probability,
		"Recommendation": result.Advice,
		"File":           UploadsRoutePrefix + "/" + result.ImageKey,
	})
}

// writePredictError maps input-format problems to 400 and everything
// else to a generic 500; internals only go to the log.
func (h *PredictHandler) writePredictError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrEmptyFilename):
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file selected"})
	case errors.Is(err, storage.ErrFileTooLarge):
		c.JSON(http.StatusBadRequest, gin.H{"error": "File too large"})
	case errors.Is(err, storage.ErrUnsupportedType):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported image type"})
	case errors.Is(err, vision.ErrDecodeImage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not decode image"})
	default:
		log.Printf("prediction failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Prediction failed"})
	}
}

// ListPredictions serves a farmer's prediction history as JSON.
func (h *PredictHandler) ListPredictions(c *gin.Context) {
	farmerID, ok := farmerIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid session payload")
		return
	}

	predictions, err := h.predictService.History(c.Request.Context(), farmerID, 50)
	if err != nil {
		log.Printf("list predictions failed: %v", err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list predictions failed")
		return
	}

	response.OK(c, gin.H{"predictions": predictions})
}
