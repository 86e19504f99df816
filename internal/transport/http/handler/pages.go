package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"cocoaguard/internal/app"
	"cocoaguard/internal/transport/http/middleware"
)

type PageHandler struct {
	predictService *app.PredictService
}

func NewPageHandler(predictService *app.PredictService) *PageHandler {
	return &PageHandler{predictService: predictService}
}

func (h *PageHandler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Flash": middleware.PopFlash(c),
	})
}

func (h *PageHandler) Dashboard(c *gin.Context) {
	farmerID, _ := farmerIDFromContext(c)
	name := c.GetString(middleware.ContextFarmerNameKey)

	history, err := h.predictService.History(c.Request.Context(), farmerID, 10)
	if err != nil {
		log.Printf("load prediction history failed: %v", err)
	}

	c.HTML(http.StatusOK, "dashboard.html", gin.H{
		"Name":    name,
		"History": history,
		"Flash":   middleware.PopFlash(c),
	})
}

func farmerIDFromContext(c *gin.Context) (uint, bool) {
	v, exists := c.Get(middleware.ContextFarmerIDKey)
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}
