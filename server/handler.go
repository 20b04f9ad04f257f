package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"fukuyama-landprice/models"
	"fukuyama-landprice/services"
)

const (
	apiName    = "福山市不動産価格予測API"
	apiVersion = "1.0.0"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/", h.root)
	rg.GET("/health", h.health)
	rg.POST("/predict", h.predict)   // model or rules, per mode
	rg.POST("/estimate", h.estimate) // always rules
	rg.GET("/districts", h.districts)
	rg.GET("/property_types", h.propertyTypes)
}

func (h *Handler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": apiName,
		"version": apiVersion,
		"mode":    h.Svc.Mode(),
		"endpoints": gin.H{
			"predict":        "/predict - 価格予測",
			"estimate":       "/estimate - 簡易予測",
			"health":         "/health - ヘルスチェック",
			"districts":      "/districts - 町名一覧",
			"property_types": "/property_types - 建物タイプ一覧",
		},
	})
}

func (h *Handler) health(c *gin.Context) {
	if h.Svc.Mode() == ModeRules {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "model": "rule-based"})
		return
	}

	p, err := h.Svc.Predictor()
	if err == nil {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"model":  p.Info.BestModelName,
			"run_id": p.Info.RunID,
		})
		return
	}

	status := "loading"
	if h.Svc.State() == StateLoadFailed {
		status = "unhealthy"
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"status": status, "message": err.Error()})
}

func (h *Handler) predict(c *gin.Context) {
	req, ok := bindRequest(c)
	if !ok {
		return
	}
	if h.Svc.Mode() == ModeRules {
		h.writeEstimate(c, req)
		return
	}

	res, err := h.Svc.PredictModel(req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) estimate(c *gin.Context) {
	req, ok := bindRequest(c)
	if !ok {
		return
	}
	h.writeEstimate(c, req)
}

func (h *Handler) writeEstimate(c *gin.Context, req models.PredictionRequest) {
	res, err := h.Svc.Estimate(req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) districts(c *gin.Context) {
	list, err := h.Svc.Districts()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"districts": list})
}

func (h *Handler) propertyTypes(c *gin.Context) {
	list, err := h.Svc.PropertyTypes()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"property_types": list})
}

func bindRequest(c *gin.Context) (models.PredictionRequest, bool) {
	var req models.PredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return req, false
	}
	return req, true
}

// writeError maps service errors to status codes: 503 while loading, 500
// after a failed load, 400 for prediction failures.
func writeError(c *gin.Context, err error) {
	var nre *NotReadyError
	var pe *services.PredictionError
	switch {
	case errors.As(err, &nre) && nre.State == StateLoadFailed:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	case errors.As(err, &nre):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.As(err, &pe):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
