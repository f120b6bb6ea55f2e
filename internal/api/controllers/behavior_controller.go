package controllers

import (
	"net/http"
	"time"

	"github.com/faunawatch/backend/internal/db/models"
	"github.com/faunawatch/backend/internal/services"
	"github.com/faunawatch/backend/internal/utils"
	"github.com/gin-gonic/gin"
)

// BehaviorController handles HTTP ingestion of behavior observations.
type BehaviorController struct {
	ingestService *services.IngestService
	logger        *utils.Logger
}

// NewBehaviorController creates a new behavior controller
func NewBehaviorController(ingestService *services.IngestService, logger *utils.Logger) *BehaviorController {
	return &BehaviorController{
		ingestService: ingestService,
		logger:        logger.Named("behavior_controller"),
	}
}

// RegisterRoutes registers the behavior routes
func (c *BehaviorController) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/events", c.CreateEvent)
}

// CreateEventRequest defines the request body for one observation. TS is
// optional; an absent timestamp means "now".
type CreateEventRequest struct {
	AnimalID   string    `json:"animal_id" binding:"required"`
	Behavior   string    `json:"behavior" binding:"required"`
	TS         time.Time `json:"ts"`
	Confidence float64   `json:"confidence"`
}

// CreateEventResponse carries the stored event plus any alert it tipped over.
type CreateEventResponse struct {
	Event *models.BehaviorEvent `json:"event"`
	Alert *models.Alert         `json:"alert,omitempty"`
}

// CreateEvent handles ingesting one behavior observation
// @Summary Ingest a behavior observation
// @Tags behavior
// @Accept json
// @Produce json
// @Param event body CreateEventRequest true "Observation"
// @Success 201 {object} CreateEventResponse
// @Failure 400 {object} map[string]string
// @Router /api/v1/behavior/events [post]
func (c *BehaviorController) CreateEvent(ctx *gin.Context) {
	var req CreateEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.HandleValidationErrors(ctx, err)
		return
	}

	event, alert, err := c.ingestService.Ingest(req.AnimalID, models.Behavior(req.Behavior), req.TS, req.Confidence)
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusCreated, CreateEventResponse{Event: event, Alert: alert})
}
