package controllers

import (
	"net/http"

	"github.com/faunawatch/backend/internal/db/models"
	"github.com/faunawatch/backend/internal/services"
	"github.com/faunawatch/backend/internal/utils"
	"github.com/gin-gonic/gin"
)

// AlertController handles HTTP requests for welfare alerts.
type AlertController struct {
	alertService *services.AlertService
	logger       *utils.Logger
}

// NewAlertController creates a new alert controller
func NewAlertController(alertService *services.AlertService, logger *utils.Logger) *AlertController {
	return &AlertController{
		alertService: alertService,
		logger:       logger.Named("alert_controller"),
	}
}

// RegisterRoutes registers the alert routes
func (c *AlertController) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("", c.ListAlerts)
	router.GET("/:id", c.GetAlert)
	router.POST("/:id/acknowledge", c.AcknowledgeAlert)
	router.POST("/acknowledge", c.AcknowledgeBulk)
}

// ListAlerts handles listing alerts, newest first
// @Summary List alerts
// @Tags alerts
// @Produce json
// @Param animal_id query string false "Filter by animal"
// @Param state query string false "Filter by state (open or closed)"
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} utils.PaginatedResponse
// @Failure 400 {object} map[string]string
// @Router /api/v1/alerts [get]
func (c *AlertController) ListAlerts(ctx *gin.Context) {
	pagination := utils.GetPaginationFromContext(ctx)

	animalID := ctx.Query("animal_id")
	state := models.AlertState(ctx.Query("state"))

	alerts, total, err := c.alertService.List(animalID, state, pagination.Offset(), pagination.Limit)
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusOK, utils.NewPaginatedResponse(alerts, pagination, int(total)))
}

// GetAlert handles getting one alert
// @Summary Get an alert
// @Tags alerts
// @Produce json
// @Param id path string true "Alert ID"
// @Success 200 {object} models.Alert
// @Failure 404 {object} map[string]string
// @Router /api/v1/alerts/{id} [get]
func (c *AlertController) GetAlert(ctx *gin.Context) {
	alert, err := c.alertService.GetByID(ctx.Param("id"))
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusOK, alert)
}

// AcknowledgeRequest names who is closing the alert
type AcknowledgeRequest struct {
	AckBy string `json:"ack_by" binding:"required"`
}

// AcknowledgeAlert handles closing one open alert
// @Summary Acknowledge an alert
// @Tags alerts
// @Accept json
// @Produce json
// @Param id path string true "Alert ID"
// @Param body body AcknowledgeRequest true "Acknowledger"
// @Success 200 {object} models.Alert
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/alerts/{id}/acknowledge [post]
func (c *AlertController) AcknowledgeAlert(ctx *gin.Context) {
	var req AcknowledgeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.HandleValidationErrors(ctx, err)
		return
	}

	alert, err := c.alertService.Acknowledge(ctx.Param("id"), req.AckBy)
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusOK, alert)
}

// AcknowledgeBulkRequest lists the alerts to close
type AcknowledgeBulkRequest struct {
	AlertIDs []string `json:"alert_ids" binding:"required"`
	AckBy    string   `json:"ack_by" binding:"required"`
}

// AcknowledgeBulk handles closing a batch of open alerts
// @Summary Acknowledge a batch of alerts
// @Tags alerts
// @Accept json
// @Produce json
// @Param body body AcknowledgeBulkRequest true "Alerts and acknowledger"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Router /api/v1/alerts/acknowledge [post]
func (c *AlertController) AcknowledgeBulk(ctx *gin.Context) {
	var req AcknowledgeBulkRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.HandleValidationErrors(ctx, err)
		return
	}

	closed, err := c.alertService.AcknowledgeBulk(req.AlertIDs, req.AckBy)
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"requested": len(req.AlertIDs),
		"closed":    closed,
	})
}
