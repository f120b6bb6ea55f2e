package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/faunawatch/backend/internal/db/models"
	"github.com/faunawatch/backend/internal/services"
	"github.com/faunawatch/backend/internal/utils"
	"github.com/gin-gonic/gin"
)

// AnimalController handles HTTP requests for the monitored-animal roster and
// the per-animal behavior views.
type AnimalController struct {
	animalService *services.AnimalService
	reportService *services.ReportService
	logger        *utils.Logger
}

// NewAnimalController creates a new animal controller
func NewAnimalController(animalService *services.AnimalService, reportService *services.ReportService, logger *utils.Logger) *AnimalController {
	return &AnimalController{
		animalService: animalService,
		reportService: reportService,
		logger:        logger.Named("animal_controller"),
	}
}

// RegisterRoutes registers the animal routes
func (c *AnimalController) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("", c.CreateAnimal)
	router.GET("", c.ListAnimals)
	router.GET("/:id", c.GetAnimal)
	router.GET("/:id/behavior/current", c.GetCurrentBehavior)
	router.GET("/:id/behavior/timeline", c.GetBehaviorTimeline)
	router.GET("/:id/behavior/distribution", c.GetBehaviorDistribution)
	router.GET("/:id/behavior/summary", c.GetBehaviorSummary)
}

// CreateAnimalRequest defines the request body for registering an animal
type CreateAnimalRequest struct {
	AnimalID  string `json:"animal_id" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Species   string `json:"species" binding:"required"`
	Enclosure string `json:"enclosure"`
}

// CreateAnimal handles registering an animal for monitoring
// @Summary Register an animal
// @Tags animals
// @Accept json
// @Produce json
// @Param animal body CreateAnimalRequest true "Animal to register"
// @Success 201 {object} models.Animal
// @Failure 400 {object} map[string]string
// @Router /api/v1/animals [post]
func (c *AnimalController) CreateAnimal(ctx *gin.Context) {
	var req CreateAnimalRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.HandleValidationErrors(ctx, err)
		return
	}

	animal := &models.Animal{
		AnimalID:  req.AnimalID,
		Name:      req.Name,
		Species:   req.Species,
		Enclosure: req.Enclosure,
		Active:    true,
	}

	if err := c.animalService.Create(animal); err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusCreated, animal)
}

// ListAnimals handles listing the roster
// @Summary List animals
// @Tags animals
// @Produce json
// @Param active query bool false "Only animals still monitored"
// @Success 200 {array} models.Animal
// @Router /api/v1/animals [get]
func (c *AnimalController) ListAnimals(ctx *gin.Context) {
	activeOnly := ctx.Query("active") == "true"

	animals, err := c.animalService.List(activeOnly)
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusOK, animals)
}

// GetAnimal handles getting one animal
// @Summary Get an animal
// @Tags animals
// @Produce json
// @Param id path string true "Animal ID"
// @Success 200 {object} models.Animal
// @Failure 404 {object} map[string]string
// @Router /api/v1/animals/{id} [get]
func (c *AnimalController) GetAnimal(ctx *gin.Context) {
	animal, err := c.animalService.GetByID(ctx.Param("id"))
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusOK, animal)
}

// GetCurrentBehavior handles getting the most recent observation
// @Summary Get an animal's current behavior
// @Tags behavior
// @Produce json
// @Param id path string true "Animal ID"
// @Success 200 {object} models.BehaviorEvent
// @Failure 404 {object} map[string]string
// @Router /api/v1/animals/{id}/behavior/current [get]
func (c *AnimalController) GetCurrentBehavior(ctx *gin.Context) {
	event, err := c.animalService.CurrentBehavior(ctx.Param("id"))
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}
	if event == nil {
		ctx.JSON(http.StatusOK, gin.H{"animal_id": ctx.Param("id"), "behavior": nil})
		return
	}

	ctx.JSON(http.StatusOK, event)
}

// parseDay reads the optional date query parameter, defaulting to today.
func (c *AnimalController) parseDay(ctx *gin.Context) (time.Time, bool) {
	dateStr := ctx.Query("date")
	if dateStr == "" {
		return time.Now(), true
	}

	day, err := c.reportService.ParseDay(dateStr)
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return time.Time{}, false
	}
	return day, true
}

// GetBehaviorTimeline handles the hour-by-hour view of one day
// @Summary Get an animal's hourly behavior timeline
// @Tags behavior
// @Produce json
// @Param id path string true "Animal ID"
// @Param date query string false "Day (YYYY-MM-DD), default today"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Router /api/v1/animals/{id}/behavior/timeline [get]
func (c *AnimalController) GetBehaviorTimeline(ctx *gin.Context) {
	day, ok := c.parseDay(ctx)
	if !ok {
		return
	}

	animalID := ctx.Param("id")
	buckets, err := c.reportService.Timeline(animalID, day)
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"animal_id": animalID,
		"hours":     buckets,
	})
}

// GetBehaviorDistribution handles the per-behavior share of one day
// @Summary Get an animal's daily behavior distribution
// @Tags behavior
// @Produce json
// @Param id path string true "Animal ID"
// @Param date query string false "Day (YYYY-MM-DD), default today"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Router /api/v1/animals/{id}/behavior/distribution [get]
func (c *AnimalController) GetBehaviorDistribution(ctx *gin.Context) {
	day, ok := c.parseDay(ctx)
	if !ok {
		return
	}

	animalID := ctx.Param("id")
	shares, err := c.reportService.Distribution(animalID, day)
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"animal_id":    animalID,
		"distribution": shares,
	})
}

// GetBehaviorSummary handles the multi-day summary
// @Summary Get an animal's multi-day behavior summary
// @Tags behavior
// @Produce json
// @Param id path string true "Animal ID"
// @Param days query int false "Days to cover, default 7"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Router /api/v1/animals/{id}/behavior/summary [get]
func (c *AnimalController) GetBehaviorSummary(ctx *gin.Context) {
	days, err := strconv.Atoi(ctx.DefaultQuery("days", "7"))
	if err != nil || days < 1 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid days parameter"})
		return
	}

	animalID := ctx.Param("id")
	summary, err := c.reportService.Summary(animalID, days)
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"animal_id": animalID,
		"days":      summary,
	})
}
