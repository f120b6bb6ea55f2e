package controllers

import (
	"net/http"
	"time"

	"github.com/faunawatch/backend/internal/services"
	"github.com/faunawatch/backend/internal/utils"
	"github.com/gin-gonic/gin"
)

// GeneratedByAPI marks reports produced by an explicit API request.
const GeneratedByAPI = "api"

// ReportController handles HTTP requests for daily welfare reports.
type ReportController struct {
	reportService *services.ReportService
	logger        *utils.Logger
}

// NewReportController creates a new report controller
func NewReportController(reportService *services.ReportService, logger *utils.Logger) *ReportController {
	return &ReportController{
		reportService: reportService,
		logger:        logger.Named("report_controller"),
	}
}

// RegisterRoutes registers the report routes
func (c *ReportController) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("", c.ListReports)
	router.GET("/:id", c.GetReport)
	router.POST("/generate", c.GenerateReport)
}

// ListReports handles listing reports, newest period first
// @Summary List welfare reports
// @Tags reports
// @Produce json
// @Param animal_id query string false "Filter by animal"
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} utils.PaginatedResponse
// @Router /api/v1/reports [get]
func (c *ReportController) ListReports(ctx *gin.Context) {
	pagination := utils.GetPaginationFromContext(ctx)

	reports, total, err := c.reportService.List(ctx.Query("animal_id"), pagination.Offset(), pagination.Limit)
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusOK, utils.NewPaginatedResponse(reports, pagination, int(total)))
}

// GetReport handles getting one report
// @Summary Get a welfare report
// @Tags reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} models.WelfareReport
// @Failure 404 {object} map[string]string
// @Router /api/v1/reports/{id} [get]
func (c *ReportController) GetReport(ctx *gin.Context) {
	report, err := c.reportService.GetByID(ctx.Param("id"))
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusOK, report)
}

// GenerateReportRequest names the animal and day to rebuild
type GenerateReportRequest struct {
	AnimalID string `json:"animal_id" binding:"required"`
	Date     string `json:"date"`
}

// GenerateReport handles building or rebuilding one daily report
// @Summary Generate a daily welfare report
// @Tags reports
// @Accept json
// @Produce json
// @Param body body GenerateReportRequest true "Animal and day"
// @Success 200 {object} models.WelfareReport
// @Failure 400 {object} map[string]string
// @Router /api/v1/reports/generate [post]
func (c *ReportController) GenerateReport(ctx *gin.Context) {
	var req GenerateReportRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.HandleValidationErrors(ctx, err)
		return
	}

	day := time.Now()
	if req.Date != "" {
		parsed, err := c.reportService.ParseDay(req.Date)
		if err != nil {
			utils.HandleError(ctx, err, c.logger)
			return
		}
		day = parsed
	}

	report, err := c.reportService.GenerateDaily(req.AnimalID, day, GeneratedByAPI)
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusOK, report)
}
