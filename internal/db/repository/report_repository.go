package repository

import (
	"time"

	"github.com/faunawatch/backend/internal/db/models"
	"gorm.io/gorm"
)

// ReportRepository defines operations for the welfare report store
type ReportRepository interface {
	Repository
	Insert(report *models.WelfareReport) error
	GetByID(id string) (*models.WelfareReport, error)
	// GetByPeriod looks up the single row for the exact period key.
	GetByPeriod(animalID, periodType string, periodStart, periodEnd time.Time) (*models.WelfareReport, error)
	// UpdateContent overwrites the regenerated fields of an existing row in
	// place; the period key never changes.
	UpdateContent(id string, alertsCount int, payload string, generatedBy string, generatedAt time.Time) error
	List(animalID string, offset, limit int) ([]models.WelfareReport, int64, error)
}

// reportRepository implements ReportRepository
type reportRepository struct {
	BaseRepository
}

// NewReportRepository creates a new welfare report repository
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Insert inserts a new report row
func (r *reportRepository) Insert(report *models.WelfareReport) error {
	err := r.GetDB().Create(report).Error
	return r.handleError(err)
}

// GetByID retrieves a report by its identifier
func (r *reportRepository) GetByID(id string) (*models.WelfareReport, error) {
	var report models.WelfareReport
	err := r.GetDB().Where("id = ?", id).First(&report).Error
	if err != nil {
		return nil, r.handleError(err)
	}
	return &report, nil
}

// GetByPeriod retrieves the report row for an exact period key
func (r *reportRepository) GetByPeriod(animalID, periodType string, periodStart, periodEnd time.Time) (*models.WelfareReport, error) {
	var report models.WelfareReport
	err := r.GetDB().
		Where("animal_id = ? AND period_type = ? AND period_start = ? AND period_end = ?",
			animalID, periodType, periodStart, periodEnd).
		First(&report).Error
	if err != nil {
		return nil, r.handleError(err)
	}
	return &report, nil
}

// UpdateContent overwrites the regenerated fields of an existing report
func (r *reportRepository) UpdateContent(id string, alertsCount int, payload string, generatedBy string, generatedAt time.Time) error {
	result := r.GetDB().Model(&models.WelfareReport{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"alerts_count": alertsCount,
			"payload":      payload,
			"generated_by": generatedBy,
			"generated_at": generatedAt,
		})

	if result.Error != nil {
		return r.handleError(result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// List retrieves reports, optionally filtered by animal, newest period first
func (r *reportRepository) List(animalID string, offset, limit int) ([]models.WelfareReport, int64, error) {
	query := r.GetDB().Model(&models.WelfareReport{})

	if animalID != "" {
		query = query.Where("animal_id = ?", animalID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, r.handleError(err)
	}

	var reports []models.WelfareReport
	err := query.Order("period_start desc").Offset(offset).Limit(limit).Find(&reports).Error
	if err != nil {
		return nil, 0, r.handleError(err)
	}

	return reports, total, nil
}
