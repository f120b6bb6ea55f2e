package repository

import "gorm.io/gorm"

// RepositoryFactory creates and manages all repositories
type RepositoryFactory struct {
	db         *gorm.DB
	animalRepo AnimalRepository
	eventRepo  EventRepository
	alertRepo  AlertRepository
	reportRepo ReportRepository
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(db *gorm.DB) *RepositoryFactory {
	return &RepositoryFactory{
		db: db,
	}
}

// Animal returns the animal repository
func (f *RepositoryFactory) Animal() AnimalRepository {
	if f.animalRepo == nil {
		f.animalRepo = NewAnimalRepository(f.db)
	}
	return f.animalRepo
}

// Event returns the behavior event repository
func (f *RepositoryFactory) Event() EventRepository {
	if f.eventRepo == nil {
		f.eventRepo = NewEventRepository(f.db)
	}
	return f.eventRepo
}

// Alert returns the alert repository
func (f *RepositoryFactory) Alert() AlertRepository {
	if f.alertRepo == nil {
		f.alertRepo = NewAlertRepository(f.db)
	}
	return f.alertRepo
}

// Report returns the welfare report repository
func (f *RepositoryFactory) Report() ReportRepository {
	if f.reportRepo == nil {
		f.reportRepo = NewReportRepository(f.db)
	}
	return f.reportRepo
}
