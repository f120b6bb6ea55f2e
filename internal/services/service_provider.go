package services

import (
	"context"
	"fmt"
	"time"

	"github.com/faunawatch/backend/internal/behavior"
	"github.com/faunawatch/backend/internal/config"
	"github.com/faunawatch/backend/internal/db"
	"github.com/faunawatch/backend/internal/db/repository"
	"github.com/faunawatch/backend/internal/kafka"
	"github.com/faunawatch/backend/internal/utils"
)

// ServiceProvider manages all services for the application
type ServiceProvider struct {
	logger              *utils.Logger
	config              *config.Config
	database            *db.Database
	kafkaManager        *kafka.Manager
	kafkaHandler        *KafkaHandler
	registry            *behavior.Registry
	ruleService         *RuleService
	ingestService       *IngestService
	animalService       *AnimalService
	alertService        *AlertService
	reportService       *ReportService
	notificationService *NotificationService
}

// NewServiceProvider creates a new service provider
func NewServiceProvider(
	logger *utils.Logger,
	config *config.Config,
	database *db.Database,
) *ServiceProvider {
	return &ServiceProvider{
		logger:   logger.Named("services"),
		config:   config,
		database: database,
	}
}

// Initialize initializes all services
func (sp *ServiceProvider) Initialize(ctx context.Context) error {
	var err error

	welfare := &sp.config.Welfare

	// Movement classifier registry for the raw position stream.
	classifierCfg := behavior.Config{
		SampleRate:          welfare.SampleRate,
		InactivityThreshold: welfare.InactivityThreshold,
		MinCycleSeconds:     welfare.MinCycleSeconds,
		MaxCycleSeconds:     welfare.MaxCycleSeconds,
		ACFThreshold:        welfare.ACFThreshold,
		MaxMissingFraction:  welfare.MaxMissingFraction,
	}
	ttl := time.Duration(welfare.RegistryEvictionMinutes) * time.Minute
	sp.registry = behavior.NewRegistry(classifierCfg, ttl)

	sp.notificationService = NewNotificationService(sp.logger)
	sp.logger.Info("Notification service initialized")

	sp.kafkaManager, err = kafka.NewManager(&sp.config.Kafka, sp.logger)
	if err != nil {
		return fmt.Errorf("failed to create Kafka manager: %w", err)
	}

	sp.ruleService, err = NewRuleService(sp.database, welfare, sp.logger)
	if err != nil {
		return fmt.Errorf("failed to create rule service: %w", err)
	}

	publisher := &kafkaAlertPublisher{manager: sp.kafkaManager}
	sp.ingestService, err = NewIngestService(sp.database, welfare, sp.ruleService, sp.notificationService, publisher, sp.logger)
	if err != nil {
		return fmt.Errorf("failed to create ingest service: %w", err)
	}

	sp.animalService = NewAnimalService(sp.database, sp.logger)
	sp.alertService = NewAlertService(sp.database, sp.notificationService, sp.logger)

	sp.reportService, err = NewReportService(sp.database, welfare, sp.logger)
	if err != nil {
		return fmt.Errorf("failed to create report service: %w", err)
	}
	sp.logger.Info("Core services initialized")

	sp.kafkaHandler = NewKafkaHandler(sp.logger, sp.kafkaManager, sp.ingestService, sp.registry)
	if err = sp.kafkaHandler.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize Kafka handler: %w", err)
	}

	if err = sp.kafkaManager.Start(); err != nil {
		return fmt.Errorf("failed to start Kafka manager: %w", err)
	}
	sp.logger.Info("Kafka manager started")

	return nil
}

// Shutdown stops the background machinery in reverse dependency order.
func (sp *ServiceProvider) Shutdown() error {
	if sp.kafkaManager != nil && sp.kafkaManager.IsRunning() {
		if err := sp.kafkaManager.Stop(); err != nil {
			return fmt.Errorf("failed to stop Kafka manager: %w", err)
		}
	}
	sp.logger.Info("Services shut down")
	return nil
}

// GetAnimalService returns the animal service
func (sp *ServiceProvider) GetAnimalService() *AnimalService {
	return sp.animalService
}

// GetIngestService returns the ingest service
func (sp *ServiceProvider) GetIngestService() *IngestService {
	return sp.ingestService
}

// GetAlertService returns the alert service
func (sp *ServiceProvider) GetAlertService() *AlertService {
	return sp.alertService
}

// GetReportService returns the report service
func (sp *ServiceProvider) GetReportService() *ReportService {
	return sp.reportService
}

// GetNotificationService returns the notification service
func (sp *ServiceProvider) GetNotificationService() *NotificationService {
	return sp.notificationService
}

// GetKafkaManager returns the Kafka manager
func (sp *ServiceProvider) GetKafkaManager() *kafka.Manager {
	return sp.kafkaManager
}

// GetRegistry returns the movement classifier registry
func (sp *ServiceProvider) GetRegistry() *behavior.Registry {
	return sp.registry
}

// GetAnimalRepository exposes the animal repository for scheduler wiring.
func (sp *ServiceProvider) GetAnimalRepository() repository.AnimalRepository {
	return repository.NewRepositoryFactory(sp.database.DB).Animal()
}
