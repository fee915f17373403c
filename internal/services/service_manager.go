package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/exam-attempt-service/internal/cache"
	"github.com/SAP-F-2025/exam-attempt-service/internal/config"
	"github.com/SAP-F-2025/exam-attempt-service/internal/events"
	"github.com/SAP-F-2025/exam-attempt-service/internal/repositories"
	"github.com/SAP-F-2025/exam-attempt-service/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	Attempt AttemptPolicy

	ExamCacheTTL  time.Duration
	StatsCacheTTL time.Duration

	DefaultTimeout time.Duration
}

// DefaultServiceManagerConfig mirrors the environment defaults
func DefaultServiceManagerConfig() ServiceManagerConfig {
	return ServiceManagerConfig{
		Attempt: AttemptPolicy{
			LateSubmissionGrace: time.Minute,
			PassThreshold:       DefaultPassThreshold,
		},
		ExamCacheTTL:   cache.ExamCacheConfig.TTL,
		StatsCacheTTL:  cache.StatsCacheConfig.TTL,
		DefaultTimeout: 30 * time.Second,
	}
}

// ServiceManagerConfigFrom maps the loaded application config
func ServiceManagerConfigFrom(cfg *config.Config) ServiceManagerConfig {
	smc := DefaultServiceManagerConfig()
	smc.Attempt.LateSubmissionGrace = cfg.Attempt.LateSubmissionGrace
	smc.Attempt.PassThreshold = cfg.Attempt.PassThreshold
	smc.ExamCacheTTL = cfg.Cache.ExamTTL
	smc.StatsCacheTTL = cfg.Cache.StatsTTL
	return smc
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	repo      repositories.Repository
	publisher events.EventPublisher
	cache     *cache.CacheManager
	logger    *slog.Logger
	validator *validator.Validator
	config    ServiceManagerConfig

	// Service instances
	examService       ExamService
	attemptService    AttemptService
	statisticsService StatisticsService
	reportService     ReportService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(repo repositories.Repository, publisher events.EventPublisher, cacheManager *cache.CacheManager, logger *slog.Logger, validator *validator.Validator, config ServiceManagerConfig) ServiceManager {
	if cacheManager == nil {
		cacheManager = cache.NewCacheManager(nil)
	}
	return &serviceManager{
		repo:      repo,
		publisher: publisher,
		cache:     cacheManager,
		logger:    logger,
		validator: validator,
		config:    config,
	}
}

// NewDefaultServiceManager creates a service manager with default configuration
func NewDefaultServiceManager(repo repositories.Repository, publisher events.EventPublisher, cacheManager *cache.CacheManager, logger *slog.Logger, validator *validator.Validator) ServiceManager {
	return NewServiceManager(repo, publisher, cacheManager, logger, validator, DefaultServiceManagerConfig())
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	if err := sm.config.Validate(); err != nil {
		return err
	}

	sm.examService = NewExamService(sm.repo, sm.cache, sm.logger, sm.validator, sm.config.ExamCacheTTL, sm.config.Attempt.Now)
	sm.logger.Info("Exam service initialized")

	sm.attemptService = NewAttemptService(sm.repo, sm.publisher, sm.cache, sm.logger, sm.validator, sm.config.Attempt)
	sm.logger.Info("Attempt service initialized")

	sm.statisticsService = NewStatisticsService(sm.repo, sm.cache, sm.logger, sm.config.Attempt.PassThreshold, sm.config.StatsCacheTTL)
	sm.logger.Info("Statistics service initialized")

	sm.reportService = NewReportService(sm.statisticsService, sm.logger)
	sm.logger.Info("Report service initialized")

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully",
		"cache_enabled", sm.cache.Enabled(),
		"late_submission_grace", sm.config.Attempt.LateSubmissionGrace)

	return nil
}

// Service getters
func (sm *serviceManager) Exam() ExamService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.examService
}

func (sm *serviceManager) Attempt() AttemptService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.attemptService
}

func (sm *serviceManager) Statistics() StatisticsService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.statisticsService
}

func (sm *serviceManager) Report() ReportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.reportService
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	ctx, cancel := context.WithTimeout(ctx, sm.config.DefaultTimeout)
	defer cancel()

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	// Cache is optional; a failing cache degrades to direct reads
	if sm.cache.Enabled() {
		if err := sm.cache.HealthCheck(ctx); err != nil {
			sm.logger.Warn("Cache health check failed", "error", err)
		}
	}

	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if sm.publisher != nil {
		if err := sm.publisher.Close(); err != nil {
			sm.logger.Error("Failed to close event publisher", "error", err)
		}
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return nil
}

// Validate checks the service manager configuration
func (c *ServiceManagerConfig) Validate() error {
	var errs []string

	if c.DefaultTimeout <= 0 {
		errs = append(errs, "default timeout must be positive")
	}
	if c.Attempt.LateSubmissionGrace < 0 {
		errs = append(errs, "late submission grace cannot be negative")
	}
	if c.Attempt.PassThreshold < 0 || c.Attempt.PassThreshold > 100 {
		errs = append(errs, "pass threshold must be between 0 and 100")
	}
	if c.ExamCacheTTL < 0 || c.StatsCacheTTL < 0 {
		errs = append(errs, "cache TTL cannot be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}
	return nil
}
