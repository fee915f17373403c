package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/SAP-F-2025/exam-attempt-service/internal/services"
	"github.com/SAP-F-2025/exam-attempt-service/internal/utils"
)

type HandlerManager struct {
	examHandler       *ExamHandler
	attemptHandler    *AttemptHandler
	statisticsHandler *StatisticsHandler
	auth              Authenticator
	health            func(ctx context.Context) error
	logger            utils.Logger
}

func NewHandlerManager(serviceManager services.ServiceManager, logger utils.Logger, auth Authenticator) *HandlerManager {
	return &HandlerManager{
		examHandler:       NewExamHandler(serviceManager.Exam(), logger),
		attemptHandler:    NewAttemptHandler(serviceManager.Attempt(), logger),
		statisticsHandler: NewStatisticsHandler(serviceManager.Statistics(), serviceManager.Report(), logger),
		auth:              auth,
		health:            serviceManager.HealthCheck,
		logger:            logger,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	educators := RequireRoleMiddleware(models.RoleEducator, models.RoleAdmin)
	students := RequireRoleMiddleware(models.RoleStudent)
	admins := RequireRoleMiddleware(models.RoleAdmin)

	v1 := router.Group("/api/v1")
	v1.Use(hm.auth.AuthMiddleware())
	{
		exams := v1.Group("/exams")
		{
			exams.GET("/available", students, hm.examHandler.ListAvailableExams)
			exams.GET("/mine", educators, hm.examHandler.ListMyExams)
			exams.GET("/:id", hm.examHandler.GetExam)
			exams.GET("/:id/details", educators, hm.examHandler.GetExamDetails)
		}

		attempts := v1.Group("/attempts")
		attempts.Use(students)
		{
			attempts.POST("/start", hm.attemptHandler.StartAttempt)
			attempts.GET("/mine", hm.attemptHandler.ListMyResults)
			attempts.PUT("/:id/progress", hm.attemptHandler.SaveProgress)
			attempts.GET("/:id/progress", hm.attemptHandler.GetProgress)
			attempts.POST("/:id/submit", hm.attemptHandler.SubmitAttempt)
		}

		// Statistics routes - Admins only
		statistics := v1.Group("/statistics")
		statistics.Use(admins)
		{
			statistics.GET("/overview", hm.statisticsHandler.GetOverview)
			statistics.GET("/completion", hm.statisticsHandler.GetExamCompletion)
			statistics.GET("/universities", hm.statisticsHandler.GetUniversityRanking)
			statistics.GET("/educators", hm.statisticsHandler.GetEducatorPerformance)
			statistics.GET("/export", hm.statisticsHandler.ExportStatistics)
		}
	}

	router.GET("/health", hm.healthCheck)
}

func (hm *HandlerManager) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := hm.health(ctx); err != nil {
		utils.GetLogger(c, hm.logger).Warn("Health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": "exam-attempt-service",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "exam-attempt-service",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
