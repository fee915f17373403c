package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/SAP-F-2025/exam-attempt-service/internal/services"
	"github.com/SAP-F-2025/exam-attempt-service/internal/utils"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type StatisticsHandler struct {
	BaseHandler
	statisticsService services.StatisticsService
	reportService     services.ReportService
}

func NewStatisticsHandler(statisticsService services.StatisticsService, reportService services.ReportService, logger utils.Logger) *StatisticsHandler {
	return &StatisticsHandler{
		BaseHandler:       NewBaseHandler(logger),
		statisticsService: statisticsService,
		reportService:     reportService,
	}
}

// GetOverview returns platform-wide totals
// @Summary Statistics overview
// @Tags statistics
// @Produce json
// @Success 200 {object} services.OverviewResponse
// @Router /statistics/overview [get]
func (h *StatisticsHandler) GetOverview(c *gin.Context) {
	h.LogRequest(c, "Getting statistics overview")

	overview, err := h.statisticsService.GetOverview(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, overview)
}

// GetExamCompletion returns started and completed counts per exam
// @Summary Exam completion funnel
// @Tags statistics
// @Produce json
// @Success 200 {object} SuccessResponse{data=[]models.ExamCompletionStat}
// @Router /statistics/completion [get]
func (h *StatisticsHandler) GetExamCompletion(c *gin.Context) {
	stats, err := h.statisticsService.GetExamCompletionStats(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: stats})
}

// GetUniversityRanking returns pass and fail counts per university
// @Summary University ranking
// @Tags statistics
// @Produce json
// @Success 200 {object} SuccessResponse{data=[]models.UniversityStat}
// @Router /statistics/universities [get]
func (h *StatisticsHandler) GetUniversityRanking(c *gin.Context) {
	stats, err := h.statisticsService.GetUniversityRanking(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: stats})
}

// GetEducatorPerformance returns per-educator pass and fail counts by university
// @Summary Educator performance
// @Tags statistics
// @Produce json
// @Success 200 {object} SuccessResponse{data=[]models.EducatorPerformance}
// @Router /statistics/educators [get]
func (h *StatisticsHandler) GetEducatorPerformance(c *gin.Context) {
	stats, err := h.statisticsService.GetEducatorPerformance(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: stats})
}

// ExportStatistics downloads every statistic as an xlsx workbook
// @Summary Export statistics
// @Tags statistics
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} file
// @Router /statistics/export [get]
func (h *StatisticsHandler) ExportStatistics(c *gin.Context) {
	h.LogRequest(c, "Exporting statistics")

	data, err := h.reportService.ExportStatistics(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("exam-statistics-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}
