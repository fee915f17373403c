package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/exam-attempt-service/internal/services"
	"github.com/SAP-F-2025/exam-attempt-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type ExamHandler struct {
	BaseHandler
	examService services.ExamService
}

func NewExamHandler(examService services.ExamService, logger utils.Logger) *ExamHandler {
	return &ExamHandler{
		BaseHandler: NewBaseHandler(logger),
		examService: examService,
	}
}

// ListAvailableExams lists published exams open now at the student's university
// @Summary List available exams
// @Tags exams
// @Produce json
// @Success 200 {object} SuccessResponse{data=[]models.Exam}
// @Router /exams/available [get]
func (h *ExamHandler) ListAvailableExams(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	exams, err := h.examService.ListAvailableExams(c.Request.Context(), user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: exams})
}

// GetExam returns one exam; the answer key is only shown to educators
// @Summary Get exam
// @Tags exams
// @Produce json
// @Param id path uint true "Exam ID"
// @Success 200 {object} models.Exam
// @Failure 404 {object} ErrorResponse
// @Router /exams/{id} [get]
func (h *ExamHandler) GetExam(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	exam, err := h.examService.GetExam(c.Request.Context(), id, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exam)
}

// GetExamDetails returns the exam with its submissions and answer key faults
// @Summary Get exam details
// @Tags exams
// @Produce json
// @Param id path uint true "Exam ID"
// @Success 200 {object} services.ExamDetailsResponse
// @Failure 404 {object} ErrorResponse
// @Router /exams/{id}/details [get]
func (h *ExamHandler) GetExamDetails(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Getting exam details", "exam_id", id)

	details, err := h.examService.GetExamDetails(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, details)
}

// ListMyExams lists the exams created by the calling educator
// @Summary List my exams
// @Tags exams
// @Produce json
// @Success 200 {object} SuccessResponse{data=[]models.Exam}
// @Router /exams/mine [get]
func (h *ExamHandler) ListMyExams(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	exams, err := h.examService.ListExamsByCreator(c.Request.Context(), user.ID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: exams})
}
