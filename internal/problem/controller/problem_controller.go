package controller

import (
	"strconv"

	"algotrack/internal/common/http/middleware"
	"algotrack/internal/problem/service"
	"algotrack/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// ProblemController handles problem-record HTTP endpoints.
type ProblemController struct {
	problemService *service.ProblemService
}

// NewProblemController creates a new ProblemController.
func NewProblemController(problemService *service.ProblemService) *ProblemController {
	return &ProblemController{problemService: problemService}
}

// CreateRequest defines the create payload.
type CreateRequest struct {
	Title      string `json:"title" binding:"required"`
	Link       string `json:"link"`
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
	Status     string `json:"status"`
}

// UpdateRequest defines the partial-update payload.
type UpdateRequest struct {
	Title      *string `json:"title"`
	Link       *string `json:"link"`
	Topic      *string `json:"topic"`
	Difficulty *string `json:"difficulty"`
	Status     *string `json:"status"`
}

// Create handles POST /problems.
func (h *ProblemController) Create(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	problem, err := h.problemService.CreateProblem(c.Request.Context(), userID, service.CreateInput{
		Title:      req.Title,
		Link:       req.Link,
		Topic:      req.Topic,
		Difficulty: req.Difficulty,
		Status:     req.Status,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, problem)
}

// Get handles GET /problems/:id.
func (h *ProblemController) Get(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	problemID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || problemID <= 0 {
		response.BadRequest(c, "Invalid problem id")
		return
	}

	problem, err := h.problemService.GetProblem(c.Request.Context(), userID, problemID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, problem)
}

// List handles GET /problems.
func (h *ProblemController) List(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	result, err := h.problemService.ListProblems(c.Request.Context(), userID, service.ListInput{
		Search:     c.Query("search"),
		Topic:      c.Query("topic"),
		Difficulty: c.Query("difficulty"),
		Status:     c.Query("status"),
		SortBy:     c.Query("sort_by"),
		Order:      c.Query("order"),
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Update handles PUT /problems/:id.
func (h *ProblemController) Update(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	problemID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || problemID <= 0 {
		response.BadRequest(c, "Invalid problem id")
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	problem, err := h.problemService.UpdateProblem(c.Request.Context(), userID, problemID, service.UpdateInput{
		Title:      req.Title,
		Link:       req.Link,
		Topic:      req.Topic,
		Difficulty: req.Difficulty,
		Status:     req.Status,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, problem)
}

// Delete handles DELETE /problems/:id.
func (h *ProblemController) Delete(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	problemID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || problemID <= 0 {
		response.BadRequest(c, "Invalid problem id")
		return
	}

	if err := h.problemService.DeleteProblem(c.Request.Context(), userID, problemID); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "Problem deleted", nil)
}

// Export handles GET /problems/export, streaming a zstd-compressed JSON
// dump of the caller's records.
func (h *ProblemController) Export(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	data, err := h.problemService.ExportProblems(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="problems.json.zst"`)
	c.Data(200, "application/zstd", data)
}
