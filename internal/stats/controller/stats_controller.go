package controller

import (
	"strconv"

	"algotrack/internal/common/http/middleware"
	"algotrack/internal/stats/service"
	"algotrack/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// StatsController handles derived-statistics HTTP endpoints.
type StatsController struct {
	statsService *service.StatsService
}

// NewStatsController creates a new StatsController.
func NewStatsController(statsService *service.StatsService) *StatsController {
	return &StatsController{statsService: statsService}
}

// Summary handles GET /stats/summary.
func (h *StatsController) Summary(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	summary, err := h.statsService.GetSummary(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, summary)
}

// Heatmap handles GET /stats/heatmap?days=365.
func (h *StatsController) Heatmap(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	days, err := strconv.Atoi(c.DefaultQuery("days", "365"))
	if err != nil {
		response.BadRequest(c, "Invalid days parameter")
		return
	}

	cells, err := h.statsService.GetHeatmap(c.Request.Context(), userID, days)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, cells)
}

// Groups handles GET /stats/groups?by=topic&sort=count.
func (h *StatsController) Groups(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	dimension := c.DefaultQuery("by", "topic")
	sortByCount := c.Query("sort") == "count"

	groups, err := h.statsService.GetGroups(c.Request.Context(), userID, dimension, sortByCount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, groups)
}

// Activity handles GET /stats/activity?bucket=day|week|month&n=7.
func (h *StatsController) Activity(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	n, err := strconv.Atoi(c.DefaultQuery("n", "0"))
	if err != nil {
		response.BadRequest(c, "Invalid n parameter")
		return
	}

	result, err := h.statsService.GetActivity(c.Request.Context(), userID, c.Query("bucket"), n)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
