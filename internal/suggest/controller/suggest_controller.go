package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"algotrack/internal/common/http/middleware"
	"algotrack/internal/suggest/service"
	pkgerrors "algotrack/pkg/errors"
	"algotrack/pkg/utils/response"
)

// SuggestController handles the similarity-suggestion endpoint.
type SuggestController struct {
	suggestService *service.SuggestService
}

// NewSuggestController creates a new SuggestController.
func NewSuggestController(suggestService *service.SuggestService) *SuggestController {
	return &SuggestController{suggestService: suggestService}
}

// Suggestions handles GET /suggestions?name=&link=&id=.
//
// The response shape deviates from the standard envelope on purpose:
// clients always receive a "similar" array, empty when the model output
// could not be parsed, plus an "error" message when the provider failed.
func (h *SuggestController) Suggestions(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	input := service.SuggestInput{
		Name: c.Query("name"),
		Link: c.Query("link"),
		ID:   c.Query("id"),
	}

	similar, err := h.suggestService.Suggest(c.Request.Context(), userID, input)
	if err != nil {
		appErr := pkgerrors.GetError(err)
		if appErr.Code == pkgerrors.SuggestionTitleRequired {
			response.Error(c, appErr)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"similar": []service.SuggestionRecord{},
			"error":   appErr.Message,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"similar": similar})
}
