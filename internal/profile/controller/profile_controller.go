package controller

import (
	"algotrack/internal/common/http/middleware"
	"algotrack/internal/profile/service"
	pkgerrors "algotrack/pkg/errors"
	"algotrack/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// ProfileController handles profile and dashboard HTTP endpoints.
type ProfileController struct {
	profileService *service.ProfileService
}

// NewProfileController creates a new ProfileController.
func NewProfileController(profileService *service.ProfileService) *ProfileController {
	return &ProfileController{profileService: profileService}
}

// UpdateRequest defines the editable profile fields. Aggregate fields
// submitted by clients are ignored.
type UpdateRequest struct {
	Name          *string `json:"name"`
	Username      *string `json:"username"`
	Location      *string `json:"location"`
	Bio           *string `json:"bio"`
	Notifications *bool   `json:"notifications"`
	PublicProfile *bool   `json:"public_profile"`
	ShowProgress  *bool   `json:"show_progress"`
}

// Get handles GET /profile.
func (h *ProfileController) Get(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	profile, err := h.profileService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, profile)
}

// Update handles PUT /profile.
func (h *ProfileController) Update(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	profile, err := h.profileService.UpdateProfile(c.Request.Context(), userID, service.UpdateInput{
		Name:          req.Name,
		Username:      req.Username,
		Location:      req.Location,
		Bio:           req.Bio,
		Notifications: req.Notifications,
		PublicProfile: req.PublicProfile,
		ShowProgress:  req.ShowProgress,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, profile)
}

// UploadAvatar handles POST /profile/avatar. Expects a multipart form
// with the image under the "avatar" field.
func (h *ProfileController) UploadAvatar(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		response.BadRequest(c, "avatar file is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, pkgerrors.Wrapf(err, pkgerrors.AvatarUploadFailed, "failed to open uploaded file"))
		return
	}
	defer file.Close()

	url, err := h.profileService.UploadAvatar(c.Request.Context(), userID, file, fileHeader.Size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"photo_url": url})
}

// Dashboard handles GET /dashboard.
func (h *ProfileController) Dashboard(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	dashboard, err := h.profileService.GetDashboard(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dashboard)
}
