package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	authrepo "algotrack/internal/auth/repository"
	"algotrack/internal/common/storage"
	"algotrack/internal/problem/model"
	problemrepo "algotrack/internal/problem/repository"
	"algotrack/internal/profile/repository"
	"algotrack/internal/stats/engine"
	statsservice "algotrack/internal/stats/service"
	pkgerrors "algotrack/pkg/errors"
	"algotrack/pkg/utils/logger"
)

const (
	defaultAvatarBucket   = "algotrack-avatars"
	defaultMaxAvatarBytes = 2 << 20 // 2 MiB
	defaultPresignTTL     = 15 * time.Minute

	dashboardRecentCount = 6
	dashboardWindowDays  = 365

	maxNameLen     = 100
	maxLocationLen = 100
	maxBioLen      = 500
)

// ProfileServiceConfig holds avatar storage settings.
type ProfileServiceConfig struct {
	AvatarBucket   string
	MaxAvatarBytes int64
	PresignTTL     time.Duration
}

func (c *ProfileServiceConfig) setDefaults() {
	if c.AvatarBucket == "" {
		c.AvatarBucket = defaultAvatarBucket
	}
	if c.MaxAvatarBytes <= 0 {
		c.MaxAvatarBytes = defaultMaxAvatarBytes
	}
	if c.PresignTTL <= 0 {
		c.PresignTTL = defaultPresignTTL
	}
}

// ProfileService manages user profiles. Profiles are created lazily on
// first read, seeded from the auth user record. The aggregate fields are
// derived data and are overwritten wholesale by recomputation.
type ProfileService struct {
	profiles repository.ProfileRepository
	users    authrepo.UserRepository
	problems problemrepo.ProblemRepository
	storage  storage.ObjectStorage
	config   ProfileServiceConfig
	now      func() time.Time
}

func NewProfileService(
	profiles repository.ProfileRepository,
	users authrepo.UserRepository,
	problems problemrepo.ProblemRepository,
	objectStorage storage.ObjectStorage,
	config ProfileServiceConfig,
) *ProfileService {
	config.setDefaults()
	return &ProfileService{
		profiles: profiles,
		users:    users,
		problems: problems,
		storage:  objectStorage,
		config:   config,
		now:      time.Now,
	}
}

// UpdateInput carries the editable profile fields. Nil means "leave as is".
// Aggregate fields are never accepted from the client.
type UpdateInput struct {
	Name          *string
	Username      *string
	Location      *string
	Bio           *string
	Notifications *bool
	PublicProfile *bool
	ShowProgress  *bool
}

// Dashboard bundles everything the landing page renders in one response.
type Dashboard struct {
	Profile        *repository.UserProfile `json:"profile"`
	RecentProblems []model.Problem         `json:"recent_problems"`
	Heatmap        []engine.HeatmapCell    `json:"heatmap"`
}

// GetProfile returns the user's profile, creating it with defaults on
// first access.
func (s *ProfileService) GetProfile(ctx context.Context, userID int64) (*repository.UserProfile, error) {
	profile, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.resolvePhotoURL(ctx, profile)
	return profile, nil
}

// UpdateProfile applies the provided fields and returns the updated profile.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID int64, input UpdateInput) (*repository.UserProfile, error) {
	profile, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if len(name) > maxNameLen {
			return nil, pkgerrors.New(pkgerrors.InvalidParams).WithMessage("name is too long")
		}
		profile.Name = name
	}
	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if username == "" {
			return nil, pkgerrors.New(pkgerrors.InvalidParams).WithMessage("username cannot be empty")
		}
		profile.Username = username
	}
	if input.Location != nil {
		location := strings.TrimSpace(*input.Location)
		if len(location) > maxLocationLen {
			return nil, pkgerrors.New(pkgerrors.InvalidParams).WithMessage("location is too long")
		}
		profile.Location = location
	}
	if input.Bio != nil {
		bio := strings.TrimSpace(*input.Bio)
		if len(bio) > maxBioLen {
			return nil, pkgerrors.New(pkgerrors.InvalidParams).WithMessage("bio is too long")
		}
		profile.Bio = bio
	}
	if input.Notifications != nil {
		profile.Notifications = *input.Notifications
	}
	if input.PublicProfile != nil {
		profile.PublicProfile = *input.PublicProfile
	}
	if input.ShowProgress != nil {
		profile.ShowProgress = *input.ShowProgress
	}

	if err := s.profiles.Update(ctx, nil, profile); err != nil {
		return nil, pkgerrors.Wrapf(err, pkgerrors.ProfileUpdateFailed, "failed to update profile")
	}
	profile.UpdatedAt = s.now()
	s.resolvePhotoURL(ctx, profile)
	return profile, nil
}

// UploadAvatar validates and stores a new avatar image, then points the
// profile at it. Returns a presigned URL for the uploaded image.
func (s *ProfileService) UploadAvatar(ctx context.Context, userID int64, reader io.Reader, sizeBytes int64) (string, error) {
	if s.storage == nil {
		return "", pkgerrors.New(pkgerrors.ServiceUnavailable).WithMessage("avatar storage is not configured")
	}
	if sizeBytes <= 0 {
		return "", pkgerrors.New(pkgerrors.InvalidParams).WithMessage("avatar file is empty")
	}
	if sizeBytes > s.config.MaxAvatarBytes {
		return "", pkgerrors.Newf(pkgerrors.AvatarTooLarge,
			"avatar exceeds the %d byte limit", s.config.MaxAvatarBytes)
	}

	// Sniff the magic bytes rather than trusting the client content type.
	header := make([]byte, sniffLen)
	n, err := io.ReadFull(reader, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", pkgerrors.Wrapf(err, pkgerrors.AvatarUploadFailed, "failed to read avatar data")
	}
	header = header[:n]

	contentType, ext, ok := detectImageFormat(header)
	if !ok {
		return "", pkgerrors.New(pkgerrors.AvatarInvalidFormat).WithMessage("avatar must be a PNG or JPEG image")
	}

	if _, err := s.getOrCreate(ctx, userID); err != nil {
		return "", err
	}

	objectKey := fmt.Sprintf("avatars/%d/%s%s", userID, uuid.NewString(), ext)
	body := io.MultiReader(bytes.NewReader(header), reader)
	if err := s.storage.PutObject(ctx, s.config.AvatarBucket, objectKey, body, sizeBytes, contentType); err != nil {
		return "", pkgerrors.Wrapf(err, pkgerrors.AvatarUploadFailed, "failed to store avatar")
	}

	if err := s.profiles.SetPhotoURL(ctx, nil, userID, objectKey); err != nil {
		return "", pkgerrors.Wrapf(err, pkgerrors.ProfileUpdateFailed, "failed to link avatar to profile")
	}

	url, err := s.storage.PresignGet(ctx, s.config.AvatarBucket, objectKey, s.config.PresignTTL)
	if err != nil {
		logger.Warn(ctx, "failed to presign avatar url",
			zap.Int64("user_id", userID),
			zap.String("object_key", objectKey),
			zap.Error(err))
		return objectKey, nil
	}
	return url, nil
}

// GetDashboard assembles the profile, the most recent records, and the
// contribution heatmap. Aggregates are recomputed from the live record
// list so the dashboard never shows stale counters.
func (s *ProfileService) GetDashboard(ctx context.Context, userID int64) (*Dashboard, error) {
	profile, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	records, err := s.problems.ListByUser(ctx, nil, userID)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, pkgerrors.DashboardLoadFailed, "failed to load records")
	}

	now := s.now()
	total, solved, currentStreak, maxStreak := statsservice.ComputeAggregates(records, now)
	profile.TotalProblems = total
	profile.SolvedProblems = solved
	profile.CurrentStreak = currentStreak
	profile.MaxStreak = maxStreak
	s.resolvePhotoURL(ctx, profile)

	recent := records
	if len(recent) > dashboardRecentCount {
		recent = recent[:dashboardRecentCount]
	}
	recentCopy := make([]model.Problem, len(recent))
	copy(recentCopy, recent)

	return &Dashboard{
		Profile:        profile,
		RecentProblems: recentCopy,
		Heatmap:        engine.BuildHeatmap(records, now, dashboardWindowDays),
	}, nil
}

// RecomputeAggregates rebuilds the four aggregate fields from the record
// list and persists them. Called by the event consumer after every record
// mutation, so the single consumer per partition is the only writer.
func (s *ProfileService) RecomputeAggregates(ctx context.Context, userID int64) error {
	if _, err := s.getOrCreate(ctx, userID); err != nil {
		return err
	}

	records, err := s.problems.ListByUser(ctx, nil, userID)
	if err != nil {
		return pkgerrors.Wrapf(err, pkgerrors.RecomputeFailed, "failed to load records")
	}

	total, solved, currentStreak, maxStreak := statsservice.ComputeAggregates(records, s.now())
	if err := s.profiles.UpdateAggregates(ctx, nil, userID, total, solved, currentStreak, maxStreak); err != nil {
		return pkgerrors.Wrapf(err, pkgerrors.RecomputeFailed, "failed to persist aggregates")
	}
	return nil
}

func (s *ProfileService) getOrCreate(ctx context.Context, userID int64) (*repository.UserProfile, error) {
	profile, err := s.profiles.GetByUserID(ctx, nil, userID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, repository.ErrProfileNotFound) {
		return nil, pkgerrors.Wrapf(err, pkgerrors.DatabaseError, "failed to load profile")
	}

	user, err := s.users.GetByID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, authrepo.ErrUserNotFound) {
			return nil, pkgerrors.New(pkgerrors.UserNotFound).WithMessage("user not found")
		}
		return nil, pkgerrors.Wrapf(err, pkgerrors.DatabaseError, "failed to load user")
	}

	seed := &repository.UserProfile{
		UserID:        userID,
		Name:          user.Username,
		Username:      user.Username,
		Email:         user.Email,
		JoinDate:      s.now(),
		Notifications: true,
		PublicProfile: true,
		ShowProgress:  true,
	}
	if err := s.profiles.Merge(ctx, nil, seed); err != nil {
		return nil, pkgerrors.Wrapf(err, pkgerrors.ProfileCreateFailed, "failed to create profile")
	}

	// Re-read rather than returning the seed: a concurrent creator may
	// have won the merge.
	profile, err = s.profiles.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, pkgerrors.DatabaseError, "failed to load profile")
	}
	return profile, nil
}

// resolvePhotoURL swaps a stored object key for a presigned download URL.
// Absolute URLs (external avatars) pass through unchanged.
func (s *ProfileService) resolvePhotoURL(ctx context.Context, profile *repository.UserProfile) {
	if profile.PhotoURL == "" || s.storage == nil {
		return
	}
	if strings.HasPrefix(profile.PhotoURL, "http://") || strings.HasPrefix(profile.PhotoURL, "https://") {
		return
	}
	url, err := s.storage.PresignGet(ctx, s.config.AvatarBucket, profile.PhotoURL, s.config.PresignTTL)
	if err != nil {
		logger.Warn(ctx, "failed to presign avatar url",
			zap.Int64("user_id", profile.UserID),
			zap.Error(err))
		return
	}
	profile.PhotoURL = url
}

const sniffLen = 512

// detectImageFormat checks magic bytes for the two accepted formats.
func detectImageFormat(header []byte) (contentType, ext string, ok bool) {
	switch {
	case bytes.HasPrefix(header, []byte("\x89PNG\r\n\x1a\n")):
		return "image/png", ".png", true
	case bytes.HasPrefix(header, []byte("\xff\xd8\xff")):
		return "image/jpeg", ".jpg", true
	default:
		return "", "", false
	}
}
