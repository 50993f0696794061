package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	authrepo "algotrack/internal/auth/repository"
	"algotrack/internal/common/db"
	"algotrack/internal/common/mq"
	"algotrack/internal/common/storage"
	"algotrack/internal/problem/model"
	"algotrack/internal/profile/repository"
	pkgerrors "algotrack/pkg/errors"
)

type fakeProfileRepo struct {
	profiles map[int64]*repository.UserProfile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[int64]*repository.UserProfile)}
}

func (f *fakeProfileRepo) GetByUserID(_ context.Context, _ db.Transaction, userID int64) (*repository.UserProfile, error) {
	profile, ok := f.profiles[userID]
	if !ok {
		return nil, repository.ErrProfileNotFound
	}
	clone := *profile
	return &clone, nil
}

func (f *fakeProfileRepo) Merge(_ context.Context, _ db.Transaction, profile *repository.UserProfile) error {
	if _, ok := f.profiles[profile.UserID]; ok {
		return nil
	}
	clone := *profile
	f.profiles[profile.UserID] = &clone
	return nil
}

func (f *fakeProfileRepo) Update(_ context.Context, _ db.Transaction, profile *repository.UserProfile) error {
	stored, ok := f.profiles[profile.UserID]
	if !ok {
		return repository.ErrProfileNotFound
	}
	stored.Name = profile.Name
	stored.Username = profile.Username
	stored.Location = profile.Location
	stored.Bio = profile.Bio
	stored.Notifications = profile.Notifications
	stored.PublicProfile = profile.PublicProfile
	stored.ShowProgress = profile.ShowProgress
	return nil
}

func (f *fakeProfileRepo) UpdateAggregates(_ context.Context, _ db.Transaction, userID int64, total, solved, currentStreak, maxStreak int) error {
	stored, ok := f.profiles[userID]
	if !ok {
		return repository.ErrProfileNotFound
	}
	stored.TotalProblems = total
	stored.SolvedProblems = solved
	stored.CurrentStreak = currentStreak
	stored.MaxStreak = maxStreak
	return nil
}

func (f *fakeProfileRepo) SetPhotoURL(_ context.Context, _ db.Transaction, userID int64, photoURL string) error {
	stored, ok := f.profiles[userID]
	if !ok {
		return repository.ErrProfileNotFound
	}
	stored.PhotoURL = photoURL
	return nil
}

type fakeUserRepo struct {
	users map[int64]*authrepo.User
}

func (f *fakeUserRepo) Create(_ context.Context, _ db.Transaction, _ *authrepo.User) (int64, error) {
	return 0, nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, _ db.Transaction, id int64) (*authrepo.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, authrepo.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, _ db.Transaction, _ string) (*authrepo.User, error) {
	return nil, authrepo.ErrUserNotFound
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, _ db.Transaction, _ int64, _ string) error {
	return nil
}

type fakeRecordRepo struct {
	records []model.Problem
}

func (f *fakeRecordRepo) Create(_ context.Context, _ db.Transaction, _ *model.Problem) (int64, error) {
	return 0, nil
}

func (f *fakeRecordRepo) GetByID(_ context.Context, _ db.Transaction, _ int64) (*model.Problem, error) {
	return nil, nil
}

func (f *fakeRecordRepo) ListByUser(_ context.Context, _ db.Transaction, userID int64) ([]model.Problem, error) {
	var out []model.Problem
	for _, record := range f.records {
		if record.UserID == userID {
			out = append(out, record)
		}
	}
	return out, nil
}

func (f *fakeRecordRepo) Update(_ context.Context, _ db.Transaction, _ *model.Problem) error {
	return nil
}

func (f *fakeRecordRepo) Delete(_ context.Context, _ db.Transaction, _ int64) error {
	return nil
}

type storedObject struct {
	bucket      string
	contentType string
	data        []byte
}

type fakeStorage struct {
	objects map[string]storedObject
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string]storedObject)}
}

func (f *fakeStorage) PutObject(_ context.Context, bucket, objectKey string, reader io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.objects[objectKey] = storedObject{bucket: bucket, contentType: contentType, data: data}
	return nil
}

func (f *fakeStorage) GetObject(_ context.Context, _, _ string) (storage.ObjectReader, error) {
	return nil, io.EOF
}

func (f *fakeStorage) StatObject(_ context.Context, _, objectKey string) (storage.ObjectStat, error) {
	obj := f.objects[objectKey]
	return storage.ObjectStat{SizeBytes: int64(len(obj.data)), ContentType: obj.contentType}, nil
}

func (f *fakeStorage) PresignGet(_ context.Context, bucket, objectKey string, _ time.Duration) (string, error) {
	return "https://storage.local/" + bucket + "/" + objectKey, nil
}

func (f *fakeStorage) RemoveObject(_ context.Context, _, objectKey string) error {
	delete(f.objects, objectKey)
	return nil
}

func at(day int, status model.Status) model.Problem {
	return model.Problem{
		UserID:    1,
		Title:     "p",
		Status:    status,
		CreatedAt: time.Date(2026, time.March, day, 12, 0, 0, 0, time.Local),
	}
}

func newTestProfileService(records *fakeRecordRepo) (*ProfileService, *fakeProfileRepo) {
	profiles := newFakeProfileRepo()
	users := &fakeUserRepo{users: map[int64]*authrepo.User{
		1: {ID: 1, Username: "alice", Email: "alice@example.com"},
	}}
	svc := NewProfileService(profiles, users, records, newFakeStorage(), ProfileServiceConfig{})
	svc.now = func() time.Time {
		return time.Date(2026, time.March, 11, 10, 0, 0, 0, time.Local)
	}
	return svc, profiles
}

func TestGetProfileCreatesDefaults(t *testing.T) {
	svc, profiles := newTestProfileService(&fakeRecordRepo{})

	profile, err := svc.GetProfile(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if profile.Username != "alice" || profile.Email != "alice@example.com" {
		t.Fatalf("unexpected identity fields: %+v", profile)
	}
	if profile.Name != "alice" {
		t.Fatalf("name should default to username, got %q", profile.Name)
	}
	if !profile.Notifications || !profile.PublicProfile || !profile.ShowProgress {
		t.Fatalf("preference defaults should be true: %+v", profile)
	}
	if profile.JoinDate.IsZero() {
		t.Fatal("join date should be set")
	}
	if len(profiles.profiles) != 1 {
		t.Fatalf("expected one stored profile, got %d", len(profiles.profiles))
	}
}

func TestGetProfileUnknownUser(t *testing.T) {
	svc, _ := newTestProfileService(&fakeRecordRepo{})

	_, err := svc.GetProfile(context.Background(), 42)
	if pkgerrors.GetCode(err) != pkgerrors.UserNotFound {
		t.Fatalf("expected UserNotFound, got %v", err)
	}
}

func TestUpdateProfilePartial(t *testing.T) {
	svc, _ := newTestProfileService(&fakeRecordRepo{})

	bio := "grinding graphs"
	notifications := false
	profile, err := svc.UpdateProfile(context.Background(), 1, UpdateInput{
		Bio:           &bio,
		Notifications: &notifications,
	})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if profile.Bio != "grinding graphs" {
		t.Fatalf("bio not applied: %q", profile.Bio)
	}
	if profile.Notifications {
		t.Fatal("notifications should be off")
	}
	if profile.Username != "alice" {
		t.Fatalf("untouched field changed: %q", profile.Username)
	}
}

func TestUpdateProfileValidation(t *testing.T) {
	svc, _ := newTestProfileService(&fakeRecordRepo{})

	empty := "  "
	if _, err := svc.UpdateProfile(context.Background(), 1, UpdateInput{Username: &empty}); pkgerrors.GetCode(err) != pkgerrors.InvalidParams {
		t.Fatalf("empty username should be rejected, got %v", err)
	}
	long := strings.Repeat("x", maxBioLen+1)
	if _, err := svc.UpdateProfile(context.Background(), 1, UpdateInput{Bio: &long}); pkgerrors.GetCode(err) != pkgerrors.InvalidParams {
		t.Fatalf("overlong bio should be rejected, got %v", err)
	}
}

var pngHeader = []byte("\x89PNG\r\n\x1a\nrest-of-image")

func TestUploadAvatarPNG(t *testing.T) {
	svc, profiles := newTestProfileService(&fakeRecordRepo{})

	url, err := svc.UploadAvatar(context.Background(), 1, bytes.NewReader(pngHeader), int64(len(pngHeader)))
	if err != nil {
		t.Fatalf("UploadAvatar: %v", err)
	}
	if !strings.HasPrefix(url, "https://storage.local/") {
		t.Fatalf("expected presigned url, got %q", url)
	}
	stored := profiles.profiles[1]
	if stored.PhotoURL == "" || strings.HasPrefix(stored.PhotoURL, "http") {
		t.Fatalf("profile should store the object key, got %q", stored.PhotoURL)
	}
	if !strings.HasPrefix(stored.PhotoURL, "avatars/1/") {
		t.Fatalf("unexpected object key %q", stored.PhotoURL)
	}
}

func TestUploadAvatarRejectsFormatAndSize(t *testing.T) {
	svc, _ := newTestProfileService(&fakeRecordRepo{})

	gif := []byte("GIF89a...")
	if _, err := svc.UploadAvatar(context.Background(), 1, bytes.NewReader(gif), int64(len(gif))); pkgerrors.GetCode(err) != pkgerrors.AvatarInvalidFormat {
		t.Fatalf("gif should be rejected, got %v", err)
	}

	if _, err := svc.UploadAvatar(context.Background(), 1, bytes.NewReader(pngHeader), defaultMaxAvatarBytes+1); pkgerrors.GetCode(err) != pkgerrors.AvatarTooLarge {
		t.Fatalf("oversized upload should be rejected, got %v", err)
	}
}

func TestDashboardRecomputesAggregates(t *testing.T) {
	records := &fakeRecordRepo{records: []model.Problem{
		at(10, model.StatusSolved),
		at(11, model.StatusSolved),
		at(5, model.StatusAttempted),
		at(4, model.StatusUnsolved),
	}}
	svc, _ := newTestProfileService(records)

	dashboard, err := svc.GetDashboard(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetDashboard: %v", err)
	}
	profile := dashboard.Profile
	if profile.TotalProblems != 4 || profile.SolvedProblems != 2 {
		t.Fatalf("unexpected counts: total=%d solved=%d", profile.TotalProblems, profile.SolvedProblems)
	}
	if profile.CurrentStreak != 2 || profile.MaxStreak != 2 {
		t.Fatalf("unexpected streaks: current=%d max=%d", profile.CurrentStreak, profile.MaxStreak)
	}
	if len(dashboard.RecentProblems) != 4 {
		t.Fatalf("expected 4 recent records, got %d", len(dashboard.RecentProblems))
	}
	if len(dashboard.Heatmap) != dashboardWindowDays {
		t.Fatalf("expected %d heatmap cells, got %d", dashboardWindowDays, len(dashboard.Heatmap))
	}
}

func TestDashboardRecentCapped(t *testing.T) {
	records := &fakeRecordRepo{}
	for day := 1; day <= 10; day++ {
		records.records = append(records.records, at(day, model.StatusSolved))
	}
	svc, _ := newTestProfileService(records)

	dashboard, err := svc.GetDashboard(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetDashboard: %v", err)
	}
	if len(dashboard.RecentProblems) != dashboardRecentCount {
		t.Fatalf("expected %d recent records, got %d", dashboardRecentCount, len(dashboard.RecentProblems))
	}
}

func TestRecomputeConsumerUpdatesProfile(t *testing.T) {
	records := &fakeRecordRepo{records: []model.Problem{
		at(10, model.StatusSolved),
		at(11, model.StatusSolved),
	}}
	svc, profiles := newTestProfileService(records)
	consumer := NewRecomputeConsumer(nil, svc, nil, "", "")

	payload, err := json.Marshal(model.ProblemEvent{
		EventType: model.ProblemEventCreated,
		ProblemID: 5,
		UserID:    1,
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	message := mq.NewMessage(payload)
	if err := consumer.handleEvent(context.Background(), message); err != nil {
		t.Fatalf("handleEvent: %v", err)
	}

	stored := profiles.profiles[1]
	if stored == nil {
		t.Fatal("profile should have been created")
	}
	if stored.TotalProblems != 2 || stored.SolvedProblems != 2 || stored.CurrentStreak != 2 || stored.MaxStreak != 2 {
		t.Fatalf("aggregates not persisted: %+v", stored)
	}
}

func TestRecomputeConsumerDropsMalformed(t *testing.T) {
	svc, _ := newTestProfileService(&fakeRecordRepo{})
	consumer := NewRecomputeConsumer(nil, svc, nil, "", "")

	message := mq.NewMessage([]byte("not json"))
	if err := consumer.handleEvent(context.Background(), message); err != nil {
		t.Fatalf("malformed payload should not be retried, got %v", err)
	}
}
