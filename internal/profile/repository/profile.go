package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"algotrack/internal/common/cache"
	"algotrack/internal/common/db"
)

var ErrProfileNotFound = errors.New("profile not found")

// UserProfile is one user's profile document. The four aggregate fields
// (TotalProblems, SolvedProblems, CurrentStreak, MaxStreak) are a cache of
// the record list and are always overwritable by recomputation.
type UserProfile struct {
	UserID         int64     `json:"user_id"`
	Name           string    `json:"name"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	Location       string    `json:"location"`
	Bio            string    `json:"bio"`
	PhotoURL       string    `json:"photo_url"`
	JoinDate       time.Time `json:"join_date"`
	TotalProblems  int       `json:"total_problems"`
	SolvedProblems int       `json:"solved_problems"`
	CurrentStreak  int       `json:"current_streak"`
	MaxStreak      int       `json:"max_streak"`
	Notifications  bool      `json:"notifications"`
	PublicProfile  bool      `json:"public_profile"`
	ShowProgress   bool      `json:"show_progress"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type ProfileRepository interface {
	GetByUserID(ctx context.Context, tx db.Transaction, userID int64) (*UserProfile, error)
	// Merge inserts the profile if absent; an existing row is left untouched.
	Merge(ctx context.Context, tx db.Transaction, profile *UserProfile) error
	Update(ctx context.Context, tx db.Transaction, profile *UserProfile) error
	UpdateAggregates(ctx context.Context, tx db.Transaction, userID int64, total, solved, currentStreak, maxStreak int) error
	SetPhotoURL(ctx context.Context, tx db.Transaction, userID int64, photoURL string) error
}

type MySQLProfileRepository struct {
	dbProvider db.Provider
	cache      cache.Cache
	ttl        time.Duration
	emptyTTL   time.Duration
}

func NewProfileRepository(provider db.Provider, cacheClient cache.Cache) ProfileRepository {
	return &MySQLProfileRepository{
		dbProvider: provider,
		cache:      cacheClient,
		ttl:        defaultProfileCacheTTL,
		emptyTTL:   defaultProfileCacheEmptyTTL,
	}
}

const (
	profileColumns = "user_id, name, username, email, location, bio, photo_url, join_date, " +
		"total_problems, solved_problems, current_streak, max_streak, " +
		"notifications, public_profile, show_progress, updated_at"

	profileKeyPrefix = "profile:info:"

	defaultProfileCacheTTL      = 10 * time.Minute
	defaultProfileCacheEmptyTTL = 1 * time.Minute
)

func (r *MySQLProfileRepository) GetByUserID(ctx context.Context, tx db.Transaction, userID int64) (*UserProfile, error) {
	if r.cache != nil && tx == nil {
		profile, err := cache.GetWithCached[*UserProfile](
			ctx,
			r.cache,
			profileKey(userID),
			cache.JitterTTL(r.ttl),
			cache.JitterTTL(r.emptyTTL),
			func(profile *UserProfile) bool { return profile == nil },
			marshalProfile,
			unmarshalProfile,
			func(ctx context.Context) (*UserProfile, error) {
				profile, err := r.getFromDB(ctx, nil, userID)
				if err != nil {
					if errors.Is(err, ErrProfileNotFound) {
						return nil, nil
					}
					return nil, err
				}
				return profile, nil
			},
		)
		if err != nil {
			return nil, err
		}
		if profile == nil {
			return nil, ErrProfileNotFound
		}
		return profile, nil
	}
	return r.getFromDB(ctx, tx, userID)
}

func (r *MySQLProfileRepository) Merge(ctx context.Context, tx db.Transaction, profile *UserProfile) error {
	if profile == nil {
		return errors.New("profile is nil")
	}

	query := `INSERT INTO user_profiles
		(user_id, name, username, email, location, bio, photo_url, join_date,
		 total_problems, solved_problems, current_streak, max_streak,
		 notifications, public_profile, show_progress)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE user_id = user_id`
	querier, err := db.GetProviderQuerier(r.dbProvider, tx)
	if err != nil {
		return err
	}
	_, err = querier.Exec(ctx, query,
		profile.UserID,
		profile.Name,
		profile.Username,
		profile.Email,
		profile.Location,
		profile.Bio,
		profile.PhotoURL,
		profile.JoinDate,
		profile.TotalProblems,
		profile.SolvedProblems,
		profile.CurrentStreak,
		profile.MaxStreak,
		profile.Notifications,
		profile.PublicProfile,
		profile.ShowProgress,
	)
	if err != nil {
		return err
	}
	r.deleteCache(ctx, profile.UserID)
	return nil
}

func (r *MySQLProfileRepository) Update(ctx context.Context, tx db.Transaction, profile *UserProfile) error {
	if profile == nil {
		return errors.New("profile is nil")
	}

	query := `UPDATE user_profiles SET
		name = ?, username = ?, location = ?, bio = ?,
		notifications = ?, public_profile = ?, show_progress = ?,
		updated_at = NOW()
		WHERE user_id = ?`
	querier, err := db.GetProviderQuerier(r.dbProvider, tx)
	if err != nil {
		return err
	}
	result, err := querier.Exec(ctx, query,
		profile.Name,
		profile.Username,
		profile.Location,
		profile.Bio,
		profile.Notifications,
		profile.PublicProfile,
		profile.ShowProgress,
		profile.UserID,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProfileNotFound
	}
	r.deleteCache(ctx, profile.UserID)
	return nil
}

func (r *MySQLProfileRepository) UpdateAggregates(ctx context.Context, tx db.Transaction, userID int64, total, solved, currentStreak, maxStreak int) error {
	query := `UPDATE user_profiles SET
		total_problems = ?, solved_problems = ?, current_streak = ?, max_streak = ?,
		updated_at = NOW()
		WHERE user_id = ?`
	querier, err := db.GetProviderQuerier(r.dbProvider, tx)
	if err != nil {
		return err
	}
	result, err := querier.Exec(ctx, query, total, solved, currentStreak, maxStreak, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProfileNotFound
	}
	r.deleteCache(ctx, userID)
	return nil
}

func (r *MySQLProfileRepository) SetPhotoURL(ctx context.Context, tx db.Transaction, userID int64, photoURL string) error {
	query := "UPDATE user_profiles SET photo_url = ?, updated_at = NOW() WHERE user_id = ?"
	querier, err := db.GetProviderQuerier(r.dbProvider, tx)
	if err != nil {
		return err
	}
	result, err := querier.Exec(ctx, query, photoURL, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProfileNotFound
	}
	r.deleteCache(ctx, userID)
	return nil
}

func (r *MySQLProfileRepository) getFromDB(ctx context.Context, tx db.Transaction, userID int64) (*UserProfile, error) {
	query := "SELECT " + profileColumns + " FROM user_profiles WHERE user_id = ?"
	querier, err := db.GetProviderQuerier(r.dbProvider, tx)
	if err != nil {
		return nil, err
	}
	row := querier.QueryRow(ctx, query, userID)
	profile, err := scanProfile(row)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return profile, nil
}

func (r *MySQLProfileRepository) deleteCache(ctx context.Context, userID int64) {
	if r.cache == nil {
		return
	}
	_ = r.cache.Del(ctx, profileKey(userID))
}

func profileKey(userID int64) string {
	return fmt.Sprintf("%s%d", profileKeyPrefix, userID)
}

func marshalProfile(profile *UserProfile) string {
	payload, err := json.Marshal(profile)
	if err != nil {
		return ""
	}
	return string(payload)
}

func unmarshalProfile(data string) (*UserProfile, error) {
	if data == "" {
		return nil, nil
	}
	var profile UserProfile
	if err := json.Unmarshal([]byte(data), &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func scanProfile(scanner db.Scanner) (*UserProfile, error) {
	var profile UserProfile
	err := scanner.Scan(
		&profile.UserID,
		&profile.Name,
		&profile.Username,
		&profile.Email,
		&profile.Location,
		&profile.Bio,
		&profile.PhotoURL,
		&profile.JoinDate,
		&profile.TotalProblems,
		&profile.SolvedProblems,
		&profile.CurrentStreak,
		&profile.MaxStreak,
		&profile.Notifications,
		&profile.PublicProfile,
		&profile.ShowProgress,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
