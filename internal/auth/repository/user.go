package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"algotrack/internal/common/cache"
	"algotrack/internal/common/db"
)

type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type UserRepository interface {
	Create(ctx context.Context, tx db.Transaction, user *User) (int64, error)
	GetByID(ctx context.Context, tx db.Transaction, id int64) (*User, error)
	GetByUsername(ctx context.Context, tx db.Transaction, username string) (*User, error)
	UpdatePassword(ctx context.Context, tx db.Transaction, userID int64, newHash string) error
}

type MySQLUserRepository struct {
	dbProvider db.Provider
	cache      cache.Cache
	ttl        time.Duration
	emptyTTL   time.Duration
}

func NewUserRepository(provider db.Provider, cacheClient cache.Cache) UserRepository {
	return NewUserRepositoryWithTTL(provider, cacheClient, defaultUserCacheTTL, defaultUserCacheEmptyTTL)
}

func NewUserRepositoryWithTTL(provider db.Provider, cacheClient cache.Cache, ttl, emptyTTL time.Duration) UserRepository {
	if ttl <= 0 {
		ttl = defaultUserCacheTTL
	}
	if emptyTTL <= 0 {
		emptyTTL = defaultUserCacheEmptyTTL
	}
	return &MySQLUserRepository{
		dbProvider: provider,
		cache:      cacheClient,
		ttl:        ttl,
		emptyTTL:   emptyTTL,
	}
}

const (
	userColumns = "id, username, email, password_hash, created_at, updated_at"

	userInfoKeyPrefix     = "user:info:"
	userUsernameKeyPrefix = "user:username:"

	defaultUserCacheTTL      = 30 * time.Minute
	defaultUserCacheEmptyTTL = 5 * time.Minute
)

func (r *MySQLUserRepository) Create(ctx context.Context, tx db.Transaction, user *User) (int64, error) {
	if user == nil {
		return 0, errors.New("user is nil")
	}

	query := "INSERT INTO users (username, email, password_hash) VALUES (?, ?, ?)"
	querier, err := db.GetProviderQuerier(r.dbProvider, tx)
	if err != nil {
		return 0, err
	}
	result, err := querier.Exec(ctx, query, user.Username, user.Email, user.PasswordHash)
	if err != nil {
		if key, ok := db.UniqueViolation(err); ok {
			normalizedKey := strings.ToLower(strings.TrimSpace(key))
			switch {
			case strings.Contains(normalizedKey, "username"):
				return 0, ErrUsernameExists
			case strings.Contains(normalizedKey, "email"):
				return 0, ErrEmailExists
			default:
				return 0, ErrDuplicate
			}
		}
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	if r.cache != nil {
		user.ID = id
		r.setCache(ctx, user)
	}
	return id, nil
}

func (r *MySQLUserRepository) GetByID(ctx context.Context, tx db.Transaction, id int64) (*User, error) {
	if r.cache != nil && tx == nil {
		user, err := cache.GetWithCached[*User](
			ctx,
			r.cache,
			userInfoKey(id),
			cache.JitterTTL(r.ttl),
			cache.JitterTTL(r.emptyTTL),
			func(user *User) bool { return user == nil },
			marshalUser,
			unmarshalUser,
			func(ctx context.Context) (*User, error) {
				user, err := r.getByIDFromDB(ctx, nil, id)
				if err != nil {
					if errors.Is(err, ErrUserNotFound) {
						return nil, nil
					}
					return nil, err
				}
				return user, nil
			},
		)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, ErrUserNotFound
		}
		return user, nil
	}
	return r.getByIDFromDB(ctx, tx, id)
}

func (r *MySQLUserRepository) GetByUsername(ctx context.Context, tx db.Transaction, username string) (*User, error) {
	if r.cache != nil && tx == nil {
		user, err := cache.GetWithCached[*User](
			ctx,
			r.cache,
			userUsernameKey(username),
			cache.JitterTTL(r.ttl),
			cache.JitterTTL(r.emptyTTL),
			func(user *User) bool { return user == nil },
			marshalUser,
			unmarshalUser,
			func(ctx context.Context) (*User, error) {
				user, err := r.getByUsernameFromDB(ctx, nil, username)
				if err != nil {
					if errors.Is(err, ErrUserNotFound) {
						return nil, nil
					}
					return nil, err
				}
				return user, nil
			},
		)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, ErrUserNotFound
		}
		return user, nil
	}
	return r.getByUsernameFromDB(ctx, tx, username)
}

func (r *MySQLUserRepository) UpdatePassword(ctx context.Context, tx db.Transaction, userID int64, newHash string) error {
	var username string
	if r.cache != nil {
		var err error
		username, err = r.getUsername(ctx, tx, userID)
		if err != nil {
			return err
		}
	}
	query := "UPDATE users SET password_hash = ?, updated_at = NOW() WHERE id = ?"
	querier, err := db.GetProviderQuerier(r.dbProvider, tx)
	if err != nil {
		return err
	}
	result, err := querier.Exec(ctx, query, newHash, userID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	if r.cache != nil {
		r.deleteCache(ctx, userID, username)
	}
	return nil
}

func (r *MySQLUserRepository) getByIDFromDB(ctx context.Context, tx db.Transaction, id int64) (*User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id = ?"
	querier, err := db.GetProviderQuerier(r.dbProvider, tx)
	if err != nil {
		return nil, err
	}
	row := querier.QueryRow(ctx, query, id)
	user, err := scanUser(row)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *MySQLUserRepository) getByUsernameFromDB(ctx context.Context, tx db.Transaction, username string) (*User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE username = ?"
	querier, err := db.GetProviderQuerier(r.dbProvider, tx)
	if err != nil {
		return nil, err
	}
	row := querier.QueryRow(ctx, query, username)
	user, err := scanUser(row)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *MySQLUserRepository) getUsername(ctx context.Context, tx db.Transaction, userID int64) (string, error) {
	query := "SELECT username FROM users WHERE id = ?"
	querier, err := db.GetProviderQuerier(r.dbProvider, tx)
	if err != nil {
		return "", err
	}
	row := querier.QueryRow(ctx, query, userID)
	var username string
	if err := row.Scan(&username); err != nil {
		if db.IsNoRows(err) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	return username, nil
}

func (r *MySQLUserRepository) setCache(ctx context.Context, user *User) {
	if r.cache == nil || user == nil {
		return
	}
	data := marshalUser(user)
	if data == "" {
		return
	}
	_ = r.cache.Set(ctx, userInfoKey(user.ID), data, cache.JitterTTL(r.ttl))
	if user.Username != "" {
		_ = r.cache.Set(ctx, userUsernameKey(user.Username), data, cache.JitterTTL(r.ttl))
	}
}

func (r *MySQLUserRepository) deleteCache(ctx context.Context, userID int64, username string) {
	if r.cache == nil {
		return
	}
	keys := make([]string, 0, 2)
	if userID != 0 {
		keys = append(keys, userInfoKey(userID))
	}
	if username != "" {
		keys = append(keys, userUsernameKey(username))
	}
	if len(keys) == 0 {
		return
	}
	_ = r.cache.Del(ctx, keys...)
}

func userInfoKey(id int64) string {
	return fmt.Sprintf("%s%d", userInfoKeyPrefix, id)
}

func userUsernameKey(username string) string {
	return userUsernameKeyPrefix + username
}

func marshalUser(user *User) string {
	payload, err := json.Marshal(user)
	if err != nil {
		return ""
	}
	return string(payload)
}

func unmarshalUser(data string) (*User, error) {
	if data == "" {
		return nil, nil
	}
	var user User
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func scanUser(scanner db.Scanner) (*User, error) {
	var user User
	err := scanner.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
