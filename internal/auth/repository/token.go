package repository

import (
	"context"
	"errors"
	"time"

	"algotrack/internal/common/cache"
	"algotrack/internal/common/db"
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

type UserToken struct {
	ID         int64
	UserID     int64
	TokenHash  string
	TokenType  TokenType
	DeviceInfo string
	IPAddress  string
	ExpiresAt  time.Time
	Revoked    bool
	CreatedAt  time.Time
}

type TokenRepository interface {
	Create(ctx context.Context, tx db.Transaction, token *UserToken) error
	GetByHash(ctx context.Context, tx db.Transaction, tokenHash string) (*UserToken, error)
	RevokeByHash(ctx context.Context, tx db.Transaction, tokenHash string, expiresAt time.Time) error
	RevokeByUser(ctx context.Context, tx db.Transaction, userID int64) error
	IsBlacklisted(ctx context.Context, tokenHash string) (bool, error)
}

type MySQLTokenRepository struct {
	dbProvider db.Provider
	cache      cache.BasicOps
}

func NewTokenRepository(provider db.Provider, cacheClient cache.BasicOps) TokenRepository {
	return &MySQLTokenRepository{dbProvider: provider, cache: cacheClient}
}

const (
	tokenColumns            = "id, user_id, token_hash, token_type, device_info, ip_address, expires_at, revoked, created_at"
	tokenBlacklistKeyPrefix = "token:blacklist:"
)

func (r *MySQLTokenRepository) Create(ctx context.Context, tx db.Transaction, token *UserToken) error {
	if token == nil {
		return errors.New("token is nil")
	}

	query := "INSERT INTO user_tokens (user_id, token_hash, token_type, device_info, ip_address, expires_at, revoked) VALUES (?, ?, ?, ?, ?, ?, ?)"
	querier, err := db.GetProviderQuerier(r.dbProvider, tx)
	if err != nil {
		return err
	}
	_, err = querier.Exec(
		ctx,
		query,
		token.UserID,
		token.TokenHash,
		token.TokenType,
		token.DeviceInfo,
		token.IPAddress,
		token.ExpiresAt,
		token.Revoked,
	)
	return err
}

func (r *MySQLTokenRepository) GetByHash(ctx context.Context, tx db.Transaction, tokenHash string) (*UserToken, error) {
	query := "SELECT " + tokenColumns + " FROM user_tokens WHERE token_hash = ?"
	querier, err := db.GetProviderQuerier(r.dbProvider, tx)
	if err != nil {
		return nil, err
	}
	row := querier.QueryRow(ctx, query, tokenHash)
	result, err := scanToken(row)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return result, nil
}

func (r *MySQLTokenRepository) RevokeByHash(ctx context.Context, tx db.Transaction, tokenHash string, expiresAt time.Time) error {
	query := "UPDATE user_tokens SET revoked = TRUE WHERE token_hash = ?"
	querier, err := db.GetProviderQuerier(r.dbProvider, tx)
	if err != nil {
		return err
	}
	result, err := querier.Exec(ctx, query, tokenHash)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrTokenNotFound
	}

	return r.blacklistToken(ctx, tokenHash, expiresAt)
}

func (r *MySQLTokenRepository) RevokeByUser(ctx context.Context, tx db.Transaction, userID int64) error {
	now := time.Now()
	queryTokens := "SELECT token_hash, expires_at FROM user_tokens WHERE user_id = ? AND revoked = FALSE AND expires_at > ?"
	querier, err := db.GetProviderQuerier(r.dbProvider, tx)
	if err != nil {
		return err
	}
	rows, err := querier.Query(ctx, queryTokens, userID, now)
	if err != nil {
		return err
	}
	defer rows.Close()

	tokens := make([]UserToken, 0, 8)
	for rows.Next() {
		var token UserToken
		if err := rows.Scan(&token.TokenHash, &token.ExpiresAt); err != nil {
			return err
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	queryRevoke := "UPDATE user_tokens SET revoked = TRUE WHERE user_id = ?"
	if _, err := querier.Exec(ctx, queryRevoke, userID); err != nil {
		return err
	}

	for _, token := range tokens {
		if err := r.blacklistToken(ctx, token.TokenHash, token.ExpiresAt); err != nil {
			return err
		}
	}

	return nil
}

func (r *MySQLTokenRepository) IsBlacklisted(ctx context.Context, tokenHash string) (bool, error) {
	if r.cache == nil {
		return false, errors.New("cache is nil")
	}
	count, err := r.cache.Exists(ctx, tokenBlacklistKeyPrefix+tokenHash)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// blacklistToken marks a revoked token in the cache so token checks avoid
// hitting the database. Entries expire together with the token itself.
func (r *MySQLTokenRepository) blacklistToken(ctx context.Context, tokenHash string, expiresAt time.Time) error {
	if r.cache == nil {
		return errors.New("cache is nil")
	}

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return r.cache.Set(ctx, tokenBlacklistKeyPrefix+tokenHash, "1", ttl)
}

func scanToken(scanner db.Scanner) (*UserToken, error) {
	var token UserToken
	err := scanner.Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.TokenType,
		&token.DeviceInfo,
		&token.IPAddress,
		&token.ExpiresAt,
		&token.Revoked,
		&token.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &token, nil
}
