package repository

import (
	"context"
	"errors"
	"strings"

	"algotrack/internal/common/db"
	"algotrack/internal/problem/model"
)

var ErrProblemNotFound = errors.New("problem not found")

type ProblemRepository interface {
	Create(ctx context.Context, tx db.Transaction, problem *model.Problem) (int64, error)
	GetByID(ctx context.Context, tx db.Transaction, problemID int64) (*model.Problem, error)
	ListByUser(ctx context.Context, tx db.Transaction, userID int64) ([]model.Problem, error)
	Update(ctx context.Context, tx db.Transaction, problem *model.Problem) error
	Delete(ctx context.Context, tx db.Transaction, problemID int64) error
}

type MySQLProblemRepository struct {
	dbProvider db.Provider
}

func NewProblemRepository(provider db.Provider) ProblemRepository {
	return &MySQLProblemRepository{dbProvider: provider}
}

const problemColumns = "id, user_id, title, link, topic, difficulty, status, created_at, updated_at"

func (r *MySQLProblemRepository) Create(ctx context.Context, tx db.Transaction, problem *model.Problem) (int64, error) {
	if problem == nil {
		return 0, errors.New("problem is nil")
	}

	query := "INSERT INTO problems (user_id, title, link, topic, difficulty, status) VALUES (?, ?, ?, ?, ?, ?)"
	querier, err := db.GetProviderQuerier(r.dbProvider, tx)
	if err != nil {
		return 0, err
	}
	result, err := querier.Exec(ctx, query,
		problem.UserID,
		problem.Title,
		problem.Link,
		problem.Topic,
		problem.Difficulty,
		problem.Status,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (r *MySQLProblemRepository) GetByID(ctx context.Context, tx db.Transaction, problemID int64) (*model.Problem, error) {
	query := "SELECT " + problemColumns + " FROM problems WHERE id = ?"
	querier, err := db.GetProviderQuerier(r.dbProvider, tx)
	if err != nil {
		return nil, err
	}
	row := querier.QueryRow(ctx, query, problemID)
	problem, err := scanProblem(row)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrProblemNotFound
		}
		return nil, err
	}
	return problem, nil
}

// ListByUser returns all records of one user, newest first. The derived-
// statistics engine consumes full snapshots, so there is no SQL-side
// filtering or pagination here.
func (r *MySQLProblemRepository) ListByUser(ctx context.Context, tx db.Transaction, userID int64) ([]model.Problem, error) {
	query := "SELECT " + problemColumns + " FROM problems WHERE user_id = ? ORDER BY created_at DESC, id DESC"
	querier, err := db.GetProviderQuerier(r.dbProvider, tx)
	if err != nil {
		return nil, err
	}
	rows, err := querier.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	problems := make([]model.Problem, 0, 64)
	for rows.Next() {
		problem, err := scanProblem(rows)
		if err != nil {
			return nil, err
		}
		problems = append(problems, *problem)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return problems, nil
}

func (r *MySQLProblemRepository) Update(ctx context.Context, tx db.Transaction, problem *model.Problem) error {
	if problem == nil {
		return errors.New("problem is nil")
	}

	query := "UPDATE problems SET title = ?, link = ?, topic = ?, difficulty = ?, status = ?, updated_at = NOW() WHERE id = ?"
	querier, err := db.GetProviderQuerier(r.dbProvider, tx)
	if err != nil {
		return err
	}
	result, err := querier.Exec(ctx, query,
		problem.Title,
		problem.Link,
		problem.Topic,
		problem.Difficulty,
		problem.Status,
		problem.ID,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProblemNotFound
	}
	return nil
}

func (r *MySQLProblemRepository) Delete(ctx context.Context, tx db.Transaction, problemID int64) error {
	query := "DELETE FROM problems WHERE id = ?"
	querier, err := db.GetProviderQuerier(r.dbProvider, tx)
	if err != nil {
		return err
	}
	result, err := querier.Exec(ctx, query, problemID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProblemNotFound
	}
	return nil
}

func scanProblem(scanner db.Scanner) (*model.Problem, error) {
	var problem model.Problem
	var link, topic string
	err := scanner.Scan(
		&problem.ID,
		&problem.UserID,
		&problem.Title,
		&link,
		&topic,
		&problem.Difficulty,
		&problem.Status,
		&problem.CreatedAt,
		&problem.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	problem.Link = strings.TrimSpace(link)
	problem.Topic = strings.TrimSpace(topic)
	return &problem, nil
}
