// Package users provides the PostgreSQL-backed credential store. Email
// uniqueness is case-insensitive and enforced both here and by a unique
// index on lower(email).
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/avolkovs/taskdeck/internal/common"
	"github.com/avolkovs/taskdeck/internal/dbx"
	"github.com/avolkovs/taskdeck/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// PostgresRepository implements user storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (id, name, email, password_hash, salt, avatar_key)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Salt, user.AvatarKey).Scan(&user.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query :=
		`SELECT id, name, email, password_hash, salt, avatar_key, created_at FROM users
		 WHERE lower(email) = lower($1)
		 `

	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query :=
		`SELECT id, name, email, password_hash, salt, avatar_key, created_at FROM users
		 WHERE id = $1
		 `

	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	query :=
		`UPDATE users SET name = $2, email = $3, avatar_key = $4
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, user.ID, user.Name, user.Email, user.AvatarKey)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}

	return requireOneRow(res)
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id string, passwordHash, salt []byte) error {
	query :=
		`UPDATE users SET password_hash = $2, salt = $3
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id, passwordHash, salt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return requireOneRow(res)
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Salt, &user.AvatarKey, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
