package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"

	"github.com/WailSalutem-Health-Care/micu-service/internal/access"
)

const uniqueViolation = "23505"

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, user *User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO users (id, username, role, full_name, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		string(user.Role),
		user.FullName,
		user.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrUserExists
		}
		return fmt.Errorf("failed to create user in database: %w", err)
	}

	log.WithFields(log.Fields{"user_id": user.ID, "role": user.Role}).Info("Created user in database")
	return nil
}

// Upsert inserts the user or refreshes name and role for an existing ID.
func (r *Repository) Upsert(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, username, role, full_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET username = EXCLUDED.username, role = EXCLUDED.role, full_name = EXCLUDED.full_name
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		user.ID,
		user.Username,
		string(user.Role),
		user.FullName,
	).Scan(&user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, userID string) (*User, error) {
	query := `
		SELECT id, username, role, full_name, created_at
		FROM users
		WHERE id = $1
	`

	user := &User{}
	var role string
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&user.ID,
		&user.Username,
		&role,
		&user.FullName,
		&user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.Role = access.Role(role)

	return user, nil
}

// ListByRole returns users ordered by name. An empty role lists everyone.
func (r *Repository) ListByRole(ctx context.Context, role access.Role) ([]User, error) {
	query := `
		SELECT id, username, role, full_name, created_at
		FROM users
		WHERE ($1 = '' OR role = $1)
		ORDER BY full_name ASC
	`

	rows, err := r.db.QueryContext(ctx, query, string(role))
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		var u User
		var roleStr string
		if err := rows.Scan(&u.ID, &u.Username, &roleStr, &u.FullName, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.Role = access.Role(roleStr)
		users = append(users, u)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}
