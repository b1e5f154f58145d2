package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/luis-domingues/taskly/internal/models"
)

// UserRepository handles all state-mutating operations for users against the
// PostgreSQL store (source of truth). Unique violations raised by the database
// are translated to the conflict sentinels, so the schema-level constraints on
// username and email remain the authoritative guard even when two requests
// race past the service-level pre-checks.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, full_name, username, email, password_hash, title_job, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.FullName, user.Username, user.Email,
		user.PasswordHash, user.TitleJob, user.CreatedAt,
	)
	if err != nil {
		if conflict := uniqueViolation(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID fetches the full write model (including PasswordHash) for internal operations.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, full_name, username, email, password_hash, title_job, created_at
		FROM users
		WHERE id = $1
	`
	return r.getOne(ctx, query, id)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `
		SELECT id, full_name, username, email, password_hash, title_job, created_at
		FROM users
		WHERE username = $1
	`
	return r.getOne(ctx, query, username)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.FullName, &user.Username, &user.Email,
		&user.PasswordHash, &user.TitleJob, &user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username)
}

func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email)
}

func (r *UserRepository) exists(ctx context.Context, query, arg string) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return exists, nil
}

// PasswordHashes returns every stored hash. The cross-user password reuse
// check needs all of them; this is an O(n) scan over the users table.
func (r *UserRepository) PasswordHashes(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT password_hash FROM users`)
	if err != nil {
		return nil, fmt.Errorf("failed to list password hashes: %w", err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, fmt.Errorf("failed to scan password hash: %w", err)
		}
		hashes = append(hashes, hash)
	}
	return hashes, rows.Err()
}

func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET full_name = $2, username = $3, password_hash = $4, title_job = $5
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		user.ID, user.FullName, user.Username, user.PasswordHash, user.TitleJob,
	)
	if err != nil {
		if conflict := uniqueViolation(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

// Search returns public projections of every user matching the filter.
// Each non-blank field is a case-sensitive substring match; filters are
// AND-combined. An empty filter returns all users.
func (r *UserRepository) Search(ctx context.Context, filter models.SearchFilter) ([]models.UserView, error) {
	query := `SELECT id, full_name, username, email, title_job, created_at FROM users`

	var conds []string
	var args []any
	for _, f := range []struct {
		column string
		value  string
	}{
		{"full_name", filter.FullName},
		{"username", filter.Username},
		{"email", filter.Email},
	} {
		if strings.TrimSpace(f.value) == "" {
			continue
		}
		args = append(args, escapeLike(f.value))
		conds = append(conds, fmt.Sprintf(`%s LIKE '%%' || $%d || '%%' ESCAPE '\'`, f.column, len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()

	var views []models.UserView
	for rows.Next() {
		var v models.UserView
		if err := rows.Scan(&v.ID, &v.FullName, &v.Username, &v.Email, &v.TitleJob, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// escapeLike escapes the LIKE metacharacters in a filter value so it matches
// as a literal substring rather than a wildcard pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}

// uniqueViolation maps a Postgres unique-constraint error (code 23505) to the
// matching conflict sentinel. Violations of any other constraint — or errors
// that are not unique violations at all — return nil so callers wrap them as
// opaque store errors.
func uniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return nil
	}
	switch pqErr.Constraint {
	case "users_username_key":
		return models.ErrUsernameTaken
	case "users_email_key":
		return models.ErrEmailTaken
	default:
		return nil
	}
}
