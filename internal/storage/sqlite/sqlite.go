package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"finapi/internal/domain/models"
	"finapi/internal/storage"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

type Storage struct {
	db *sql.DB
}

// New returns a new instance of the Storage.
func New(storagePath string) (*Storage, error) {
	const op = "storage.sqlite.New"
	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for migrations and tests.
func (s *Storage) DB() *sql.DB {
	return s.db
}

func (s *Storage) SaveUser(ctx context.Context, user *models.User) error {
	const op = "storage.sqlite.SaveUser"

	stmt, err := s.db.Prepare(`
		INSERT INTO users (id, name, lastname, username, email, pass_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx,
		user.ID.String(), user.Name, user.Lastname, user.Username, user.Email,
		user.PassHash, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			if strings.Contains(sqliteErr.Error(), "users.email") {
				return fmt.Errorf("%s: %w", op, storage.ErrEmailTaken)
			}
			return fmt.Errorf("%s: %w", op, storage.ErrUsernameTaken)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Storage) UserByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	const op = "storage.sqlite.UserByIdentifier"

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, lastname, username, email, pass_hash, created_at, updated_at
		FROM users WHERE username = ? OR email = ?`, identifier, identifier)

	return scanUser(row, op)
}

func (s *Storage) UserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	const op = "storage.sqlite.UserByID"

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, lastname, username, email, pass_hash, created_at, updated_at
		FROM users WHERE id = ?`, userID.String())

	return scanUser(row, op)
}

func (s *Storage) UsernameExists(ctx context.Context, username string) (bool, error) {
	const op = "storage.sqlite.UsernameExists"

	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)", username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

func (s *Storage) EmailExists(ctx context.Context, email string) (bool, error) {
	const op = "storage.sqlite.EmailExists"

	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)", email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

func (s *Storage) Users(ctx context.Context, limit, offset int) ([]models.User, error) {
	const op = "storage.sqlite.Users"

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, lastname, username, email, pass_hash, created_at, updated_at
		FROM users ORDER BY created_at ASC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		var id string
		if err := rows.Scan(&id, &u.Name, &u.Lastname, &u.Username, &u.Email,
			&u.PassHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		u.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

func (s *Storage) CountUsers(ctx context.Context) (int, error) {
	const op = "storage.sqlite.CountUsers"

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&total); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return total, nil
}

func (s *Storage) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	const op = "storage.sqlite.DeleteUser"

	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", userID.String())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return nil
}

func (s *Storage) SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	const op = "storage.sqlite.SaveRefreshToken"

	if err := insertRefreshToken(ctx, s.db, token); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Storage) RefreshTokenByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	const op = "storage.sqlite.RefreshTokenByHash"

	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, issued_at, expires_at, revoked_at, replaced_by_id
		FROM refresh_tokens WHERE token_hash = ?`, tokenHash)

	var t models.RefreshToken
	var id, userID string
	var revokedAt sql.NullTime
	var replacedBy sql.NullString

	err := row.Scan(&id, &userID, &t.TokenHash, &t.IssuedAt, &t.ExpiresAt, &revokedAt, &replacedBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrTokenNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if t.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if t.UserID, err = uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if revokedAt.Valid {
		at := revokedAt.Time
		t.RevokedAt = &at
	}
	if replacedBy.Valid {
		rid, err := uuid.Parse(replacedBy.String)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		t.ReplacedByID = &rid
	}
	return &t, nil
}

// RotateRefreshToken inserts the successor record and revokes the source
// record in one transaction. A record that is already revoked (a concurrent
// rotation won the race) aborts the whole transaction.
func (s *Storage) RotateRefreshToken(ctx context.Context, oldID uuid.UUID, revokedAt time.Time, next *models.RefreshToken) error {
	const op = "storage.sqlite.RotateRefreshToken"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	if err := insertRefreshToken(ctx, tx, next); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked_at = ?, replaced_by_id = ?
		WHERE id = ? AND revoked_at IS NULL`,
		revokedAt, next.ID.String(), oldID.String())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrTokenRevoked)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RevokeRefreshToken terminates a record without a successor.
func (s *Storage) RevokeRefreshToken(ctx context.Context, id uuid.UUID, revokedAt time.Time) error {
	const op = "storage.sqlite.RevokeRefreshToken"

	res, err := s.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked_at = ?
		WHERE id = ? AND revoked_at IS NULL`, revokedAt, id.String())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrTokenRevoked)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertRefreshToken(ctx context.Context, ex execer, token *models.RefreshToken) error {
	var revokedAt any
	if token.RevokedAt != nil {
		revokedAt = *token.RevokedAt
	}
	var replacedBy any
	if token.ReplacedByID != nil {
		replacedBy = token.ReplacedByID.String()
	}

	_, err := ex.ExecContext(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token_hash, issued_at, expires_at, revoked_at, replaced_by_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		token.ID.String(), token.UserID.String(), token.TokenHash,
		token.IssuedAt, token.ExpiresAt, revokedAt, replacedBy,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return storage.ErrTokenHashCollision
		}
		return err
	}
	return nil
}

func scanUser(row *sql.Row, op string) (*models.User, error) {
	var u models.User
	var id string

	err := row.Scan(&id, &u.Name, &u.Lastname, &u.Username, &u.Email,
		&u.PassHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	u.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &u, nil
}
