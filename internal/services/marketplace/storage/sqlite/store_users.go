package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/skillswap/internal/services/marketplace/storage"
	"github.com/louisbranch/skillswap/internal/services/marketplace/swap"
	"github.com/louisbranch/skillswap/internal/services/marketplace/user"
)

const userColumns = `id, email, name, password_hash, role, banned, ban_reason, created_at, updated_at`

// CreateUser inserts a user and an empty public profile.
func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if err := s.ready(ctx); err != nil {
		return user.User{}, err
	}
	u.ID = strings.TrimSpace(u.ID)
	u.Email = strings.TrimSpace(u.Email)
	if u.ID == "" {
		return user.User{}, fmt.Errorf("user id is required")
	}
	if u.Email == "" {
		return user.User{}, fmt.Errorf("email is required")
	}
	if u.Role != user.RoleAdmin {
		u.Role = user.RoleUser
	}

	err := s.withTx(ctx, "create user", func(tx *sql.Tx) error {
		var existing int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM users`).Scan(&existing); err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		if existing == 0 {
			u.Role = user.RoleAdmin
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO users (`+userColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
			u.ID,
			u.Email,
			u.Name,
			u.PasswordHash,
			string(u.Role),
			boolToInt(u.Banned),
			u.BanReason,
			toMillis(u.CreatedAt),
			toMillis(u.UpdatedAt),
		); err != nil {
			if isUniqueConstraintError(err) {
				return storage.ErrAlreadyExists
			}
			return fmt.Errorf("insert user: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO profiles (user_id, location, bio, availability_json, public, updated_at)
VALUES (?, '', '', '[]', 1, ?)
`, u.ID, toMillis(u.CreatedAt)); err != nil {
			return fmt.Errorf("insert profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return user.User{}, err
	}
	return u, nil
}

// GetUser loads one user by id.
func (s *Store) GetUser(ctx context.Context, userID string) (user.User, error) {
	if err := s.ready(ctx); err != nil {
		return user.User{}, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return user.User{}, storage.ErrNotFound
	}
	return getUser(ctx, s.sqlDB, `WHERE id = ?`, userID)
}

// GetUserByEmail loads one user by normalized email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	if err := s.ready(ctx); err != nil {
		return user.User{}, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return user.User{}, storage.ErrNotFound
	}
	return getUser(ctx, s.sqlDB, `WHERE email = ?`, email)
}

func getUser(ctx context.Context, q sqlQueryer, where string, args ...any) (user.User, error) {
	row := q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users `+where, args...)
	u, err := scanUser(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, storage.ErrNotFound
		}
		return user.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// ListUsers lists users oldest first for admin review.
func (s *Store) ListUsers(ctx context.Context, filter storage.UserFilter, limit int, offset int) (storage.Page[user.User], error) {
	if err := s.ready(ctx); err != nil {
		return storage.Page[user.User]{}, err
	}
	limit, offset, err := normalizePage(limit, offset)
	if err != nil {
		return storage.Page[user.User]{}, err
	}

	var clauses []string
	var args []any
	if query := strings.ToLower(strings.TrimSpace(filter.Query)); query != "" {
		pattern := "%" + escapeLike(query) + "%"
		clauses = append(clauses, `(lower(email) LIKE ? ESCAPE '\' OR lower(name) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if filter.Banned != nil {
		clauses = append(clauses, `banned = ?`)
		args = append(args, boolToInt(*filter.Banned))
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	args = append(args, limit+1, offset)

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+userColumns+`
FROM users
`+where+`
ORDER BY created_at ASC, id ASC
LIMIT ? OFFSET ?
`, args...)
	if err != nil {
		return storage.Page[user.User]{}, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]user.User, 0, limit+1)
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return storage.Page[user.User]{}, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return storage.Page[user.User]{}, fmt.Errorf("iterate user rows: %w", err)
	}
	return trimPage(users, limit), nil
}

// SetUserBan updates a user's ban state. Banning cancels their pending swaps.
func (s *Store) SetUserBan(ctx context.Context, userID string, banned bool, reason string, at time.Time) (user.User, int, error) {
	if err := s.ready(ctx); err != nil {
		return user.User{}, 0, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return user.User{}, 0, storage.ErrNotFound
	}
	if !banned {
		reason = ""
	}

	var updated user.User
	var cancelled int64
	err := s.withTx(ctx, "set user ban", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
UPDATE users SET banned = ?, ban_reason = ?, updated_at = ? WHERE id = ?
`, boolToInt(banned), strings.TrimSpace(reason), toMillis(at), userID)
		if err != nil {
			return fmt.Errorf("update user ban: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("update user ban rows affected: %w", err)
		}
		if affected == 0 {
			return storage.ErrNotFound
		}
		if banned {
			result, err := tx.ExecContext(ctx, `
UPDATE swaps SET status = ?, updated_at = ?
WHERE status = ? AND (requester_id = ? OR recipient_id = ?)
`, string(swap.StatusCancelled), toMillis(at), string(swap.StatusPending), userID, userID)
			if err != nil {
				return fmt.Errorf("cancel pending swaps: %w", err)
			}
			if cancelled, err = result.RowsAffected(); err != nil {
				return fmt.Errorf("cancel pending swaps rows affected: %w", err)
			}
		}
		updated, err = getUser(ctx, tx, `WHERE id = ?`, userID)
		return err
	})
	if err != nil {
		return user.User{}, 0, err
	}
	return updated, int(cancelled), nil
}

func scanUser(scan scanner) (user.User, error) {
	var u user.User
	var role string
	var banned int
	var createdAt int64
	var updatedAt int64
	if err := scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.PasswordHash,
		&role,
		&banned,
		&u.BanReason,
		&createdAt,
		&updatedAt,
	); err != nil {
		return user.User{}, err
	}
	u.Role = user.Role(role)
	u.Banned = banned != 0
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return u, nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
