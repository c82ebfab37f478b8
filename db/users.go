// ABOUTME: User directory operations
// ABOUTME: Backs the peer-facing get_users lookup
package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/claimsync/models"
)

func CreateUser(ctx context.Context, q DBTX, u *models.User) error {
	u.ID = uuid.New().String()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt = time.Now().UTC()

	_, err := q.ExecContext(ctx, `
		INSERT INTO users (id, email, full_name, role, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, u.ID, u.Email, u.FullName, u.Role, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func ListUsers(ctx context.Context, q DBTX) ([]models.User, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, email, full_name, role, created_at
		FROM users
		ORDER BY full_name, email
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	users := make([]models.User, 0)
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}

	return users, rows.Err()
}
