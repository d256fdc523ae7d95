package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/complyco/caseflow/internal/domain/entity"
	"github.com/complyco/caseflow/pkg/database"
)

// UserRepository resolves actors and their capability sets
type UserRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB, logger *zap.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a user with their capabilities, or nil when unknown
func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.Actor, error) {
	var actor entity.Actor
	var email, openID sql.NullString

	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, email, lark_open_id FROM users WHERE id = ?", id,
	).Scan(&actor.ID, &actor.Name, &email, &openID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	actor.Email = email.String
	actor.LarkOpenID = openID.String

	rows, err := r.db.QueryContext(ctx,
		"SELECT capability FROM user_capabilities WHERE user_id = ?", id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get capabilities: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var capability string
		if err := rows.Scan(&capability); err != nil {
			return nil, fmt.Errorf("failed to scan capability: %w", err)
		}
		actor.Capabilities = append(actor.Capabilities, entity.Capability(capability))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &actor, nil
}

// ListByCapability returns every user holding the capability
func (r *UserRepository) ListByCapability(ctx context.Context, c entity.Capability) ([]*entity.Actor, error) {
	query := `
		SELECT u.id, u.name, u.email, u.lark_open_id
		FROM users u
		JOIN user_capabilities uc ON uc.user_id = u.id
		WHERE uc.capability = ?
		ORDER BY u.id
	`

	rows, err := r.db.QueryContext(ctx, query, c.String())
	if err != nil {
		r.logger.Error("Failed to list users by capability",
			zap.String("capability", c.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*entity.Actor
	for rows.Next() {
		var actor entity.Actor
		var email, openID sql.NullString
		if err := rows.Scan(&actor.ID, &actor.Name, &email, &openID); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		actor.Email = email.String
		actor.LarkOpenID = openID.String
		actor.Capabilities = []entity.Capability{c}
		users = append(users, &actor)
	}

	return users, rows.Err()
}
