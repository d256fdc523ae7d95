package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/complyco/caseflow/internal/domain/entity"
	"github.com/complyco/caseflow/pkg/database"
)

// NotificationRepository handles notification database operations
type NotificationRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *database.DB, logger *zap.Logger) *NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new notification record
func (r *NotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	now := time.Now()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.UpdatedAt = now

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (
			job_id, kind, recipient_id, title, description, category,
			status, sent_at, error_message, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.JobID, n.Kind.String(), n.RecipientID, n.Title, n.Description, n.Category,
		n.Status, n.SentAt, n.ErrorMessage, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create notification", zap.Error(err))
		return fmt.Errorf("failed to create notification: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	n.ID = id
	return nil
}

// MarkSent marks a notification as delivered
func (r *NotificationRepository) MarkSent(ctx context.Context, id int64) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET status = ?, sent_at = ?, updated_at = ? WHERE id = ?",
		entity.NotificationStatusSent, now, now, id,
	)
	if err != nil {
		r.logger.Error("Failed to mark notification sent", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	return nil
}

// MarkFailed records a delivery failure
func (r *NotificationRepository) MarkFailed(ctx context.Context, id int64, errorMsg string) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET status = ?, error_message = ?, updated_at = ? WHERE id = ?",
		entity.NotificationStatusFailed, errorMsg, now, id,
	)
	if err != nil {
		r.logger.Error("Failed to mark notification failed", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}
	return nil
}

// ListByRecipient returns a recipient's notifications, newest first
func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipientID string, limit int) ([]*entity.Notification, error) {
	query := `
		SELECT id, job_id, kind, recipient_id, title, description, category,
			status, sent_at, error_message, created_at, updated_at
		FROM notifications
		WHERE recipient_id = ?
		ORDER BY id DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, recipientID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*entity.Notification
	for rows.Next() {
		var n entity.Notification
		var kind string
		var sentAt sql.NullTime
		if err := rows.Scan(
			&n.ID, &n.JobID, &kind, &n.RecipientID, &n.Title, &n.Description, &n.Category,
			&n.Status, &sentAt, &n.ErrorMessage, &n.CreatedAt, &n.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Kind = entity.Kind(kind)
		if sentAt.Valid {
			n.SentAt = &sentAt.Time
		}
		notifications = append(notifications, &n)
	}

	return notifications, rows.Err()
}
