package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStorage persists notifications in PostgreSQL via pgx. The schema
// lives in notification/migrations and is applied with pg.Migrate.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a storage backed by the given pool.
func NewPostgresStorage(pool *pgxpool.Pool) *PostgresStorage {
	return &PostgresStorage{pool: pool}
}

const notificationColumns = `
	id, recipient_id, recipient_type, title, body, category, priority, channel,
	status, source_service, correlation_id, external_id, last_error, metadata,
	delivery_attempts, max_delivery_attempts, next_retry_at, expires_at,
	sent_at, delivered_at, read_at, created_at, updated_at`

func (s *PostgresStorage) Create(ctx context.Context, n *Notification) error {
	metadata, err := marshalMetadata(n.Metadata)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23)`,
		n.ID, n.RecipientID, n.RecipientType, n.Title, n.Body, n.Category,
		n.Priority, n.Channel, n.Status, n.SourceService, n.CorrelationID,
		n.ExternalID, n.LastError, metadata,
		n.DeliveryAttempts, n.MaxDeliveryAttempts, n.NextRetryAt, n.ExpiresAt,
		n.SentAt, n.DeliveredAt, n.ReadAt, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	return nil
}

func (s *PostgresStorage) Get(ctx context.Context, id string) (*Notification, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications WHERE id = $1`, id)

	n, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Join(ErrStorageFailure, err)
	}
	return n, nil
}

// Update rewrites the row only when the stored status matches expected.
// A zero rows result disambiguates between a missing row and a status
// conflict with a follow-up existence check.
func (s *PostgresStorage) Update(ctx context.Context, n *Notification, expected Status) error {
	metadata, err := marshalMetadata(n.Metadata)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications SET
			recipient_id = $2, recipient_type = $3, title = $4, body = $5,
			category = $6, priority = $7, channel = $8, status = $9,
			source_service = $10, correlation_id = $11, external_id = $12,
			last_error = $13, metadata = $14, delivery_attempts = $15,
			max_delivery_attempts = $16, next_retry_at = $17, expires_at = $18,
			sent_at = $19, delivered_at = $20, read_at = $21, updated_at = $22
		WHERE id = $1 AND status = $23`,
		n.ID, n.RecipientID, n.RecipientType, n.Title, n.Body,
		n.Category, n.Priority, n.Channel, n.Status,
		n.SourceService, n.CorrelationID, n.ExternalID,
		n.LastError, metadata, n.DeliveryAttempts,
		n.MaxDeliveryAttempts, n.NextRetryAt, n.ExpiresAt,
		n.SentAt, n.DeliveredAt, n.ReadAt, n.UpdatedAt,
		expected,
	)
	if err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM notifications WHERE id = $1)`, n.ID,
		).Scan(&exists); err != nil {
			return errors.Join(ErrStorageFailure, err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrStatusConflict
	}
	return nil
}

func (s *PostgresStorage) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStorage) ListByRecipient(ctx context.Context, recipientID string, opts ListOptions) ([]Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications WHERE recipient_id = $1`
	args := []any{recipientID}

	if opts.Status != "" {
		args = append(args, opts.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	return s.queryNotifications(ctx, query, args...)
}

func (s *PostgresStorage) DueForRetry(ctx context.Context, now time.Time) ([]Notification, error) {
	return s.queryNotifications(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE status = $1 AND next_retry_at IS NOT NULL
			AND next_retry_at <= $2 AND expires_at > $2
		ORDER BY next_retry_at ASC`,
		StatusPending, now)
}

func (s *PostgresStorage) ExpiredPending(ctx context.Context, now time.Time) ([]Notification, error) {
	return s.queryNotifications(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE status = $1 AND expires_at <= $2`,
		StatusPending, now)
}

func (s *PostgresStorage) CountPending(ctx context.Context, recipientID string) (int, error) {
	return s.countByStatus(ctx, recipientID, StatusPending)
}

func (s *PostgresStorage) CountUnread(ctx context.Context, recipientID string) (int, error) {
	return s.countByStatus(ctx, recipientID, StatusDelivered)
}

func (s *PostgresStorage) countByStatus(ctx context.Context, recipientID string, status Status) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE recipient_id = $1 AND status = $2`,
		recipientID, status,
	).Scan(&count)
	if err != nil {
		return 0, errors.Join(ErrStorageFailure, err)
	}
	return count, nil
}

func (s *PostgresStorage) queryNotifications(ctx context.Context, query string, args ...any) ([]Notification, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Join(ErrStorageFailure, err)
	}
	defer rows.Close()

	var result []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, errors.Join(ErrStorageFailure, err)
		}
		result = append(result, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrStorageFailure, err)
	}
	return result, nil
}

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	var metadata []byte
	err := row.Scan(
		&n.ID, &n.RecipientID, &n.RecipientType, &n.Title, &n.Body, &n.Category,
		&n.Priority, &n.Channel, &n.Status, &n.SourceService, &n.CorrelationID,
		&n.ExternalID, &n.LastError, &metadata,
		&n.DeliveryAttempts, &n.MaxDeliveryAttempts, &n.NextRetryAt, &n.ExpiresAt,
		&n.SentAt, &n.DeliveredAt, &n.ReadAt, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &n.Metadata); err != nil {
			return nil, err
		}
	}
	return &n, nil
}

func marshalMetadata(m map[string]string) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Join(ErrStorageFailure, err)
	}
	return data, nil
}
