package repository

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kerucko/taskboard/internal/models"
)

type NotificationRepository struct {
	db      *pgxpool.Pool
	builder squirrel.StatementBuilderType
}

func NewNotificationRepository(db *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query, args, err := r.builder.
		Insert("notifications").
		Columns("id", "user_id", "task_id", "type", "message", "read", "created_at").
		Values(n.ID, n.UserID, n.TaskID, n.Type, n.Message, n.Read, n.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query, args...)
	return err
}

func (r *NotificationRepository) GetByUser(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	q := r.builder.
		Select("id", "user_id", "task_id", "type", "message", "read", "created_at").
		From("notifications").
		Where(squirrel.Eq{"user_id": userID})

	if unreadOnly {
		q = q.Where(squirrel.Eq{"read": false})
	}

	query, args, err := q.OrderBy("created_at DESC").ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.TaskID, &n.Type, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkRead flips a single notification owned by userID. Returns
// ErrNotFound when the row does not exist or belongs to someone else.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	query, args, err := r.builder.
		Update("notifications").
		Set("read", true).
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	query, args, err := r.builder.
		Update("notifications").
		Set("read", true).
		Where(squirrel.Eq{"user_id": userID, "read": false}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query, args...)
	return err
}
