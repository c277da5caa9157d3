package repository

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kerucko/taskboard/internal/models"
)

// AvailabilityRepository maintains the per-task booking ledger. It is
// only ever called by the tasks service after a committed task write.
type AvailabilityRepository struct {
	db      *pgxpool.Pool
	builder squirrel.StatementBuilderType
}

func NewAvailabilityRepository(db *pgxpool.Pool) *AvailabilityRepository {
	return &AvailabilityRepository{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Upsert writes the single ledger row for taskID, overwriting the
// user and range in place when the row already exists.
func (r *AvailabilityRepository) Upsert(ctx context.Context, taskID, userID string, start, end models.Date) error {
	now := time.Now()
	query, args, err := r.builder.
		Insert("user_availability").
		Columns("id", "user_id", "task_id", "start_date", "end_date", "created_at", "updated_at").
		Values(uuid.NewString(), userID, taskID, start.Time, end.Time, now, now).
		Suffix(`ON CONFLICT (task_id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query, args...)
	return err
}

// DeleteByTask removes the ledger row for taskID. Missing rows are
// not an error.
func (r *AvailabilityRepository) DeleteByTask(ctx context.Context, taskID string) error {
	query, args, err := r.builder.
		Delete("user_availability").
		Where(squirrel.Eq{"task_id": taskID}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query, args...)
	return err
}
