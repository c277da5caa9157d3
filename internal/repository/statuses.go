package repository

import (
	"context"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kerucko/taskboard/internal/models"
)

type StatusRepository struct {
	db      *pgxpool.Pool
	builder squirrel.StatementBuilderType
}

func NewStatusRepository(db *pgxpool.Pool) *StatusRepository {
	return &StatusRepository{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *StatusRepository) GetAll(ctx context.Context) ([]models.Status, error) {
	query, args, err := r.builder.
		Select("id", "name", "slug", "created_at", "updated_at").
		From("task_statuses").
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var statuses []models.Status
	for rows.Next() {
		var s models.Status
		if err := rows.Scan(&s.ID, &s.Name, &s.Slug, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		statuses = append(statuses, s)
	}
	return statuses, rows.Err()
}

func (r *StatusRepository) Exists(ctx context.Context, id string) (bool, error) {
	query, args, err := r.builder.
		Select("1").
		From("task_statuses").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return false, err
	}

	var one int
	err = r.db.QueryRow(ctx, query, args...).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
