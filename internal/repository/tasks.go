package repository

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kerucko/taskboard/internal/models"
)

var taskColumns = []string{
	"id", "title", "description", "start_date", "end_date",
	"assigned_user_id", "status_id", "created_at", "updated_at",
}

type TaskFilters struct {
	StatusID       string
	AssignedUserID string
	Search         string
}

type TaskRepository struct {
	db      *pgxpool.Pool
	builder squirrel.StatementBuilderType
}

func NewTaskRepository(db *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *TaskRepository) Create(ctx context.Context, t *models.Task) error {
	query, args, err := r.builder.
		Insert("tasks").
		Columns(taskColumns...).
		Values(t.ID, t.Title, t.Description, t.StartDate.Time, t.EndDate.Time,
			t.AssignedUserID, t.StatusID, t.CreatedAt, t.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query, args...)
	return err
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	query, args, err := r.builder.
		Select(taskColumns...).
		From("tasks").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var t models.Task
	err = r.db.QueryRow(ctx, query, args...).Scan(
		&t.ID, &t.Title, &t.Description, &t.StartDate.Time, &t.EndDate.Time,
		&t.AssignedUserID, &t.StatusID, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (r *TaskRepository) Update(ctx context.Context, t *models.Task) error {
	query, args, err := r.builder.
		Update("tasks").
		Set("title", t.Title).
		Set("description", t.Description).
		Set("start_date", t.StartDate.Time).
		Set("end_date", t.EndDate.Time).
		Set("assigned_user_id", t.AssignedUserID).
		Set("status_id", t.StatusID).
		Set("updated_at", t.UpdatedAt).
		Where(squirrel.Eq{"id": t.ID}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query, args...)
	return err
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	query, args, err := r.builder.
		Delete("tasks").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query, args...)
	return err
}

// FindOverlapping returns every task of the user whose closed date
// range intersects [start, end]. excludeTaskID, when non-empty, keeps
// a task from colliding with itself during updates.
func (r *TaskRepository) FindOverlapping(ctx context.Context, userID string, start, end models.Date, excludeTaskID string) ([]models.Task, error) {
	q := r.builder.
		Select(taskColumns...).
		From("tasks").
		Where(squirrel.Eq{"assigned_user_id": userID}).
		Where(squirrel.LtOrEq{"start_date": end.Time}).
		Where(squirrel.GtOrEq{"end_date": start.Time})

	if excludeTaskID != "" {
		q = q.Where(squirrel.NotEq{"id": excludeTaskID})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	return r.queryTasks(ctx, query, args)
}

func (r *TaskRepository) List(ctx context.Context, filters TaskFilters) ([]models.Task, error) {
	q := r.builder.
		Select(taskColumns...).
		From("tasks")

	if filters.StatusID != "" {
		q = q.Where(squirrel.Eq{"status_id": filters.StatusID})
	}
	if filters.AssignedUserID != "" {
		q = q.Where(squirrel.Eq{"assigned_user_id": filters.AssignedUserID})
	}
	if filters.Search != "" {
		pattern := fmt.Sprint("%", filters.Search, "%")
		q = q.Where(squirrel.Or{
			squirrel.ILike{"title": pattern},
			squirrel.ILike{"description": pattern},
		})
	}

	query, args, err := q.OrderBy("created_at DESC").ToSql()
	if err != nil {
		return nil, err
	}
	return r.queryTasks(ctx, query, args)
}

func (r *TaskRepository) queryTasks(ctx context.Context, query string, args []interface{}) ([]models.Task, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(
			&t.ID, &t.Title, &t.Description, &t.StartDate.Time, &t.EndDate.Time,
			&t.AssignedUserID, &t.StatusID, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
