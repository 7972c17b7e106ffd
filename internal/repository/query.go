package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"task-manager/internal/model"
)

// TaskFilter narrows a task listing. Zero values mean "any".
type TaskFilter struct {
	Status    model.Status
	Priority  model.Priority
	Completed *bool
	Query     string
	Limit     uint64
}

// Stats aggregates a user's tasks.
type Stats struct {
	Total          int                  `json:"total"`
	Completed      int                  `json:"completed"`
	ByStatus       map[model.Status]int `json:"byStatus"`
	TotalTimeSpent int64                `json:"totalTimeSpent"`
}

// likeEscaper makes search text match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// TaskQuery runs the read-side queries that are built dynamically.
type TaskQuery struct {
	db      *sqlx.DB
	builder sq.StatementBuilderType
}

// NewTaskQuery wraps an open connection. driver selects the placeholder style.
func NewTaskQuery(db *sql.DB, driver string) *TaskQuery {
	if driver == "postgres" {
		return &TaskQuery{
			db:      sqlx.NewDb(db, "postgres"),
			builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		}
	}
	return &TaskQuery{
		db:      sqlx.NewDb(db, "sqlite3"),
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
}

var taskColumns = []string{
	"id", "user_id", "title", "content", "goal", "completed", "status", "priority",
	"repeat_type", "repeat_interval", "estimate", "due_date", "completed_at",
	"total_time_spent", "created_at", "updated_at",
}

type taskRow struct {
	ID             string     `db:"id"`
	UserID         string     `db:"user_id"`
	Title          string     `db:"title"`
	Content        string     `db:"content"`
	Goal           string     `db:"goal"`
	Completed      bool       `db:"completed"`
	Status         string     `db:"status"`
	Priority       string     `db:"priority"`
	RepeatType     string     `db:"repeat_type"`
	RepeatInterval *int       `db:"repeat_interval"`
	Estimate       *int       `db:"estimate"`
	DueDate        *time.Time `db:"due_date"`
	CompletedAt    *time.Time `db:"completed_at"`
	TotalTimeSpent int64      `db:"total_time_spent"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

func (r taskRow) task() model.Task {
	return model.Task{
		ID:             r.ID,
		UserID:         r.UserID,
		Title:          r.Title,
		Content:        r.Content,
		Goal:           r.Goal,
		Completed:      r.Completed,
		Status:         model.Status(r.Status),
		Priority:       model.Priority(r.Priority),
		RepeatType:     model.RepeatType(r.RepeatType),
		RepeatInterval: r.RepeatInterval,
		Estimate:       r.Estimate,
		DueDate:        r.DueDate,
		CompletedAt:    r.CompletedAt,
		TotalTimeSpent: r.TotalTimeSpent,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

// List returns the user's tasks matching f in list order.
func (q *TaskQuery) List(ctx context.Context, userID string, f TaskFilter) ([]model.Task, error) {
	stmt := q.builder.Select(taskColumns...).From("tasks").Where(sq.Eq{"user_id": userID})
	if f.Status != "" {
		stmt = stmt.Where(sq.Eq{"status": string(f.Status)})
	}
	if f.Priority != "" {
		stmt = stmt.Where(sq.Eq{"priority": string(f.Priority)})
	}
	if f.Completed != nil {
		stmt = stmt.Where(sq.Eq{"completed": *f.Completed})
	}
	if text := strings.ToLower(strings.TrimSpace(f.Query)); text != "" {
		pattern := "%" + likeEscaper.Replace(text) + "%"
		stmt = stmt.Where(sq.Or{
			sq.Expr(`LOWER(title) LIKE ? ESCAPE '\'`, pattern),
			sq.Expr(`LOWER(content) LIKE ? ESCAPE '\'`, pattern),
		})
	}
	stmt = stmt.OrderBy("completed ASC", statusOrder, "created_at DESC")
	if f.Limit > 0 {
		stmt = stmt.Limit(f.Limit)
	}

	query, args, err := stmt.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build task query: %w", err)
	}
	var rows []taskRow
	if err := q.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	tasks := make([]model.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, row.task())
	}
	return tasks, nil
}

type statusCount struct {
	Status  string `db:"status"`
	Count   int    `db:"count"`
	Done    int    `db:"done"`
	Seconds int64  `db:"seconds"`
}

// Stats counts the user's tasks by status and sums their tracked time.
func (q *TaskQuery) Stats(ctx context.Context, userID string) (Stats, error) {
	query, args, err := q.builder.
		Select(
			"status",
			"COUNT(*) AS count",
			"COALESCE(SUM(CASE WHEN completed THEN 1 ELSE 0 END), 0) AS done",
			"COALESCE(SUM(total_time_spent), 0) AS seconds",
		).
		From("tasks").
		Where(sq.Eq{"user_id": userID}).
		GroupBy("status").
		ToSql()
	if err != nil {
		return Stats{}, fmt.Errorf("build stats query: %w", err)
	}

	var counts []statusCount
	if err := q.db.SelectContext(ctx, &counts, query, args...); err != nil {
		return Stats{}, fmt.Errorf("task stats: %w", err)
	}

	stats := Stats{ByStatus: make(map[model.Status]int, len(model.Statuses))}
	for _, s := range model.Statuses {
		stats.ByStatus[s] = 0
	}
	for _, c := range counts {
		stats.ByStatus[model.Status(c.Status)] += c.Count
		stats.Total += c.Count
		stats.Completed += c.Done
		stats.TotalTimeSpent += c.Seconds
	}
	return stats, nil
}
