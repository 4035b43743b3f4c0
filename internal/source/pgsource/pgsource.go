// Package pgsource provides a PostgreSQL implementation of source.Directory.
package pgsource

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/sift/internal/source"
)

var tracer = otel.Tracer("github.com/linnemanlabs/sift/internal/source/pgsource")

//go:embed schema.sql
var schema string

// Directory reads and writes source records in PostgreSQL.
type Directory struct {
	pool *pgxpool.Pool
}

// New applies the schema and returns a ready Directory over an existing pool.
func New(ctx context.Context, pool *pgxpool.Pool) (*Directory, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Directory{pool: pool}, nil
}

// Tasks returns all tasks for an owner, oldest first.
func (d *Directory) Tasks(ctx context.Context, owner string) ([]source.Task, error) {
	ctx, span := startSpan(ctx, "pgsource.Tasks")
	defer span.End()

	rows, err := d.pool.Query(ctx,
		`SELECT id, title, notes, priority, scheduled_for, completed,
			company_id, company_name, company_logo,
			project_id, project_name, project_color,
			created_at, last_touched_at
		 FROM tasks WHERE owner = $1 ORDER BY created_at`, owner)
	if err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var out []source.Task
	for rows.Next() {
		var t source.Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Notes, &t.Priority, &t.ScheduledFor, &t.Completed,
			&t.Company.ID, &t.Company.Name, &t.Company.LogoURL,
			&t.Project.ID, &t.Project.Name, &t.Project.Color,
			&t.CreatedAt, &t.LastTouchedAt); err != nil {
			recordErr(span, err)
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return out, nil
}

// InboxMessages returns all inbox messages for an owner, newest first.
func (d *Directory) InboxMessages(ctx context.Context, owner string) ([]source.InboxMessage, error) {
	ctx, span := startSpan(ctx, "pgsource.InboxMessages")
	defer span.End()

	rows, err := d.pool.Query(ctx,
		`SELECT id, subject, preview, sender, received_at, read,
			company_id, company_name, company_logo, created_at
		 FROM inbox_messages WHERE owner = $1 ORDER BY received_at DESC`, owner)
	if err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("query inbox messages: %w", err)
	}
	defer rows.Close()

	var out []source.InboxMessage
	for rows.Next() {
		var m source.InboxMessage
		if err := rows.Scan(&m.ID, &m.Subject, &m.Preview, &m.Sender, &m.ReceivedAt, &m.Read,
			&m.Company.ID, &m.Company.Name, &m.Company.LogoURL, &m.CreatedAt); err != nil {
			recordErr(span, err)
			return nil, fmt.Errorf("scan inbox message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("iterate inbox messages: %w", err)
	}
	return out, nil
}

// CalendarEvents returns events starting inside [from, to), soonest first.
func (d *Directory) CalendarEvents(ctx context.Context, owner string, from, to time.Time) ([]source.CalendarEvent, error) {
	ctx, span := startSpan(ctx, "pgsource.CalendarEvents")
	defer span.End()

	rows, err := d.pool.Query(ctx,
		`SELECT id, title, location, start_at, end_at,
			company_id, company_name, company_logo, created_at
		 FROM calendar_events
		 WHERE owner = $1 AND start_at >= $2 AND start_at < $3
		 ORDER BY start_at`, owner, from, to)
	if err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("query calendar events: %w", err)
	}
	defer rows.Close()

	var out []source.CalendarEvent
	for rows.Next() {
		var e source.CalendarEvent
		if err := rows.Scan(&e.ID, &e.Title, &e.Location, &e.StartAt, &e.EndAt,
			&e.Company.ID, &e.Company.Name, &e.Company.LogoURL, &e.CreatedAt); err != nil {
			recordErr(span, err)
			return nil, fmt.Errorf("scan calendar event: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("iterate calendar events: %w", err)
	}
	return out, nil
}

// Commitments returns all commitments for an owner, oldest first.
func (d *Directory) Commitments(ctx context.Context, owner string) ([]source.Commitment, error) {
	ctx, span := startSpan(ctx, "pgsource.Commitments")
	defer span.End()

	rows, err := d.pool.Query(ctx,
		`SELECT `+commitmentColumns+`
		 FROM commitments WHERE owner = $1 ORDER BY created_at`, owner)
	if err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("query commitments: %w", err)
	}
	defer rows.Close()

	var out []source.Commitment
	for rows.Next() {
		c, err := scanCommitment(rows)
		if err != nil {
			recordErr(span, err)
			return nil, err
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("iterate commitments: %w", err)
	}
	return out, nil
}

// Companies returns all companies for an owner.
func (d *Directory) Companies(ctx context.Context, owner string) ([]source.Company, error) {
	ctx, span := startSpan(ctx, "pgsource.Companies")
	defer span.End()

	rows, err := d.pool.Query(ctx,
		`SELECT id, name, logo_url, kind, priority, created_at, last_touched_at
		 FROM companies WHERE owner = $1 ORDER BY name`, owner)
	if err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("query companies: %w", err)
	}
	defer rows.Close()

	var out []source.Company
	for rows.Next() {
		var (
			c    source.Company
			kind string
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.LogoURL, &kind, &c.Priority,
			&c.CreatedAt, &c.LastTouchedAt); err != nil {
			recordErr(span, err)
			return nil, fmt.Errorf("scan company: %w", err)
		}
		c.Kind = source.Type(kind)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("iterate companies: %w", err)
	}
	return out, nil
}

const commitmentColumns = `id, title, direction, urgency, counterparty, counterparty_vip,
	due_at, expected_by, status, company_id, company_name, company_logo,
	created_at, last_touched_at`

// GetCommitment looks up a single commitment by ID.
func (d *Directory) GetCommitment(ctx context.Context, owner, id string) (*source.Commitment, bool, error) {
	ctx, span := startSpan(ctx, "pgsource.GetCommitment")
	defer span.End()

	row := d.pool.QueryRow(ctx,
		`SELECT `+commitmentColumns+`
		 FROM commitments WHERE owner = $1 AND id = $2`, owner, id)
	c, err := scanCommitment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		recordErr(span, err)
		return nil, false, err
	}
	return c, true, nil
}

// SetCommitmentStatus updates a commitment's status.
func (d *Directory) SetCommitmentStatus(ctx context.Context, owner, id, status string, now time.Time) error {
	ctx, span := startSpan(ctx, "pgsource.SetCommitmentStatus")
	defer span.End()

	tag, err := d.pool.Exec(ctx,
		`UPDATE commitments SET status = $3, last_touched_at = $4
		 WHERE owner = $1 AND id = $2`, owner, id, status, now)
	if err != nil {
		recordErr(span, err)
		return fmt.Errorf("update commitment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("commitment %s not found", id)
	}
	return nil
}

// CreateTask inserts a new task.
func (d *Directory) CreateTask(ctx context.Context, owner string, t *source.Task) error {
	ctx, span := startSpan(ctx, "pgsource.CreateTask")
	defer span.End()

	_, err := d.pool.Exec(ctx,
		`INSERT INTO tasks (owner, id, title, notes, priority, scheduled_for, completed,
			company_id, company_name, company_logo,
			project_id, project_name, project_color,
			created_at, last_touched_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		owner, t.ID, t.Title, t.Notes, t.Priority, t.ScheduledFor, t.Completed,
		t.Company.ID, t.Company.Name, t.Company.LogoURL,
		t.Project.ID, t.Project.Name, t.Project.Color,
		t.CreatedAt, t.LastTouchedAt)
	if err != nil {
		recordErr(span, err)
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// SeedCommitment inserts a commitment row. Sync jobs and tests write through
// this; the triage layer only ever changes status.
func (d *Directory) SeedCommitment(ctx context.Context, owner string, c *source.Commitment) error {
	ctx, span := startSpan(ctx, "pgsource.SeedCommitment")
	defer span.End()

	_, err := d.pool.Exec(ctx,
		`INSERT INTO commitments (owner, id, title, direction, urgency, counterparty, counterparty_vip,
			due_at, expected_by, status,
			company_id, company_name, company_logo,
			created_at, last_touched_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		 ON CONFLICT (owner, id) DO UPDATE SET
			title = EXCLUDED.title,
			direction = EXCLUDED.direction,
			urgency = EXCLUDED.urgency,
			counterparty = EXCLUDED.counterparty,
			counterparty_vip = EXCLUDED.counterparty_vip,
			due_at = EXCLUDED.due_at,
			expected_by = EXCLUDED.expected_by,
			status = EXCLUDED.status,
			company_id = EXCLUDED.company_id,
			company_name = EXCLUDED.company_name,
			company_logo = EXCLUDED.company_logo,
			last_touched_at = EXCLUDED.last_touched_at`,
		owner, c.ID, c.Title, c.Direction, c.Urgency, c.Counterparty, c.CounterpartyVIP,
		c.DueAt, c.ExpectedBy, c.Status,
		c.Company.ID, c.Company.Name, c.Company.LogoURL,
		c.CreatedAt, c.LastTouchedAt)
	if err != nil {
		recordErr(span, err)
		return fmt.Errorf("insert commitment: %w", err)
	}
	return nil
}

// CreateNote inserts a new note.
func (d *Directory) CreateNote(ctx context.Context, owner string, n *source.Note) error {
	ctx, span := startSpan(ctx, "pgsource.CreateNote")
	defer span.End()

	_, err := d.pool.Exec(ctx,
		`INSERT INTO notes (owner, id, content, source_type, source_id, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		owner, n.ID, n.Content, string(n.SourceType), n.SourceID, n.CreatedAt)
	if err != nil {
		recordErr(span, err)
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

func scanCommitment(row pgx.Row) (*source.Commitment, error) {
	var c source.Commitment
	err := row.Scan(&c.ID, &c.Title, &c.Direction, &c.Urgency, &c.Counterparty, &c.CounterpartyVIP,
		&c.DueAt, &c.ExpectedBy, &c.Status,
		&c.Company.ID, &c.Company.Name, &c.Company.LogoURL,
		&c.CreatedAt, &c.LastTouchedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("scan commitment: %w", err)
	}
	return &c, nil
}

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
	))
}

func recordErr(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
