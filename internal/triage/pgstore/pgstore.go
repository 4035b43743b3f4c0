// Package pgstore provides a PostgreSQL implementation of triage.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
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
	"github.com/linnemanlabs/sift/internal/triage"
)

var tracer = otel.Tracer("github.com/linnemanlabs/sift/internal/triage/pgstore")

//go:embed schema.sql
var schema string

// Store persists triage records in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema and returns a ready Store over an existing pool.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

const workItemColumns = `created_by, source_type, source_id, id, status, reason_codes,
	snooze_until, trusted_at, reviewed_at, last_touched_at, created_at, updated_at`

// GetWorkItem retrieves a work item by identity.
func (s *Store) GetWorkItem(ctx context.Context, createdBy string, key triage.ItemKey) (*triage.WorkItem, bool, error) {
	ctx, span := startSpan(ctx, "pgstore.GetWorkItem", "SELECT")
	defer span.End()

	query := `SELECT ` + workItemColumns + ` FROM work_items
		WHERE created_by = $1 AND source_type = $2 AND source_id = $3`
	item, err := scanWorkItem(s.pool.QueryRow(ctx, query, createdBy, string(key.SourceType), key.SourceID))
	if err != nil {
		recordErr(span, err)
		return nil, false, err
	}
	if item == nil {
		return nil, false, nil
	}
	return item, true, nil
}

// ListWorkItems returns all work items for an owner, oldest first.
func (s *Store) ListWorkItems(ctx context.Context, createdBy string) ([]triage.WorkItem, error) {
	ctx, span := startSpan(ctx, "pgstore.ListWorkItems", "SELECT")
	defer span.End()

	query := `SELECT ` + workItemColumns + ` FROM work_items
		WHERE created_by = $1 ORDER BY created_at`
	rows, err := s.pool.Query(ctx, query, createdBy)
	if err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("query work items: %w", err)
	}
	defer rows.Close()

	var out []triage.WorkItem
	for rows.Next() {
		item, err := scanWorkItem(rows)
		if err != nil {
			recordErr(span, err)
			return nil, err
		}
		out = append(out, *item)
	}
	if err := rows.Err(); err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("iterate work items: %w", err)
	}
	return out, nil
}

// PutWorkItem inserts or updates a work item on its identity tuple.
func (s *Store) PutWorkItem(ctx context.Context, item *triage.WorkItem) error {
	ctx, span := startSpan(ctx, "pgstore.PutWorkItem", "UPSERT")
	defer span.End()

	reasonsJSON, err := json.Marshal(item.ReasonCodes)
	if err != nil {
		return fmt.Errorf("marshal reason codes: %w", err)
	}

	query := `INSERT INTO work_items (` + workItemColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (created_by, source_type, source_id) DO UPDATE SET
			status          = EXCLUDED.status,
			reason_codes    = EXCLUDED.reason_codes,
			snooze_until    = EXCLUDED.snooze_until,
			trusted_at      = EXCLUDED.trusted_at,
			reviewed_at     = EXCLUDED.reviewed_at,
			last_touched_at = EXCLUDED.last_touched_at,
			updated_at      = EXCLUDED.updated_at`

	_, err = s.pool.Exec(ctx, query,
		item.CreatedBy, string(item.SourceType), item.SourceID, item.ID, string(item.Status),
		reasonsJSON, item.SnoozeUntil, item.TrustedAt, item.ReviewedAt,
		item.LastTouchedAt, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		recordErr(span, err)
		return fmt.Errorf("upsert work item: %w", err)
	}
	return nil
}

// MarkTrusted evaluates the clearable invariant and sets the status inside
// one transaction. The row lock makes the read-check-write atomic: a racing
// call serializes behind the lock and re-evaluates against the final state.
func (s *Store) MarkTrusted(ctx context.Context, createdBy string, key triage.ItemKey, now time.Time, resolved bool) (*triage.WorkItem, error) {
	ctx, span := startSpan(ctx, "pgstore.MarkTrusted", "UPDATE")
	defer span.End()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is harmless

	row := tx.QueryRow(ctx,
		`SELECT `+workItemColumns+` FROM work_items
		 WHERE created_by = $1 AND source_type = $2 AND source_id = $3
		 FOR UPDATE`,
		createdBy, string(key.SourceType), key.SourceID)
	item, err := scanWorkItem(row)
	if err != nil {
		recordErr(span, err)
		return nil, err
	}
	if item == nil {
		return nil, triage.ErrNotFound
	}

	if !resolved && item.Status != triage.StatusIgnored {
		var qualified bool
		err = tx.QueryRow(ctx,
			`SELECT EXISTS (
				SELECT 1 FROM entity_links
				WHERE created_by = $1 AND source_type = $2 AND source_id = $3
			) OR EXISTS (
				SELECT 1 FROM item_extracts
				WHERE created_by = $1 AND source_type = $2 AND source_id = $3
			)`,
			createdBy, string(key.SourceType), key.SourceID).Scan(&qualified)
		if err != nil {
			recordErr(span, err)
			return nil, fmt.Errorf("check trust qualification: %w", err)
		}
		if !qualified {
			return nil, &triage.TrustRejectedError{Key: key}
		}
	}

	item.Status = triage.StatusTrusted
	item.TrustedAt = &now
	if item.ReviewedAt == nil {
		item.ReviewedAt = &now
	}
	item.LastTouchedAt = now
	item.UpdatedAt = now

	_, err = tx.Exec(ctx,
		`UPDATE work_items SET
			status = $4, trusted_at = $5, reviewed_at = $6, last_touched_at = $7, updated_at = $7
		 WHERE created_by = $1 AND source_type = $2 AND source_id = $3`,
		createdBy, string(key.SourceType), key.SourceID,
		string(item.Status), item.TrustedAt, item.ReviewedAt, now)
	if err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("update work item: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("commit: %w", err)
	}
	return item, nil
}

// UpsertEntityLink creates or refreshes a link on its full tuple.
func (s *Store) UpsertEntityLink(ctx context.Context, link *triage.EntityLink) error {
	ctx, span := startSpan(ctx, "pgstore.UpsertEntityLink", "UPSERT")
	defer span.End()

	query := `INSERT INTO entity_links
		(created_by, source_type, source_id, target_type, target_id, link_reason, confidence, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (created_by, source_type, source_id, target_type, target_id) DO UPDATE SET
			link_reason = EXCLUDED.link_reason,
			confidence  = EXCLUDED.confidence`

	_, err := s.pool.Exec(ctx, query,
		link.CreatedBy, string(link.SourceType), link.SourceID,
		link.TargetType, link.TargetID, string(link.LinkReason), link.Confidence, link.CreatedAt,
	)
	if err != nil {
		recordErr(span, err)
		return fmt.Errorf("upsert entity link: %w", err)
	}
	return nil
}

// ListEntityLinks returns all links for a work item.
func (s *Store) ListEntityLinks(ctx context.Context, createdBy string, key triage.ItemKey) ([]triage.EntityLink, error) {
	ctx, span := startSpan(ctx, "pgstore.ListEntityLinks", "SELECT")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT created_by, source_type, source_id, target_type, target_id, link_reason, confidence, created_at
		 FROM entity_links
		 WHERE created_by = $1 AND source_type = $2 AND source_id = $3
		 ORDER BY created_at`,
		createdBy, string(key.SourceType), key.SourceID)
	if err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("query entity links: %w", err)
	}
	defer rows.Close()

	var out []triage.EntityLink
	for rows.Next() {
		var (
			l          triage.EntityLink
			sourceType string
			linkReason string
		)
		if err := rows.Scan(&l.CreatedBy, &sourceType, &l.SourceID, &l.TargetType, &l.TargetID,
			&linkReason, &l.Confidence, &l.CreatedAt); err != nil {
			recordErr(span, err)
			return nil, fmt.Errorf("scan entity link: %w", err)
		}
		l.SourceType = source.Type(sourceType)
		l.LinkReason = triage.LinkReason(linkReason)
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("iterate entity links: %w", err)
	}
	return out, nil
}

// PutItemExtract upserts an extract on (owner, identity, extractType).
func (s *Store) PutItemExtract(ctx context.Context, extract *triage.ItemExtract) error {
	ctx, span := startSpan(ctx, "pgstore.PutItemExtract", "UPSERT")
	defer span.End()

	query := `INSERT INTO item_extracts
		(created_by, source_type, source_id, extract_type, content, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (created_by, source_type, source_id, extract_type) DO UPDATE SET
			content    = EXCLUDED.content,
			created_at = EXCLUDED.created_at`

	_, err := s.pool.Exec(ctx, query,
		extract.CreatedBy, string(extract.SourceType), extract.SourceID,
		extract.ExtractType, extract.Content, extract.CreatedAt,
	)
	if err != nil {
		recordErr(span, err)
		return fmt.Errorf("upsert item extract: %w", err)
	}
	return nil
}

// ListItemExtracts returns all extracts for a work item.
func (s *Store) ListItemExtracts(ctx context.Context, createdBy string, key triage.ItemKey) ([]triage.ItemExtract, error) {
	ctx, span := startSpan(ctx, "pgstore.ListItemExtracts", "SELECT")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT created_by, source_type, source_id, extract_type, content, created_at
		 FROM item_extracts
		 WHERE created_by = $1 AND source_type = $2 AND source_id = $3
		 ORDER BY extract_type`,
		createdBy, string(key.SourceType), key.SourceID)
	if err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("query item extracts: %w", err)
	}
	defer rows.Close()

	var out []triage.ItemExtract
	for rows.Next() {
		var (
			x          triage.ItemExtract
			sourceType string
		)
		if err := rows.Scan(&x.CreatedBy, &sourceType, &x.SourceID, &x.ExtractType, &x.Content, &x.CreatedAt); err != nil {
			recordErr(span, err)
			return nil, fmt.Errorf("scan item extract: %w", err)
		}
		x.SourceType = source.Type(sourceType)
		out = append(out, x)
	}
	if err := rows.Err(); err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("iterate item extracts: %w", err)
	}
	return out, nil
}

// scanWorkItem scans one row into a WorkItem. Returns (nil, nil) when no row
// is found.
func scanWorkItem(row pgx.Row) (*triage.WorkItem, error) {
	var (
		item        triage.WorkItem
		sourceType  string
		status      string
		reasonsJSON []byte
	)
	err := row.Scan(
		&item.CreatedBy, &sourceType, &item.SourceID, &item.ID, &status, &reasonsJSON,
		&item.SnoozeUntil, &item.TrustedAt, &item.ReviewedAt,
		&item.LastTouchedAt, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan work item: %w", err)
	}

	item.SourceType = source.Type(sourceType)
	item.Status = triage.Status(status)
	if err := json.Unmarshal(reasonsJSON, &item.ReasonCodes); err != nil {
		return nil, fmt.Errorf("unmarshal reason codes: %w", err)
	}
	return &item, nil
}

func startSpan(ctx context.Context, name, op string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", op),
	))
}

func recordErr(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
