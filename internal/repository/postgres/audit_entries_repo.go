package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acadops/timetable-backend/internal/models"
	"github.com/acadops/timetable-backend/internal/repository"
)

type auditEntriesRepo struct{ pool *pgxpool.Pool }

func NewAuditEntries(pool *pgxpool.Pool) repository.AuditEntries {
	return &auditEntriesRepo{pool: pool}
}

const auditCols = `id, actor_id, action, entity_type, entity_id, changes, ip_address, user_agent, timestamp`

func scanEntry(row pgx.Row) (models.AuditEntry, error) {
	var e models.AuditEntry
	err := row.Scan(
		&e.ID, &e.ActorID, &e.Action, &e.EntityType, &e.EntityID,
		&e.Changes, &e.IPAddress, &e.UserAgent, &e.Timestamp,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.AuditEntry{}, repository.ErrNotFound
	}
	return e, err
}

func (r *auditEntriesRepo) Insert(ctx context.Context, e models.NewAuditEntry) (models.AuditEntry, error) {
	return scanEntry(r.pool.QueryRow(ctx,
		`INSERT INTO audit_entries (actor_id, action, entity_type, entity_id, changes, ip_address, user_agent)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 RETURNING `+auditCols,
		e.ActorID, e.Action, e.EntityType, e.EntityID, e.Changes, e.IPAddress, e.UserAgent,
	))
}

func (r *auditEntriesRepo) List(ctx context.Context, f repository.AuditFilter, skip, limit int) ([]models.AuditEntry, int64, error) {
	where, args := auditConditions(f)

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM audit_entries`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	// id DESC keeps pagination stable among entries sharing a timestamp.
	n := len(args)
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM audit_entries%s ORDER BY timestamp DESC, id DESC LIMIT $%d OFFSET $%d`,
			auditCols, where, n+1, n+2),
		append(args, limit, skip)...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []models.AuditEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

func auditConditions(f repository.AuditFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(expr string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(expr, len(args)))
	}
	if f.ActorID != nil {
		add("actor_id=$%d", *f.ActorID)
	}
	if f.EntityType != "" {
		add("entity_type=$%d", f.EntityType)
	}
	if f.Action != "" {
		add("action=$%d", f.Action)
	}
	if f.Start != nil {
		add("timestamp>=$%d", *f.Start)
	}
	if f.End != nil {
		add("timestamp<=$%d", *f.End)
	}
	if len(conds) == 0 {
		return "", nil
	}
	where := " WHERE " + conds[0]
	for _, c := range conds[1:] {
		where += " AND " + c
	}
	return where, args
}

func (r *auditEntriesRepo) GetByID(ctx context.Context, id int64) (models.AuditEntry, error) {
	return scanEntry(r.pool.QueryRow(ctx, `SELECT `+auditCols+` FROM audit_entries WHERE id=$1`, id))
}
