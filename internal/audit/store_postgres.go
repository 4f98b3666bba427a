package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	dErrors "masthead/pkg/domain-errors"
)

// PostgresStore persists audit records in the audit_records table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, record Record) error {
	metadata, err := json.Marshal(record.Metadata)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not encode audit metadata")
	}

	const q = `
		INSERT INTO audit_records
			(id, ts, action, severity, actor_id, target_id, ip, user_agent, browser, os, device, request_id, path, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err = s.db.ExecContext(ctx, q,
		record.ID, record.Timestamp, string(record.Action), string(record.Severity),
		record.ActorID, record.TargetID, record.IP, record.UserAgent,
		record.Browser, record.OS, record.Device, record.RequestID, record.Path, metadata,
	)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not append audit record")
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]Record, error) {
	var (
		conditions []string
		args       []any
	)
	add := func(cond string, val any) {
		args = append(args, val)
		conditions = append(conditions, cond+"$"+strconv.Itoa(len(args)))
	}

	if filter.ActorID != "" {
		add("actor_id = ", filter.ActorID)
	}
	if filter.TargetID != "" {
		add("target_id = ", filter.TargetID)
	}
	if filter.Action != "" {
		add("action = ", string(filter.Action))
	}
	if filter.Severity != "" {
		add("severity = ", string(filter.Severity))
	}
	if !filter.Since.IsZero() {
		add("ts >= ", filter.Since)
	}

	q := `SELECT id, ts, action, severity, actor_id, target_id, ip, user_agent, browser, os, device, request_id, path, metadata
		FROM audit_records`
	if len(conditions) > 0 {
		q += " WHERE " + strings.Join(conditions, " AND ")
	}
	q += " ORDER BY ts DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		q += " LIMIT $" + strconv.Itoa(len(args))
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not list audit records")
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r        Record
			action   string
			severity string
			metadata []byte
		)
		if err := rows.Scan(&r.ID, &r.Timestamp, &action, &severity, &r.ActorID, &r.TargetID,
			&r.IP, &r.UserAgent, &r.Browser, &r.OS, &r.Device, &r.RequestID, &r.Path, &metadata); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not scan audit record")
		}
		r.Action = Action(action)
		r.Severity = Severity(severity)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &r.Metadata); err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not decode audit metadata")
			}
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not iterate audit records")
	}
	return records, nil
}

func (s *PostgresStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM audit_records WHERE ts < $1`, cutoff)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "could not purge audit records")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(n), nil
}
