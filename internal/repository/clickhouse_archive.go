package repository

import (
	"context"
	"fmt"
	"time"

	"VolPulse/internal/domain/models"
	domrepo "VolPulse/internal/domain/repository"
	pkgch "VolPulse/pkg/clickhouse"
	applogger "VolPulse/pkg/logger"
)

// DB is the part of pkg/clickhouse.Client the archive uses.
type DB interface {
	Exec(ctx context.Context, query string, args ...any) error
	Query(ctx context.Context, query string, args ...any) (pkgch.Rows, error)
	Health(ctx context.Context) error
}

// ClickHouseTransitionArchive stores pattern transitions in a MergeTree table.
type ClickHouseTransitionArchive struct {
	db    DB
	table string
	l     *applogger.Logger
}

func NewClickHouseTransitionArchive(db DB, table string, l *applogger.Logger) *ClickHouseTransitionArchive {
	if l == nil {
		l = applogger.Nop()
	}
	return &ClickHouseTransitionArchive{db: db, table: table, l: l.Component("transition_archive")}
}

// TransitionSchema returns the DDL for the archive table.
func TransitionSchema(table string) []string {
	return []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            ts          DateTime64(3),
            pattern     LowCardinality(String),
            confidence  Float64,
            trend       Float64,
            volatility  Float64,
            velocity    Float64
        ) ENGINE = MergeTree
        ORDER BY ts
        TTL toDateTime(ts) + INTERVAL 30 DAY
    `, table)}
}

func (a *ClickHouseTransitionArchive) Append(ctx context.Context, t models.Transition) error {
	q := fmt.Sprintf("INSERT INTO %s (ts, pattern, confidence, trend, volatility, velocity) VALUES (?, ?, ?, ?, ?, ?)", a.table)
	if err := a.db.Exec(ctx, q, t.Timestamp, string(t.Type), t.Confidence, t.Trend, t.Volatility, t.Velocity); err != nil {
		a.l.Error("clickhouse insert transition error",
			applogger.String("table", a.table),
			applogger.String("pattern", string(t.Type)),
			applogger.Error(err),
		)
		return fmt.Errorf("append transition: %w", err)
	}
	return nil
}

// Latest returns up to limit transitions, newest first.
func (a *ClickHouseTransitionArchive) Latest(ctx context.Context, limit int) ([]models.Transition, error) {
	const qtpl = `
        SELECT ts, pattern, confidence, trend, volatility, velocity
        FROM %s
        ORDER BY ts DESC
        LIMIT ?
    `
	rows, err := a.db.Query(ctx, fmt.Sprintf(qtpl, a.table), limit)
	if err != nil {
		a.l.Error("clickhouse latest transitions query error", applogger.String("table", a.table), applogger.Error(err))
		return nil, fmt.Errorf("latest transitions: %w", err)
	}
	defer rows.Close()

	out := make([]models.Transition, 0, limit)
	for rows.Next() {
		var (
			t       models.Transition
			ts      time.Time
			pattern string
		)
		if err := rows.Scan(&ts, &pattern, &t.Confidence, &t.Trend, &t.Volatility, &t.Velocity); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		t.Timestamp = ts
		t.Type = models.PatternType(pattern)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (a *ClickHouseTransitionArchive) Health(ctx context.Context) error {
	return a.db.Health(ctx)
}

var _ domrepo.TransitionArchive = (*ClickHouseTransitionArchive)(nil)
