package database

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"panorama/internal/models"

	_ "github.com/lib/pq"
)

// Operation timeouts.
// These cap how long a single DB call can hold a connection / wait on a lock.
const (
	readTimeout  = 5 * time.Second
	writeTimeout = 5 * time.Second
	pruneTimeout = 2 * time.Minute // the daily prune can touch many rows
)

// reportLogRetention is how long report execution rows are kept before
// reports.prune_log removes them. Postgres interval syntax.
const reportLogRetention = "90 days"

type DB struct {
	Conn *sql.DB
}

// Connect opens and verifies a connection using the resolved database URI.
func Connect(uri string) (*DB, error) {
	conn, err := sql.Open("postgres", uri)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		return nil, err
	}
	slog.Info("database connected")
	return &DB{Conn: conn}, nil
}

// Ping verifies the connection is still usable. Used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()
	return db.Conn.PingContext(ctx)
}

// DueReports returns the active reports whose next run time has passed.
// The scheduler task enqueues one run per returned report.
func (db *DB) DueReports(ctx context.Context) ([]models.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	rows, err := db.Conn.QueryContext(ctx,
		`SELECT id, name, COALESCE(recipient, ''), next_run_at
		 FROM report_schedule
		 WHERE active AND next_run_at <= NOW()
		 ORDER BY next_run_at`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var due []models.Report
	for rows.Next() {
		var rep models.Report
		if err := rows.Scan(&rep.ID, &rep.Name, &rep.Recipient, &rep.NextRunAt); err != nil {
			slog.Error("scan failed", "op", "due_reports", "error", err)
			continue
		}
		due = append(due, rep)
	}
	return due, rows.Err()
}

// MarkReportRun stamps a report after a successful run so the scheduler
// does not enqueue it again for the same window.
func (db *DB) MarkReportRun(ctx context.Context, reportID int64) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	_, err := db.Conn.ExecContext(ctx,
		`UPDATE report_schedule
		 SET last_run_at = NOW(), next_run_at = next_run_at + run_interval
		 WHERE id = $1`,
		reportID,
	)
	return err
}

// PruneReportLog deletes report execution rows older than the retention
// window and reports how many were removed.
func (db *DB) PruneReportLog(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, pruneTimeout)
	defer cancel()

	res, err := db.Conn.ExecContext(ctx,
		"DELETE FROM report_execution_log WHERE executed_at < NOW() - $1::interval",
		reportLogRetention,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// LogReportRun appends one row to the execution log.
func (db *DB) LogReportRun(ctx context.Context, reportID int64, status string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	_, err := db.Conn.ExecContext(ctx,
		"INSERT INTO report_execution_log (report_id, status, executed_at) VALUES ($1, $2, NOW())",
		reportID, status,
	)
	return err
}
