package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	moderncsqlite "modernc.org/sqlite"                   // Local SQLite driver
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/wadjakorntonsri/linkstats/pkg/core/domain"
	"github.com/wadjakorntonsri/linkstats/pkg/ports"
)

type SQLiteRepository struct {
	db  *sql.DB
	log logrus.FieldLogger
}

// DriverFor picks the database/sql driver for a DATABASE_URL.
func DriverFor(dbURL string) string {
	if strings.HasPrefix(dbURL, "libsql://") || strings.HasPrefix(dbURL, "wss://") {
		return "libsql"
	}
	return "sqlite"
}

func NewSQLiteRepository(dbURL string, logger logrus.FieldLogger) (*SQLiteRepository, error) {
	driverName := DriverFor(dbURL)
	log := logger.WithFields(logrus.Fields{"component": "repository", "driver": driverName})

	db, err := sql.Open(driverName, dbURL)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driverName, err)
	}

	if driverName == "sqlite" {
		// One connection serializes writers; pragmas are per connection.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		for _, pragma := range []string{
			"PRAGMA busy_timeout = 5000",
			"PRAGMA journal_mode = WAL",
			"PRAGMA foreign_keys = ON",
		} {
			if _, err := db.Exec(pragma); err != nil {
				log.WithError(err).WithField("pragma", pragma).Warn("Failed to apply pragma")
			}
		}
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	log.Info("Database ready")
	return &SQLiteRepository{db: db, log: log}, nil
}

func migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS links (
		id TEXT PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		target_url TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_links_created_at ON links(created_at);

	CREATE TABLE IF NOT EXISTS clicks (
		id TEXT PRIMARY KEY,
		link_id TEXT NOT NULL,
		clicked_at INTEGER NOT NULL,
		user_agent TEXT NOT NULL DEFAULT '',
		FOREIGN KEY(link_id) REFERENCES links(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_clicks_link_id ON clicks(link_id);
	CREATE INDEX IF NOT EXISTS idx_clicks_link_id_clicked_at ON clicks(link_id, clicked_at);
	`
	_, err := db.Exec(query)
	return err
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Timestamps are stored as UTC unix milliseconds so range filters and day
// grouping stay numeric.
func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

// ceilMillis rounds a lower range bound up, so a sub-millisecond from never
// admits a click stored at the millisecond before it.
func ceilMillis(t time.Time) int64 {
	ms := t.UTC().UnixMilli()
	if time.UnixMilli(ms).Before(t) {
		ms++
	}
	return ms
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// isConstraint recognises a constraint failure from either driver; the remote
// driver only exposes the message text.
func isConstraint(err error, code int, message string) bool {
	var serr *moderncsqlite.Error
	if errors.As(err, &serr) && serr.Code() == code {
		return true
	}
	return strings.Contains(err.Error(), message)
}

// Both drivers name the failing column in the message, e.g.
// "UNIQUE constraint failed: links.slug".
func isSlugConflict(err error) bool {
	return isConstraint(err, sqlite3.SQLITE_CONSTRAINT_UNIQUE, "UNIQUE constraint failed") &&
		strings.Contains(err.Error(), "links.slug")
}

func isIDConflict(err error) bool {
	return (isConstraint(err, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, "UNIQUE constraint failed") ||
		isConstraint(err, sqlite3.SQLITE_CONSTRAINT_UNIQUE, "UNIQUE constraint failed")) &&
		strings.Contains(err.Error(), "links.id")
}

func isForeignKeyViolation(err error) bool {
	return isConstraint(err, sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY, "FOREIGN KEY constraint failed")
}

func (r *SQLiteRepository) Create(ctx context.Context, link *domain.Link) error {
	query := `INSERT INTO links (id, slug, target_url, created_at) VALUES (?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query, link.ID, link.Slug, link.TargetURL, toMillis(link.CreatedAt))
	if err != nil {
		switch {
		case isSlugConflict(err):
			return domain.ErrSlugTaken
		case isIDConflict(err):
			return fmt.Errorf("%w: %s", domain.ErrLinkExists, link.ID)
		}
		return err
	}
	return nil
}

func (r *SQLiteRepository) GetBySlug(ctx context.Context, slug string) (*domain.Link, error) {
	query := `SELECT id, slug, target_url, created_at FROM links WHERE slug = ?`
	return r.getOne(ctx, query, slug)
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*domain.Link, error) {
	query := `SELECT id, slug, target_url, created_at FROM links WHERE id = ?`
	return r.getOne(ctx, query, id)
}

func (r *SQLiteRepository) getOne(ctx context.Context, query string, arg string) (*domain.Link, error) {
	var link domain.Link
	var createdAt int64

	err := r.db.QueryRowContext(ctx, query, arg).Scan(&link.ID, &link.Slug, &link.TargetURL, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	link.CreatedAt = fromMillis(createdAt)
	return &link, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]domain.Link, error) {
	query := `SELECT id, slug, target_url, created_at FROM links ORDER BY created_at DESC, rowid DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := []domain.Link{}
	for rows.Next() {
		var l domain.Link
		var createdAt int64
		if err := rows.Scan(&l.ID, &l.Slug, &l.TargetURL, &createdAt); err != nil {
			return nil, err
		}
		l.CreatedAt = fromMillis(createdAt)
		links = append(links, l)
	}
	return links, rows.Err()
}

// Delete removes the clicks explicitly as well, since a remote database may run
// with foreign keys disabled.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM clicks WHERE link_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM links WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return tx.Commit()
}

func (r *SQLiteRepository) Append(ctx context.Context, click *domain.ClickEvent) error {
	query := `INSERT INTO clicks (id, link_id, clicked_at, user_agent) VALUES (?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, click.ID, click.LinkID, toMillis(click.Timestamp), click.UserAgent)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrNotFound
		}
		return err
	}
	return nil
}

func (r *SQLiteRepository) CountInRange(ctx context.Context, linkID string, from, to time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM clicks WHERE link_id = ? AND clicked_at BETWEEN ? AND ?`

	var total int64
	err := r.db.QueryRowContext(ctx, query, linkID, ceilMillis(from), toMillis(to)).Scan(&total)
	return total, err
}

func (r *SQLiteRepository) CountByDay(ctx context.Context, linkID string, from, to time.Time) ([]domain.DailyCount, error) {
	query := `
		SELECT strftime('%Y-%m-%d', clicked_at / 1000, 'unixepoch') AS day, COUNT(*)
		FROM clicks
		WHERE link_id = ? AND clicked_at BETWEEN ? AND ?
		GROUP BY day
		ORDER BY day ASC`

	rows, err := r.db.QueryContext(ctx, query, linkID, ceilMillis(from), toMillis(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	days := []domain.DailyCount{}
	for rows.Next() {
		var dc domain.DailyCount
		if err := rows.Scan(&dc.Day, &dc.Count); err != nil {
			return nil, err
		}
		days = append(days, dc)
	}
	return days, rows.Err()
}

func (r *SQLiteRepository) CountByUserAgent(ctx context.Context, linkID string, from, to time.Time) ([]domain.UserAgentCount, error) {
	query := `
		SELECT user_agent, COUNT(*)
		FROM clicks
		WHERE link_id = ? AND clicked_at BETWEEN ? AND ?
		GROUP BY user_agent
		ORDER BY user_agent ASC`

	rows, err := r.db.QueryContext(ctx, query, linkID, ceilMillis(from), toMillis(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agents []domain.UserAgentCount
	for rows.Next() {
		var a domain.UserAgentCount
		if err := rows.Scan(&a.UserAgent, &a.Count); err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// Ensure interface compliance
var _ ports.Repository = (*SQLiteRepository)(nil)
