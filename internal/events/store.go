package events

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const dialTimeout = 10 * time.Second

// SQLStore keeps events in SQLite or PostgreSQL through database/sql.
type SQLStore struct {
	db      *sql.DB
	pool    *pgxpool.Pool // postgres only
	dialect string
}

// Open connects to the store named by driver and creates its tables.
// An empty driver returns Nop.
func Open(ctx context.Context, driver, dsn string) (Recorder, error) {
	switch driver {
	case "":
		return Nop{}, nil
	case DriverSQLite:
		return OpenSQLite(ctx, dsn)
	case DriverPostgres:
		return OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// OpenSQLite opens a SQLite database file, or ":memory:".
func OpenSQLite(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// One connection: writes are serialized and ":memory:" stays one database.
	db.SetMaxOpenConns(1)

	s := &SQLStore{db: db, dialect: DriverSQLite}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// OpenPostgres connects through a pgx pool exposed as *sql.DB.
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	pc, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres dsn: %w", err)
	}
	pc.MaxConns = 4
	pc.ConnConfig.RuntimeParams["application_name"] = "rentnotice"

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(dialCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	s := &SQLStore{db: stdlib.OpenDBFromPool(pool), pool: pool, dialect: DriverPostgres}
	if err := s.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	id := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.dialect == DriverPostgres {
		id = "BIGSERIAL PRIMARY KEY"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS generate_events (
			id ` + id + `,
			created_at TEXT NOT NULL,
			transaction_id TEXT NOT NULL,
			old_rent TEXT NOT NULL,
			new_rent TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS download_events (
			id ` + id + `,
			created_at TEXT NOT NULL,
			file_type TEXT NOT NULL,
			transaction_id TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating event tables: %w", err)
		}
	}
	return nil
}

// bind rewrites "?" placeholders to "$n" for postgres.
func (s *SQLStore) bind(query string) string {
	if s.dialect != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// RecordGenerate inserts a generate event.
func (s *SQLStore) RecordGenerate(ctx context.Context, e GenerateEvent) error {
	_, err := s.db.ExecContext(ctx,
		s.bind(`INSERT INTO generate_events (created_at, transaction_id, old_rent, new_rent) VALUES (?, ?, ?, ?)`),
		e.At.UTC().Format(time.RFC3339Nano), e.TransactionID, e.OldRent, e.NewRent)
	if err != nil {
		return fmt.Errorf("recording generate event: %w", err)
	}
	return nil
}

// RecordDownload inserts a download event.
func (s *SQLStore) RecordDownload(ctx context.Context, e DownloadEvent) error {
	_, err := s.db.ExecContext(ctx,
		s.bind(`INSERT INTO download_events (created_at, file_type, transaction_id) VALUES (?, ?, ?)`),
		e.At.UTC().Format(time.RFC3339Nano), e.FileType, e.TransactionID)
	if err != nil {
		return fmt.Errorf("recording download event: %w", err)
	}
	return nil
}

// GenerateEvents returns generate events in insertion order.
func (s *SQLStore) GenerateEvents(ctx context.Context) ([]GenerateEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT created_at, transaction_id, old_rent, new_rent FROM generate_events ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing generate events: %w", err)
	}
	defer rows.Close()

	var out []GenerateEvent
	for rows.Next() {
		var (
			e  GenerateEvent
			at string
		)
		if err := rows.Scan(&at, &e.TransactionID, &e.OldRent, &e.NewRent); err != nil {
			return nil, fmt.Errorf("scanning generate event: %w", err)
		}
		e.At, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, e)
	}
	return out, rows.Err()
}

// DownloadEvents returns download events in insertion order.
func (s *SQLStore) DownloadEvents(ctx context.Context) ([]DownloadEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT created_at, file_type, transaction_id FROM download_events ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing download events: %w", err)
	}
	defer rows.Close()

	var out []DownloadEvent
	for rows.Next() {
		var (
			e  DownloadEvent
			at string
		)
		if err := rows.Scan(&at, &e.FileType, &e.TransactionID); err != nil {
			return nil, fmt.Errorf("scanning download event: %w", err)
		}
		e.At, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close releases the database handle and, for postgres, the pool.
func (s *SQLStore) Close() error {
	err := s.db.Close()
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}

var _ Recorder = (*SQLStore)(nil)
