package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/ppiankov/veritas/internal/metrics"
	"github.com/ppiankov/veritas/internal/model"
)

// database/sql driver names
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

const recordColumns = "status, votes_up, votes_down, community_score, data"

// SQLStore keeps records in one table. Immutable fields live in the JSON
// data column; votes, community score and status have their own columns.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// NewSQL opens the database and applies migrations
func NewSQL(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	if dsn == "" {
		return nil, errors.New("store dsn is required")
	}
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if driver == DriverSQLite {
		// One writer; also keeps :memory: databases on a single connection.
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(25)
		conn.SetMaxIdleConns(5)
		conn.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLStore{db: conn, driver: driver}
	if err := s.migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// rebind converts ? placeholders to $n for postgres
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Create inserts rec after assigning its id, status and creation time
func (s *SQLStore) Create(ctx context.Context, rec *model.AnalysisRecord) error {
	start := time.Now()
	defer observeStore(start)

	prepare(rec)
	data, err := json.Marshal(rec)
	if err != nil {
		return persistErr("marshal record", err)
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO analyses (id, content_type, status, final_score, category, votes_up, votes_down, community_score, created_ns, data)
		VALUES (?, ?, ?, ?, ?, 0, 0, NULL, ?, ?)`),
		rec.ID, string(rec.Type), string(rec.Status), rec.FinalScore, string(rec.Category),
		rec.CreatedAt.UnixNano(), string(data),
	)
	if err != nil {
		metrics.StageFailures.WithLabelValues(metrics.StageStore).Inc()
		return persistErr("insert record", err)
	}
	return nil
}

// Get loads one record
func (s *SQLStore) Get(ctx context.Context, id string) (*model.AnalysisRecord, error) {
	row := s.db.QueryRowContext(ctx, s.rebind("SELECT "+recordColumns+" FROM analyses WHERE id = ?"), id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistErr("load record", err)
	}
	return rec, nil
}

// List returns records newest first
func (s *SQLStore) List(ctx context.Context, filter Filter) ([]*model.AnalysisRecord, error) {
	query := "SELECT " + recordColumns + " FROM analyses"
	var args []any
	if filter.Status != "" {
		query += " WHERE status = ?"
		args = append(args, string(filter.Status))
	}
	query += " ORDER BY created_ns DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, persistErr("list records", err)
	}
	defer func() { _ = rows.Close() }()

	out := []*model.AnalysisRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, persistErr("scan record", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list records", err)
	}
	return out, nil
}

// ApplyVote increments one counter and recomputes the community score in
// a single statement, so concurrent votes are never lost.
func (s *SQLStore) ApplyVote(ctx context.Context, id string, dir model.VoteDirection) (*model.AnalysisRecord, error) {
	up, down, err := voteDelta(dir)
	if err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE analyses SET
			votes_up = votes_up + ?,
			votes_down = votes_down + ?,
			community_score = CAST(ROUND(100.0 * (votes_up + ?) / (votes_up + votes_down + ? + ?)) AS INTEGER)
		WHERE id = ?`),
		up, down, up, up, down, id,
	)
	if err != nil {
		metrics.StageFailures.WithLabelValues(metrics.StageStore).Inc()
		return nil, persistErr("apply vote", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}

	metrics.VotesTotal.WithLabelValues(string(dir)).Inc()
	return s.Get(ctx, id)
}

// SetStatus records a moderation decision
func (s *SQLStore) SetStatus(ctx context.Context, id string, status model.Status) (*model.AnalysisRecord, error) {
	if err := validStatus(status); err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx, s.rebind("UPDATE analyses SET status = ? WHERE id = ?"), string(status), id)
	if err != nil {
		return nil, persistErr("set status", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

// Ping checks the connection
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database
func (s *SQLStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*model.AnalysisRecord, error) {
	var (
		status    string
		up, down  int
		community sql.NullInt64
		data      string
	)
	if err := row.Scan(&status, &up, &down, &community, &data); err != nil {
		return nil, err
	}

	var rec model.AnalysisRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	rec.Status = model.Status(status)
	rec.Votes = model.Votes{Up: up, Down: down}
	rec.Breakdown.CommunityScore = nil
	if community.Valid {
		v := int(community.Int64)
		rec.Breakdown.CommunityScore = &v
	}
	return &rec, nil
}

func observeStore(start time.Time) {
	metrics.StageDuration.WithLabelValues(metrics.StageStore).Observe(time.Since(start).Seconds())
}
