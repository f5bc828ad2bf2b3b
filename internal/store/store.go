// Package store persists analysis records and applies community feedback.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/veritas/internal/model"
)

var (
	// ErrNotFound is returned when no record has the requested id
	ErrNotFound = errors.New("record not found")

	// ErrInvalidStatus is returned for a status outside pending/verified/rejected
	ErrInvalidStatus = fmt.Errorf("%w: invalid status", model.ErrInput)

	// ErrInvalidVote is returned for a vote direction other than up/down
	ErrInvalidVote = fmt.Errorf("%w: invalid vote", model.ErrInput)
)

// Store is the record repository.
// Records are written once by Create; afterwards only ApplyVote and
// SetStatus mutate them.
type Store interface {
	Create(ctx context.Context, rec *model.AnalysisRecord) error
	Get(ctx context.Context, id string) (*model.AnalysisRecord, error)
	List(ctx context.Context, filter Filter) ([]*model.AnalysisRecord, error)
	ApplyVote(ctx context.Context, id string, dir model.VoteDirection) (*model.AnalysisRecord, error)
	SetStatus(ctx context.Context, id string, status model.Status) (*model.AnalysisRecord, error)
	Ping(ctx context.Context) error
	Close() error
}

// Filter narrows List results. Zero values mean no restriction.
type Filter struct {
	Status model.Status
	Limit  int
}

// Open connects to the store selected by cfg.Driver
func Open(ctx context.Context, cfg model.StoreConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "sqlite", "sqlite3":
		return NewSQL(ctx, DriverSQLite, cfg.DSN)
	case "postgres", "postgresql":
		return NewSQL(ctx, DriverPostgres, cfg.DSN)
	case "mongo", "mongodb":
		return NewMongo(ctx, cfg.DSN, cfg.Database)
	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.Driver)
	}
}

// prepare stamps the fields owned by the store on a new record
func prepare(rec *model.AnalysisRecord) {
	rec.ID = uuid.NewString()
	rec.Status = model.StatusPending
	rec.CreatedAt = time.Now().UTC()
	rec.Votes = model.Votes{}
	rec.Breakdown.CommunityScore = nil
	if rec.Claims == nil {
		rec.Claims = []model.Claim{}
	}
	if rec.Citations == nil {
		rec.Citations = []model.Citation{}
	}
	if rec.HeuristicReasons == nil {
		rec.HeuristicReasons = []string{}
	}
}

func voteDelta(dir model.VoteDirection) (up, down int, err error) {
	switch dir {
	case model.VoteUp:
		return 1, 0, nil
	case model.VoteDown:
		return 0, 1, nil
	default:
		return 0, 0, ErrInvalidVote
	}
}

func validStatus(s model.Status) error {
	if _, err := model.ParseStatus(string(s)); err != nil {
		return ErrInvalidStatus
	}
	return nil
}

func persistErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", model.ErrPersistence, op, err)
}
