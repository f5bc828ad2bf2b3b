package store

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/veritas/internal/model"
)

func newTestRecord(content string, score int) *model.AnalysisRecord {
	return &model.AnalysisRecord{
		Content:          content,
		Type:             model.TypeText,
		FinalScore:       score,
		Category:         model.CategoryFor(score),
		Breakdown:        model.ScoreBreakdown{KeywordScore: 55, AIScore: -30},
		HeuristicReasons: []string{"Contains credible keyword: \"report\""},
		Verdict:          &model.Verdict{Kind: model.VerdictText, TrustScore: 20, Fallacies: []string{}},
	}
}

func newSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := NewSQL(context.Background(), DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("NewSQL: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// stores returns every backend available in this environment
func stores(t *testing.T) map[string]Store {
	t.Helper()
	out := map[string]Store{"sqlite": newSQLiteStore(t)}

	if uri := os.Getenv("VERITAS_TEST_MONGO_URI"); uri != "" {
		db := "veritas_test_" + time.Now().Format("150405.000000")
		m, err := NewMongo(context.Background(), uri, db)
		if err != nil {
			t.Fatalf("NewMongo: %v", err)
		}
		t.Cleanup(func() {
			_ = m.client.Database(db).Drop(context.Background())
			_ = m.Close()
		})
		out["mongo"] = m
	}
	return out
}

func TestStore_CreateAndGet(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			rec := newTestRecord("Breaking: free laptops", 25)
			if err := s.Create(ctx, rec); err != nil {
				t.Fatalf("Create: %v", err)
			}
			if rec.ID == "" || rec.Status != model.StatusPending || rec.CreatedAt.IsZero() {
				t.Fatalf("Create did not stamp the record: %+v", rec)
			}

			got, err := s.Get(ctx, rec.ID)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Content != rec.Content || got.FinalScore != 25 || got.Category != model.CategoryFake {
				t.Errorf("unexpected record %+v", got)
			}
			if got.Breakdown.CommunityScore != nil {
				t.Errorf("community score should be unset before votes")
			}
			if got.Verdict == nil || got.Verdict.TrustScore != 20 {
				t.Errorf("verdict not persisted: %+v", got.Verdict)
			}
			if !got.CreatedAt.Equal(rec.CreatedAt) {
				t.Errorf("createdAt %v != %v", got.CreatedAt, rec.CreatedAt)
			}

			if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestStore_VotesRecomputeCommunityScore(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			rec := newTestRecord("claim", 50)
			if err := s.Create(ctx, rec); err != nil {
				t.Fatalf("Create: %v", err)
			}

			steps := []struct {
				dir       model.VoteDirection
				up, down  int
				community int
			}{
				{model.VoteUp, 1, 0, 100},
				{model.VoteDown, 1, 1, 50},
				{model.VoteDown, 1, 2, 33},
				{model.VoteUp, 2, 2, 50},
				{model.VoteUp, 3, 2, 60},
			}
			for i, step := range steps {
				got, err := s.ApplyVote(ctx, rec.ID, step.dir)
				if err != nil {
					t.Fatalf("vote %d: %v", i, err)
				}
				if got.Votes.Up != step.up || got.Votes.Down != step.down {
					t.Errorf("vote %d: votes %+v", i, got.Votes)
				}
				if got.Breakdown.CommunityScore == nil || *got.Breakdown.CommunityScore != step.community {
					t.Errorf("vote %d: community score %v, want %d", i, got.Breakdown.CommunityScore, step.community)
				}
				if got.FinalScore != 50 || got.Content != "claim" {
					t.Errorf("vote %d mutated immutable fields: %+v", i, got)
				}
			}

			if _, err := s.ApplyVote(ctx, "missing", model.VoteUp); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
			if _, err := s.ApplyVote(ctx, rec.ID, "sideways"); !errors.Is(err, ErrInvalidVote) || !errors.Is(err, model.ErrInput) {
				t.Errorf("expected ErrInvalidVote, got %v", err)
			}
		})
	}
}

func TestStore_CommunityScoreRoundsHalfUp(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	rec := newTestRecord("x", 50)
	if err := s.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// 1 up of 8 votes is 12.5%
	var got *model.AnalysisRecord
	var err error
	for i := 0; i < 7; i++ {
		if _, err = s.ApplyVote(ctx, rec.ID, model.VoteDown); err != nil {
			t.Fatalf("vote: %v", err)
		}
	}
	if got, err = s.ApplyVote(ctx, rec.ID, model.VoteUp); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if *got.Breakdown.CommunityScore != 13 {
		t.Errorf("expected 13, got %d", *got.Breakdown.CommunityScore)
	}
	if want := got.Votes.CommunityScore(); *want != 13 {
		t.Errorf("model rounding disagrees: %d", *want)
	}
}

func TestStore_ConcurrentVotes(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	rec := newTestRecord("contested", 50)
	if err := s.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	const ups, downs = 30, 20
	var wg sync.WaitGroup
	errs := make(chan error, ups+downs)
	for i := 0; i < ups+downs; i++ {
		dir := model.VoteUp
		if i >= ups {
			dir = model.VoteDown
		}
		wg.Add(1)
		go func(dir model.VoteDirection) {
			defer wg.Done()
			if _, err := s.ApplyVote(ctx, rec.ID, dir); err != nil {
				errs <- err
			}
		}(dir)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent vote failed: %v", err)
	}

	got, err := s.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Votes.Up != ups || got.Votes.Down != downs {
		t.Errorf("lost votes: %+v", got.Votes)
	}
	if *got.Breakdown.CommunityScore != 60 {
		t.Errorf("expected community score 60, got %d", *got.Breakdown.CommunityScore)
	}
}

func TestStore_StatusAndList(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var ids []string
			for _, c := range []string{"first", "second", "third"} {
				rec := newTestRecord(c, 80)
				if err := s.Create(ctx, rec); err != nil {
					t.Fatalf("Create: %v", err)
				}
				ids = append(ids, rec.ID)
				time.Sleep(2 * time.Millisecond)
			}

			updated, err := s.SetStatus(ctx, ids[1], model.StatusVerified)
			if err != nil {
				t.Fatalf("SetStatus: %v", err)
			}
			if updated.Status != model.StatusVerified {
				t.Errorf("status not applied: %s", updated.Status)
			}
			if _, err := s.SetStatus(ctx, ids[0], "archived"); !errors.Is(err, ErrInvalidStatus) {
				t.Errorf("expected ErrInvalidStatus, got %v", err)
			}
			if _, err := s.SetStatus(ctx, "missing", model.StatusRejected); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}

			all, err := s.List(ctx, Filter{})
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(all) != 3 || all[0].Content != "third" || all[2].Content != "first" {
				t.Errorf("expected newest first, got %d records", len(all))
			}

			verified, err := s.List(ctx, Filter{Status: model.StatusVerified})
			if err != nil {
				t.Fatalf("List verified: %v", err)
			}
			if len(verified) != 1 || verified[0].ID != ids[1] {
				t.Errorf("unexpected verified feed %+v", verified)
			}

			limited, err := s.List(ctx, Filter{Limit: 2})
			if err != nil || len(limited) != 2 {
				t.Errorf("expected 2 records, got %d (%v)", len(limited), err)
			}
		})
	}
}

func TestSQLStore_Rebind(t *testing.T) {
	pg := &SQLStore{driver: DriverPostgres}
	if got := pg.rebind("UPDATE a SET x = ? WHERE id = ?"); got != "UPDATE a SET x = $1 WHERE id = $2" {
		t.Errorf("unexpected rebind %q", got)
	}
	lite := &SQLStore{driver: DriverSQLite}
	if got := lite.rebind("SELECT ?"); got != "SELECT ?" {
		t.Errorf("sqlite query should be unchanged, got %q", got)
	}
}

func TestSQLStore_MigrationsIdempotent(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	if err := s.migrate(ctx); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	v, err := s.SchemaVersion(ctx)
	if err != nil || v != len(migrations) {
		t.Errorf("expected schema version %d, got %d (%v)", len(migrations), v, err)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), model.StoreConfig{Driver: "cassandra"}); err == nil {
		t.Error("expected error for unknown driver")
	}
}
