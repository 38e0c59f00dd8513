package audit

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/geogate/internal/infrastructure/config"
	"github.com/nerrad567/geogate/internal/infrastructure/database"
	"github.com/nerrad567/geogate/internal/infrastructure/logging"
	_ "github.com/nerrad567/geogate/migrations"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "audit.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating test db: %v", err)
	}
	return db.DB
}

func TestSQLiteRepository_CreateAndList(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t))
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []*Entry{
		{Action: ActionLogin, Username: "alice", Source: "api", CreatedAt: base},
		{Action: ActionLocationRejected, Username: "alice", Source: "api", CreatedAt: base.Add(time.Minute),
			Details: map[string]any{"lat": 1.5}},
		{Action: ActionLogin, Username: "bob", Source: "api", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if e.ID == "" {
			t.Error("Create() should assign an ID")
		}
	}

	all, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if all.Total != 3 || len(all.Entries) != 3 {
		t.Fatalf("List() total = %d, len = %d, want 3", all.Total, len(all.Entries))
	}
	if all.Entries[0].Username != "bob" {
		t.Errorf("List() first entry = %q, want most recent (bob)", all.Entries[0].Username)
	}
	if all.Limit != defaultPageSize {
		t.Errorf("List() limit = %d, want %d", all.Limit, defaultPageSize)
	}

	alice, err := repo.List(ctx, Filter{Username: "alice", Action: ActionLocationRejected})
	if err != nil {
		t.Fatalf("List(filter) error = %v", err)
	}
	if alice.Total != 1 {
		t.Fatalf("List(filter) total = %d, want 1", alice.Total)
	}
	if alice.Entries[0].Details["lat"] != 1.5 {
		t.Errorf("Details[lat] = %v, want 1.5", alice.Entries[0].Details["lat"])
	}

	page, err := repo.List(ctx, Filter{Limit: 1000, Offset: 2})
	if err != nil {
		t.Fatalf("List(page) error = %v", err)
	}
	if page.Limit != maxPageSize || len(page.Entries) != 1 {
		t.Errorf("List(page) limit = %d, len = %d, want %d and 1", page.Limit, len(page.Entries), maxPageSize)
	}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (f *fakePublisher) PublishSecurityEvent(action string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, action)
	return f.err
}

type failingRepo struct{}

func (failingRepo) Create(context.Context, *Entry) error { return errors.New("disk full") }
func (failingRepo) List(context.Context, Filter) (*ListResult, error) {
	return nil, errors.New("disk full")
}

func TestRecorder_Record(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t))
	pub := &fakePublisher{}
	rec := NewRecorder(repo, pub, logging.Discard())

	rec.Record(context.Background(), ActionSessionRevoked, "alice", map[string]any{"reason": "location"})

	got, err := repo.List(context.Background(), Filter{Action: ActionSessionRevoked})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if got.Total != 1 || got.Entries[0].Username != "alice" {
		t.Errorf("recorded entries = %+v, want one for alice", got.Entries)
	}
	if len(pub.events) != 1 || pub.events[0] != ActionSessionRevoked {
		t.Errorf("published events = %v, want [%s]", pub.events, ActionSessionRevoked)
	}
}

func TestRecorder_BestEffort(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	rec := NewRecorder(failingRepo{}, pub, logging.Discard())

	// Neither sink failure may panic or block.
	rec.Record(context.Background(), ActionLogin, "bob", nil)

	if len(pub.events) != 1 {
		t.Errorf("publisher should still be called when the repository fails")
	}

	var nilRec *Recorder
	nilRec.Record(context.Background(), ActionLogin, "bob", nil)
}
