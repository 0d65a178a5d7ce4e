package data

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/consolerelay/console-relay/internal/biz/domain"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "nested", "app.db"))
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func batch(names ...string) []*domain.Message {
	msgs := make([]*domain.Message, len(names))
	for i, name := range names {
		msgs[i] = &domain.Message{
			AppName:     name,
			Carrier:     "MTN",
			Body:        name + " code",
			DisplayTime: "12:00",
			Color:       "hsl(200, 70%, 60%)",
		}
	}
	return msgs
}

func TestMessageRepo_ReplaceBatchReadsBackNewestFirst(t *testing.T) {
	db := openTestDB(t)
	repo, err := NewMessageRepo(db)
	if err != nil {
		t.Fatalf("NewMessageRepo failed: %v", err)
	}
	ctx := context.Background()

	in := batch("Google", "Facebook")
	if err := repo.ReplaceBatch(ctx, in); err != nil {
		t.Fatalf("ReplaceBatch failed: %v", err)
	}

	for _, m := range in {
		if m.ID == 0 || m.BatchID == "" || m.ReceivedAt.IsZero() {
			t.Errorf("Expected ID, BatchID and ReceivedAt to be assigned, got %+v", m)
		}
	}
	if in[0].BatchID != in[1].BatchID {
		t.Error("Expected one batch ID per batch")
	}

	out, err := repo.ListLatest(ctx)
	if err != nil {
		t.Fatalf("ListLatest failed: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(out))
	}
	if out[0].AppName != "Facebook" || out[1].AppName != "Google" {
		t.Errorf("Expected [Facebook Google], got [%s %s]", out[0].AppName, out[1].AppName)
	}
	if out[0].Color == "" || out[0].Body != "Facebook code" || out[0].Carrier != "MTN" {
		t.Errorf("Unexpected message content: %+v", out[0])
	}
}

func TestMessageRepo_ReplaceBatchDropsPriorBatch(t *testing.T) {
	db := openTestDB(t)
	repo, _ := NewMessageRepo(db)
	ctx := context.Background()

	if err := repo.ReplaceBatch(ctx, batch("A", "B", "C")); err != nil {
		t.Fatalf("first ReplaceBatch failed: %v", err)
	}
	if err := repo.ReplaceBatch(ctx, batch("D")); err != nil {
		t.Fatalf("second ReplaceBatch failed: %v", err)
	}

	out, _ := repo.ListLatest(ctx)
	if len(out) != 1 || out[0].AppName != "D" {
		t.Fatalf("Expected only [D], got %d messages", len(out))
	}
}

func TestMessageRepo_RoundTripPreservesContent(t *testing.T) {
	db := openTestDB(t)
	repo, _ := NewMessageRepo(db)
	ctx := context.Background()

	if err := repo.ReplaceBatch(ctx, batch("A", "B", "C")); err != nil {
		t.Fatalf("ReplaceBatch failed: %v", err)
	}
	first, _ := repo.ListLatest(ctx)

	// Feed the read back in oldest-first so the store order is reproduced
	again := make([]*domain.Message, len(first))
	for i, m := range first {
		copied := *m
		again[len(first)-1-i] = &copied
	}
	if err := repo.ReplaceBatch(ctx, again); err != nil {
		t.Fatalf("ReplaceBatch failed: %v", err)
	}
	second, _ := repo.ListLatest(ctx)

	if len(second) != len(first) {
		t.Fatalf("Expected %d messages, got %d", len(first), len(second))
	}
	for i := range first {
		if first[i].AppName != second[i].AppName || first[i].Body != second[i].Body || first[i].Color != second[i].Color {
			t.Errorf("Message %d changed: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestMessageRepo_FailedReplaceKeepsPriorBatch(t *testing.T) {
	db := openTestDB(t)
	repo, _ := NewMessageRepo(db)
	ctx := context.Background()

	if err := repo.ReplaceBatch(ctx, batch("A", "B")); err != nil {
		t.Fatalf("ReplaceBatch failed: %v", err)
	}

	_, err := db.Exec(`
		CREATE TRIGGER reject_boom BEFORE INSERT ON messages
		WHEN NEW.app_name = 'Boom'
		BEGIN SELECT RAISE(ABORT, 'boom'); END
	`)
	if err != nil {
		t.Fatalf("failed to create trigger: %v", err)
	}

	err = repo.ReplaceBatch(ctx, batch("C", "Boom"))
	if !domain.IsKind(err, domain.KindPersistence) {
		t.Fatalf("Expected persistence error, got %v", err)
	}

	out, _ := repo.ListLatest(ctx)
	if len(out) != 2 || out[0].AppName != "B" || out[1].AppName != "A" {
		t.Fatalf("Expected prior batch [B A] to survive, got %d messages", len(out))
	}
}

func TestMessageRepo_ReceivedAtStrictlyIncreasing(t *testing.T) {
	db := openTestDB(t)
	fixed := time.Unix(1_700_000_000, 0)
	repo, err := newMessageRepo(db, func() time.Time { return fixed })
	if err != nil {
		t.Fatalf("newMessageRepo failed: %v", err)
	}
	ctx := context.Background()

	first := batch("A", "B")
	second := batch("C", "D")
	if err := repo.ReplaceBatch(ctx, first); err != nil {
		t.Fatalf("ReplaceBatch failed: %v", err)
	}
	if err := repo.ReplaceBatch(ctx, second); err != nil {
		t.Fatalf("ReplaceBatch failed: %v", err)
	}

	if !first[0].ReceivedAt.Before(first[1].ReceivedAt) {
		t.Error("Expected increasing received_at within a batch")
	}
	if !first[1].ReceivedAt.Before(second[0].ReceivedAt) {
		t.Error("Expected later batch to be stamped after the previous one even with a frozen clock")
	}

	// A reopened repo continues after the stored maximum
	reopened, err := newMessageRepo(db, func() time.Time { return fixed })
	if err != nil {
		t.Fatalf("newMessageRepo failed: %v", err)
	}
	third := batch("E")
	if err := reopened.ReplaceBatch(ctx, third); err != nil {
		t.Fatalf("ReplaceBatch failed: %v", err)
	}
	if !second[1].ReceivedAt.Before(third[0].ReceivedAt) {
		t.Error("Expected reopened repo to continue after stored received_at")
	}
}

func TestMessageRepo_EmptyStore(t *testing.T) {
	db := openTestDB(t)
	repo, _ := NewMessageRepo(db)

	out, err := repo.ListLatest(context.Background())
	if err != nil {
		t.Fatalf("ListLatest failed: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("Expected empty store, got %d messages", len(out))
	}
}

func TestMessageRepo_ConcurrentReplaceKeepsOneWholeBatch(t *testing.T) {
	db := openTestDB(t)
	repo, err := NewMessageRepo(db)
	if err != nil {
		t.Fatalf("NewMessageRepo failed: %v", err)
	}
	ctx := context.Background()

	const writers = 8
	const size = 5

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for w := 0; w < writers; w++ {
		names := make([]string, size)
		for i := range names {
			names[i] = fmt.Sprintf("w%d-%d", w, i)
		}
		wg.Add(1)
		go func(msgs []*domain.Message) {
			defer wg.Done()
			errs <- repo.ReplaceBatch(ctx, msgs)
		}(batch(names...))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("ReplaceBatch failed: %v", err)
		}
	}

	out, err := repo.ListLatest(ctx)
	if err != nil {
		t.Fatalf("ListLatest failed: %v", err)
	}
	if len(out) != size {
		t.Fatalf("Expected exactly one batch of %d, got %d messages", size, len(out))
	}

	// Newest first: w<N>-4 ... w<N>-0, all from the same writer and batch
	var writer int
	if _, err := fmt.Sscanf(out[0].AppName, "w%d-", &writer); err != nil {
		t.Fatalf("Unexpected app name %q", out[0].AppName)
	}
	for i, m := range out {
		want := fmt.Sprintf("w%d-%d", writer, size-1-i)
		if m.AppName != want {
			t.Errorf("Position %d: expected %s, got %s", i, want, m.AppName)
		}
		if m.BatchID != out[0].BatchID {
			t.Errorf("Position %d: expected batch %s, got %s", i, out[0].BatchID, m.BatchID)
		}
		if i > 0 && !m.ReceivedAt.Before(out[i-1].ReceivedAt) {
			t.Errorf("Position %d: received_at not strictly decreasing when read newest first", i)
		}
	}
}
