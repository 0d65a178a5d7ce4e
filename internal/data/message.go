package data

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/consolerelay/console-relay/internal/biz/domain"
	"github.com/consolerelay/console-relay/internal/biz/repo"
)

// messageRepo implements the message store on SQLite
type messageRepo struct {
	db  *sql.DB
	now func() time.Time

	// mu serializes batch replacement; last is the newest received_at handed out
	mu   sync.Mutex
	last int64
}

// NewMessageRepo creates a message repository on an opened database
func NewMessageRepo(db *sql.DB) (repo.MessageRepo, error) {
	return newMessageRepo(db, time.Now)
}

func newMessageRepo(db *sql.DB, now func() time.Time) (*messageRepo, error) {
	var last sql.NullInt64
	if err := db.QueryRow(`SELECT MAX(received_at) FROM messages`).Scan(&last); err != nil {
		return nil, fmt.Errorf("failed to read latest received_at: %w", err)
	}
	return &messageRepo{db: db, now: now, last: last.Int64}, nil
}

// ReplaceBatch deletes the stored batch and inserts msgs in one transaction
func (r *messageRepo) ReplaceBatch(ctx context.Context, msgs []*domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.PersistenceError("replace batch", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages`); err != nil {
		return domain.PersistenceError("replace batch", fmt.Errorf("failed to delete messages: %w", err))
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (batch_id, app_name, carrier, sms, time, color, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return domain.PersistenceError("replace batch", fmt.Errorf("failed to prepare insert: %w", err))
	}
	defer stmt.Close()

	batchID := uuid.NewString()
	stamp := r.now().UnixNano()
	if stamp <= r.last {
		stamp = r.last + 1
	}

	ids := make([]int64, len(msgs))
	stamps := make([]int64, len(msgs))
	for i, m := range msgs {
		stamps[i] = stamp + int64(i)
		result, err := stmt.ExecContext(ctx, batchID, m.AppName, m.Carrier, m.Body, m.DisplayTime, m.Color, stamps[i])
		if err != nil {
			return domain.PersistenceError("replace batch", fmt.Errorf("failed to insert message: %w", err))
		}
		ids[i], _ = result.LastInsertId()
	}

	if err := tx.Commit(); err != nil {
		return domain.PersistenceError("replace batch", fmt.Errorf("failed to commit: %w", err))
	}

	for i, m := range msgs {
		m.ID = ids[i]
		m.BatchID = batchID
		m.ReceivedAt = time.Unix(0, stamps[i])
	}
	if len(stamps) > 0 {
		r.last = stamps[len(stamps)-1]
	}
	return nil
}

// ListLatest returns the stored batch, most recent first
func (r *messageRepo) ListLatest(ctx context.Context) ([]*domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, batch_id, app_name, carrier, sms, time, color, received_at
		FROM messages
		ORDER BY received_at DESC, id DESC
	`)
	if err != nil {
		return nil, domain.PersistenceError("list messages", fmt.Errorf("failed to query messages: %w", err))
	}
	defer rows.Close()

	var msgs []*domain.Message
	for rows.Next() {
		var m domain.Message
		var receivedAt int64
		if err := rows.Scan(&m.ID, &m.BatchID, &m.AppName, &m.Carrier, &m.Body, &m.DisplayTime, &m.Color, &receivedAt); err != nil {
			return nil, domain.PersistenceError("list messages", fmt.Errorf("failed to scan message: %w", err))
		}
		m.ReceivedAt = time.Unix(0, receivedAt)
		msgs = append(msgs, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.PersistenceError("list messages", fmt.Errorf("failed to iterate messages: %w", err))
	}

	return msgs, nil
}
