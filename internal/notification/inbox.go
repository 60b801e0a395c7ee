package notification

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/citypd/platform/internal/shared/errors"
	"github.com/citypd/platform/internal/shared/types"
)

// Inbox stores notifications for later reading
type Inbox interface {
	Save(ctx context.Context, notifications []Notification) error
	List(ctx context.Context, recipient types.ID, filter ListFilter) ([]Notification, int, error)
	MarkRead(ctx context.Context, recipient, id types.ID) (*Notification, error)
}

// PostgresInbox implements Inbox using PostgreSQL
type PostgresInbox struct {
	pool *pgxpool.Pool
}

// NewPostgresInbox creates a new PostgreSQL inbox
func NewPostgresInbox(pool *pgxpool.Pool) *PostgresInbox {
	return &PostgresInbox{pool: pool}
}

// Save stores notifications in one transaction
func (i *PostgresInbox) Save(ctx context.Context, notifications []Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	tx, err := i.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO notifications.notifications (
			id, recipient, case_id, type, title, message, data, read_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for _, n := range notifications {
		data := []byte("{}")
		if n.Data != nil {
			if data, err = json.Marshal(n.Data); err != nil {
				return errors.Wrap(err, "failed to marshal notification data")
			}
		}
		_, err := tx.Exec(ctx, query,
			n.ID, n.Recipient, n.CaseID, n.Type, n.Title, n.Message, data, n.ReadAt, n.CreatedAt,
		)
		if err != nil {
			return errors.Wrap(err, "failed to save notification")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// List returns the recipient's notifications, newest first
func (i *PostgresInbox) List(ctx context.Context, recipient types.ID, filter ListFilter) ([]Notification, int, error) {
	where := "WHERE recipient = $1"
	if filter.UnreadOnly {
		where += " AND read_at IS NULL"
	}

	var total int
	if err := i.pool.QueryRow(ctx, "SELECT COUNT(*) FROM notifications.notifications "+where, recipient).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count notifications")
	}

	limit := 50
	if filter.Limit > 0 && filter.Limit <= 100 {
		limit = filter.Limit
	}

	query := `
		SELECT id, recipient, case_id, type, title, message, data, read_at, created_at
		FROM notifications.notifications
		` + where + `
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := i.pool.Query(ctx, query, recipient, limit, filter.Offset)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list notifications")
	}
	defer rows.Close()

	out := []Notification{}
	for rows.Next() {
		var n Notification
		var data []byte
		if err := rows.Scan(&n.ID, &n.Recipient, &n.CaseID, &n.Type, &n.Title, &n.Message, &data, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, 0, errors.Wrap(err, "failed to scan notification")
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &n.Data); err != nil || len(n.Data) == 0 {
				n.Data = nil
			}
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

// MarkRead stamps a notification as read. Notifications of other
// recipients are reported as not found.
func (i *PostgresInbox) MarkRead(ctx context.Context, recipient, id types.ID) (*Notification, error) {
	query := `
		UPDATE notifications.notifications
		SET read_at = COALESCE(read_at, NOW())
		WHERE id = $1 AND recipient = $2
		RETURNING id, recipient, case_id, type, title, message, read_at, created_at`

	n := &Notification{}
	err := i.pool.QueryRow(ctx, query, id, recipient).Scan(
		&n.ID, &n.Recipient, &n.CaseID, &n.Type, &n.Title, &n.Message, &n.ReadAt, &n.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("notification", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to mark notification read")
	}
	return n, nil
}

// MemoryInbox implements Inbox in process memory
type MemoryInbox struct {
	mu    sync.RWMutex
	items []Notification
}

// NewMemoryInbox creates an empty in-memory inbox
func NewMemoryInbox() *MemoryInbox {
	return &MemoryInbox{}
}

func (i *MemoryInbox) Save(ctx context.Context, notifications []Notification) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.items = append(i.items, notifications...)
	return nil
}

func (i *MemoryInbox) List(ctx context.Context, recipient types.ID, filter ListFilter) ([]Notification, int, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	matched := []Notification{}
	for _, n := range i.items {
		if n.Recipient != recipient {
			continue
		}
		if filter.UnreadOnly && n.IsRead() {
			continue
		}
		matched = append(matched, n)
	}
	sort.SliceStable(matched, func(a, b int) bool {
		return matched[a].CreatedAt.After(matched[b].CreatedAt)
	})

	total := len(matched)
	limit := 50
	if filter.Limit > 0 && filter.Limit <= 100 {
		limit = filter.Limit
	}
	if filter.Offset >= total {
		return []Notification{}, total, nil
	}
	end := filter.Offset + limit
	if end > total {
		end = total
	}
	return matched[filter.Offset:end], total, nil
}

func (i *MemoryInbox) MarkRead(ctx context.Context, recipient, id types.ID) (*Notification, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	for idx := range i.items {
		n := &i.items[idx]
		if n.ID != id || n.Recipient != recipient {
			continue
		}
		if n.ReadAt == nil {
			now := time.Now()
			n.ReadAt = &now
		}
		out := *n
		return &out, nil
	}
	return nil, errors.NotFound("notification", id.String())
}

// All returns every stored notification.
func (i *MemoryInbox) All() []Notification {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return append([]Notification(nil), i.items...)
}
