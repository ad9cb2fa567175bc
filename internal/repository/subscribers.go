package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"

	"BitDCA/internal/domain/models"
	domrepo "BitDCA/internal/domain/repository"
)

// MemorySubscribers keeps the list in process memory.
type MemorySubscribers struct {
	mu     sync.RWMutex
	emails []string
	seen   map[string]struct{}
}

func NewMemorySubscribers() *MemorySubscribers {
	return &MemorySubscribers{seen: make(map[string]struct{})}
}

func (m *MemorySubscribers) Add(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[email]; ok {
		return false, nil
	}
	m.seen[email] = struct{}{}
	m.emails = append(m.emails, email)
	return true, nil
}

func (m *MemorySubscribers) List(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.emails))
	copy(out, m.emails)
	return out, nil
}

// addOnce appends to the list only when the set membership is new, so
// concurrent subscribers cannot duplicate an entry.
var addOnce = redis.NewScript(`
if redis.call("SADD", KEYS[2], ARGV[1]) == 1 then
  redis.call("RPUSH", KEYS[1], ARGV[1])
  return 1
end
return 0
`)

// RedisSubscribers stores the ordered list under models.SubscribersKey with
// a companion set for membership checks.
type RedisSubscribers struct {
	client  *redis.Client
	listKey string
	setKey  string
}

func NewRedisSubscribers(client *redis.Client) *RedisSubscribers {
	return &RedisSubscribers{
		client:  client,
		listKey: models.SubscribersKey,
		setKey:  models.SubscribersKey + ":set",
	}
}

func (r *RedisSubscribers) Add(ctx context.Context, email string) (bool, error) {
	n, err := addOnce.Run(ctx, r.client, []string{r.listKey, r.setKey}, email).Int()
	if err != nil {
		return false, fmt.Errorf("redis add subscriber: %w", err)
	}
	return n == 1, nil
}

func (r *RedisSubscribers) List(ctx context.Context) ([]string, error) {
	out, err := r.client.LRange(ctx, r.listKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list subscribers: %w", err)
	}
	return out, nil
}

const sqliteSchema = `CREATE TABLE IF NOT EXISTS newsletter_emails (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	email TEXT NOT NULL UNIQUE,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// SQLiteSubscribers persists the list in a local sqlite file.
type SQLiteSubscribers struct {
	db *sql.DB
}

// NewSQLiteSubscribers opens path (":memory:" is accepted) and ensures the table.
func NewSQLiteSubscribers(path string) (*SQLiteSubscribers, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// sqlite serialises writers; one connection also keeps :memory: databases shared
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &SQLiteSubscribers{db: db}, nil
}

func (s *SQLiteSubscribers) Add(ctx context.Context, email string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO newsletter_emails (email) VALUES (?)`, email)
	if err != nil {
		return false, fmt.Errorf("sqlite add subscriber: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *SQLiteSubscribers) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT email FROM newsletter_emails ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite list subscribers: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteSubscribers) Close() error { return s.db.Close() }

var (
	_ domrepo.SubscriberStore = (*MemorySubscribers)(nil)
	_ domrepo.SubscriberStore = (*RedisSubscribers)(nil)
	_ domrepo.SubscriberStore = (*SQLiteSubscribers)(nil)
)
