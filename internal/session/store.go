package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound is returned when no live session has the requested id.
	ErrNotFound = errors.New("session not found")
	// ErrExists is returned by Create when the id belongs to a live session.
	ErrExists = errors.New("session already exists")
)

const (
	keyPrefix    = "session:"
	activeSetKey = "active_sessions"
	DefaultTTL   = 30 * time.Minute
)

// Store keeps sessions in Redis as JSON documents that expire after a period
// of inactivity. Saves are last-writer-wins.
type Store struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewClient builds a Redis client from a redis:// URL.
func NewClient(rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// NewStore creates a session store. A non-positive ttl selects DefaultTTL.
func NewStore(client redis.Cmdable, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, ttl: ttl}
}

// Get loads a session.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %q: %w", id, err)
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session %q: %w", id, err)
	}
	return &sess, nil
}

// Create writes a new session. It fails with ErrExists when the id is
// already live and leaves that session untouched.
func (s *Store) Create(ctx context.Context, sess *Session) error {
	raw, err := encode(sess)
	if err != nil {
		return err
	}
	created, err := s.client.SetNX(ctx, keyPrefix+sess.ID, raw, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("create session %q: %w", sess.ID, err)
	}
	if !created {
		return ErrExists
	}
	if err := s.client.SAdd(ctx, activeSetKey, sess.ID).Err(); err != nil {
		return fmt.Errorf("index session %q: %w", sess.ID, err)
	}
	return nil
}

func encode(sess *Session) ([]byte, error) {
	sess.mu.RLock()
	raw, err := json.Marshal(sess)
	sess.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("encode session %q: %w", sess.ID, err)
	}
	return raw, nil
}

// Save writes the session and refreshes its expiry.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	raw, err := encode(sess)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, keyPrefix+sess.ID, raw, s.ttl)
	pipe.SAdd(ctx, activeSetKey, sess.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save session %q: %w", sess.ID, err)
	}
	return nil
}

// Delete removes a session. Deleting a missing session is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, keyPrefix+id)
	pipe.SRem(ctx, activeSetKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session %q: %w", id, err)
	}
	return nil
}

// ActiveIDs lists sessions that are still live, pruning ids whose document
// has expired.
func (s *Store) ActiveIDs(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, activeSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	live := ids[:0]
	for _, id := range ids {
		n, err := s.client.Exists(ctx, keyPrefix+id).Result()
		if err != nil {
			return nil, fmt.Errorf("check session %q: %w", id, err)
		}
		if n == 0 {
			s.client.SRem(ctx, activeSetKey, id)
			continue
		}
		live = append(live, id)
	}
	return live, nil
}
