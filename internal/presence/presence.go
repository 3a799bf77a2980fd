package presence

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store tracks which users are currently attached to a document, as a Redis
// set per document under key "<prefix><documentId>". The set carries a TTL
// refreshed on every join so entries from crashed processes age out instead
// of lingering forever. Presence is advisory only; room membership lives in
// the in-process registry.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewStore creates a Redis-based presence store. Prefix may be empty.
func NewStore(client *redis.Client, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = "presence:"
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

func (s *Store) key(docID string) string {
	return s.prefix + docID
}

// Join marks userID present on docID and refreshes the document's TTL.
func (s *Store) Join(ctx context.Context, docID, userID string) error {
	if err := s.client.SAdd(ctx, s.key(docID), userID).Err(); err != nil {
		return err
	}
	return s.client.Expire(ctx, s.key(docID), s.ttl).Err()
}

// Leave removes userID from docID's presence set.
func (s *Store) Leave(ctx context.Context, docID, userID string) error {
	return s.client.SRem(ctx, s.key(docID), userID).Err()
}

// List returns the users currently present on docID.
func (s *Store) List(ctx context.Context, docID string) ([]string, error) {
	members, err := s.client.SMembers(ctx, s.key(docID)).Result()
	if err != nil {
		if err == redis.Nil {
			return []string{}, nil
		}
		return nil, err
	}
	return members, nil
}
