package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/foxzi/recruitflow/internal/conversation"
)

var (
	// ErrNotFound is returned for an unknown session id
	ErrNotFound = errors.New("session not found")
	// ErrConflict is returned when a session changed since it was read
	ErrConflict = errors.New("session was modified concurrently")
)

var (
	bucketSessions     = []byte("sessions")
	bucketSessionUsers = []byte("session_users")
)

// Storage provides session storage operations
type Storage struct {
	db  *bolt.DB
	now func() time.Time
}

// NewStorage creates a new session storage
func NewStorage(db *bolt.DB) (*Storage, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketSessions); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketSessionUsers); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session buckets: %w", err)
	}
	return &Storage{db: db, now: time.Now}, nil
}

func userKey(userID, id string) []byte {
	return []byte(userID + "\x00" + id)
}

// Create stores a new session with an empty draft
func (s *Storage) Create(ctx context.Context, sess *Session) error {
	if sess.UserID == "" {
		return fmt.Errorf("session user is required")
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		sessions := tx.Bucket(bucketSessions)
		users := tx.Bucket(bucketSessionUsers)

		sess.ID = uuid.New().String()
		sess.State = conversation.StateGoal
		sess.Revision = 1
		sess.CreatedAt = s.now().UTC()
		sess.UpdatedAt = sess.CreatedAt

		data, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}

		if err := sessions.Put([]byte(sess.ID), data); err != nil {
			return err
		}

		// Create user index
		return users.Put(userKey(sess.UserID, sess.ID), []byte(sess.ID))
	})
}

// Get retrieves a session by ID
func (s *Storage) Get(ctx context.Context, id string) (*Session, error) {
	var sess *Session

	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketSessions).Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}

		sess = &Session{}
		return json.Unmarshal(data, sess)
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Update writes sess if its revision matches the stored one, then bumps
// the revision
func (s *Storage) Update(ctx context.Context, sess *Session) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		sessions := tx.Bucket(bucketSessions)

		existingData := sessions.Get([]byte(sess.ID))
		if existingData == nil {
			return ErrNotFound
		}

		var existing Session
		if err := json.Unmarshal(existingData, &existing); err != nil {
			return err
		}
		if existing.Revision != sess.Revision {
			return fmt.Errorf("%w: have revision %d, stored %d", ErrConflict, sess.Revision, existing.Revision)
		}

		// Ownership never changes
		sess.UserID = existing.UserID
		sess.CreatedAt = existing.CreatedAt
		sess.Revision = existing.Revision + 1
		sess.UpdatedAt = s.now().UTC()

		data, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}
		return sessions.Put([]byte(sess.ID), data)
	})
}

// Delete removes a session by ID
func (s *Storage) Delete(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		sessions := tx.Bucket(bucketSessions)
		users := tx.Bucket(bucketSessionUsers)

		data := sessions.Get([]byte(id))
		if data == nil {
			return nil // Already deleted
		}

		var sess Session
		if err := json.Unmarshal(data, &sess); err != nil {
			return err
		}

		if err := users.Delete(userKey(sess.UserID, id)); err != nil {
			return err
		}
		return sessions.Delete([]byte(id))
	})
}

// List returns sessions, newest first. A UserID filter walks the user index.
func (s *Storage) List(ctx context.Context, filter ListFilter) ([]*Session, error) {
	var sessions []*Session

	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketSessions)

		collect := func(data []byte) {
			var sess Session
			if err := json.Unmarshal(data, &sess); err != nil {
				return
			}
			sessions = append(sessions, &sess)
		}

		if filter.UserID != "" {
			prefix := userKey(filter.UserID, "")
			c := tx.Bucket(bucketSessionUsers).Cursor()
			for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
				if data := bucket.Get(v); data != nil {
					collect(data)
				}
			}
			return nil
		}

		c := bucket.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			collect(v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortNewestFirst(sessions)

	if filter.Offset > 0 {
		if filter.Offset >= len(sessions) {
			return nil, nil
		}
		sessions = sessions[filter.Offset:]
	}
	if filter.Limit > 0 && len(sessions) > filter.Limit {
		sessions = sessions[:filter.Limit]
	}
	return sessions, nil
}

// Count returns the number of stored sessions
func (s *Storage) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketSessions).Stats().KeyN
		return nil
	})
	return n, err
}

// Prune deletes sessions not updated since before
func (s *Storage) Prune(ctx context.Context, before time.Time) (int, error) {
	var removed int
	err := s.db.Update(func(tx *bolt.Tx) error {
		sessions := tx.Bucket(bucketSessions)
		users := tx.Bucket(bucketSessionUsers)

		var stale []Session
		c := sessions.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var sess Session
			if err := json.Unmarshal(v, &sess); err != nil {
				continue
			}
			if sess.UpdatedAt.Before(before) {
				stale = append(stale, sess)
			}
		}

		for _, sess := range stale {
			if err := users.Delete(userKey(sess.UserID, sess.ID)); err != nil {
				return err
			}
			if err := sessions.Delete([]byte(sess.ID)); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}

func hasPrefix(b, prefix []byte) bool {
	return len(b) >= len(prefix) && string(b[:len(prefix)]) == string(prefix)
}

func sortNewestFirst(sessions []*Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
}
