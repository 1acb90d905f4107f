package chatcache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var bucketHistory = []byte("chat_history")

// Message is one entry in a dashboard test-chat transcript.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	FromMe    bool      `json:"fromMe"`
	Timestamp time.Time `json:"timestamp"`
}

// Store keeps chat transcripts keyed by (user, agent) in a local bbolt file.
// Callers load on selection and save on change; there is no ambient state.
type Store struct {
	db *bolt.DB
}

func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open chat cache %q: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketHistory)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func historyKey(userID, agentID uuid.UUID) []byte {
	return []byte(userID.String() + "/" + agentID.String())
}

// Load returns the transcript for (user, agent); empty when none exists.
func (s *Store) Load(userID, agentID uuid.UUID) ([]Message, error) {
	var msgs []Message
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketHistory).Get(historyKey(userID, agentID))
		if raw == nil {
			return nil
		}
		return json.Unmarshal(raw, &msgs)
	})
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// Save replaces the transcript for (user, agent).
func (s *Store) Save(userID, agentID uuid.UUID, msgs []Message) error {
	raw, err := json.Marshal(msgs)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketHistory).Put(historyKey(userID, agentID), raw)
	})
}

// Append adds messages to the transcript in a single transaction.
func (s *Store) Append(userID, agentID uuid.UUID, msgs ...Message) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketHistory)
		key := historyKey(userID, agentID)
		var history []Message
		if raw := b.Get(key); raw != nil {
			if err := json.Unmarshal(raw, &history); err != nil {
				return err
			}
		}
		history = append(history, msgs...)
		raw, err := json.Marshal(history)
		if err != nil {
			return err
		}
		return b.Put(key, raw)
	})
}

// Clear removes the transcript for (user, agent).
func (s *Store) Clear(userID, agentID uuid.UUID) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketHistory).Delete(historyKey(userID, agentID))
	})
}
