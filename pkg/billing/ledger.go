package billing

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const usageBucket = "usage"

// Record is a usage report that reached the billing service.
type Record struct {
	Key          string `json:"key"`
	Subscription string `json:"subscription"`
	Quantity     int    `json:"quantity"`
	Attempts     int    `json:"attempts"`
	ReportedAt   int64  `json:"reported_at"`
}

// Ledger remembers which usage keys were reported.
type Ledger struct {
	db *bolt.DB
}

// OpenLedger opens or creates the ledger at path.
func OpenLedger(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir ledger path: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(usageBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Get returns the record of key or nil.
func (l *Ledger) Get(key string) (*Record, error) {
	var rec *Record
	err := l.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(usageBucket)).Get([]byte(key))
		if len(data) == 0 {
			return nil
		}
		var r Record
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		rec = &r
		return nil
	})
	return rec, err
}

// Put stores rec under its key.
func (l *Ledger) Put(rec Record) error {
	return l.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return tx.Bucket([]byte(usageBucket)).Put([]byte(rec.Key), data)
	})
}

// Len counts stored records.
func (l *Ledger) Len() (int, error) {
	n := 0
	err := l.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket([]byte(usageBucket)).Stats().KeyN
		return nil
	})
	return n, err
}
