package sink

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/samvad-hq/samvad-feed-harvester/internal/domain"
)

// BoltSink stores batches in a bbolt database: one bucket per provider plus an error bucket.
// Keys are big-endian sequence numbers so cursor order equals append order.
type BoltSink struct {
	db   *bbolt.DB
	path string
}

// OpenBolt opens or creates the database at path.
func OpenBolt(path string) (*BoltSink, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, &IOError{Path: path, Err: fmt.Errorf("open bolt db: %w", err)}
	}
	return &BoltSink{db: db, path: path}, nil
}

// BucketFor returns the bucket a batch is stored in.
func BucketFor(batch domain.IngestBatch) string {
	if batch.Failed() {
		return errorBucket
	}
	return batch.Provider
}

func (s *BoltSink) Append(ctx context.Context, batch domain.IngestBatch) error {
	if err := ctx.Err(); err != nil {
		return &IOError{Path: s.path, Err: err}
	}

	record, err := json.Marshal(batch)
	if err != nil {
		return &IOError{Path: s.path, Err: fmt.Errorf("encode batch: %w", err)}
	}

	bucket := BucketFor(batch)
	err = s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return fmt.Errorf("bucket %q: %w", bucket, err)
		}
		seq, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}
		return b.Put(sequenceKey(seq), record)
	})
	if err != nil {
		return &IOError{Path: s.path, Err: err}
	}
	return nil
}

// Records returns the raw records of a bucket in append order.
func (s *BoltSink) Records(bucket string) ([][]byte, error) {
	var out [][]byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			out = append(out, append([]byte(nil), v...))
			return nil
		})
	})
	if err != nil {
		return nil, &IOError{Path: s.path, Err: err}
	}
	return out, nil
}

func (s *BoltSink) Close() error { return s.db.Close() }

func sequenceKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
