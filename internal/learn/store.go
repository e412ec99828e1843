// Package learn persists search results worth keeping across sessions and
// feeds them back into the transposition table as sticky entries.
package learn

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hailam/chesshash/internal/hash"
)

// Key prefixes
const (
	prefixEntry   = "learn/"
	prefixSession = "session/"
)

// ErrNotFound is returned when a position has no learned record.
var ErrNotFound = errors.New("learn: position not found")

// Record is one learned search result.
type Record struct {
	Fingerprint uint64
	Depth       int
	Kind        hash.Kind
	Value       int16
	StaticEval  int16
	Move        hash.Move
}

// Session describes one batch of records written together.
type Session struct {
	ID      uuid.UUID `json:"id"`
	Written time.Time `json:"written"`
	Records int       `json:"records"`
	Source  string    `json:"source"`
}

// Store wraps BadgerDB for learned records.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the database in dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Disable logging

	return open(opts)
}

// OpenInMemory opens a database that lives only as long as the Store.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	return open(opts)
}

func open(opts badger.Options) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open learn database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func entryKey(fingerprint uint64) []byte {
	k := make([]byte, len(prefixEntry)+8)
	copy(k, prefixEntry)
	binary.BigEndian.PutUint64(k[len(prefixEntry):], fingerprint)
	return k
}

// recordSize is the encoded size of a record without its fingerprint.
const recordSize = 9

func encodeRecord(r Record) []byte {
	b := make([]byte, recordSize)
	b[0] = byte(r.Depth + 2) // same offset as the table
	b[1] = byte(r.Kind)
	binary.BigEndian.PutUint16(b[2:], uint16(r.Value))
	binary.BigEndian.PutUint16(b[4:], uint16(r.StaticEval))
	b[6] = byte(r.Move.From)
	b[7] = byte(r.Move.To)
	b[8] = byte(r.Move.Promotion)
	return b
}

func decodeRecord(fingerprint uint64, b []byte) (Record, error) {
	if len(b) != recordSize {
		return Record{}, fmt.Errorf("learn record %#x: %d bytes, want %d", fingerprint, len(b), recordSize)
	}
	r := Record{
		Fingerprint: fingerprint,
		Depth:       int(b[0]) - 2,
		Kind:        hash.Kind(b[1]),
		Value:       int16(binary.BigEndian.Uint16(b[2:])),
		StaticEval:  int16(binary.BigEndian.Uint16(b[4:])),
		Move:        hash.Move{From: hash.Square(b[6]), To: hash.Square(b[7]), Promotion: hash.Piece(b[8])},
	}
	if r.Kind > hash.StaticEvalOnly {
		return Record{}, fmt.Errorf("learn record %#x: bad kind %d", fingerprint, b[1])
	}
	return r, nil
}

// Put stores a single record, replacing any earlier one for the position.
func (s *Store) Put(r Record) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(entryKey(r.Fingerprint), encodeRecord(r))
	})
}

// Get returns the record for a position, or ErrNotFound.
func (s *Store) Get(fingerprint uint64) (Record, error) {
	var r Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entryKey(fingerprint))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			r, err = decodeRecord(fingerprint, val)
			return err
		})
	})
	return r, err
}

// Record writes a batch of records as one session and returns its id.
func (s *Store) Record(source string, records []Record) (uuid.UUID, error) {
	session := Session{
		ID:      uuid.New(),
		Written: time.Now(),
		Records: len(records),
		Source:  source,
	}
	meta, err := json.Marshal(session)
	if err != nil {
		return uuid.Nil, err
	}

	wb := s.db.NewWriteBatch()
	for _, r := range records {
		if err := wb.Set(entryKey(r.Fingerprint), encodeRecord(r)); err != nil {
			wb.Cancel()
			return uuid.Nil, fmt.Errorf("record session %s: %w", session.ID, err)
		}
	}
	if err := wb.Set([]byte(prefixSession+session.ID.String()), meta); err != nil {
		wb.Cancel()
		return uuid.Nil, fmt.Errorf("record session %s: %w", session.ID, err)
	}
	if err := wb.Flush(); err != nil {
		return uuid.Nil, fmt.Errorf("record session %s: %w", session.ID, err)
	}

	log.Debug().
		Str("session", session.ID.String()).
		Str("source", source).
		Int("records", len(records)).
		Msg("learned records written")
	return session.ID, nil
}

// Sessions lists every recorded session.
func (s *Store) Sessions() ([]Session, error) {
	var sessions []Session
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(prefixSession)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var session Session
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &session)
			})
			if err != nil {
				return err
			}
			sessions = append(sessions, session)
		}
		return nil
	})
	return sessions, err
}

// Each calls fn for every record, in fingerprint order.
func (s *Store) Each(fn func(Record) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(prefixEntry)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			fingerprint := binary.BigEndian.Uint64(item.Key()[len(prefix):])
			var r Record
			err := item.Value(func(val []byte) error {
				var err error
				r, err = decodeRecord(fingerprint, val)
				return err
			})
			if err != nil {
				return err
			}
			if err := fn(r); err != nil {
				return err
			}
		}
		return nil
	})
}

// EachLearned feeds the records to the transposition table.
func (s *Store) EachLearned(fn func(hash.Learned) error) error {
	return s.Each(func(r Record) error {
		return fn(hash.Learned{
			Fingerprint: r.Fingerprint,
			Depth:       r.Depth,
			Kind:        r.Kind,
			Value:       r.Value,
			StaticEval:  r.StaticEval,
			Move:        r.Move,
		})
	})
}

// Count returns the number of learned records.
func (s *Store) Count() (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(prefixEntry)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}
