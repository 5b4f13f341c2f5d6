package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/jonathan/listing-customizer/internal/types"
)

const listingPrefix = "listing:"

// record is the persisted envelope. Badger expires the key natively; the
// stored-at check in Get keeps the "now - storedAt < ttl" rule exact.
type record struct {
	StoredAt   time.Time       `json:"stored_at"`
	TTLSeconds int64           `json:"ttl_seconds"`
	Listing    json.RawMessage `json:"listing"`
}

// Badger is a Store backed by an embedded badger database.
type Badger struct {
	db     *badger.DB
	logger *slog.Logger
	now    Clock
}

// OpenBadger opens (or creates) a badger cache at path. An empty path opens
// an in-memory database.
func OpenBadger(path string, logger *slog.Logger) (*Badger, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	if path == "" {
		opts = opts.WithInMemory(true)
	} else {
		opts.SyncWrites = true
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("badger cache opened", "path", path, "in_memory", path == "")
	return &Badger{db: db, logger: logger, now: time.Now}, nil
}

// Close closes the underlying database.
func (b *Badger) Close() error {
	return b.db.Close()
}

// Get returns the fresh entry for key. Payloads that fail schema validation
// are logged and reported as a miss.
func (b *Badger) Get(_ context.Context, key string) (*Entry, error) {
	var rec record
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(listingPrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cache entry: %w", err)
	}

	entry := &Entry{Key: key, StoredAt: rec.StoredAt, TTL: time.Duration(rec.TTLSeconds) * time.Second}
	if !entry.Fresh(b.now()) {
		return nil, nil
	}

	listing, err := DecodeListing(rec.Listing)
	if err != nil {
		b.logger.Warn("discarding invalid cache entry", "key", key, "error", err)
		return nil, nil
	}
	entry.Listing = listing
	return entry, nil
}

// Put stores listing under key with a native badger TTL.
func (b *Badger) Put(_ context.Context, key string, listing *types.ExtractedListing, ttl time.Duration) error {
	payload, err := EncodeListing(listing)
	if err != nil {
		return err
	}
	data, err := json.Marshal(record{
		StoredAt:   b.now().UTC(),
		TTLSeconds: int64(ttl / time.Second),
		Listing:    payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal cache record: %w", err)
	}

	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(listingPrefix+key), data).WithTTL(ttl))
	})
	if err != nil {
		return fmt.Errorf("put cache entry: %w", err)
	}
	return nil
}

// Invalidate removes key.
func (b *Badger) Invalidate(_ context.Context, key string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(listingPrefix + key))
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("invalidate cache entry: %w", err)
	}
	return nil
}

// ClearAll drops every cached listing.
func (b *Badger) ClearAll(_ context.Context) error {
	if err := b.db.DropPrefix([]byte(listingPrefix)); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

// CollectGarbage rewrites value-log files until badger reports nothing left
// to reclaim. In-memory databases have no value log.
func (b *Badger) CollectGarbage() error {
	for {
		err := b.db.RunValueLogGC(0.5)
		switch {
		case err == nil:
			continue
		case errors.Is(err, badger.ErrNoRewrite), errors.Is(err, badger.ErrGCInMemoryMode):
			return nil
		default:
			return fmt.Errorf("badger value log gc: %w", err)
		}
	}
}
