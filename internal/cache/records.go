package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/quantmind-br/repodiagrams-go/internal/domain"
	"github.com/quantmind-br/repodiagrams-go/internal/utils"
)

// DefaultMemoryEntries bounds the in-process record LRU
const DefaultMemoryEntries = 2048

// RecordStore caches parsed FileRecords by content hash. Values are JSON
// compressed with zstd; a small LRU keeps recently used entries in memory
// in front of the persistent backend.
type RecordStore struct {
	backend domain.Cache
	memory  *lru.Cache[string, []byte]
	schema  int
	ttl     time.Duration
	logger  *utils.Logger
	enc     *zstd.Encoder
	dec     *zstd.Decoder

	hits   atomic.Int64
	misses atomic.Int64
}

// RecordStoreOptions contains options for creating a RecordStore
type RecordStoreOptions struct {
	Backend domain.Cache
	// Schema is mixed into every key so incompatible records are never reused
	Schema        int
	TTL           time.Duration
	MemoryEntries int
	Logger        *utils.Logger
}

// NewRecordStore creates a RecordStore over backend
func NewRecordStore(opts RecordStoreOptions) (*RecordStore, error) {
	if opts.Backend == nil {
		return nil, errors.New("record store requires a cache backend")
	}
	if opts.MemoryEntries <= 0 {
		opts.MemoryEntries = DefaultMemoryEntries
	}
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}

	memory, err := lru.New[string, []byte](opts.MemoryEntries)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}

	return &RecordStore{
		backend: opts.Backend,
		memory:  memory,
		schema:  opts.Schema,
		ttl:     opts.TTL,
		logger:  opts.Logger.WithComponent("cache"),
		enc:     enc,
		dec:     dec,
	}, nil
}

// GetRecord returns the record cached for contentHash
func (s *RecordStore) GetRecord(ctx context.Context, contentHash string) (*domain.FileRecord, bool) {
	key := RecordKey(s.schema, contentHash)

	data, ok := s.memory.Get(key)
	if !ok {
		var err error
		data, err = s.backend.Get(ctx, key)
		if err != nil {
			if !errors.Is(err, domain.ErrCacheMiss) {
				s.logger.Warn().Err(err).Str("key", key).Msg("Cache read failed")
			}
			s.misses.Add(1)
			return nil, false
		}
		s.memory.Add(key, data)
	}

	rec, err := s.decode(data)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Dropping undecodable cache entry")
		s.memory.Remove(key)
		_ = s.backend.Delete(ctx, key)
		s.misses.Add(1)
		return nil, false
	}

	s.hits.Add(1)
	return rec, true
}

// PutRecord stores rec under contentHash. Failures are logged and ignored.
func (s *RecordStore) PutRecord(ctx context.Context, contentHash string, rec *domain.FileRecord) {
	key := RecordKey(s.schema, contentHash)

	raw, err := json.Marshal(rec)
	if err != nil {
		s.logger.Warn().Err(err).Str("file", rec.Path).Msg("Failed to encode record for cache")
		return
	}
	data := s.enc.EncodeAll(raw, make([]byte, 0, len(raw)/2))

	s.memory.Add(key, data)
	if err := s.backend.Set(ctx, key, data, s.ttl); err != nil {
		s.logger.Warn().Err(err).Str("file", rec.Path).Msg("Cache write failed")
	}
}

func (s *RecordStore) decode(data []byte) (*domain.FileRecord, error) {
	raw, err := s.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, err
	}
	var rec domain.FileRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Hits returns the number of served lookups
func (s *RecordStore) Hits() int64 { return s.hits.Load() }

// Misses returns the number of lookups that fell through to parsing
func (s *RecordStore) Misses() int64 { return s.misses.Load() }

// Close releases the compressor and the backend
func (s *RecordStore) Close() error {
	s.dec.Close()
	_ = s.enc.Close()
	return s.backend.Close()
}
