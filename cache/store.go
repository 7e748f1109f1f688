package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"hash/fnv"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Payload is the expensive part of an answer: the parts the server transcript
// intentionally omits and the client reconstructs on reload.
type Payload struct {
	Rows    []map[string]any `json:"rows,omitempty"`
	Columns []string         `json:"columns,omitempty"`
	Chart   map[string]any   `json:"chart,omitempty"`
}

// Store is a content-addressed, best-effort cache of answer payloads. Entries
// are keyed by a digest of (dataset, session, content, query) and overwritten
// on re-derivation; they are never invalidated explicitly. Every failure path
// degrades to a miss or a silent no-op - callers never see an error.
type Store struct {
	db     *sql.DB
	hot    *lru.Cache
	logger *zap.Logger
}

// NewStore opens (or creates) the sqlite-backed cache at path. hotEntries
// bounds the in-memory layer in front of it.
func NewStore(path string, hotEntries int, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	createTable := `
	CREATE TABLE IF NOT EXISTS result_cache (
		cache_key TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)
	`
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, err
	}

	hot, err := lru.New(hotEntries)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, hot: hot, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores a payload under the computed key. A missing session id or
// content means the answer is not addressable yet and the write is skipped.
// Storage failures are swallowed: caching is strictly best-effort.
func (s *Store) Put(datasetID, sessionID, content, query string, p Payload) {
	if sessionID == "" || content == "" {
		return
	}
	key := Key(datasetID, sessionID, content, query)
	s.hot.Add(key, p)

	data, err := json.Marshal(p)
	if err != nil {
		s.logger.Warn("Failed to encode cache payload", zap.String("cache_key", key), zap.Error(err))
		return
	}

	upsert := `
	INSERT INTO result_cache (cache_key, payload, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(cache_key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
	`
	if _, err := s.db.Exec(upsert, key, string(data), time.Now().UTC()); err != nil {
		s.logger.Warn("Failed to persist cache entry", zap.String("cache_key", key), zap.Error(err))
	}
}

// Get returns the payload stored for (dataset, session, content, query), or
// false on a miss. Malformed stored data and storage errors are misses.
func (s *Store) Get(datasetID, sessionID, content, query string) (Payload, bool) {
	if sessionID == "" || content == "" {
		return Payload{}, false
	}
	key := Key(datasetID, sessionID, content, query)

	if v, ok := s.hot.Get(key); ok {
		if p, ok := v.(Payload); ok {
			return p, true
		}
	}

	var data string
	err := s.db.QueryRow("SELECT payload FROM result_cache WHERE cache_key = ?", key).Scan(&data)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("Cache read failed", zap.String("cache_key", key), zap.Error(err))
		}
		return Payload{}, false
	}

	var p Payload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		s.logger.Warn("Discarding malformed cache entry", zap.String("cache_key", key), zap.Error(err))
		return Payload{}, false
	}

	s.hot.Add(key, p)
	return p, true
}

// Key computes the content address for an entry. FNV-1a is enough here: the
// cache is supplementary, so a collision costs a wrong table render, not a
// wrong transcript. The dataset id is part of the digest so two datasets
// reusing a session id and question text cannot share an entry.
func Key(datasetID, sessionID, content, query string) string {
	h := fnv.New64a()
	for _, part := range []string{datasetID, sessionID, content, query} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return strconv.FormatUint(h.Sum64(), 16)
}
