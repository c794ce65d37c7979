package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	yaml "gopkg.in/yaml.v3"
)

// FileStore keeps the ledger as a human-readable YAML document.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore { return &FileStore{path: strings.TrimSpace(path)} }

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(_ context.Context) (*Document, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return newDocument(), nil
	}
	if err != nil {
		return nil, err
	}
	doc := newDocument()
	if len(strings.TrimSpace(string(raw))) == 0 {
		return doc, nil
	}
	if err := yaml.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if doc.Players == nil {
		doc.Players = make(map[string]*Entry)
	}
	return doc, nil
}

// Save writes to a temp file in the same directory and renames it over the target.
func (s *FileStore) Save(_ context.Context, doc *Document) error {
	raw, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".standings-*.yaml")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// RedisStore keeps the whole document as JSON under a single key.
type RedisStore struct {
	rdb *redis.Client
	key string
}

func NewRedisStore(rdb *redis.Client, key string) *RedisStore {
	if strings.TrimSpace(key) == "" {
		key = "arena:standings"
	}
	return &RedisStore{rdb: rdb, key: key}
}

// DialRedis parses a redis:// URL and verifies the connection.
func DialRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(redisURL))
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (s *RedisStore) Load(ctx context.Context) (*Document, error) {
	raw, err := s.rdb.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return newDocument(), nil
	}
	if err != nil {
		return nil, err
	}
	doc := newDocument()
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, err
	}
	if doc.Players == nil {
		doc.Players = make(map[string]*Entry)
	}
	return doc, nil
}

func (s *RedisStore) Save(ctx context.Context, doc *Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key, raw, 0).Err()
}

// MemoryStore is a process-local store for development and tests.
type MemoryStore struct {
	mu  sync.Mutex
	raw []byte
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

// Load returns a deep copy so callers never share state with the store.
func (s *MemoryStore) Load(_ context.Context) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := newDocument()
	if len(s.raw) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(s.raw, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *MemoryStore) Save(_ context.Context, doc *Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.raw = raw
	s.mu.Unlock()
	return nil
}
