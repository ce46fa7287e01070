package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logx "questminder/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.<slot>.snapshot.json (replaced atomically on save)
//   - <prefix>.fires.jsonl          (append-only JSON Lines)
//
// The journal is trimmed to KeepFires entries every compactEvery appends.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	prefix      string
	firesPath   string
	firesFile   *os.File
	keep        int
	fireWrites  int
	compactEach int
}

const compactEvery = 1000

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	firesPath := prefix + ".fires.jsonl"
	ff, err := os.OpenFile(firesPath, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}

	return &fileStore{
		log:         log,
		prefix:      prefix,
		firesPath:   firesPath,
		firesFile:   ff,
		keep:        cfg.KeepFires,
		compactEach: compactEvery,
	}, nil
}

func (s *fileStore) snapshotPath(slot string) string {
	return s.prefix + "." + slot + ".snapshot.json"
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.firesFile == nil {
		return nil
	}
	err := s.firesFile.Close()
	s.firesFile = nil
	return err
}

func (s *fileStore) SaveSnapshot(ctx context.Context, slot string, data []byte) error {
	_ = ctx
	slot, err := cleanSlot(slot)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeAtomic(s.snapshotPath(slot), data)
}

func (s *fileStore) LoadSnapshot(ctx context.Context, slot string) ([]byte, error) {
	_ = ctx
	slot, err := cleanSlot(slot)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := os.ReadFile(s.snapshotPath(slot))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return b, err
}

func (s *fileStore) AppendFire(ctx context.Context, e FireEntry) error {
	_ = ctx
	if e.At.IsZero() {
		e.At = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.firesFile == nil {
		return errors.New("fire journal closed")
	}
	if err := json.NewEncoder(s.firesFile).Encode(e); err != nil {
		return err
	}
	s.fireWrites++
	if s.keep > 0 && s.fireWrites%s.compactEach == 0 {
		// Best-effort compact.
		if err := s.compactLocked(); err != nil {
			s.log.Debug("fire journal compact failed", logx.Err(err))
		}
	}
	return nil
}

func (s *fileStore) RecentFires(ctx context.Context, n int) ([]FireEntry, error) {
	_ = ctx
	if n <= 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return readTail(s.firesPath, n)
}

func (s *fileStore) compactLocked() error {
	kept, err := readTail(s.firesPath, s.keep)
	if err != nil {
		return err
	}
	if err := s.firesFile.Truncate(0); err != nil {
		return err
	}
	if _, err := s.firesFile.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	enc := json.NewEncoder(s.firesFile)
	for _, e := range kept {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	return nil
}

// readTail returns the last n decodable lines of a JSON Lines file.
func readTail(path string, n int) ([]FireEntry, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ring := make([]FireEntry, 0, n)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e FireEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			continue
		}
		if len(ring) == n {
			copy(ring, ring[1:])
			ring = ring[:n-1]
		}
		ring = append(ring, e)
	}
	return ring, sc.Err()
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
