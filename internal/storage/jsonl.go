package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

type accountRecord struct {
	AccountID string `json:"account_id"`
}

// JsonlStore keeps allow-list records in a local JSONL file.
type JsonlStore struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStore(path string) *JsonlStore {
	return &JsonlStore{path: path}
}

// List returns every account id in file order.
func (s *JsonlStore) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readAll()
}

func (s *JsonlStore) Exists(ctx context.Context, accountID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.readAll()
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == accountID {
			return true, nil
		}
	}
	return false, nil
}

// Insert appends one record.
func (s *JsonlStore) Insert(ctx context.Context, accountID string) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create store dir: %w", err)
		}
	}

	line, err := json.Marshal(accountRecord{AccountID: accountID})
	if err != nil {
		return fmt.Errorf("marshal account record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open store file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if _, err := writer.Write(line); err != nil {
		return fmt.Errorf("write account record: %w", err)
	}
	if err := writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush store: %w", err)
	}
	return nil
}

func (s *JsonlStore) Close() error { return nil }

func (s *JsonlStore) readAll() ([]string, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open store file: %w", err)
	}
	defer file.Close()

	var ids []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec accountRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("parse account record: %w", err)
		}
		if rec.AccountID == "" {
			continue
		}
		ids = append(ids, rec.AccountID)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan store file: %w", err)
	}
	return ids, nil
}
