package auditchain

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Store persists envelopes in append order. Save is called once per
// appended envelope; Load returns the full sequence for verification.
type Store interface {
	Save(env Envelope) error
	Load() ([]Envelope, error)
}

// MemoryStore keeps envelopes in process memory.
type MemoryStore struct {
	mu        sync.Mutex
	envelopes []Envelope
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(env Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.envelopes = append(s.envelopes, env)
	return nil
}

func (s *MemoryStore) Load() ([]Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Envelope, len(s.envelopes))
	copy(out, s.envelopes)
	return out, nil
}

// FileStore appends envelopes to a JSONL file, one envelope per line. The
// file is created owner-only; audit records carry classification context.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore opens or creates the JSONL file at path.
func NewFileStore(path string) (*FileStore, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("auditchain: open store file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("auditchain: close store file: %w", err)
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Save(env Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("auditchain: open store file: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("auditchain: marshal envelope: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("auditchain: append envelope: %w", err)
	}
	return f.Sync()
}

func (s *FileStore) Load() ([]Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("auditchain: open store file: %w", err)
	}
	defer f.Close()

	var envelopes []Envelope
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var env Envelope
		if err := json.Unmarshal(scanner.Bytes(), &env); err != nil {
			return nil, fmt.Errorf("auditchain: decode line %d: %w", lineNo, err)
		}
		envelopes = append(envelopes, env)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("auditchain: read store file: %w", err)
	}
	return envelopes, nil
}
