// Package store – file_store.go provides the JSON file backend. Each category
// is a single JSON object on disk, rewritten in full on every change.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/elliotchance/orderedmap/v3"
)

// FileStore persists one category as a JSON object file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a file-based store at the given path.
// Creates the parent directory if it doesn't exist.
func NewFileStore(path string) (*FileStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// All reads every entry. A missing or unreadable file is an empty table.
func (s *FileStore) All(_ context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.readAll()
	out := make([]Entry, 0, m.Len())
	for k, v := range m.AllFromFront() {
		out = append(out, Entry{Key: k, Value: v})
	}
	return out, nil
}

// Put stores value under key.
func (s *FileStore) Put(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.readAll()
	m.Set(key, value)
	return s.writeAll(m)
}

// Append stores value under the next sequential key.
func (s *FileStore) Append(_ context.Context, value string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.readAll()
	key := strconv.Itoa(m.Len() + 1)
	m.Set(key, value)
	if err := s.writeAll(m); err != nil {
		return "", err
	}
	return key, nil
}

// Delete removes key from the file.
func (s *FileStore) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.readAll()
	if !m.Delete(key) {
		return false, nil
	}
	return true, s.writeAll(m)
}

// Len returns the number of entries.
func (s *FileStore) Len(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readAll().Len(), nil
}

// readAll loads the file (caller must hold mu). Errors collapse to an empty map.
func (s *FileStore) readAll() *orderedmap.OrderedMap[string, string] {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return orderedmap.NewOrderedMap[string, string]()
	}
	m, err := decodeOrdered(data)
	if err != nil {
		return orderedmap.NewOrderedMap[string, string]()
	}
	return m
}

// writeAll writes the map to a temp file and renames it over the original
// (caller must hold mu).
func (s *FileStore) writeAll(m *orderedmap.OrderedMap[string, string]) error {
	data, err := encodeOrdered(m)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(s.path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".tmp-"+filepath.Base(s.path))
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", s.path, err)
	}
	return nil
}

// decodeOrdered parses a JSON object keeping key order. Non-string values are
// kept as their raw JSON text.
func decodeOrdered(data []byte) (*orderedmap.OrderedMap[string, string], error) {
	m := orderedmap.NewOrderedMap[string, string]()
	if len(bytes.TrimSpace(data)) == 0 {
		return m, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected JSON object")
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key")
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		var str string
		if err := json.Unmarshal(raw, &str); err == nil {
			m.Set(key, str)
		} else {
			m.Set(key, string(raw))
		}
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return m, nil
}

// encodeOrdered renders the map as an indented JSON object in insertion order.
func encodeOrdered(m *orderedmap.OrderedMap[string, string]) ([]byte, error) {
	if m.Len() == 0 {
		return []byte("{}"), nil
	}

	var buf bytes.Buffer
	buf.WriteString("{\n")
	i := 0
	for k, v := range m.AllFromFront() {
		kb, err := marshalNoEscape(k)
		if err != nil {
			return nil, err
		}
		vb, err := marshalNoEscape(v)
		if err != nil {
			return nil, err
		}
		buf.WriteString("  ")
		buf.Write(kb)
		buf.WriteString(": ")
		buf.Write(vb)
		i++
		if i < m.Len() {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}")
	return buf.Bytes(), nil
}

func marshalNoEscape(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
