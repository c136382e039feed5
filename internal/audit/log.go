package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Log appends monitoring steps to a JSONL file. Each line carries the
// SHA-256 of the line before it, so edits and deletions break the chain.
// Several loops may share one Log.
type Log struct {
	mu    sync.Mutex
	path  string
	file  *os.File
	tail  string
	count int
}

// Open opens path for appending, creating it and its directory if needed,
// and resumes the chain from the last existing line.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("audit: create directory: %w", err)
	}
	tail, count, err := chainTail(path)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("audit: open file: %w", err)
	}
	return &Log{path: path, file: f, tail: tail, count: count}, nil
}

// Record links entry to the chain, stamps it if Timestamp is empty, and
// writes it durably before returning.
func (l *Log) Record(entry AuditEntry) error {
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(TimestampFormat)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry.PrevHash = l.tail
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("audit: marshal entry: %w", err)
	}
	if _, err := l.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("audit: write entry: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("audit: sync: %w", err)
	}
	l.tail = HashLine(line)
	l.count++
	return nil
}

// Len counts entries in the file, including those written before Open.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

func (l *Log) Path() string { return l.path }

func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
