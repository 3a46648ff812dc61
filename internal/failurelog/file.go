package failurelog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/shaiso/Rowpipe/internal/domain"
)

// fileEntry — строка JSONL-журнала.
type fileEntry struct {
	Timestamp string `json:"timestamp"`
	BatchID   string `json:"batch_id"`
	Row       int    `json:"row"`
	Step      string `json:"step"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

// FileSink дописывает записи в файл в формате JSON Lines.
// Файл открывается в режиме добавления: журналы разных пакетов
// накапливаются в одном файле и различаются batch_id.
type FileSink struct {
	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
}

// OpenFile открывает (или создаёт) файл журнала.
func OpenFile(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open failure log %s: %w", path, err)
	}
	return &FileSink{f: f, enc: json.NewEncoder(f)}, nil
}

// Append дописывает одну запись.
func (s *FileSink) Append(_ context.Context, rec domain.FailureRecord) error {
	entry := fileEntry{
		Timestamp: rec.Timestamp.UTC().Format(time.RFC3339),
		BatchID:   rec.BatchID.String(),
		Row:       rec.Row,
		Step:      rec.Step,
		Status:    rec.StatusText(),
		Message:   rec.Message,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return ErrClosed
	}
	if err := s.enc.Encode(entry); err != nil {
		return fmt.Errorf("write failure log: %w", err)
	}
	return nil
}

// Close закрывает файл.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}
