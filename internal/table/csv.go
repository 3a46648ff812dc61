package table

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shaiso/Rowpipe/internal/domain"
)

// Ошибки чтения таблиц.
var (
	// ErrNoHeader — в файле нет строки заголовка.
	ErrNoHeader = errors.New("csv has no header row")

	// ErrDuplicateColumn — в заголовке повторяется имя колонки.
	ErrDuplicateColumn = errors.New("duplicate column in csv header")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Reader читает строки CSV по одной.
type Reader struct {
	csv     *csv.Reader
	columns []string
	index   int
	closer  io.Closer
}

// NewReader создаёт Reader и сразу читает заголовок.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	columns := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if seen[name] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, name)
		}
		seen[name] = true
		columns[i] = name
	}

	return &Reader{csv: cr, columns: columns}, nil
}

// Open открывает CSV-файл. Reader нужно закрыть через Close.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}

	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.closer = f
	return r, nil
}

// Columns возвращает имена колонок из заголовка.
func (r *Reader) Columns() []string {
	return r.columns
}

// Next возвращает следующую строку или io.EOF.
func (r *Reader) Next() (*domain.Row, error) {
	for {
		record, err := r.csv.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("read csv row %d: %w", r.index+1, err)
		}
		if isBlank(record) {
			continue
		}

		r.index++
		return domain.NewRow(r.index, r.columns, record), nil
	}
}

// Close закрывает файл, если Reader создан через Open.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// ReadAll читает весь файл в память. Используется для вторичной таблицы.
func ReadAll(path string) ([]string, []*domain.Row, error) {
	r, err := Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()

	var rows []*domain.Row
	for {
		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			return r.Columns(), rows, nil
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		rows = append(rows, row)
	}
}

// ReadHeader возвращает только заголовок файла.
func ReadHeader(path string) ([]string, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.Columns(), nil
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
