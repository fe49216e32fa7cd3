package message

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteJSONL writes messages as newline-delimited canonical JSON records to
// path, one per line, creating parent directories as needed. Writes go to a
// temp file in the same directory followed by an atomic rename so readers
// never observe a torn file (spec §4.4, §5).
func WriteJSONL(path string, messages []*Message) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("message: create dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("message: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, m := range messages {
		if err := enc.Encode(m); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("message: encode idx=%d: %w", m.Idx, err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("message: flush: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("message: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("message: rename into place: %w", err)
	}
	return nil
}

// LoadJSONL reads a Message[] from a JSONL file written by WriteJSONL.
func LoadJSONL(path string) ([]*Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []*Message
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var m Message
		if err := json.Unmarshal(line, &m); err != nil {
			return nil, fmt.Errorf("message: decode %s line %d: %w", path, lineNo, err)
		}
		if err := CheckSchemaVersion(m.SchemaVersion); err != nil {
			return nil, fmt.Errorf("message: %s line %d: %w", path, lineNo, err)
		}
		out = append(out, &m)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("message: scan %s: %w", path, err)
	}
	return out, nil
}
