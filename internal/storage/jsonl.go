package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Record is one JSONL line of an exported area.
type Record struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ExportJSONL writes every item of area to path, one Record per line, and
// returns the number of records written. The file is replaced atomically.
func ExportJSONL(area types.Area, path string) (int, error) {
	keys, err := area.Keys()
	if err != nil {
		return 0, fmt.Errorf("list keys: %w", err)
	}

	records := make([]json.RawMessage, 0, len(keys))
	for _, k := range keys {
		v, ok, err := area.GetItem(k)
		if err != nil {
			return 0, fmt.Errorf("read %q: %w", k, err)
		}
		if !ok {
			continue
		}
		line, err := json.Marshal(Record{Key: k, Value: v})
		if err != nil {
			return 0, fmt.Errorf("marshal %q: %w", k, err)
		}
		records = append(records, line)
	}
	if err := writeJSONL(path, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

// ImportJSONL stores every record of the JSONL file at path into area and
// returns the number imported. Malformed lines are skipped.
func ImportJSONL(area types.Area, path string) (int, error) {
	lines, err := readJSONL(path)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, line := range lines {
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil || rec.Key == "" {
			continue
		}
		if err := area.SetItem(rec.Key, rec.Value); err != nil {
			return n, fmt.Errorf("store %q: %w", rec.Key, err)
		}
		n++
	}
	return n, nil
}

// readJSONL reads a JSONL file and returns each non-empty, parseable line as
// a json.RawMessage. Malformed lines are skipped.
func readJSONL(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var records []json.RawMessage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		records = append(records, json.RawMessage(cp))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return records, nil
}

// writeJSONL atomically writes records to a JSONL file using the temp-file,
// fsync, rename pattern.
func writeJSONL(path string, records []json.RawMessage) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	fail := func(format string, err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf(format, err)
	}

	w := bufio.NewWriter(tmp)
	for _, rec := range records {
		if _, err := w.Write(rec); err != nil {
			return fail("writing record: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fail("writing newline: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fail("flushing buffer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
