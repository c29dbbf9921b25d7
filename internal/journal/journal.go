// Package journal records every interpreted answer as one JSON line in a
// local file, for offline review of recognition quality: which questions
// needed re-prompts, what the recognizer heard versus what was submitted,
// and at what confidence. The journal is enabled by a config path and is
// off by default.
package journal

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/quotevox/quotevox/internal/dialog"
)

// Record is one interpreted answer.
type Record struct {
	Timestamp  time.Time `json:"timestamp"`
	SessionID  string    `json:"session_id"`
	QuestionID string    `json:"question_id"`
	RawText    string    `json:"raw_text"`
	Answer     string    `json:"answer"`
	Source     string    `json:"source"`
	Confidence float64   `json:"confidence,omitempty"`
}

// FileJournal persists records as JSON lines in a local file.
// Thread-safe for concurrent use.
type FileJournal struct {
	mu   sync.Mutex
	path string
}

// New creates a FileJournal that writes to the given path. The file is
// created on first append.
func New(path string) *FileJournal {
	return &FileJournal{path: path}
}

// Append writes one record to the file. A zero timestamp is stamped with
// the current UTC time.
func (j *FileJournal) Append(rec Record) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("journal: marshal: %w", err)
	}
	data = append(data, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("journal: open file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("journal: write: %w", err)
	}
	return nil
}

// List reads every record in the file, oldest first. A missing file is an
// empty journal. Malformed lines are skipped with a warning so one corrupt
// line cannot hide the rest of the records.
func (j *FileJournal) List() ([]Record, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.Open(j.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("journal: open file: %w", err)
	}
	defer f.Close()

	var records []Record
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			slog.Warn("skipping malformed journal line",
				"path", j.path,
				"line", line,
				"error", err)
			continue
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("journal: read: %w", err)
	}
	return records, nil
}

// Recorder returns an answer observer for the dialog manager. Write
// failures are logged, never propagated: journaling must not disturb a
// live conversation.
func (j *FileJournal) Recorder() func(dialog.Answer) {
	return func(ans dialog.Answer) {
		rec := Record{
			Timestamp:  ans.At,
			SessionID:  ans.SessionID,
			QuestionID: ans.QuestionID,
			RawText:    ans.Raw,
			Answer:     ans.Text,
			Source:     string(ans.Source),
			Confidence: ans.Confidence,
		}
		if err := j.Append(rec); err != nil {
			slog.Warn("journal write failed",
				"session", ans.SessionID,
				"question", ans.QuestionID,
				"error", err)
		}
	}
}
