package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/ShayCichocki/rdteam/pkg/models"
)

// TranscriptExt is the extension of transcript files.
const TranscriptExt = ".jsonl"

// Transcript appends session events to a JSON Lines file, one event per
// line.
type Transcript struct {
	id   string
	path string
	f    *os.File
}

// NewTranscript creates a transcript with a fresh id in dir.
func NewTranscript(dir string) (*Transcript, error) {
	return OpenTranscript(dir, uuid.New().String())
}

// OpenTranscript opens the transcript id in dir for appending, creating it
// if needed.
func OpenTranscript(dir, id string) (*Transcript, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create sessions directory: %w", err)
	}
	path := filepath.Join(dir, id+TranscriptExt)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	return &Transcript{id: id, path: path, f: f}, nil
}

// ValidateID checks that id is a session id (a UUID).
func ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid session id %q: %w", id, err)
	}
	return nil
}

// ID returns the session id.
func (t *Transcript) ID() string {
	return t.id
}

// Path returns the transcript file path.
func (t *Transcript) Path() string {
	return t.path
}

// Append writes one event.
func (t *Transcript) Append(e models.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if _, err := t.f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}

// Close closes the file.
func (t *Transcript) Close() error {
	return t.f.Close()
}

// LoadTranscript reads every event of a transcript file. Blank lines are
// skipped; a malformed line is an error.
func LoadTranscript(path string) ([]models.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	var events []models.Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var e models.Event
		if err := json.Unmarshal([]byte(text), &e); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	return events, nil
}

// TranscriptPath returns the file of session id in dir.
func TranscriptPath(dir, id string) string {
	return filepath.Join(dir, id+TranscriptExt)
}
