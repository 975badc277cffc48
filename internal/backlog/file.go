package backlog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ShayCichocki/rdteam/pkg/models"
)

// Format selects how task records are serialised on disk.
type Format string

const (
	// FormatJSON writes <slug>.json records.
	FormatJSON Format = "json"
	// FormatYAML writes <slug>.yaml records.
	FormatYAML Format = "yaml"
)

// recordExts lists every extension read back, regardless of write format.
var recordExts = []string{".json", ".yaml", ".yml"}

func (f Format) ext() string {
	if f == FormatYAML {
		return ".yaml"
	}
	return ".json"
}

// FileStore keeps one flat record file per task in a backlog directory.
type FileStore struct {
	dir       string
	format    Format
	createdBy string
	lock      *WriterLock
	logger    *zap.Logger
	now       func() time.Time
}

// FileStoreOptions configures a FileStore.
type FileStoreOptions struct {
	// Format is the write format. Defaults to JSON.
	Format Format
	// CreatedBy is the provenance tag applied to tasks without one.
	CreatedBy string
	// LockTimeout bounds how long writers wait for the lock.
	LockTimeout time.Duration
	// Logger receives warnings about skipped records.
	Logger *zap.Logger
}

// NewFileStore creates a store rooted at dir. The directory is created lazily
// on first write so that a missing backlog reads as empty.
func NewFileStore(dir string, opts FileStoreOptions) *FileStore {
	if opts.Format == "" {
		opts.Format = FormatJSON
	}
	if opts.CreatedBy == "" {
		opts.CreatedBy = models.DefaultCreatedBy
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &FileStore{
		dir:       dir,
		format:    opts.Format,
		createdBy: opts.CreatedBy,
		lock:      NewWriterLock(dir, opts.LockTimeout),
		logger:    opts.Logger,
		now:       time.Now,
	}
}

// Dir returns the backlog directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Close is a no-op; FileStore holds no open handles between calls.
func (s *FileStore) Close() error {
	return nil
}

// Create writes the task, overwriting any record with the same slug.
func (s *FileStore) Create(ctx context.Context, task models.Task) (string, error) {
	if err := normalize(&task, s.createdBy); err != nil {
		Writes.WithLabelValues("create", "error").Inc()
		return "", fmt.Errorf("create task: %w", err)
	}
	id := task.ID()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		Writes.WithLabelValues("create", "error").Inc()
		return "", &StoreWriteError{Op: "create", ID: id, Err: err}
	}

	unlock, err := s.lock.Lock(ctx)
	if err != nil {
		Writes.WithLabelValues("create", "error").Inc()
		return "", &StoreWriteError{Op: "create", ID: id, Err: err}
	}
	defer unlock()

	now := s.now().UTC()
	task.CreatedAt = now
	task.Version = 1
	var stale string
	if prev, path, err := s.read(id); err == nil && prev != nil {
		// The slug keeps its ordering slot; every other field is replaced.
		if !prev.CreatedAt.IsZero() {
			task.CreatedAt = prev.CreatedAt
		}
		task.Version = prev.Version + 1
		stale = path
	}
	task.UpdatedAt = now

	if err := s.write(task); err != nil {
		Writes.WithLabelValues("create", "error").Inc()
		return "", &StoreWriteError{Op: "create", ID: id, Err: err}
	}
	// A record in the other format is dropped once the new one is in place.
	if stale != "" && filepath.Ext(stale) != s.format.ext() {
		os.Remove(stale)
	}

	Writes.WithLabelValues("create", "ok").Inc()
	return id, nil
}

// Update applies a partial update to an existing record.
func (s *FileStore) Update(ctx context.Context, id string, update models.TaskUpdate) (bool, error) {
	if err := validateUpdate(&update); err != nil {
		Writes.WithLabelValues("update", "error").Inc()
		return false, fmt.Errorf("update task: %w", err)
	}
	if !validID(id) {
		Writes.WithLabelValues("update", "missing").Inc()
		return false, nil
	}

	// Check before locking so a missing backlog is never created by an update.
	if _, err := os.Stat(s.dir); os.IsNotExist(err) {
		Writes.WithLabelValues("update", "missing").Inc()
		return false, nil
	}

	unlock, err := s.lock.Lock(ctx)
	if err != nil {
		Writes.WithLabelValues("update", "error").Inc()
		return false, &StoreWriteError{Op: "update", ID: id, Err: err}
	}
	defer unlock()

	task, path, err := s.read(id)
	if err != nil {
		Writes.WithLabelValues("update", "error").Inc()
		return false, fmt.Errorf("read task %q: %w", id, err)
	}
	if task == nil {
		Writes.WithLabelValues("update", "missing").Inc()
		return false, nil
	}

	update.Apply(task)
	task.Version++
	task.UpdatedAt = s.now().UTC()

	if err := s.write(*task); err != nil {
		Writes.WithLabelValues("update", "error").Inc()
		return false, &StoreWriteError{Op: "update", ID: id, Err: err}
	}
	if filepath.Ext(path) != s.format.ext() {
		os.Remove(path)
	}

	Writes.WithLabelValues("update", "ok").Inc()
	return true, nil
}

// Get returns the task stored under id.
func (s *FileStore) Get(ctx context.Context, id string) (*models.Task, bool, error) {
	if !validID(id) {
		return nil, false, nil
	}
	task, _, err := s.read(id)
	if err != nil {
		return nil, false, fmt.Errorf("get task %q: %w", id, err)
	}
	return task, task != nil, nil
}

// ListAll returns every readable record. Unparseable records are skipped.
func (s *FileStore) ListAll(ctx context.Context) ([]models.Task, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backlog directory: %w", err)
	}

	var tasks []models.Task
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if entry.IsDir() || !isRecordFile(name) {
			continue
		}

		path := filepath.Join(s.dir, name)
		task, err := decodeFile(path)
		if err != nil {
			RecordsSkipped.Inc()
			s.logger.Warn("skipping unreadable task record",
				zap.String("path", path),
				zap.Error(err),
			)
			continue
		}
		if task.CreatedAt.IsZero() {
			if info, err := entry.Info(); err == nil {
				task.CreatedAt = info.ModTime().UTC()
			}
		}
		tasks = append(tasks, *task)
	}

	SortTasks(tasks)
	return tasks, nil
}

// ListByPhase filters ListAll by phase, ignoring case.
func (s *FileStore) ListByPhase(ctx context.Context, phase models.Phase) ([]models.Task, error) {
	tasks, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return FilterByPhase(tasks, phase), nil
}

// read loads the record for id in any supported format.
// It returns nil, "", nil if no record exists.
func (s *FileStore) read(id string) (*models.Task, string, error) {
	if !validID(id) {
		return nil, "", nil
	}
	for _, ext := range recordExts {
		path := filepath.Join(s.dir, id+ext)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		task, err := decodeFile(path)
		if err != nil {
			return nil, path, err
		}
		return task, path, nil
	}
	return nil, "", nil
}

// write atomically replaces the record file for task.
func (s *FileStore) write(task models.Task) error {
	data, err := encodeRecord(s.format, task)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	id := task.ID()
	tmp, err := os.CreateTemp(s.dir, "."+id+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	target := filepath.Join(s.dir, id+s.format.ext())
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename record: %w", err)
	}
	return nil
}

// validID reports whether id can name a record inside the backlog
// directory: it must be its own slug and not a relative path element.
func validID(id string) bool {
	return id != "" && id != "." && id != ".." && models.Slug(id) == id
}

// isRecordFile matches record files; the lock and temp files never match.
func isRecordFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, known := range recordExts {
		if ext == known {
			return true
		}
	}
	return false
}

func encodeRecord(format Format, task models.Task) ([]byte, error) {
	if format == FormatYAML {
		return yaml.Marshal(task)
	}
	return json.MarshalIndent(task, "", "  ")
}

// decodeFile parses a record and canonicalises its phase and title.
func decodeFile(path string) (*models.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var task models.Task
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &task)
	default:
		err = json.Unmarshal(data, &task)
	}
	if err != nil {
		return nil, fmt.Errorf("parse record: %w", err)
	}

	if p, err := models.ParsePhase(string(task.Phase)); err == nil {
		task.Phase = p
	}
	if task.Title == "" {
		task.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &task, nil
}
