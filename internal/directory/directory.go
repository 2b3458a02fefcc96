package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"clocksync.service/internal/core/model"
)

// Directory maps time-and-attendance employee ids to names and phone
// extensions, loaded from a JSON file that ops edit in place. Reads are
// lock-cheap; Load swaps the whole map at once so a half-written file never
// leaves a half-loaded directory behind.
type Directory struct {
	path string

	mu   sync.RWMutex
	byID map[string]model.Employee
}

type mappingFile struct {
	Employees []model.Employee `json:"employees"`
}

func New(path string) *Directory {
	return &Directory{
		path: path,
		byID: make(map[string]model.Employee),
	}
}

// Load reads and parses the mapping file, replacing the current directory
// contents on success. On failure the previous contents stay in effect.
func (d *Directory) Load() error {
	data, err := os.ReadFile(d.path)
	if err != nil {
		return fmt.Errorf("failed to read directory file: %w", err)
	}

	var file mappingFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse directory file: %w", err)
	}

	byID := make(map[string]model.Employee, len(file.Employees))
	for _, emp := range file.Employees {
		if emp.ID == "" {
			continue
		}
		byID[emp.ID] = emp
	}

	d.mu.Lock()
	d.byID = byID
	d.mu.Unlock()

	log.Info().Int("employees", len(byID)).Str("path", d.path).Msg("Employee directory loaded")
	return nil
}

// Lookup returns the mapping for one employee id.
func (d *Directory) Lookup(id string) (model.Employee, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	emp, ok := d.byID[id]
	return emp, ok
}

// All returns every known employee, ordered by id for stable output.
func (d *Directory) All() []model.Employee {
	d.mu.RLock()
	defer d.mu.RUnlock()

	employees := make([]model.Employee, 0, len(d.byID))
	for _, emp := range d.byID {
		employees = append(employees, emp)
	}
	sort.Slice(employees, func(i, j int) bool { return employees[i].ID < employees[j].ID })
	return employees
}

// Watch reloads the directory whenever the mapping file changes on disk.
// It blocks until the context is canceled; run it in its own goroutine.
// The parent directory is watched rather than the file itself so that
// atomic rename-replace edits are picked up too.
func (d *Directory) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create directory watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(d.path)); err != nil {
		return fmt.Errorf("failed to watch directory file: %w", err)
	}

	target := filepath.Clean(d.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := d.Load(); err != nil {
				log.Warn().Err(err).Msg("Directory reload failed, keeping previous mappings")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("Directory watcher error")
		}
	}
}
