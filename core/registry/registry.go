// Package registry loads module definitions from disk and serves them
// through immutable snapshots. Readers always see a complete, validated
// module set; reloads build a fresh snapshot and swap it in atomically.
package registry

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/terahq/tera/core/condition"
	"github.com/terahq/tera/core/route"
	"github.com/terahq/tera/core/schema"
)

// Failure records one module that did not make it into a snapshot.
type Failure struct {
	Source string `json:"source"`
	Reason string `json:"reason"`
}

// Snapshot is an immutable view of the loaded module set. Nothing in a
// snapshot mutates after Load returns it.
type Snapshot struct {
	Modules  map[string]schema.ModuleDefinition
	Resolver *route.Resolver
	Failures []Failure
	LoadedAt time.Time
}

// Get returns a module by id.
func (s *Snapshot) Get(id string) (schema.ModuleDefinition, bool) {
	def, ok := s.Modules[id]
	return def, ok
}

// List returns all modules sorted by id.
func (s *Snapshot) List() []schema.ModuleDefinition {
	ids := make([]string, 0, len(s.Modules))
	for id := range s.Modules {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]schema.ModuleDefinition, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.Modules[id])
	}
	return out
}

// Registry holds the current snapshot and reloads it from disk.
type Registry struct {
	dir  string
	eval *condition.Evaluator
	log  zerolog.Logger

	current atomic.Pointer[Snapshot]

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
}

// New loads the modules directory and creates a registry. Individual
// module failures are recorded in the snapshot, not fatal; only an
// unreadable directory fails construction.
func New(dir string, eval *condition.Evaluator, log zerolog.Logger) (*Registry, error) {
	r := &Registry{
		dir:    dir,
		eval:   eval,
		log:    log.With().Str("component", "registry").Logger(),
		stopCh: make(chan struct{}),
	}

	snap, err := r.load()
	if err != nil {
		return nil, err
	}
	r.current.Store(snap)
	r.logSnapshot(snap)

	return r, nil
}

// Snapshot returns the current module set. The returned value is
// immutable and stays coherent for however long the caller holds it.
func (r *Registry) Snapshot() *Snapshot {
	return r.current.Load()
}

// Reload rebuilds the snapshot from disk and swaps it in. When the
// directory itself cannot be read the old snapshot stays in place and
// the error is returned; per-module failures land in the new snapshot
// without disturbing the modules that loaded cleanly.
func (r *Registry) Reload() error {
	r.log.Info().Str("dir", r.dir).Msg("reloading modules")

	snap, err := r.load()
	if err != nil {
		r.log.Error().Err(err).Msg("module reload failed, keeping old snapshot")
		return fmt.Errorf("reload modules: %w", err)
	}

	r.eval.ClearCache()
	r.current.Store(snap)
	r.logSnapshot(snap)
	if r.watcher != nil {
		r.watchModuleDirs()
	}
	return nil
}

func (r *Registry) load() (*Snapshot, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("read modules dir %s: %w", r.dir, err)
	}

	snap := &Snapshot{
		Modules:  make(map[string]schema.ModuleDefinition),
		LoadedAt: time.Now(),
	}
	sources := make(map[string]string) // module id -> source that claimed it

	for _, entry := range entries {
		source := filepath.Join(r.dir, entry.Name())

		var def schema.ModuleDefinition
		switch {
		case entry.IsDir():
			if _, statErr := os.Stat(filepath.Join(source, "config.yaml")); statErr != nil {
				continue
			}
			def, err = schema.ParseModuleDir(source)
		case strings.HasSuffix(entry.Name(), ".yaml"), strings.HasSuffix(entry.Name(), ".yml"):
			def, err = schema.ParseFile(source)
		default:
			continue
		}
		if err != nil {
			snap.Failures = append(snap.Failures, Failure{Source: source, Reason: err.Error()})
			continue
		}

		if verrs := schema.Validate(def, r.eval.Check); verrs.HasErrors() {
			snap.Failures = append(snap.Failures, Failure{Source: source, Reason: verrs.Error()})
			continue
		}

		id := def.ID()
		if prior, taken := sources[id]; taken {
			snap.Failures = append(snap.Failures, Failure{
				Source: source,
				Reason: fmt.Sprintf("module id %q already loaded from %s", id, prior),
			})
			continue
		}

		sources[id] = source
		snap.Modules[id] = def
	}

	snap.Resolver = route.NewResolver(snap.Modules, r.log)
	return snap, nil
}

func (r *Registry) logSnapshot(snap *Snapshot) {
	for _, f := range snap.Failures {
		r.log.Warn().Str("source", f.Source).Str("reason", f.Reason).
			Msg("module failed to load")
	}
	r.log.Info().Int("modules", len(snap.Modules)).Int("failures", len(snap.Failures)).
		Msg("module snapshot installed")
}

// Watch starts watching the modules directory for changes. Any yaml
// write or create triggers a reload.
func (r *Registry) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	r.watcher = watcher

	if err := watcher.Add(r.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}
	r.watchModuleDirs()

	go r.watchLoop()

	r.log.Info().Str("dir", r.dir).Msg("watching modules directory for changes")
	return nil
}

// watchModuleDirs registers every module directory with the watcher.
// Module directories keep their yaml one level down, so directories
// created after Watch started need registering too; every successful
// Reload calls back here. Adding an already-watched path is a no-op.
func (r *Registry) watchModuleDirs() {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			r.watcher.Add(filepath.Join(r.dir, entry.Name()))
			r.watcher.Add(filepath.Join(r.dir, entry.Name(), "configs"))
		}
	}
}

// WatchSignals starts listening for SIGHUP to trigger reload.
func (r *Registry) WatchSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	go func() {
		for {
			select {
			case <-sigCh:
				r.log.Info().Msg("received SIGHUP, reloading modules")
				if err := r.Reload(); err != nil {
					r.log.Error().Err(err).Msg("SIGHUP reload failed")
				}
			case <-r.stopCh:
				signal.Stop(sigCh)
				return
			}
		}
	}()
}

// Stop stops watching for file changes and signals.
func (r *Registry) Stop() {
	close(r.stopCh)
	if r.watcher != nil {
		r.watcher.Close()
	}
}

func (r *Registry) watchLoop() {
	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			name := event.Name
			if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
				// A freshly created module directory needs a reload
				// so it gets loaded and watched.
				if event.Op&fsnotify.Create == 0 || !isDir(name) {
					continue
				}
			}
			// Atomic saves show up as create.
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) != 0 {
				r.log.Debug().Str("event", event.Op.String()).Str("file", name).
					Msg("module file changed")
				if err := r.Reload(); err != nil {
					r.log.Error().Err(err).Msg("file watch reload failed")
				}
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.log.Error().Err(err).Msg("file watcher error")

		case <-r.stopCh:
			return
		}
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
