package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"kernelforge/internal/config"
	"kernelforge/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Node is one synthesized, executable unit tracked by the registry:
// a generated Go source file plus its discovery metadata.
type Node struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"created_at"`
}

// Registry is the durable index of generated nodes under RootDir,
// persisted as JSON at IndexPath and optionally kept live via an fsnotify
// watch on the index file, so external writers (e.g. a human editing
// nodes by hand) are picked up without a restart.
type Registry struct {
	mu       sync.RWMutex
	rootDir  string
	indexPath string
	nodes    map[string]Node
	watcher  *fsnotify.Watcher
}

// Open loads (or creates) the node index described by cfg.
func Open(cfg config.RegistryConfig) (*Registry, error) {
	r := &Registry{
		rootDir:   cfg.RootDir,
		indexPath: cfg.IndexPath,
		nodes:     make(map[string]Node),
	}

	if err := os.MkdirAll(r.rootDir, 0o755); err != nil {
		return nil, fmt.Errorf("registry: create root dir: %w", err)
	}
	if err := r.load(); err != nil {
		return nil, fmt.Errorf("registry: load index: %w", err)
	}

	if cfg.WatchIndex {
		if err := r.watch(); err != nil {
			return nil, fmt.Errorf("registry: watch index: %w", err)
		}
	}

	return r, nil
}

// Register adds or replaces a node in the index and persists it.
func (r *Registry) Register(node Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if node.CreatedAt.IsZero() {
		node.CreatedAt = time.Now().UTC()
	}
	r.nodes[node.Name] = node
	return r.persistLocked()
}

// Get returns a node by name.
func (r *Registry) Get(name string) (Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[name]
	return n, ok
}

// All returns every registered node.
func (r *Registry) All() []Node {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Node, 0, len(r.nodes))
	for _, n := range r.nodes {
		out = append(out, n)
	}
	return out
}

// Remove deletes a node from the index (but not from disk).
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.nodes, name)
	return r.persistLocked()
}

// Close stops the fsnotify watch, if any.
func (r *Registry) Close() error {
	if r.watcher != nil {
		return r.watcher.Close()
	}
	return nil
}

func (r *Registry) persistLocked() error {
	list := make([]Node, 0, len(r.nodes))
	for _, n := range r.nodes {
		list = append(list, n)
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(r.indexPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(r.indexPath, data, 0o644)
}

func (r *Registry) load() error {
	data, err := os.ReadFile(r.indexPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var list []Node
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range list {
		r.nodes[n.Name] = n
	}
	return nil
}

// watch starts an fsnotify watch on the index file's directory and
// reloads the index whenever the file changes externally, following the
// teacher's live-reload convention used elsewhere for config/profile
// files.
func (r *Registry) watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dir := filepath.Dir(r.indexPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		w.Close()
		return err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return err
	}
	r.watcher = w

	log := logging.Get(logging.CategoryRegistry)
	go func() {
		for {
			select {
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(r.indexPath) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					if err := r.load(); err != nil {
						log.Warnw("failed to reload index after change", "error", err)
					} else {
						log.Debugw("reloaded node index", "path", r.indexPath)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warnw("registry watcher error", "error", err)
			}
		}
	}()
	return nil
}
