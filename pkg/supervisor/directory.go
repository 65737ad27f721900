package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Spec is one supervisor entry of the directory file.
type Spec struct {
	Identity    string `yaml:"identity"`
	Name        string `yaml:"name"`
	Kind        Kind   `yaml:"kind"`
	ContainerID string `yaml:"container_id"`
	HostIP      string `yaml:"host_ip"`
}

func (s Spec) supervisor() *Supervisor {
	return New(s.Identity, s.Name, s.Kind, s.ContainerID, s.HostIP)
}

// directoryFile is the on-disk layout of the directory.
//
//	supervisors:
//	  - identity: alice
//	    kind: tokenized
//	    container_id: 3f2a9c
//	    host_ip: 127.0.0.1
type directoryFile struct {
	Supervisors []Spec `yaml:"supervisors"`
}

// DefaultHostIP is used for entries that do not set host_ip.
const DefaultHostIP = "127.0.0.1"

// LoadSpecs reads and validates a directory file.
func LoadSpecs(path string) ([]Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory file: %w", err)
	}
	return ParseSpecs(data)
}

// ParseSpecs parses and validates directory YAML.
func ParseSpecs(data []byte) ([]Spec, error) {
	var file directoryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse directory file: %w", err)
	}

	seen := make(map[key]bool, len(file.Supervisors))
	for i := range file.Supervisors {
		spec := &file.Supervisors[i]
		if spec.Identity == "" {
			return nil, fmt.Errorf("supervisors[%d]: identity is required", i)
		}
		if spec.Kind == "" {
			spec.Kind = KindContainer
		}
		if _, err := ParseKind(string(spec.Kind)); err != nil {
			return nil, fmt.Errorf("supervisors[%d]: %w", i, err)
		}
		if spec.HostIP == "" {
			spec.HostIP = DefaultHostIP
		}
		k := key{spec.Identity, spec.Name}
		if seen[k] {
			return nil, fmt.Errorf("supervisors[%d]: duplicate supervisor %q for identity %q", i, spec.Name, spec.Identity)
		}
		seen[k] = true
	}
	return file.Supervisors, nil
}

// Directory keeps a Registry in sync with a directory file.
type Directory struct {
	path     string
	registry *Registry
	logger   *slog.Logger

	mu      sync.Mutex
	watcher *fileWatcher
}

// NewDirectory creates a directory syncing path into registry.
func NewDirectory(path string, registry *Registry) *Directory {
	return &Directory{
		path:     path,
		registry: registry,
		logger:   slog.Default().With("component", "supervisor.directory"),
	}
}

// Path returns the directory file path.
func (d *Directory) Path() string {
	return d.path
}

// Sync reads the file and reconciles the registry with it. A file that fails
// to parse leaves the registry untouched.
func (d *Directory) Sync(ctx context.Context) error {
	specs, err := LoadSpecs(d.path)
	if err != nil {
		return err
	}
	if err := d.registry.Replace(ctx, specs); err != nil {
		return fmt.Errorf("failed to apply directory: %w", err)
	}
	d.logger.Info("directory synced", "path", d.path, "supervisors", len(specs))
	return nil
}

// Watch re-syncs on every change of the file until ctx is cancelled or Stop
// is called. A non-positive debounce uses 100ms. Failed syncs are logged and
// leave the registry as it was.
func (d *Directory) Watch(ctx context.Context, debounce time.Duration) error {
	w, err := newFileWatcher(d.path, debounce, d.logger, func() {
		if err := d.Sync(ctx); err != nil {
			d.logger.Error("directory reload failed", "path", d.path, "error", err)
		}
	})
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.watcher = w
	d.mu.Unlock()

	return w.run(ctx)
}

// Stop stops a running Watch and waits for it to return.
func (d *Directory) Stop() error {
	d.mu.Lock()
	w := d.watcher
	d.watcher = nil
	d.mu.Unlock()

	if w != nil {
		w.close()
	}
	return nil
}
