// Package workspace allocates the per-job directories disloc runs in.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/dandantas/disloc/internal/model"
)

const (
	dirPrefix       = "disloc"
	timestampLayout = "20060102150405"
	maxRandom       = 9999

	defaultMaxAttempts = 5
)

// Allocator creates job directories under a shared output root.
// Names combine a random key in [1,9999] and a second-granularity timestamp;
// there is no locking, so uniqueness is best effort.
type Allocator struct {
	root        string
	randomKey   func() int
	now         func() time.Time
	maxAttempts int
}

// Option customizes an Allocator
type Option func(*Allocator)

// WithRandom overrides the random key source
func WithRandom(fn func() int) Option {
	return func(a *Allocator) { a.randomKey = fn }
}

// WithClock overrides the timestamp source
func WithClock(fn func() time.Time) Option {
	return func(a *Allocator) { a.now = fn }
}

// WithMaxAttempts bounds the retries of AllocateExclusive
func WithMaxAttempts(n int) Option {
	return func(a *Allocator) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

// NewAllocator creates an allocator rooted at root
func NewAllocator(root string, opts ...Option) *Allocator {
	a := &Allocator{
		root:        root,
		randomKey:   func() int { return rand.Intn(maxRandom) + 1 },
		now:         time.Now,
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Root returns the output root directory
func (a *Allocator) Root() string {
	return a.root
}

// Name builds the directory name for a random key and a timestamp
func Name(key int, t time.Time) string {
	return fmt.Sprintf("%s%04d%s", dirPrefix, key, t.Format(timestampLayout))
}

// Allocate returns a fresh job directory. If the generated name already
// exists it is reused rather than treated as an error.
func (a *Allocator) Allocate() (string, error) {
	dir := filepath.Join(a.root, Name(a.randomKey(), a.now()))

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create workspace %s: %v", model.ErrFilesystem, dir, err)
	}

	return dir, nil
}

// AllocateExclusive is Allocate with collision detection: an existing
// directory triggers a new random key, up to the configured attempts.
func (a *Allocator) AllocateExclusive() (string, error) {
	if err := os.MkdirAll(a.root, 0o755); err != nil {
		return "", fmt.Errorf("%w: create output root %s: %v", model.ErrFilesystem, a.root, err)
	}

	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		dir := filepath.Join(a.root, Name(a.randomKey(), a.now()))

		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%w: create workspace %s: %v", model.ErrFilesystem, dir, err)
		}
	}

	return "", fmt.Errorf("%w: no free workspace name after %d attempts", model.ErrFilesystem, a.maxAttempts)
}

// List returns the names of the regular files in dir, sorted
func List(dir string) ([]string, error) {
	if dir == "" {
		dir = "."
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", model.ErrFilesystem, dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}

	return names, nil
}
