// Package storage contains the filesystem persistence layer. The upload
// directory is the only source of truth: there is no index or manifest, every
// read goes back to the directory itself.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dharsanguruparan/FileDrop/internal/naming"
)

var (
	// ErrNotFound is exported so callers elsewhere can compare errors using
	// errors.Is.
	ErrNotFound    = errors.New("file not found")
	ErrUnavailable = errors.New("storage directory unavailable")
)

const (
	dirPerm        = 0o750
	filePerm       = 0o640
	createAttempts = 5
)

// Directory is a flat folder holding stored files. It keeps no state besides
// its root, so one value can be shared by every request goroutine.
type Directory struct {
	root   string
	policy naming.Policy
}

// New resolves root to an absolute path and creates it when missing.
func New(root string, policy naming.Policy) (*Directory, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir: %w", err)
	}
	if policy == "" {
		policy = naming.PolicySuffix
	}
	d := &Directory{root: abs, policy: policy}
	if err := d.ensure(); err != nil {
		return nil, err
	}
	return d, nil
}

// Root returns the absolute directory path.
func (d *Directory) Root() string { return d.root }

// Policy returns the naming policy used by Create.
func (d *Directory) Policy() naming.Policy { return d.policy }

func (d *Directory) ensure() error {
	// Recreated on demand so the directory may be removed out of band.
	if err := os.MkdirAll(d.root, dirPerm); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Create opens a new file for writing whose name derives from originalName.
// It returns the open file and the stored name chosen for it. Callers own the
// file and must Close it, and Remove it on a failed write.
func (d *Directory) Create(originalName string) (*os.File, string, error) {
	if err := d.ensure(); err != nil {
		return nil, "", err
	}
	clean := naming.Sanitize(originalName)
	if d.policy == naming.PolicyProbe {
		return d.createProbe(clean)
	}
	return d.createSuffix(clean)
}

func (d *Directory) createSuffix(clean string) (*os.File, string, error) {
	var lastErr error
	for i := 0; i < createAttempts; i++ {
		name := naming.WithToken(clean, naming.NewToken())
		// O_EXCL makes the kernel refuse an existing name, so two writers can
		// never end up sharing one stored file.
		f, err := os.OpenFile(filepath.Join(d.root, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
		if err == nil {
			return f, name, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", fmt.Errorf("create %s: %w", name, err)
		}
		lastErr = err
	}
	return nil, "", fmt.Errorf("create unique name for %s: %w", clean, lastErr)
}

func (d *Directory) createProbe(clean string) (*os.File, string, error) {
	name := clean
	if _, err := os.Lstat(filepath.Join(d.root, name)); err == nil {
		name = naming.WithToken(clean, naming.NewToken())
	}
	// Known race: another upload may create the same name between the probe
	// and this call, and one of them overwrites the other.
	f, err := os.OpenFile(filepath.Join(d.root, name), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm)
	if err != nil {
		return nil, "", fmt.Errorf("create %s: %w", name, err)
	}
	return f, name, nil
}

// Remove deletes a stored file. A missing file is not an error.
func (d *Directory) Remove(name string) error {
	p, err := d.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Open returns the stored file called name for reading.
func (d *Directory) Open(name string) (*os.File, fs.FileInfo, error) {
	p, err := d.path(name)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("open %s: %w", name, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat %s: %w", name, err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, nil, ErrNotFound
	}
	return f, info, nil
}

// Stat reports metadata of the stored file called name.
func (d *Directory) Stat(name string) (fs.FileInfo, error) {
	p, err := d.path(name)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat %s: %w", name, err)
	}
	return info, nil
}

// Entries lists the regular files directly inside the directory. Hidden
// files, subdirectories and entries that disappear while listing are skipped.
func (d *Directory) Entries() ([]fs.FileInfo, error) {
	if err := d.ensure(); err != nil {
		return nil, err
	}
	dirents, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	out := make([]fs.FileInfo, 0, len(dirents))
	for _, de := range dirents {
		if de.IsDir() || naming.Validate(de.Name()) != nil {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		out = append(out, info)
	}
	return out, nil
}

// path validates name and joins it to the root. The joined path is checked
// again after cleaning so nothing outside the root is ever touched.
func (d *Directory) path(name string) (string, error) {
	if err := naming.Validate(name); err != nil {
		return "", err
	}
	p := filepath.Join(d.root, name)
	if filepath.Dir(p) != d.root || !strings.HasPrefix(p, d.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q escapes the upload dir", naming.ErrInvalidName, name)
	}
	return p, nil
}
