package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Manager stores one image file per entity name in a single directory
type Manager struct {
	outputDir string
	saved     map[string]string // safe name -> path
	mu        sync.RWMutex
}

// NewManager creates the output directory if needed and indexes the images
// already in it.
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	manager := &Manager{
		outputDir: outputDir,
		saved:     make(map[string]string),
	}

	if err := manager.scanExistingFiles(); err != nil {
		return nil, fmt.Errorf("failed to scan existing files: %w", err)
	}

	return manager, nil
}

// scanExistingFiles indexes the image files already in the output directory
func (m *Manager) scanExistingFiles() error {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), ".tmp") {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if !IsImageExt(ext) {
			continue
		}
		base := strings.TrimSuffix(entry.Name(), ext)
		m.saved[base] = filepath.Join(m.outputDir, entry.Name())
	}

	return nil
}

// SafeName turns an entity name into a file name stem: path separators and
// characters reserved on common filesystems become underscores.
func SafeName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20 || r == 0x7f:
			return '_'
		case strings.ContainsRune(`/\:*?"<>|`, r):
			return '_'
		}
		return r
	}, name)

	name = strings.Trim(strings.TrimSpace(name), ".")
	if name == "" {
		return "unnamed"
	}
	return name
}

// Path returns where the image for name with extension ext is stored
func (m *Manager) Path(name, ext string) string {
	return filepath.Join(m.outputDir, SafeName(name)+normalizeExt(ext))
}

// Existing returns the stored image path for name, if any
func (m *Manager) Existing(name string) (string, bool) {
	key := SafeName(name)

	m.mu.RLock()
	path, ok := m.saved[key]
	m.mu.RUnlock()

	if !ok {
		return "", false
	}
	if _, err := os.Stat(path); err != nil {
		m.mu.Lock()
		delete(m.saved, key)
		m.mu.Unlock()
		return "", false
	}
	return path, true
}

// Save writes r to <safe-name><ext> via a temporary file and rename, so a
// failed copy never leaves a partial image under the final name. It returns
// the final path.
func (m *Manager) Save(r io.Reader, name, ext string) (string, error) {
	filename := m.Path(name, ext)

	tempFile := filename + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to save image data: %w", err)
	}

	if closeErr != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.mu.Lock()
	m.saved[SafeName(name)] = filename
	m.mu.Unlock()

	return filename, nil
}

// Remove deletes a stored file. A missing file is not an error.
func (m *Manager) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}

	m.mu.Lock()
	for key, p := range m.saved {
		if p == path {
			delete(m.saved, key)
		}
	}
	m.mu.Unlock()

	return nil
}

// Rename moves a stored file to <safe-name><ext> and returns the new path.
// It is a no-op when the path already has that extension.
func (m *Manager) Rename(path, name, ext string) (string, error) {
	target := m.Path(name, ext)
	if target == path {
		return path, nil
	}

	if err := os.Rename(path, target); err != nil {
		return "", fmt.Errorf("failed to rename %s: %w", path, err)
	}

	m.mu.Lock()
	m.saved[SafeName(name)] = target
	m.mu.Unlock()

	return target, nil
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// Count returns the number of images currently indexed
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.saved)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || ext == "." {
		return ".jpg"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// IsImageExt reports whether ext is one of the image extensions the manager
// indexes
func IsImageExt(ext string) bool {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp":
		return true
	}
	return false
}
