package files

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
)

const (
	// MaxFileSize is the largest inspection record that will be read (4MB)
	MaxFileSize = 4 * 1024 * 1024
	// MaxDirEntries is the maximum number of records picked up from one directory
	MaxDirEntries = 1000
)

// ErrExists is returned by Move when the destination already exists
var ErrExists = errors.New("destination already exists")

// Store reads and writes records and templates inside a fixed set of directories
type Store struct {
	allowedPaths []string
}

// NewStore creates a store limited to the given directories
func NewStore(allowedPaths ...string) *Store {
	var cleaned []string
	for _, p := range allowedPaths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			cleaned = append(cleaned, filepath.Clean(abs))
		}
	}
	return &Store{allowedPaths: cleaned}
}

// AllowedPaths returns the directories the store may touch
func (s *Store) AllowedPaths() []string {
	return s.allowedPaths
}

// IsPathAllowed checks if a path is within allowed directories
func (s *Store) IsPathAllowed(path string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absPath = filepath.Clean(absPath)

	for _, allowed := range s.allowedPaths {
		if absPath == allowed || strings.HasPrefix(absPath, allowed+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// DirExists reports whether path exists and is a directory
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// ListJSON returns the paths of the *.json files directly inside dir, sorted by name
func (s *Store) ListJSON(dir string) ([]string, error) {
	return s.list(dir, ".json")
}

// ListXML returns the paths of the *.xml files directly inside dir, sorted by name
func (s *Store) ListXML(dir string) ([]string, error) {
	return s.list(dir, ".xml")
}

func (s *Store) list(dir, ext string) ([]string, error) {
	absPath, err := s.resolve(dir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ext) {
			continue
		}
		if len(paths) >= MaxDirEntries {
			break
		}
		paths = append(paths, filepath.Join(absPath, entry.Name()))
	}

	sort.Strings(paths)
	return paths, nil
}

// ReadFile returns the content of a file, refusing anything larger than MaxFileSize
func (s *Store) ReadFile(path string) ([]byte, error) {
	absPath, err := s.resolve(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory")
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("file is too large: %d bytes", info.Size())
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// WriteFile replaces the content of a file
func (s *Store) WriteFile(path string, data []byte) error {
	absPath, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.WriteFile(absPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// Move moves src into dstDir keeping its base name. The source no longer
// exists afterwards. Moves across filesystems fall back to copy and remove.
func (s *Store) Move(src, dstDir string, overwrite bool) (string, error) {
	absSrc, err := s.resolve(src)
	if err != nil {
		return "", err
	}
	absDir, err := s.resolve(dstDir)
	if err != nil {
		return "", err
	}
	if !DirExists(absDir) {
		return "", fmt.Errorf("destination is not a directory: %s", absDir)
	}

	dst := filepath.Join(absDir, filepath.Base(absSrc))
	if dst == absSrc {
		return dst, nil
	}
	if _, err := os.Lstat(dst); err == nil && !overwrite {
		return "", fmt.Errorf("%s: %w", dst, ErrExists)
	}

	err = os.Rename(absSrc, dst)
	if err == nil {
		return dst, nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return "", fmt.Errorf("failed to move file: %w", err)
	}

	if err := copyFile(absSrc, dst); err != nil {
		return "", err
	}
	if err := os.Remove(absSrc); err != nil {
		return "", fmt.Errorf("failed to remove source after copy: %w", err)
	}
	return dst, nil
}

func (s *Store) resolve(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	if !s.IsPathAllowed(absPath) {
		return "", fmt.Errorf("access denied: %s is not in allowed list", absPath)
	}
	return absPath, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat source: %w", err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("failed to copy file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("failed to close destination: %w", err)
	}
	return nil
}
