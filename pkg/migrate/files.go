package migrate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

const versionLayout = "20060102150405"

var (
	fileNameRe  = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)
	unsafeChars = regexp.MustCompile(`[^a-z0-9]+`)
)

// File is one goose SQL migration on disk.
type File struct {
	Version string
	Name    string
	Path    string
}

// ParseFileName splits "<version>_<name>.sql".
func ParseFileName(name string) (File, bool) {
	m := fileNameRe.FindStringSubmatch(name)
	if m == nil {
		return File{}, false
	}
	return File{Version: m[1], Name: m[2]}, true
}

// ListDir returns the migrations of dir ordered by version. Duplicate
// versions and badly named .sql files are errors.
func ListDir(dir string) ([]File, error) {
	if dir == "" {
		return nil, errors.New("migrations dir required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var files []File
	byVersion := map[string]string{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".sql" {
			continue
		}
		f, ok := ParseFileName(entry.Name())
		if !ok {
			return nil, fmt.Errorf("%s: expected %s_<name>.sql", entry.Name(), versionLayout)
		}
		if other, dup := byVersion[f.Version]; dup {
			return nil, fmt.Errorf("version %s used by %s and %s", f.Version, other, entry.Name())
		}
		byVersion[f.Version] = entry.Name()
		f.Path = filepath.Join(dir, entry.Name())
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, nil
}

// ValidateDir checks names and that every file has an Up section followed by a Down section.
func ValidateDir(dir string) error {
	files, err := ListDir(dir)
	if err != nil {
		return err
	}
	for _, f := range files {
		body, err := os.ReadFile(f.Path)
		if err != nil {
			return err
		}
		text := string(body)
		up := strings.Index(text, "-- +goose Up")
		down := strings.Index(text, "-- +goose Down")
		switch {
		case up < 0:
			return fmt.Errorf("%s: missing goose Up annotation", filepath.Base(f.Path))
		case down < 0:
			return fmt.Errorf("%s: missing goose Down annotation", filepath.Base(f.Path))
		case down < up:
			return fmt.Errorf("%s: Down section precedes Up", filepath.Base(f.Path))
		}
	}
	return nil
}

// CreateSQLMigration writes an empty migration named after name, versioned at now.
func CreateSQLMigration(dir, name string, now time.Time) (string, error) {
	slug := strings.Trim(unsafeChars.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.sql", now.UTC().Format(versionLayout), slug))
	body := fmt.Sprintf("-- +goose Up\n-- %s\n\n-- +goose Down\n-- undo %s\n", slug, slug)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(body); err != nil {
		return "", err
	}
	return path, nil
}
