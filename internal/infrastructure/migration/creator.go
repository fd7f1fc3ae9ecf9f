package migration

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/gosimple/slug"
)

var fileTemplate = template.Must(template.New("migration").Parse(`-- {{.Name}} ({{.Direction}})
-- Created: {{.Timestamp}}

`))

// MigrationFile is a newly created up/down pair
type MigrationFile struct {
	Version  string
	Name     string
	UpPath   string
	DownPath string
}

// CreateMigration writes an empty timestamped up/down pair into dir
func CreateMigration(dir, name string, now time.Time) (*MigrationFile, error) {
	base := fileBaseName(name)
	if base == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	version := now.UTC().Format("20060102150405")
	mf := &MigrationFile{
		Version:  version,
		Name:     name,
		UpPath:   filepath.Join(dir, version+"_"+base+".up.sql"),
		DownPath: filepath.Join(dir, version+"_"+base+".down.sql"),
	}

	stamp := now.UTC().Format(time.RFC3339)
	if err := writeTemplate(mf.UpPath, name, "up", stamp); err != nil {
		return nil, err
	}
	if err := writeTemplate(mf.DownPath, name, "down", stamp); err != nil {
		_ = os.Remove(mf.UpPath)
		return nil, err
	}
	return mf, nil
}

// fileBaseName turns "Add placement media" into "add_placement_media"
func fileBaseName(name string) string {
	return strings.ReplaceAll(slug.Make(name), "-", "_")
}

func writeTemplate(path, name, direction, stamp string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	return fileTemplate.Execute(f, map[string]string{
		"Name":      name,
		"Direction": direction,
		"Timestamp": stamp,
	})
}

// ListMigrations returns the migration base names found in fsys, sorted by version
func ListMigrations(fsys fs.FS) ([]string, error) {
	ups, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}
	names := make([]string, len(ups))
	for i, up := range ups {
		names[i] = strings.TrimSuffix(up, ".up.sql")
	}
	sort.Strings(names)
	return names, nil
}
