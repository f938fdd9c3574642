package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var migrationName = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

const (
	upMarker   = "-- +goose Up"
	downMarker = "-- +goose Down"
)

type migrationFile struct {
	version int64
	name    string
}

// ValidateDir checks the migrations on disk under dir.
func ValidateDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("migrations dir is required")
	}
	return ValidateFS(os.DirFS(dir), ".")
}

// ValidateEmbedded checks the migrations compiled into the binary.
func ValidateEmbedded() error {
	return ValidateFS(embedded, EmbeddedDir)
}

// ValidateFS checks every .sql file under dir: the name must carry a unique
// 14 digit version and the body must declare an Up section before a Down
// section.
func ValidateFS(fsys fs.FS, dir string) error {
	files, err := scanMigrations(fsys, dir)
	if err != nil {
		return err
	}
	for _, file := range files {
		body, err := fs.ReadFile(fsys, path.Join(dir, file.name))
		if err != nil {
			return fmt.Errorf("read %s: %w", file.name, err)
		}
		text := string(body)
		up, down := strings.Index(text, upMarker), strings.Index(text, downMarker)
		switch {
		case up < 0:
			return fmt.Errorf("%s: missing %q", file.name, upMarker)
		case down < 0:
			return fmt.Errorf("%s: missing %q", file.name, downMarker)
		case down < up:
			return fmt.Errorf("%s: down section precedes up section", file.name)
		}
	}
	return nil
}

// scanMigrations lists the .sql files under dir sorted by version and
// rejects malformed names and repeated versions.
func scanMigrations(fsys fs.FS, dir string) ([]migrationFile, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var files []migrationFile
	owners := map[int64]string{}
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".sql" {
			continue
		}
		match := migrationName.FindStringSubmatch(entry.Name())
		if match == nil {
			return nil, fmt.Errorf("%s: expected <YYYYMMDDHHMMSS>_<snake_name>.sql", entry.Name())
		}
		version, _ := strconv.ParseInt(match[1], 10, 64)
		if prev, dup := owners[version]; dup {
			return nil, fmt.Errorf("version %d used by both %s and %s", version, prev, entry.Name())
		}
		owners[version] = entry.Name()
		files = append(files, migrationFile{version: version, name: entry.Name()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].version < files[j].version })
	return files, nil
}
