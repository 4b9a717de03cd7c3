package migrate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var nonSlugRe = regexp.MustCompile(`[^a-z0-9]+`)

const migrationTemplate = `-- +goose Up
-- +goose StatementBegin
-- %[1]s
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- undo %[1]s
-- +goose StatementEnd
`

// CreateSQLMigration writes an empty goose migration named <version>_<slug>.sql into dir.
// The version comes from now in UTC and is bumped past any existing file with the same one.
func CreateSQLMigration(dir, name string, now time.Time) (string, error) {
	if dir == "" {
		return "", errors.New("dir is required")
	}
	slug := strings.Trim(nonSlugRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return "", fmt.Errorf("name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}

	stamp := now.UTC().Truncate(time.Second)
	for {
		version := stamp.Format("20060102150405")
		taken, err := filepath.Glob(filepath.Join(dir, version+"_*.sql"))
		if err != nil {
			return "", err
		}
		if len(taken) == 0 {
			full := filepath.Join(dir, version+"_"+slug+".sql")
			if err := os.WriteFile(full, []byte(fmt.Sprintf(migrationTemplate, slug)), 0o644); err != nil {
				return "", fmt.Errorf("write migration %q: %w", full, err)
			}
			return full, nil
		}
		stamp = stamp.Add(time.Second)
	}
}
