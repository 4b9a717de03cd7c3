package migrate

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"go.uber.org/multierr"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	return ValidateFS(os.DirFS(dir))
}

// ValidateFS checks every .sql file at the root of fsys and reports all problems at once.
func ValidateFS(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	var errs error
	versions := map[string]string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: expected YYYYMMDDHHMMSS_name.sql", name))
			continue
		}
		if prev, ok := versions[m[1]]; ok {
			errs = multierr.Append(errs, fmt.Errorf("%s: version %s already used by %s", name, m[1], prev))
		}
		versions[m[1]] = name
		errs = multierr.Append(errs, checkAnnotations(fsys, name))
	}
	return errs
}

// checkAnnotations requires one Up and one Down section and balanced statement blocks.
func checkAnnotations(fsys fs.FS, name string) error {
	f, err := fsys.Open(name)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	defer f.Close()

	var ups, downs, open int
	var errs error
	scanner := bufio.NewScanner(f)
	for line := 1; scanner.Scan(); line++ {
		switch strings.TrimSpace(scanner.Text()) {
		case "-- +goose Up":
			ups++
		case "-- +goose Down":
			downs++
			if open != 0 {
				errs = multierr.Append(errs, fmt.Errorf("%s:%d: Down begins inside an open statement block", name, line))
			}
		case "-- +goose StatementBegin":
			open++
		case "-- +goose StatementEnd":
			open--
			if open < 0 {
				errs = multierr.Append(errs, fmt.Errorf("%s:%d: StatementEnd without StatementBegin", name, line))
				open = 0
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
	}
	if ups != 1 || downs != 1 {
		errs = multierr.Append(errs, fmt.Errorf("%s: want one Up and one Down section, got %d and %d", name, ups, downs))
	}
	if open != 0 {
		errs = multierr.Append(errs, fmt.Errorf("%s: unterminated statement block", name))
	}
	return errs
}
