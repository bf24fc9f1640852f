package db

import (
	"path"
	"strconv"
	"strings"

	"github.com/qmsworks/qms/internal/db/migrations"
)

// SchemaVersion returns the highest migration version embedded in the binary.
// Readiness compares it against AppliedVersion.
func SchemaVersion() int64 {
	entries, err := migrations.FS.ReadDir(".")
	if err != nil {
		return 0
	}

	var highest int64

	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}

		prefix, _, ok := strings.Cut(e.Name(), "_")
		if !ok {
			continue
		}

		v, err := strconv.ParseInt(prefix, 10, 64)
		if err == nil && v > highest {
			highest = v
		}
	}

	return highest
}
