package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/sells-group/listing-extract/internal/config"
)

// InputFiles returns the fixed list of expected input paths. Explicit files
// win; otherwise Pattern is formatted with every i in [Start, Stop) stepping
// by Step (a negative Step counts down to Stop, exclusive). Relative names
// are resolved against Dir.
func InputFiles(cfg config.InputConfig) []string {
	var names []string
	switch {
	case len(cfg.Files) > 0:
		names = append(names, cfg.Files...)
	case cfg.Step > 0:
		for i := cfg.Start; i < cfg.Stop; i += cfg.Step {
			names = append(names, fmt.Sprintf(cfg.Pattern, i))
		}
	case cfg.Step < 0:
		for i := cfg.Start; i > cfg.Stop; i += cfg.Step {
			names = append(names, fmt.Sprintf(cfg.Pattern, i))
		}
	}

	paths := make([]string, 0, len(names))
	for _, name := range names {
		if filepath.IsAbs(name) || cfg.Dir == "" {
			paths = append(paths, name)
			continue
		}
		paths = append(paths, filepath.Join(cfg.Dir, name))
	}
	return paths
}
