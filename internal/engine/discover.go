package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Discover находит файлы сцен в dir по glob-шаблонам ("scenes/**/*.hcl").
//
// Возвращает отсортированные пути без повторов, соединённые с dir.
// Файлы с неподдерживаемыми расширениями пропускаются.
func Discover(dir string, patterns ...string) ([]string, error) {
	fsys := os.DirFS(dir)
	seen := make(map[string]bool)
	var files []string

	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("discover scenes: invalid pattern %q", pattern)
		}

		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("discover scenes %q: %w", pattern, err)
		}

		for _, m := range matches {
			if seen[m] || !IsSceneFile(m) {
				continue
			}
			seen[m] = true
			files = append(files, filepath.Join(dir, filepath.FromSlash(m)))
		}
	}

	sort.Strings(files)
	return files, nil
}
