package capstonesys

import (
	"fmt"
	"path/filepath"
)

// FindHeader searches the directories in order and returns the path of the
// first regular file named name.
//
// Directories are not searched recursively and nothing is cached; the
// result reflects the file system at the time of the call.
func FindHeader(searchPaths []string, name string) (string, error) {
	for _, dir := range searchPaths {
		candidate := filepath.Join(dir, name)
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	return "", discoveryError("locate header",
		fmt.Errorf("%w: %s in %v", ErrHeaderNotFound, name, searchPaths))
}
