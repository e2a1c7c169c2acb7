package scan

import (
	"fmt"
	"os"
	"path/filepath"
)

// maxRenameAttempts bounds the collision counter before giving up.
const maxRenameAttempts = 100

// Rename moves the file at path to <baseName><ext> in the same directory,
// keeping the original extension. If the target exists it tries
// <baseName>_1<ext>, <baseName>_2<ext>, and so on up to maxRenameAttempts,
// then fails with a too-many-conflicts error, leaving the source untouched.
// The rename itself is a single os.Rename, atomic where the platform
// provides it. Returns the final path on success.
func Rename(path, baseName string) (string, error) {
	dir := filepath.Dir(path)
	ext := filepath.Ext(path)

	target := filepath.Join(dir, baseName+ext)
	for counter := 1; targetExists(target); counter++ {
		if counter > maxRenameAttempts {
			return "", fmt.Errorf("too many naming conflicts for %s", filepath.Base(path))
		}
		target = filepath.Join(dir, fmt.Sprintf("%s_%d%s", baseName, counter, ext))
	}

	if err := os.Rename(path, target); err != nil {
		return "", fmt.Errorf("failed to rename %s: %w", filepath.Base(path), err)
	}
	return target, nil
}

func targetExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
