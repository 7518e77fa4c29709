// Package frames resolves scene assets on disk and picks the frames sent
// with each question.
package frames

import (
	"path/filepath"
	"sort"
)

// Select joins each frame name under sceneDir/imageSubdir, orders the paths
// lexicographically and returns the first n of them. n <= 0 returns every
// frame. Fewer than n frames is not an error.
//
// The ordering is total, so repeated calls over the same names return the
// same slice regardless of the order names were given in.
func Select(sceneDir, imageSubdir string, names []string, n int) []string {
	paths := make([]string, 0, len(names))
	for _, name := range names {
		paths = append(paths, filepath.Join(sceneDir, imageSubdir, name))
	}
	sort.Strings(paths)
	if n > 0 && n < len(paths) {
		paths = paths[:n]
	}
	return paths
}
