package store

import (
	"fmt"
	"strings"
)

// Join builds a path from segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

// Parent returns the collection path a document path lives in.
func Parent(path string) string {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return ""
	}
	return path[:i]
}

// Key returns the last segment of path.
func Key(path string) string {
	return path[strings.LastIndex(path, "/")+1:]
}

// ValidatePath rejects empty segments and the characters the hosted tree reserves.
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			return fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, path)
		}
		if strings.ContainsAny(seg, ".#$[]") {
			return fmt.Errorf("%w: reserved character in %q", ErrInvalidPath, path)
		}
	}
	return nil
}

// ancestors returns path and every prefix of it, deepest first.
func ancestors(path string) []string {
	out := []string{path}
	for p := Parent(path); p != ""; p = Parent(p) {
		out = append(out, p)
	}
	return out
}

func isWithin(path, root string) bool {
	return path == root || strings.HasPrefix(path, root+"/")
}
