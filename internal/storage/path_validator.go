package storage

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"unicode"

	"racoonsmeal/pkg/apierror"
)

// PathValidator resolves relative media paths and refuses anything that escapes
// the root.
type PathValidator struct {
	rootAbs string
}

func NewPathValidator(root string) (*PathValidator, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("media root cannot be empty")
	}

	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve media root: %w", err)
	}

	return &PathValidator{rootAbs: rootAbs}, nil
}

func (v *PathValidator) RootAbs() string {
	return v.rootAbs
}

// ResolvePath maps a slash-separated path relative to the root onto the filesystem.
// The root itself is not a valid target.
func (v *PathValidator) ResolvePath(relPath string) (string, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(relPath), `\`, "/")
	if strings.ContainsFunc(normalized, unicode.IsControl) {
		return "", apierror.New("invalid_path", "Path contains invalid characters.", relPath, http.StatusBadRequest)
	}

	for _, segment := range strings.Split(normalized, "/") {
		if segment == ".." {
			return "", apierror.New("invalid_path", "Path escapes the media root.", relPath, http.StatusBadRequest)
		}
	}

	cleanRel := filepath.Clean(strings.TrimPrefix(normalized, "/"))
	if cleanRel == "." {
		return "", apierror.New("invalid_path", "Path is empty.", relPath, http.StatusBadRequest)
	}

	resolved, err := filepath.Abs(filepath.Join(v.rootAbs, cleanRel))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}

	if !isWithinRoot(v.rootAbs, resolved) {
		return "", apierror.New("invalid_path", "Path escapes the media root.", relPath, http.StatusBadRequest)
	}

	return resolved, nil
}

func isWithinRoot(rootAbs string, candidateAbs string) bool {
	return strings.HasPrefix(candidateAbs, rootAbs+string(filepath.Separator))
}
