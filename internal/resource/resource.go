// Package resource maps request targets onto files under the content root
// and decides whether they are served as bytes or executed.
package resource

import (
	"errors"
	"fmt"
	"strings"
)

const (
	DefaultRoot     = "."
	DefaultDocument = "home.html"
	DefaultMarker   = "cgi-bin"
)

var ErrOutsideRoot = errors.New("target escapes the content root")

// Kind classifies a resolved resource.
type Kind int

const (
	Static Kind = iota
	Dynamic
)

func (k Kind) String() string {
	switch k {
	case Static:
		return "static"
	case Dynamic:
		return "dynamic"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Resource is the outcome of resolving one request target.
type Resource struct {
	Filename string // root-prefixed filesystem path
	Path     string // path component of the target
	Kind     Kind
	Args     string // query string for dynamic targets, always empty for static
}

// Resolver holds the layout of the content root.
type Resolver struct {
	Root            string
	DefaultDocument string
	Marker          string
}

// NewResolver fills empty settings with the package defaults.
func NewResolver(root, defaultDocument, marker string) *Resolver {
	if root == "" {
		root = DefaultRoot
	}
	if defaultDocument == "" {
		defaultDocument = DefaultDocument
	}
	if marker == "" {
		marker = DefaultMarker
	}
	return &Resolver{
		Root:            root,
		DefaultDocument: defaultDocument,
		Marker:          marker,
	}
}

// Resolve classifies target and derives its filename. The classification
// depends only on whether the path component contains the marker, never on
// what exists on disk.
func (rv *Resolver) Resolve(target string) (Resource, error) {
	if !strings.HasPrefix(target, "/") {
		target = "/" + target
	}
	if hasDotDot(target) {
		return Resource{}, fmt.Errorf("%w: %q", ErrOutsideRoot, target)
	}

	path, query, _ := strings.Cut(target, "?")

	if strings.Contains(path, rv.Marker) {
		return Resource{
			Filename: rv.join(path),
			Path:     path,
			Kind:     Dynamic,
			Args:     query,
		}, nil
	}

	// a static target is a file name as a whole, query included
	filename := rv.join(target)
	if strings.HasSuffix(target, "/") {
		filename += rv.DefaultDocument
	}
	return Resource{
		Filename: filename,
		Path:     path,
		Kind:     Static,
	}, nil
}

func (rv *Resolver) join(path string) string {
	return strings.TrimRight(rv.Root, "/") + path
}

func hasDotDot(path string) bool {
	for _, seg := range strings.Split(path, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}
