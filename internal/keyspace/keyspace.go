// Package keyspace defines the layout of object storage keys.
//
// Every key has the shape <kind>/<owner>/<local-name> where kind is "docs"
// or "image" and owner is the authenticated principal's email. Documents end
// in ".html"; images are "<uuid>.<ext>" and never reuse the uploaded name.
package keyspace

import (
	"fmt"
	"path"
	"strings"

	"github.com/dmitrijs2005/gemdeck/internal/common"
	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

const (
	KindDocs  = "docs"
	KindImage = "image"

	htmlExt    = ".html"
	defaultExt = "bin"
)

// newID is a seam for tests.
var newID = func() string { return uuid.NewString() }

// NormalizeName trims a user supplied file name and converts it to NFC so
// that names typed on different platforms map to the same key.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// ValidateLocalName rejects names that would escape or extend the
// <kind>/<owner>/ prefix.
func ValidateLocalName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: empty file name", common.ErrorBadInput)
	case strings.ContainsAny(name, "/\\"):
		return fmt.Errorf("%w: file name must not contain path separators", common.ErrorBadInput)
	}
	return nil
}

// HTMLName appends ".html" to name unless it already ends with it.
func HTMLName(name string) string {
	if strings.HasSuffix(name, htmlExt) {
		return name
	}
	return name + htmlExt
}

// DocumentKey returns docs/<owner>/<filename>, appending ".html" if needed.
func DocumentKey(owner, filename string) (string, error) {
	if owner == "" {
		return "", fmt.Errorf("%w: empty owner", common.ErrorBadInput)
	}
	name := HTMLName(NormalizeName(filename))
	if err := ValidateLocalName(name); err != nil {
		return "", err
	}
	if strings.TrimSuffix(name, htmlExt) == "" {
		return "", fmt.Errorf("%w: empty file name", common.ErrorBadInput)
	}
	return KindDocs + "/" + owner + "/" + name, nil
}

// ParseDocumentKey checks that key is docs/<owner>/<name>.html with a single
// segment name and returns the owner.
func ParseDocumentKey(key string) (string, error) {
	kind, owner, local, ok := split(key)
	if !ok || kind != KindDocs || owner == "" {
		return "", fmt.Errorf("%w: not a document key", common.ErrorBadInput)
	}
	if err := ValidateLocalName(local); err != nil {
		return "", err
	}
	if !strings.HasSuffix(local, htmlExt) || local == htmlExt {
		return "", fmt.Errorf("%w: document name must end in %s", common.ErrorBadInput, htmlExt)
	}
	return owner, nil
}

// ImageKey returns image/<owner>/<randomID>.<ext>.
func ImageKey(owner, randomID, ext string) string {
	return KindImage + "/" + owner + "/" + randomID + "." + ext
}

// NewImageKey mints a key for an uploaded image. Only the extension of the
// uploaded name survives; the rest is a fresh UUID.
func NewImageKey(owner, uploadedName string) string {
	return ImageKey(owner, newID(), Ext(uploadedName))
}

// Ext returns the lowercase extension of name without the dot, limited to
// ASCII letters and digits. Names without a usable extension get "bin".
func Ext(name string) string {
	ext := strings.TrimPrefix(path.Ext(name), ".")
	if ext == "" {
		return defaultExt
	}
	for _, r := range ext {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return defaultExt
		}
	}
	return strings.ToLower(ext)
}

// split returns kind, owner and local name. ok is false for keys with fewer
// than three segments.
func split(key string) (kind, owner, local string, ok bool) {
	parts := strings.SplitN(key, "/", 3)
	if len(parts) < 3 {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

// OwnerOf returns the second path segment of key.
func OwnerOf(key string) (string, bool) {
	_, owner, _, ok := split(key)
	if !ok || owner == "" {
		return "", false
	}
	return owner, true
}

// KindOf returns the first path segment of a well-formed key.
func KindOf(key string) (string, bool) {
	kind, _, _, ok := split(key)
	if !ok {
		return "", false
	}
	return kind, true
}

// LocalName returns the last path segment of key.
func LocalName(key string) string {
	return path.Base(key)
}

// IsOwnedBy reports whether key is a docs or image key under owner.
func IsOwnedBy(key, owner string) bool {
	if owner == "" {
		return false
	}
	kind, keyOwner, local, ok := split(key)
	if !ok || local == "" {
		return false
	}
	if kind != KindDocs && kind != KindImage {
		return false
	}
	return keyOwner == owner
}

// IsDocumentKey reports whether key lies in the docs namespace.
func IsDocumentKey(key string) bool {
	kind, _, local, ok := split(key)
	return ok && kind == KindDocs && local != ""
}

// IsImageKey reports whether key lies in the image namespace.
func IsImageKey(key string) bool {
	kind, _, local, ok := split(key)
	return ok && kind == KindImage && local != ""
}

// ListPrefix returns the listing prefix for owner. Only an administrator
// who explicitly asks for all scopes gets the whole docs/ namespace.
func ListPrefix(owner string, scopeAll, isAdmin bool) string {
	if isAdmin && scopeAll {
		return KindDocs + "/"
	}
	return KindDocs + "/" + owner + "/"
}
