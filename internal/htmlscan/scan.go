// Package htmlscan finds and rewrites image references inside uploaded HTML
// documents.
package htmlscan

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gemdeck/internal/common"
	"github.com/dmitrijs2005/gemdeck/internal/cryptox"
	"github.com/dmitrijs2005/gemdeck/internal/keyspace"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func parse(doc string) (*html.Node, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return root, nil
}

// eachImage calls fn for every <img> element in document order.
func eachImage(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.ElementNode && n.DataAtom == atom.Img {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		eachImage(c, fn)
	}
}

func getAttr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, name, val string) {
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == name {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: val})
}

// isRemote reports whether src points outside the uploaded bundle.
func isRemote(src string) bool {
	lower := strings.ToLower(src)
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "//") ||
		strings.HasPrefix(lower, "data:")
}

// finalSegment returns the part of src after the last slash.
func finalSegment(src string) string {
	if i := strings.LastIndexByte(src, '/'); i >= 0 {
		return src[i+1:]
	}
	return src
}

// LocalImageFilenames returns the set of file names referenced by local
// <img src> attributes. Remote and protocol-relative sources are ignored.
func LocalImageFilenames(doc string) (map[string]struct{}, error) {
	root, err := parse(doc)
	if err != nil {
		return nil, err
	}

	names := make(map[string]struct{})
	eachImage(root, func(n *html.Node) {
		src, ok := getAttr(n, "src")
		if !ok || src == "" || isRemote(src) {
			return
		}
		if name := finalSegment(src); name != "" {
			names[name] = struct{}{}
		}
	})
	return names, nil
}

// ReferencedStorageKeys returns the image keys owned by owner that the
// document references through the file route. Each src is either a legacy
// literal image key or an opaque token. References that fail decryption or
// the ownership check are skipped. The result is deduplicated and keeps
// document order.
func ReferencedStorageKeys(doc, owner string, key cryptox.KeySource) ([]string, error) {
	root, err := parse(doc)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var keys []string

	eachImage(root, func(n *html.Node) {
		src, ok := getAttr(n, "src")
		if !ok || !strings.HasPrefix(src, common.FileRoutePrefix) {
			return
		}
		ref := strings.TrimPrefix(src, common.FileRoutePrefix)

		var candidate string
		if strings.HasPrefix(ref, keyspace.KindImage+"/") {
			candidate = ref
		} else {
			plain, ok := cryptox.DecryptPath(ref, key)
			if !ok {
				return
			}
			candidate = plain
		}

		if !keyspace.IsImageKey(candidate) || !keyspace.IsOwnedBy(candidate, owner) {
			return
		}
		if _, dup := seen[candidate]; dup {
			return
		}
		seen[candidate] = struct{}{}
		keys = append(keys, candidate)
	})

	return keys, nil
}

// RewriteImageReferences replaces the src of every <img> whose final path
// segment is a key of mapping with the mapped URL and re-serialises the
// document. Markup may be normalised by the renderer.
func RewriteImageReferences(doc string, mapping map[string]string) (string, error) {
	root, err := parse(doc)
	if err != nil {
		return "", err
	}

	eachImage(root, func(n *html.Node) {
		src, ok := getAttr(n, "src")
		if !ok || src == "" {
			return
		}
		if url, ok := mapping[finalSegment(src)]; ok {
			setAttr(n, "src", url)
		}
	})

	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}
