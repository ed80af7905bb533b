package htmlscan

import (
	"testing"

	"github.com/dmitrijs2005/gemdeck/internal/cryptox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustKey(t *testing.T, secret string) *cryptox.PathKey {
	t.Helper()
	k, err := cryptox.DeriveKey(secret)
	require.NoError(t, err)
	return k
}

func TestLocalImageFilenames(t *testing.T) {
	doc := `<html><body>
		<img src="pic.png">
		<img src="assets/img/chart.jpg">
		<img src="./pic.png">
		<img src="https://cdn.example.com/logo.png">
		<img src="HTTP://cdn.example.com/logo2.png">
		<img src="//cdn.example.com/x.png">
		<img src="data:image/png;base64,AAAA">
		<img alt="no src">
		<img src="dir/">
	</body></html>`

	got, err := LocalImageFilenames(doc)
	require.NoError(t, err)

	assert.Equal(t, map[string]struct{}{
		"pic.png":   {},
		"chart.jpg": {},
	}, got)
}

func TestLocalImageFilenames_Empty(t *testing.T) {
	got, err := LocalImageFilenames("<p>no images</p>")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReferencedStorageKeys(t *testing.T) {
	k := mustKey(t, "s")
	foreign := mustKey(t, "other")

	own1, err := k.Encrypt("image/a@b.c/1.png")
	require.NoError(t, err)
	own2, err := k.Encrypt("image/a@b.c/2.png")
	require.NoError(t, err)
	own1again, err := k.Encrypt("image/a@b.c/1.png")
	require.NoError(t, err)
	otherOwner, err := k.Encrypt("image/z@b.c/3.png")
	require.NoError(t, err)
	docRef, err := k.Encrypt("docs/a@b.c/other.html")
	require.NoError(t, err)
	wrongKey, err := foreign.Encrypt("image/a@b.c/4.png")
	require.NoError(t, err)

	doc := `<img src="/api/file/` + own1 + `">` +
		`<img src="/api/file/` + own2 + `">` +
		`<img src="/api/file/` + own1again + `">` +
		`<img src="/api/file/` + otherOwner + `">` +
		`<img src="/api/file/` + docRef + `">` +
		`<img src="/api/file/` + wrongKey + `">` +
		`<img src="/api/file/zzzz">` +
		`<img src="/api/file/image/a@b.c/legacy.png">` +
		`<img src="/api/file/image/z@b.c/legacy.png">` +
		`<img src="pic.png">`

	got, err := ReferencedStorageKeys(doc, "a@b.c", k)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"image/a@b.c/1.png",
		"image/a@b.c/2.png",
		"image/a@b.c/legacy.png",
	}, got)
}

func TestRewriteImageReferences(t *testing.T) {
	doc := `<html><head></head><body><img src="pic.png" alt="a"><img src="img/chart.jpg"><img src="https://x/y.png"><p>text</p></body></html>`

	out, err := RewriteImageReferences(doc, map[string]string{
		"pic.png":   "/api/file/aaa",
		"chart.jpg": "/api/file/bbb",
	})
	require.NoError(t, err)

	assert.Equal(t,
		`<html><head></head><body><img src="/api/file/aaa" alt="a"/><img src="/api/file/bbb"/><img src="https://x/y.png"/><p>text</p></body></html>`,
		out)

	names, err := LocalImageFilenames(out)
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"aaa": {}, "bbb": {}}, names)
}

func TestRewriteImageReferences_NoMatch(t *testing.T) {
	out, err := RewriteImageReferences(`<img src="missing.png">`, map[string]string{"pic.png": "/api/file/x"})
	require.NoError(t, err)
	assert.Contains(t, out, `src="missing.png"`)
}
