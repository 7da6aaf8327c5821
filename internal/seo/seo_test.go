package seo

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSitemapListsStaticRoutesAndPosts(t *testing.T) {
	sm := NewSitemap("https://www.dxbfab.ae/", []BlogPost{{Slug: "/gitex-guide/", Published: "2025-09-01"}, {Slug: " "}})
	sm.now = func() time.Time { return time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC) }

	urls := sm.URLs()
	require.Len(t, urls, 10)
	assert.Equal(t, "https://www.dxbfab.ae/", urls[0].Loc)
	assert.Equal(t, "2026-01-02", urls[0].LastMod)
	assert.Equal(t, "https://www.dxbfab.ae/exhibitions", urls[2].Loc)
	assert.Equal(t, "https://www.dxbfab.ae/blog/gitex-guide", urls[9].Loc)
	assert.Equal(t, "2025-09-01", urls[9].LastMod)

	out, err := sm.XML()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), xml.Header))

	var decoded urlSet
	require.NoError(t, xml.Unmarshal(out, &decoded))
	assert.Equal(t, sitemapNamespace, decoded.Xmlns)
	assert.Len(t, decoded.URLs, 10)
}

func TestSitemapDefaultsToBuiltInPosts(t *testing.T) {
	urls := NewSitemap("https://www.dxbfab.ae", nil).URLs()
	assert.Len(t, urls, 9+len(DefaultBlogPosts))
}

func TestLoadBlogManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("posts:\n  - slug: stand-lighting\n    title: Stand lighting\n    published: 2025-10-01\n"), 0o644))

	posts, err := LoadBlogManifest(path)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "stand-lighting", posts[0].Slug)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("posts:\n  - slug: x\n    published: yesterday\n"), 0o644))
	_, err = LoadBlogManifest(bad)
	assert.Error(t, err)

	_, err = LoadBlogManifest(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestRobots(t *testing.T) {
	assert.Contains(t, Robots("https://www.dxbfab.ae/"), "Sitemap: https://www.dxbfab.ae/sitemap.xml")
}

func TestOGRenderEscapesAndStripsMarkup(t *testing.T) {
	r := NewOGRenderer("DXB Fab", "https://www.dxbfab.ae/")
	out, err := r.Render(OGParams{Title: `<b>Stands</b> & "sets" <script>alert(1)</script>`, Division: "events"})
	require.NoError(t, err)

	svg := string(out)
	assert.True(t, strings.HasPrefix(svg, "<svg"))
	assert.Contains(t, svg, `width="1200" height="630"`)
	assert.Contains(t, svg, "Stands &amp; &#34;sets&#34;")
	assert.NotContains(t, svg, "<b>")
	assert.NotContains(t, svg, "<script")
	assert.NotContains(t, svg, "&amp;amp;")
	assert.Contains(t, svg, "#29335C")
	assert.Contains(t, svg, "EVENTS")
	assert.Contains(t, svg, "www.dxbfab.ae")

	var doc struct {
		XMLName xml.Name `xml:"svg"`
	}
	require.NoError(t, xml.Unmarshal(out, &doc))
}

func TestOGRenderPageDefaults(t *testing.T) {
	r := NewOGRenderer("DXB Fab", "www.dxbfab.ae")

	out, err := r.Render(OGParams{Page: "contact"})
	require.NoError(t, err)
	assert.Contains(t, string(out), "Tell us about your")

	out, err = r.Render(OGParams{Page: "retail"})
	require.NoError(t, err)
	assert.Contains(t, string(out), "Kiosks, pop-ups and store fit-outs")
	assert.Contains(t, string(out), "#F3A712")
}

func TestWrapLines(t *testing.T) {
	assert.Nil(t, WrapLines("   ", 10, 3))
	assert.Equal(t, []string{"one two", "three"}, WrapLines("one two three", 9, 3))

	lines := WrapLines("aaaa bbbb cccc dddd eeee ffff", 9, 2)
	require.Len(t, lines, 2)
	assert.Equal(t, "aaaa bbbb", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], "…"))
	assert.LessOrEqual(t, len([]rune(lines[1])), 9)
}
