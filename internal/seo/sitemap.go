package seo

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dxbfab/site/internal/division"
)

const sitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// BlogPost is one entry of the blog list.
type BlogPost struct {
	Slug      string `yaml:"slug" json:"slug"`
	Title     string `yaml:"title" json:"title"`
	Published string `yaml:"published" json:"published"`
}

// DefaultBlogPosts is used when no manifest is configured.
var DefaultBlogPosts = []BlogPost{
	{Slug: "exhibition-stand-design-dubai", Title: "Exhibition stand design in Dubai: a planning guide", Published: "2025-01-15"},
	{Slug: "custom-vs-modular-stands", Title: "Custom vs modular exhibition stands", Published: "2025-02-03"},
	{Slug: "gitex-stand-checklist", Title: "The GITEX stand checklist", Published: "2025-03-10"},
	{Slug: "retail-kiosk-fabrication", Title: "What goes into a mall kiosk", Published: "2025-04-22"},
	{Slug: "event-stage-production", Title: "Event stage production from sketch to site", Published: "2025-05-30"},
	{Slug: "joinery-for-interiors", Title: "Bespoke joinery for commercial interiors", Published: "2025-07-08"},
}

type staticRoute struct {
	Path       string
	ChangeFreq string
	Priority   string
}

func staticRoutes() []staticRoute {
	routes := []staticRoute{
		{Path: "/", ChangeFreq: "weekly", Priority: "1.0"},
		{Path: "/about", ChangeFreq: "monthly", Priority: "0.7"},
	}
	for _, info := range division.All() {
		routes = append(routes, staticRoute{Path: info.Path, ChangeFreq: "weekly", Priority: "0.9"})
	}
	return append(routes,
		staticRoute{Path: "/projects", ChangeFreq: "weekly", Priority: "0.8"},
		staticRoute{Path: "/contact", ChangeFreq: "yearly", Priority: "0.6"},
		staticRoute{Path: "/blog", ChangeFreq: "weekly", Priority: "0.7"},
	)
}

// URL is a single <url> element.
type URL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

type urlSet struct {
	XMLName xml.Name `xml:"urlset"`
	Xmlns   string   `xml:"xmlns,attr"`
	URLs    []URL    `xml:"url"`
}

// Sitemap renders sitemap.xml from the static routes and the blog list.
type Sitemap struct {
	baseURL string
	posts   []BlogPost
	now     func() time.Time
}

// NewSitemap builds a Sitemap; nil posts means DefaultBlogPosts.
func NewSitemap(baseURL string, posts []BlogPost) *Sitemap {
	if posts == nil {
		posts = DefaultBlogPosts
	}
	return &Sitemap{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		posts:   posts,
		now:     time.Now,
	}
}

// URLs lists every entry in output order.
func (s *Sitemap) URLs() []URL {
	today := s.now().UTC().Format("2006-01-02")
	routes := staticRoutes()
	urls := make([]URL, 0, len(routes)+len(s.posts))
	for _, route := range routes {
		urls = append(urls, URL{Loc: s.baseURL + route.Path, LastMod: today, ChangeFreq: route.ChangeFreq, Priority: route.Priority})
	}
	for _, post := range s.posts {
		slug := strings.Trim(strings.TrimSpace(post.Slug), "/")
		if slug == "" {
			continue
		}
		lastMod := today
		if post.Published != "" {
			lastMod = post.Published
		}
		urls = append(urls, URL{
			Loc:        s.baseURL + "/blog/" + slug,
			LastMod:    lastMod,
			ChangeFreq: "monthly",
			Priority:   "0.6",
		})
	}
	return urls
}

// XML renders the document including the XML header.
func (s *Sitemap) XML() ([]byte, error) {
	body, err := xml.MarshalIndent(urlSet{Xmlns: sitemapNamespace, URLs: s.URLs()}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode sitemap: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

// Robots returns robots.txt pointing at the sitemap.
func Robots(baseURL string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	return "User-agent: *\nAllow: /\nDisallow: /admin\n\nSitemap: " + base + "/sitemap.xml\n"
}

type blogManifest struct {
	Posts []BlogPost `yaml:"posts"`
}

// LoadBlogManifest reads the blog list from a YAML file of the form
// "posts: [{slug, title, published}]". Published must be YYYY-MM-DD.
func LoadBlogManifest(path string) ([]BlogPost, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read blog manifest: %w", err)
	}

	var manifest blogManifest
	if err := yaml.Unmarshal(raw, &manifest); err != nil {
		return nil, fmt.Errorf("parse blog manifest: %w", err)
	}

	posts := make([]BlogPost, 0, len(manifest.Posts))
	for i, post := range manifest.Posts {
		post.Slug = strings.TrimSpace(post.Slug)
		if post.Slug == "" {
			return nil, fmt.Errorf("blog manifest entry %d has no slug", i)
		}
		if post.Published != "" {
			if _, err := time.Parse("2006-01-02", post.Published); err != nil {
				return nil, fmt.Errorf("blog manifest entry %q: invalid published date %q", post.Slug, post.Published)
			}
		}
		posts = append(posts, post)
	}
	return posts, nil
}
