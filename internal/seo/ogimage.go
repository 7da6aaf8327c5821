package seo

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/dxbfab/site/internal/division"
)

// OG image geometry.
const (
	OGWidth       = 1200
	OGHeight      = 630
	ogLineRunes   = 26
	ogMaxLines    = 3
	ogTitleRunes  = ogLineRunes * ogMaxLines
	ogSubtitleMax = 90
	defaultAccent = "#E4572E"
)

// OGParams are the query parameters of the OG image endpoint.
type OGParams struct {
	Page     string
	Title    string
	Subtitle string
	Division string
	// Brand overrides the renderer's default brand line when set.
	Brand string
}

type pageCopy struct {
	Title    string
	Subtitle string
}

var pageDefaults = map[string]pageCopy{
	"home":     {Title: "Design and build fabrication in Dubai", Subtitle: "Exhibitions, events, retail and interiors"},
	"about":    {Title: "Built in our own Dubai workshop", Subtitle: "Designers, carpenters and project managers under one roof"},
	"projects": {Title: "Selected projects", Subtitle: "Stands, stages, kiosks and fit-outs"},
	"contact":  {Title: "Tell us about your project", Subtitle: "We reply within one working day"},
	"blog":     {Title: "Notes from the workshop", Subtitle: "Guides on exhibitions, events and fit-outs"},
}

type ogView struct {
	Width      int
	Height     int
	Accent     string
	Eyebrow    string
	TitleLines []string
	Subtitle   string
	Brand      string
	Domain     string
}

var ogTemplate = template.Must(template.New("og").Funcs(template.FuncMap{
	"x":      xmlEscape,
	"lineY":  func(i int) int { return 250 + i*84 },
	"subY":   func(n int) int { return 250 + n*84 + 20 },
	"stripe": func(h int) int { return h - 12 },
}).Parse(`<svg xmlns="http://www.w3.org/2000/svg" width="{{.Width}}" height="{{.Height}}" viewBox="0 0 {{.Width}} {{.Height}}">
  <rect width="100%" height="100%" fill="#111418"/>
  <rect x="0" y="0" width="16" height="{{.Height}}" fill="{{.Accent}}"/>
  <rect x="0" y="{{stripe .Height}}" width="{{.Width}}" height="12" fill="{{.Accent}}"/>
  <text x="80" y="150" font-family="Inter, Helvetica, Arial, sans-serif" font-size="28" font-weight="600" letter-spacing="6" fill="{{.Accent}}">{{x .Eyebrow}}</text>
{{- range $i, $line := .TitleLines}}
  <text x="80" y="{{lineY $i}}" font-family="Inter, Helvetica, Arial, sans-serif" font-size="72" font-weight="800" fill="#FFFFFF">{{x $line}}</text>
{{- end}}
{{- if .Subtitle}}
  <text x="80" y="{{subY (len .TitleLines)}}" font-family="Inter, Helvetica, Arial, sans-serif" font-size="34" fill="#C9CED6">{{x .Subtitle}}</text>
{{- end}}
  <text x="80" y="570" font-family="Inter, Helvetica, Arial, sans-serif" font-size="30" font-weight="700" fill="#FFFFFF">{{x .Brand}}</text>
  <text x="1120" y="570" text-anchor="end" font-family="Inter, Helvetica, Arial, sans-serif" font-size="26" fill="#8A919C">{{x .Domain}}</text>
</svg>
`))

// OGRenderer builds the SVG share card.
type OGRenderer struct {
	brand  string
	domain string
	strict *bluemonday.Policy
}

// NewOGRenderer creates a renderer; domain is shown in the corner.
func NewOGRenderer(brand, domain string) *OGRenderer {
	domain = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(domain), "https://"), "http://")
	return &OGRenderer{
		brand:  brand,
		domain: strings.TrimRight(domain, "/"),
		strict: bluemonday.StrictPolicy(),
	}
}

// Render returns the SVG document for p.
func (r *OGRenderer) Render(p OGParams) ([]byte, error) {
	page := strings.ToLower(strings.TrimSpace(p.Page))
	title := r.clean(p.Title)
	subtitle := r.clean(p.Subtitle)

	brand := firstNonEmpty(r.clean(p.Brand), r.brand)
	accent := defaultAccent
	eyebrow := strings.ToUpper(brand)
	if div, err := division.Parse(firstNonEmpty(p.Division, page)); err == nil {
		info, _ := division.Lookup(div)
		accent = info.Accent
		eyebrow = strings.ToUpper(info.Label)
		if title == "" {
			title = info.Label + " fabrication in Dubai"
		}
		if subtitle == "" {
			subtitle = info.Tagline
		}
	}
	if defaults, ok := pageDefaults[page]; ok {
		if title == "" {
			title = defaults.Title
		}
		if subtitle == "" {
			subtitle = defaults.Subtitle
		}
	}
	if title == "" {
		title = pageDefaults["home"].Title
	}

	view := ogView{
		Width:      OGWidth,
		Height:     OGHeight,
		Accent:     accent,
		Eyebrow:    eyebrow,
		TitleLines: WrapLines(truncateRunes(title, ogTitleRunes), ogLineRunes, ogMaxLines),
		Subtitle:   truncateRunes(subtitle, ogSubtitleMax),
		Brand:      brand,
		Domain:     r.domain,
	}

	var buf bytes.Buffer
	if err := ogTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("render og image: %w", err)
	}
	return buf.Bytes(), nil
}

// clean drops any markup and collapses whitespace. The policy escapes
// entities, which are decoded again so the SVG escaping applies once.
func (r *OGRenderer) clean(s string) string {
	stripped := html.UnescapeString(r.strict.Sanitize(s))
	return strings.Join(strings.Fields(stripped), " ")
}

// WrapLines splits s on word boundaries into at most maxLines lines of about
// width runes. Overflow is cut and marked with an ellipsis on the last line.
func WrapLines(s string, width, maxLines int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := ""
	for i, word := range words {
		if utf8.RuneCountInString(word) > width {
			word = truncateRunes(word, width)
		}
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if utf8.RuneCountInString(candidate) <= width {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = word
		if len(lines) == maxLines {
			rest := lines[maxLines-1] + " " + strings.Join(words[i:], " ")
			lines[maxLines-1] = truncateRunes(rest, width)
			return lines
		}
	}
	return append(lines, current)
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max-1])) + "…"
}

func xmlEscape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
