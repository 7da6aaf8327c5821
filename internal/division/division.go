// Package division holds the four fixed business categories used to tag
// gallery images and route division pages.
package division

import (
	"errors"
	"strings"
)

// Division identifies one of the fixed business categories.
type Division string

const (
	Exhibitions Division = "exhibitions"
	Events      Division = "events"
	Retail      Division = "retail"
	Interiors   Division = "interiors"
)

// ErrUnknown is returned by Parse for anything outside the fixed set.
var ErrUnknown = errors.New("unknown division")

// Info describes how a division is presented.
type Info struct {
	Slug    Division `json:"slug"`
	Label   string   `json:"label"`
	Tagline string   `json:"tagline"`
	Accent  string   `json:"accent"`
	Path    string   `json:"path"`
}

var catalog = []Info{
	{Slug: Exhibitions, Label: "Exhibitions", Tagline: "Exhibition stands built to stop the aisle", Accent: "#E4572E", Path: "/exhibitions"},
	{Slug: Events, Label: "Events", Tagline: "Stages, sets and experiential builds", Accent: "#29335C", Path: "/events"},
	{Slug: Retail, Label: "Retail", Tagline: "Kiosks, pop-ups and store fit-outs", Accent: "#F3A712", Path: "/retail"},
	{Slug: Interiors, Label: "Interiors", Tagline: "Joinery and interiors made in Dubai", Accent: "#669BBC", Path: "/interiors"},
}

// All returns the divisions in display order.
func All() []Info {
	out := make([]Info, len(catalog))
	copy(out, catalog)
	return out
}

// Slugs returns the raw division values in display order.
func Slugs() []Division {
	out := make([]Division, 0, len(catalog))
	for _, info := range catalog {
		out = append(out, info.Slug)
	}
	return out
}

// Parse normalises raw and checks it against the fixed set.
func Parse(raw string) (Division, error) {
	candidate := Division(strings.ToLower(strings.TrimSpace(raw)))
	for _, info := range catalog {
		if info.Slug == candidate {
			return candidate, nil
		}
	}
	return "", ErrUnknown
}

// Valid reports whether d is one of the fixed divisions.
func (d Division) Valid() bool {
	_, err := Parse(string(d))
	return err == nil
}

// Lookup returns presentation info for d.
func Lookup(d Division) (Info, bool) {
	for _, info := range catalog {
		if info.Slug == d {
			return info, true
		}
	}
	return Info{}, false
}

func (d Division) String() string { return string(d) }
