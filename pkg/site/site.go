// Package site holds the content the server renders: the navigation links,
// the sample users, the greeting, and the views and public trees shipped
// inside the binary.
package site

import (
	"errors"
	"fmt"
	"strings"
)

// A Link is a single navigation entry.
type Link struct {
	Href string
	Text string
}

// Content is built once at startup and only read afterwards.
type Content struct {
	// Message is the greeting shown by the greeting edition
	Message string
	Links   []Link
	Users   []string
	// About is rendered on the about page when set. It is empty by default.
	About string
}

func Default() Content {
	return Content{
		Message: "Oh my! Amazing! ",
		Links: []Link{
			{Href: "/", Text: "Home"},
			{Href: "/about", Text: "About"},
		},
		Users: []string{"Rick", "Morty", "Roy"},
	}
}

// An Edition selects which revision of the site is served.
type Edition string

const (
	// EditionGreeting serves only the index page with a greeting.
	EditionGreeting Edition = "greeting"
	// EditionLinks adds navigation, the about page and static assets.
	EditionLinks Edition = "links"
	// EditionUsers adds the user list to the index page.
	EditionUsers Edition = "users"

	DefaultEdition = EditionUsers
)

var ErrUnknownEdition = errors.New("unknown edition")

var editions = []Edition{EditionGreeting, EditionLinks, EditionUsers}

func Editions() []Edition {
	return append([]Edition(nil), editions...)
}

func ParseEdition(s string) (Edition, error) {
	for _, e := range editions {
		if string(e) == strings.ToLower(strings.TrimSpace(s)) {
			return e, nil
		}
	}
	return "", fmt.Errorf("%w %q (expected one of %s)", ErrUnknownEdition, s, strings.Join(editionNames(), ", "))
}

func editionNames() []string {
	names := make([]string, len(editions))
	for i, e := range editions {
		names[i] = string(e)
	}
	return names
}

// HasAbout reports whether the /about page is routed.
func (e Edition) HasAbout() bool {
	return e != EditionGreeting
}

// ServesAssets reports whether files from the public tree are served.
func (e Edition) ServesAssets() bool {
	return e != EditionGreeting
}

func (e Edition) String() string {
	return string(e)
}
