// Package siteurl turns the image references found on product pages into
// absolute URLs.
package siteurl

import (
	"net/url"
	"strings"
)

// DefaultOrigin is the marketplace origin used for root-relative references.
const DefaultOrigin = "https://domeggook.com"

// Absolute rewrites ref against origin. Protocol-relative references get an
// explicit https scheme, root-relative ones are joined to origin and anything
// else relative is resolved against pageURL when it parses. Absolute and
// unparseable references are returned trimmed but otherwise untouched.
func Absolute(ref, origin, pageURL string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}

	switch {
	case strings.HasPrefix(ref, "//"):
		return "https:" + ref
	case strings.HasPrefix(ref, "/"):
		return strings.TrimRight(origin, "/") + ref
	}

	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() {
		return ref
	}

	base, err := url.Parse(pageURL)
	if err != nil || !base.IsAbs() {
		return strings.TrimRight(origin, "/") + "/" + ref
	}
	return base.ResolveReference(u).String()
}
