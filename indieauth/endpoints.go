// Package indieauth discovers a site's IndieAuth and Micropub endpoints and
// drives the authorization-code flow against them.
package indieauth

import (
	"net/url"
	"path"
	"strings"
)

// Endpoints is the result of discovering a site. Me is always set on a
// successful discovery; every other field is optional and empty when the
// site does not advertise it.
type Endpoints struct {
	Me            string `json:"me"`
	Micropub      string `json:"micropub_endpoint,omitempty"`
	Authorization string `json:"authorization_endpoint,omitempty"`
	Token         string `json:"token_endpoint,omitempty"`
}

// HasMicropub reports whether the site can accept Micropub requests.
func (e *Endpoints) HasMicropub() bool {
	return e.Micropub != ""
}

// HasIndieAuth reports whether the site advertises both endpoints needed to
// run an authorization-code flow.
func (e *Endpoints) HasIndieAuth() bool {
	return e.Authorization != "" && e.Token != ""
}

// NormalizeSiteURL turns user input ("example.com", "https://example.com")
// into a fetchable URL: https is assumed when no scheme is given, and a
// trailing slash is appended unless the path names a file or carries a query.
func NormalizeSiteURL(site string) (string, error) {
	site = strings.TrimSpace(site)
	if site == "" {
		return "", &DiscoveryError{URL: site, Err: errEmptySite}
	}
	if !strings.Contains(site, "://") {
		site = "https://" + site
	}
	u, err := url.Parse(site)
	if err != nil {
		return "", &DiscoveryError{URL: site, Err: err}
	}
	if u.Host == "" {
		return "", &DiscoveryError{URL: site, Err: errEmptySite}
	}
	if !strings.HasSuffix(u.Path, "/") && u.RawQuery == "" && path.Ext(u.Path) == "" {
		u.Path += "/"
	}
	return u.String(), nil
}

// ResolveURL resolves href against base, handling relative, root-relative and
// protocol-relative forms. Absolute URLs pass through unchanged; an empty
// href yields an empty result.
func ResolveURL(href, base string) string {
	if href == "" {
		return ""
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return baseURL.ResolveReference(ref).String()
}
