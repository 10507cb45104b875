package indieauth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
)

const (
	relMetadata      = "indieauth-metadata"
	relMicropub      = "micropub"
	relAuthorization = "authorization_endpoint"
	relToken         = "token_endpoint"

	maxDiscoveryBody = 1 << 20 // 1 MiB is plenty for a home page
)

var errEmptySite = errors.New("site URL is empty or has no host")

// Client performs endpoint discovery and token exchanges against a site's
// IndieAuth provider. The zero value is not usable; construct with NewClient.
type Client struct {
	httpClient *http.Client
}

// NewClient creates an IndieAuth client. A nil httpClient falls back to
// http.DefaultClient; callers should pass a client with a bounded timeout.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{httpClient: httpClient}
}

// indieAuthMetadata is the subset of the IndieAuth server metadata document
// this client consumes.
type indieAuthMetadata struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
}

// Discover fetches the site and locates its Micropub and IndieAuth endpoints
// per the IndieAuth discovery rules: HTTP Link headers first, then HTML
// <link> tags, with the indieauth-metadata document authoritative for the
// authorization and token endpoints when present.
func (c *Client) Discover(ctx context.Context, site string) (*Endpoints, error) {
	normalized, err := NormalizeSiteURL(site)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, normalized, nil)
	if err != nil {
		return nil, &DiscoveryError{URL: normalized, Err: err}
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &DiscoveryError{URL: normalized, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &DiscoveryError{URL: normalized, StatusCode: resp.StatusCode}
	}

	// Redirects were followed; the final URL is the canonical identity.
	me := resp.Request.URL.String()

	var metadataURL string
	endpoints := &Endpoints{Me: me}

	// Link headers take priority over the HTML body.
	for _, header := range resp.Header.Values("Link") {
		if metadataURL == "" {
			metadataURL = ExtractLinkRel(header, relMetadata)
		}
		if endpoints.Micropub == "" {
			endpoints.Micropub = ExtractLinkRel(header, relMicropub)
		}
		if endpoints.Authorization == "" {
			endpoints.Authorization = ExtractLinkRel(header, relAuthorization)
		}
		if endpoints.Token == "" {
			endpoints.Token = ExtractLinkRel(header, relToken)
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDiscoveryBody))
	if err == nil && len(body) > 0 {
		rels := htmlLinkRels(body)
		if metadataURL == "" {
			metadataURL = firstRel(rels, relMetadata)
		}
		if endpoints.Micropub == "" {
			endpoints.Micropub = firstRel(rels, relMicropub)
		}
		if endpoints.Authorization == "" {
			endpoints.Authorization = firstRel(rels, relAuthorization)
		}
		if endpoints.Token == "" {
			endpoints.Token = firstRel(rels, relToken)
		}
	}

	// The metadata document, when reachable, overrides anything found via
	// the legacy rels. Fetch failures degrade to whatever was already found.
	if metadataURL != "" {
		metadata, err := c.fetchMetadata(ctx, ResolveURL(metadataURL, me))
		if err != nil {
			log.Debug().Str("me", me).Err(err).Msg("indieauth metadata fetch failed, keeping legacy endpoints")
		} else {
			if metadata.AuthorizationEndpoint != "" {
				endpoints.Authorization = metadata.AuthorizationEndpoint
			}
			if metadata.TokenEndpoint != "" {
				endpoints.Token = metadata.TokenEndpoint
			}
		}
	}

	endpoints.Micropub = ResolveURL(endpoints.Micropub, me)
	endpoints.Authorization = ResolveURL(endpoints.Authorization, me)
	endpoints.Token = ResolveURL(endpoints.Token, me)

	return endpoints, nil
}

func (c *Client) fetchMetadata(ctx context.Context, metadataURL string) (*indieAuthMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metadataURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &DiscoveryError{URL: metadataURL, StatusCode: resp.StatusCode}
	}

	var metadata indieAuthMetadata
	if err := json.NewDecoder(resp.Body).Decode(&metadata); err != nil {
		return nil, err
	}
	return &metadata, nil
}

// ExtractLinkRel extracts the target of the first link in an HTTP Link header
// whose rel list contains the given relation. Relation matching is
// case-insensitive and tolerates quoted or unquoted rel values with multiple
// space-separated relations.
func ExtractLinkRel(header, rel string) string {
	for _, link := range strings.Split(header, ",") {
		parts := strings.Split(link, ";")
		if len(parts) < 2 {
			continue
		}
		target := strings.TrimSpace(parts[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		for _, param := range parts[1:] {
			name, value, found := strings.Cut(strings.TrimSpace(param), "=")
			if !found || !strings.EqualFold(strings.TrimSpace(name), "rel") {
				continue
			}
			value = strings.Trim(strings.TrimSpace(value), `"`)
			if relListContains(value, rel) {
				return strings.TrimSuffix(strings.TrimPrefix(target, "<"), ">")
			}
		}
	}
	return ""
}

// ExtractHTMLLinkRel extracts the href of the first <link> element whose rel
// attribute contains the given relation. Attribute order, quoting style, and
// rel case are all irrelevant.
func ExtractHTMLLinkRel(body []byte, rel string) string {
	return firstRel(htmlLinkRels(body), rel)
}

// htmlLinkRels parses an HTML document and maps each rel token (lowercased)
// to the hrefs of the <link> elements carrying it, in document order.
func htmlLinkRels(body []byte) map[string][]string {
	rels := make(map[string][]string)
	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return rels
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "link" {
			var relAttr, href string
			for _, attr := range n.Attr {
				switch strings.ToLower(attr.Key) {
				case "rel":
					relAttr = attr.Val
				case "href":
					href = attr.Val
				}
			}
			if relAttr != "" && href != "" {
				for _, token := range strings.Fields(relAttr) {
					token = strings.ToLower(token)
					rels[token] = append(rels[token], href)
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return rels
}

func firstRel(rels map[string][]string, rel string) string {
	if hrefs := rels[strings.ToLower(rel)]; len(hrefs) > 0 {
		return hrefs[0]
	}
	return ""
}

func relListContains(relList, rel string) bool {
	for _, token := range strings.Fields(relList) {
		if strings.EqualFold(token, rel) {
			return true
		}
	}
	return false
}
