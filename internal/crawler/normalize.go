package crawler

import (
	"net/url"
)

// Normalize canonicalizes a raw URL into the key used for node identity.
// It is a parse/reassemble round trip: the fragment and an empty trailing
// "?" are dropped, while host case, trailing slashes and query strings are kept.
// Input that cannot be parsed is returned unchanged.
func Normalize(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	parsed.Fragment = ""
	parsed.RawFragment = ""
	parsed.ForceQuery = false

	return parsed.String()
}

// ExtractDomain returns the network location (host[:port]) of a URL string.
// Returns "" when the URL cannot be parsed or has no host.
func ExtractDomain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Host
}
