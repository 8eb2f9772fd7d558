// Package canonical unwraps redirect-style links so the true destination URL
// can serve as the deduplication key.
package canonical

import "net/url"

// Resolve extracts the destination URL from a redirect wrapper that carries
// it in the "url" query parameter (as alert digest links do). When no such
// parameter is present, or the input is not parseable, the input is returned
// unchanged; Resolve never fails.
func Resolve(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	if target := parsed.Query().Get("url"); target != "" {
		return target
	}

	return raw
}
