package common

import (
	"net/url"
	"strings"
)

// NormalizeContentHash lower-cases a btih-style hash and strips the urn
// prefix. It accepts both a bare hash and a full magnet URI.
func NormalizeContentHash(raw string) string {
	value := strings.TrimSpace(raw)
	if strings.HasPrefix(strings.ToLower(value), "magnet:") {
		value = HashFromMagnet(value)
	}
	value = strings.TrimPrefix(strings.ToLower(value), "urn:btih:")
	return strings.TrimSpace(value)
}

// HashFromMagnet extracts the content hash from a magnet URI, empty when
// the URI carries none.
func HashFromMagnet(magnet string) string {
	parsed, err := url.Parse(strings.TrimSpace(magnet))
	if err != nil {
		return ""
	}
	for _, xt := range parsed.Query()["xt"] {
		lower := strings.ToLower(strings.TrimSpace(xt))
		if strings.HasPrefix(lower, "urn:btih:") {
			return strings.TrimPrefix(lower, "urn:btih:")
		}
	}
	return ""
}

// BuildMagnet assembles a magnet URI from a content hash, display name and
// tracker list. An empty hash yields an empty URI.
func BuildMagnet(contentHash, name string, trackers []string) string {
	hash := NormalizeContentHash(contentHash)
	if hash == "" {
		return ""
	}
	var builder strings.Builder
	builder.WriteString("magnet:?xt=urn:btih:")
	builder.WriteString(hash)
	if strings.TrimSpace(name) != "" {
		builder.WriteString("&dn=")
		builder.WriteString(url.QueryEscape(strings.TrimSpace(name)))
	}
	for _, tracker := range trackers {
		value := strings.TrimSpace(tracker)
		if value == "" {
			continue
		}
		builder.WriteString("&tr=")
		builder.WriteString(url.QueryEscape(value))
	}
	return builder.String()
}
