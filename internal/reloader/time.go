package reloader

import "time"

// httpDate formats a unix timestamp as an RFC 1123 HTTP-date, the form
// If-Modified-Since/Last-Modified use.
func httpDate(unix int64) string {
	if unix == 0 {
		return ""
	}
	return time.Unix(unix, 0).UTC().Format(time.RFC1123)
}

// parseHTTPDate parses a Last-Modified response header back into unix
// seconds; an unparseable or empty header yields 0, which the Feed then
// treats as "no validator stored".
func parseHTTPDate(s string) int64 {
	if s == "" {
		return 0
	}
	if t, err := time.Parse(time.RFC1123, s); err == nil {
		return t.Unix()
	}
	if t, err := time.Parse(time.RFC1123Z, s); err == nil {
		return t.Unix()
	}
	return 0
}
