package http

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/searchktools/stream-server/core/tokenizer"
)

// URI is a parsed request URI. Parse splits an absolute URL into components;
// the accessors never return escaped text except RawQuery.
type URI struct {
	schema   string
	username string
	password string
	host     string
	port     int
	path     string
	rawQuery string
	fragment string

	query map[string]string
}

// ParseURI parses an absolute URL of the form
// schema://[user[:pass]@]host[:port]/path[?query][#fragment].
func ParseURI(rawURL string) (*URI, error) {
	f, err := tokenizer.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse uri %q: %w", rawURL, err)
	}

	u := &URI{
		schema:   f.Schema,
		host:     f.Host,
		path:     f.Path,
		rawQuery: f.Query,
		fragment: f.Fragment,
	}
	if f.UserInfo != "" {
		u.username, u.password, _ = strings.Cut(f.UserInfo, ":")
	}
	if f.Port != "" {
		n, err := strconv.Atoi(f.Port)
		if err != nil || n < 0 || n > 65535 {
			return nil, fmt.Errorf("parse uri %q: port %q: %w", rawURL, f.Port, ErrInvalidURL)
		}
		u.port = n
	}
	if u.query, err = parseQuery(u.rawQuery); err != nil {
		return nil, fmt.Errorf("parse uri %q: %w", rawURL, err)
	}
	return u, nil
}

// Schema returns the URL schema, for example "http".
func (u *URI) Schema() string { return u.schema }

// SetSchema replaces the schema. It affects the default of Port.
func (u *URI) SetSchema(schema string) { u.schema = schema }

// Username returns the userinfo name component, or "".
func (u *URI) Username() string { return u.username }

// Password returns the userinfo password component, or "".
func (u *URI) Password() string { return u.password }

// SetUserInfo replaces the userinfo components.
func (u *URI) SetUserInfo(username, password string) {
	u.username, u.password = username, password
}

// Host returns the host, with brackets kept for IPv6 literals.
func (u *URI) Host() string { return u.host }

// Port returns the explicit port, or the schema default when the URL carried
// none: 443 for https and wss, 80 otherwise.
func (u *URI) Port() int {
	if u.port != 0 {
		return u.port
	}
	switch u.schema {
	case "https", "wss":
		return 443
	default:
		return 80
	}
}

// Path returns the path component, never empty. A URL without a path parses
// as "/".
func (u *URI) Path() string { return u.path }

// RawQuery returns the query string without the leading '?', or "".
func (u *URI) RawQuery() string { return u.rawQuery }

// Fragment returns the fragment without the leading '#', or "".
func (u *URI) Fragment() string { return u.fragment }

// Query returns the decoded value for key, or "" when absent.
func (u *URI) Query(key string) string { return u.query[key] }

// String reassembles the URI from its components. The default port is
// omitted; userinfo and fragment appear only when present.
func (u *URI) String() string {
	var b strings.Builder
	b.WriteString(u.schema)
	b.WriteString("://")
	if u.username != "" {
		b.WriteString(u.username)
		if u.password != "" {
			b.WriteByte(':')
			b.WriteString(u.password)
		}
		b.WriteByte('@')
	}
	b.WriteString(u.host)
	if u.port != 0 && u.port != defaultPort(u.schema) {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(u.port))
	}
	b.WriteString(u.path)
	if u.rawQuery != "" {
		b.WriteByte('?')
		b.WriteString(u.rawQuery)
	}
	if u.fragment != "" {
		b.WriteByte('#')
		b.WriteString(u.fragment)
	}
	return b.String()
}

func defaultPort(schema string) int {
	switch schema {
	case "https", "wss":
		return 443
	default:
		return 80
	}
}

// parseQuery splits "k1=v1&k2=v2" into a map, percent-decoding keys and
// values. Later duplicates win. Pairs without '=' map the key to "".
func parseQuery(rawQuery string) (map[string]string, error) {
	q := make(map[string]string)
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		key, err := QueryUnescape(key)
		if err != nil {
			return nil, err
		}
		value, err = QueryUnescape(value)
		if err != nil {
			return nil, err
		}
		q[key] = value
	}
	return q, nil
}

type encoding int

const (
	encodePath encoding = iota
	encodeQuery
)

// PathEscape escapes s so it can appear in a URL path segment. Space becomes
// %20, never '+'.
func PathEscape(s string) string { return escape(s, encodePath) }

// PathUnescape reverses PathEscape. '+' stays a literal plus.
func PathUnescape(s string) (string, error) { return unescape(s, encodePath) }

// QueryEscape escapes s so it can appear in a URL query component. Space
// becomes '+'.
func QueryEscape(s string) string { return escape(s, encodeQuery) }

// QueryUnescape reverses QueryEscape, mapping '+' back to space.
func QueryUnescape(s string) (string, error) { return unescape(s, encodeQuery) }

func escape(s string, mode encoding) string {
	hexCount := 0
	spaceCount := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if shouldEscape(c, mode) {
			if c == ' ' && mode == encodeQuery {
				spaceCount++
			} else {
				hexCount++
			}
		}
	}
	if hexCount == 0 && spaceCount == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 2*hexCount)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == ' ' && mode == encodeQuery:
			b.WriteByte('+')
		case shouldEscape(c, mode):
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&0xF])
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

const upperhex = "0123456789ABCDEF"

// shouldEscape follows RFC 3986. Unreserved characters are never escaped;
// sub-delims stay literal in the mode where the grammar allows them.
func shouldEscape(c byte, mode encoding) bool {
	if 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' {
		return false
	}
	switch c {
	case '-', '_', '.', '~':
		return false
	}
	switch mode {
	case encodePath:
		// pchar = unreserved / sub-delims / ":" / "@"
		switch c {
		case '$', '&', '+', ',', ':', ';', '=', '@':
			return false
		}
	case encodeQuery:
		// Everything beyond unreserved is escaped so values survive '&' and
		// '=' splitting.
	}
	return true
}

func unescape(s string, mode encoding) (string, error) {
	n := 0
	hasPlus := false
	for i := 0; i < len(s); {
		switch s[i] {
		case '%':
			if i+3 > len(s) || !isHexDigit(s[i+1]) || !isHexDigit(s[i+2]) {
				return "", fmt.Errorf("escape %q: %w", s, ErrInvalidURL)
			}
			n++
			i += 3
		case '+':
			hasPlus = mode == encodeQuery
			i++
		default:
			i++
		}
	}
	if n == 0 && !hasPlus {
		return s, nil
	}

	var b strings.Builder
	b.Grow(len(s) - 2*n)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%':
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
		case '+':
			if mode == encodeQuery {
				b.WriteByte(' ')
			} else {
				b.WriteByte('+')
			}
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String(), nil
}

func isHexDigit(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
