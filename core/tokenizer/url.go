package tokenizer

import "strings"

// URLFields holds the component substrings of an absolute URL. Absent optional
// components are empty strings.
type URLFields struct {
	Schema   string
	UserInfo string
	Host     string
	Port     string
	Path     string
	Query    string
	Fragment string
}

// ParseURL splits an absolute URL into its component fields without decoding
// any percent-escapes. The schema and host are mandatory; Path defaults to "/"
// when the URL has no path component.
func ParseURL(rawURL string) (URLFields, error) {
	var u URLFields

	sep := strings.Index(rawURL, "://")
	if sep <= 0 {
		return u, ErrInvalidURL
	}
	if !validSchema(rawURL[:sep]) {
		return u, ErrInvalidURL
	}
	u.Schema = rawURL[:sep]
	rest := rawURL[sep+3:]

	// Authority runs to the first '/', '?' or '#'.
	end := len(rest)
	for i := 0; i < len(rest); i++ {
		if c := rest[i]; c == '/' || c == '?' || c == '#' {
			end = i
			break
		}
	}
	authority := rest[:end]
	rest = rest[end:]

	if at := strings.LastIndexByte(authority, '@'); at >= 0 {
		u.UserInfo = authority[:at]
		authority = authority[at+1:]
	}

	host, port, err := splitHostPort(authority)
	if err != nil {
		return URLFields{}, err
	}
	u.Host = host
	u.Port = port

	if frag := strings.IndexByte(rest, '#'); frag >= 0 {
		u.Fragment = rest[frag+1:]
		rest = rest[:frag]
	}
	if q := strings.IndexByte(rest, '?'); q >= 0 {
		u.Query = rest[q+1:]
		rest = rest[:q]
	}
	if rest == "" {
		rest = "/"
	}
	if rest[0] != '/' {
		return URLFields{}, ErrInvalidPath
	}
	u.Path = rest

	return u, nil
}

// splitHostPort separates "host[:port]", allowing an IPv6 literal in brackets.
func splitHostPort(authority string) (host, port string, err error) {
	if authority == "" {
		return "", "", ErrInvalidHost
	}

	if authority[0] == '[' {
		close := strings.IndexByte(authority, ']')
		if close < 0 {
			return "", "", ErrInvalidHost
		}
		host = authority[:close+1]
		rest := authority[close+1:]
		if rest == "" {
			return host, "", nil
		}
		if rest[0] != ':' {
			return "", "", ErrInvalidHost
		}
		port = rest[1:]
	} else {
		if colon := strings.LastIndexByte(authority, ':'); colon >= 0 {
			host = authority[:colon]
			port = authority[colon+1:]
		} else {
			host = authority
		}
	}

	if host == "" {
		return "", "", ErrInvalidHost
	}
	if port != "" && !allDigits(port) {
		return "", "", ErrInvalidPort
	}
	return host, port, nil
}

func validSchema(s string) bool {
	if s == "" || !isAlpha(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		if !isAlpha(c) && !isDigit(c) && c != '+' && c != '-' && c != '.' {
			return false
		}
	}
	return true
}

func isAlpha(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return len(s) > 0
}
