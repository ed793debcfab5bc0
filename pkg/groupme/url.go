package groupme

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// DefaultBaseURL is the GroupMe v3 API endpoint.
	DefaultBaseURL = "https://api.groupme.com/v3"

	tokenParam = "token"
)

// buildURL composes base+target and the query string. Params are appended in
// map iteration order and the token is always last. Values are not escaped;
// anything that would change the meaning of the query is rejected instead.
func buildURL(base, token, target string, params map[string]string) (string, error) {
	if !strings.HasPrefix(target, "/") {
		return "", &MalformedRequestError{Target: target, Reason: "target must start with /"}
	}
	if i := strings.IndexFunc(target, func(r rune) bool {
		return r <= ' ' || r == 0x7f || r == '?' || r == '#'
	}); i >= 0 {
		return "", &MalformedRequestError{Target: target, Reason: fmt.Sprintf("unescaped %q in path", target[i])}
	}

	var b strings.Builder
	b.WriteString(base)
	b.WriteString(target)
	b.WriteByte('?')
	for k, v := range params {
		if err := checkQueryComponent(k, true); err != nil {
			return "", &MalformedRequestError{Target: target, Reason: fmt.Sprintf("parameter name %q", k), Err: err}
		}
		if err := checkQueryComponent(v, false); err != nil {
			return "", &MalformedRequestError{Target: target, Reason: fmt.Sprintf("parameter %s value", k), Err: err}
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v)
		b.WriteByte('&')
	}
	if err := checkQueryComponent(token, false); err != nil {
		return "", &MalformedRequestError{Target: target, Reason: "token", Err: err}
	}
	b.WriteString(tokenParam)
	b.WriteByte('=')
	b.WriteString(token)

	raw := b.String()
	u, err := url.Parse(raw)
	if err != nil {
		return "", &MalformedRequestError{Target: target, Reason: "parse url", Err: err}
	}
	if u.Scheme == "" || u.Host == "" {
		return "", &MalformedRequestError{Target: target, Reason: "base url must be absolute"}
	}
	query, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return "", &MalformedRequestError{Target: target, Reason: "parse query", Err: err}
	}
	if len(query) != len(params)+1 {
		return "", &MalformedRequestError{Target: target, Reason: fmt.Sprintf("query has %d keys, want %d", len(query), len(params)+1)}
	}
	return raw, nil
}

func checkQueryComponent(s string, isKey bool) error {
	if isKey && s == "" {
		return fmt.Errorf("empty")
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c <= ' ' || c == 0x7f:
			return fmt.Errorf("unescaped whitespace or control character at %d", i)
		case c == '#' || c == '&':
			return fmt.Errorf("unescaped %q at %d", c, i)
		case c == '=' && isKey:
			return fmt.Errorf("unescaped '=' at %d", i)
		case c == '%':
			if i+2 >= len(s) || !isHex(s[i+1]) || !isHex(s[i+2]) {
				return fmt.Errorf("invalid escape at %d", i)
			}
		}
	}
	return nil
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

// redact hides the token value in a request URL so it can be logged.
func redact(rawURL, token string) string {
	if token == "" {
		return rawURL
	}
	return strings.ReplaceAll(rawURL, tokenParam+"="+token, tokenParam+"=REDACTED")
}
