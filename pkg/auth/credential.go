// Package auth derives request credentials from connector configuration.
package auth

import (
	"encoding/base64"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/ajitpratap0/nebula-crm/pkg/config"
	"github.com/ajitpratap0/nebula-crm/pkg/errors"
)

// Kind tags the credential variant.
type Kind int

const (
	KindNone Kind = iota
	KindBearer
	KindBasic
)

func (k Kind) String() string {
	switch k {
	case KindBearer:
		return "bearer"
	case KindBasic:
		return "basic"
	default:
		return "none"
	}
}

// Credential is one of None, Bearer(token) or Basic(username, password).
// The zero value is None.
type Credential struct {
	kind     Kind
	tokens   oauth2.TokenSource
	username string
	password string
}

// None returns the empty credential; it adds no header.
func None() Credential { return Credential{} }

// Bearer returns a bearer-token credential.
func Bearer(token string) Credential {
	return Credential{
		kind:   KindBearer,
		tokens: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
	}
}

// Basic returns a username/password credential.
func Basic(username, password string) Credential {
	return Credential{kind: KindBasic, username: username, password: password}
}

// Kind reports the variant.
func (c Credential) Kind() Kind { return c.kind }

// Header returns the Authorization header value, or ok=false for None.
func (c Credential) Header() (value string, ok bool) {
	switch c.kind {
	case KindBearer:
		tok, err := c.tokens.Token()
		if err != nil {
			return "", false
		}
		req := &http.Request{Header: make(http.Header)}
		tok.SetAuthHeader(req)
		return req.Header.Get("Authorization"), true
	case KindBasic:
		raw := c.username + ":" + c.password
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(raw)), true
	default:
		return "", false
	}
}

// Apply writes the credential into headers, leaving it untouched for None.
func (c Credential) Apply(headers map[string]string) {
	if v, ok := c.Header(); ok {
		headers["Authorization"] = v
	}
}

// ApplyRequest sets the Authorization header on req.
func (c Credential) ApplyRequest(req *http.Request) {
	if v, ok := c.Header(); ok {
		req.Header.Set("Authorization", v)
	}
}

// FromConfig derives the credential once from the security section.
// An empty auth_type is inferred: a token means bearer, a username means
// basic, otherwise none.
func FromConfig(sec config.SecurityConfig) (Credential, error) {
	creds := sec.Credentials
	token := firstNonEmpty(creds, "token", "access_token", "api_key")
	username := firstNonEmpty(creds, "username", "user")
	// password is used verbatim
	password := creds["password"]

	kind := strings.ToLower(strings.TrimSpace(sec.AuthType))
	if kind == "" {
		switch {
		case token != "":
			kind = "bearer"
		case username != "":
			kind = "basic"
		default:
			kind = "none"
		}
	}

	switch kind {
	case "none":
		return None(), nil
	case "bearer":
		if token == "" {
			return Credential{}, errors.New(errors.ErrorTypeConfig, "bearer auth requires credentials.token")
		}
		return Bearer(token), nil
	case "basic":
		if username == "" {
			return Credential{}, errors.New(errors.ErrorTypeConfig, "basic auth requires credentials.username")
		}
		return Basic(username, password), nil
	default:
		return Credential{}, errors.Newf(errors.ErrorTypeConfig, "unsupported auth type %q", sec.AuthType)
	}
}

func firstNonEmpty(m map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(m[k]); v != "" {
			return v
		}
	}
	return ""
}
