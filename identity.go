/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	anonymous        = "Anonymous"
	identityCookie   = "username"
	identityLifetime = 365 * 24 * time.Hour
)

// CookieSource is anything a name can be read back from; *http.Request
// satisfies it, including the upgrade request of a websocket.
type CookieSource interface {
	Cookie(name string) (*http.Cookie, error)
}

// IdentityResolver maps a connection to the display name its browser
// registered. The token is the name itself and is not signed, so any
// client can claim any name.
type IdentityResolver struct {
	now func() time.Time
}

func newIdentityResolver() *IdentityResolver {
	return &IdentityResolver{now: time.Now}
}

// Resolve returns the registered name, or "Anonymous" if there is none.
func (i *IdentityResolver) Resolve(src CookieSource) string {
	if name, ok := i.Lookup(src); ok {
		return name
	}

	return anonymous
}

// Lookup reports the name the connection registered, if any.
func (i *IdentityResolver) Lookup(src CookieSource) (string, bool) {
	if src == nil {
		return "", false
	}

	c, err := src.Cookie(identityCookie)
	if err != nil || c.Value == "" {
		return "", false
	}

	name, err := url.QueryUnescape(c.Value)
	if err != nil {
		return "", false
	}

	name = strings.TrimSpace(name)

	return name, name != ""
}

func (i *IdentityResolver) Issue(name string) (*http.Cookie, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrMissingIdentity
	}

	return &http.Cookie{
		Name:     identityCookie,
		Value:    url.QueryEscape(name),
		Path:     "/",
		Expires:  i.now().Add(identityLifetime),
		MaxAge:   int(identityLifetime / time.Second),
		SameSite: http.SameSiteLaxMode,
	}, nil
}
