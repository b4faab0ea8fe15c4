package handler

import (
	"net/http"
	"net/url"
	"time"
)

// analyticsCookieName is the third-party analytics cookie the tracker
// reads for client identity. It is never written by the collector.
const analyticsCookieName = "_ga"

// durableCookieMaxAge is roughly two years, matching the lifetime of the
// analytics cookie the durable client id stands in for.
const durableCookieMaxAge = int(2 * 365 * 24 * time.Hour / time.Second)

// CookieStateStore implements the tracker's client-side storage over HTTP
// cookies. Session-scoped keys become session cookies that the browser
// drops when it closes; durable keys get a long max age. Values are
// query-escaped since attribution snapshots contain JSON.
type CookieStateStore struct {
	r      *http.Request
	w      http.ResponseWriter
	secure bool

	// written overlays the request cookies so reads inside the same
	// request observe earlier writes.
	written map[string]string
}

// NewCookieStateStore builds a store bound to one request/response pair.
func NewCookieStateStore(w http.ResponseWriter, r *http.Request, secure bool) *CookieStateStore {
	return &CookieStateStore{
		r:       r,
		w:       w,
		secure:  secure,
		written: make(map[string]string),
	}
}

func (s *CookieStateStore) Get(key string) string {
	if v, ok := s.written[key]; ok {
		return v
	}
	cookie, err := s.r.Cookie(key)
	if err != nil {
		return ""
	}
	value, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return ""
	}
	return value
}

func (s *CookieStateStore) SetSession(key, value string) {
	s.set(key, value, 0)
}

func (s *CookieStateStore) SetDurable(key, value string) {
	s.set(key, value, durableCookieMaxAge)
}

func (s *CookieStateStore) set(key, value string, maxAge int) {
	s.written[key] = value
	http.SetCookie(s.w, &http.Cookie{
		Name:     key,
		Value:    url.QueryEscape(value),
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   s.secure,
		HttpOnly: false,
		SameSite: http.SameSiteLaxMode,
	})
}

// AnalyticsCookie returns the raw analytics cookie value, or "".
func (s *CookieStateStore) AnalyticsCookie() string {
	cookie, err := s.r.Cookie(analyticsCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
