package session

import (
	"strings"
)

type RouteClass int

const (
	RoutePublic RouteClass = iota
	RouteAuthOnly
	RoutePrivate
)

func (c RouteClass) String() string {
	switch c {
	case RouteAuthOnly:
		return "auth_only"
	case RoutePrivate:
		return "private"
	default:
		return "public"
	}
}

var (
	defaultAuthPrefixes = []string{
		"/login",
		"/register",
		"/forgot-password",
		"/reset-password",
		"/verify-otp",
	}
	defaultPrivatePrefixes = []string{
		"/dashboard",
		"/room",
		"/house",
		"/profile",
		"/scheduler",
	}
)

// Classifier maps locale-less paths to route classes by prefix
type Classifier struct {
	AuthPrefixes    []string
	PrivatePrefixes []string
}

var DefaultClassifier = Classifier{
	AuthPrefixes:    defaultAuthPrefixes,
	PrivatePrefixes: defaultPrivatePrefixes,
}

// Classify expects a path with the locale segment already stripped.
// The site root is private and is never auth-only.
func (c Classifier) Classify(path string) RouteClass {
	if path == "" || path == "/" {
		return RoutePrivate
	}

	if hasAnyPrefix(path, c.AuthPrefixes) {
		return RouteAuthOnly
	}
	if hasAnyPrefix(path, c.PrivatePrefixes) {
		return RoutePrivate
	}

	return RoutePublic
}

// Classify with the default prefix sets
func Classify(path string) RouteClass {
	return DefaultClassifier.Classify(path)
}

// StripLocale splits leading two letter segment: "/en/room/1" -> ("en", "/room/1").
// Path without such segment is returned as is with empty locale.
func StripLocale(path string) (locale string, rest string) {
	trimmed := strings.TrimPrefix(path, "/")
	segment, tail, found := strings.Cut(trimmed, "/")

	if !isLocaleSegment(segment) {
		return "", path
	}
	if !found {
		return segment, "/"
	}
	return segment, "/" + tail
}

func isLocaleSegment(s string) bool {
	if len(s) != 2 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'a' || s[i] > 'z' {
			return false
		}
	}
	return true
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
