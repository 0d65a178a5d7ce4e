package crawler

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

// Matcher decides whether a link is the login page of an app
type Matcher interface {
	Match(appName, link string) bool
}

var (
	loginPathPattern = regexp.MustCompile(`(?i)/(login|log-in|logon|signin|sign-in|sign_in|auth|authenticate|session/new|accounts/login)(/|$|\?|\.)`)
	loginSubdomains  = []string{"accounts", "login", "auth", "signin", "id"}
)

// RuleMatcher accepts login paths on the app's own domain and
// accounts./login./auth. subdomains of it.
type RuleMatcher struct{}

// Match reports whether link looks like appName's login page
func (RuleMatcher) Match(appName, link string) bool {
	slug := Slug(appName)
	if slug == "" {
		return false
	}

	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}

	labels := strings.Split(strings.ToLower(u.Hostname()), ".")
	if len(labels) < 2 || !hasLabel(labels[:len(labels)-1], slug) {
		return false
	}

	if isLoginSubdomain(labels[0]) && labels[0] != slug {
		return true
	}
	return loginPathPattern.MatchString(u.EscapedPath())
}

func hasLabel(labels []string, slug string) bool {
	for _, l := range labels {
		if l == slug {
			return true
		}
	}
	return false
}

func isLoginSubdomain(label string) bool {
	for _, s := range loginSubdomains {
		if label == s {
			return true
		}
	}
	return false
}

// Slug reduces an app name to the form used in its domain: "Google Pay" -> "googlepay"
func Slug(appName string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(appName) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
