package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultTemplates are the candidate login URLs checked per app; %s is the slug
var DefaultTemplates = []string{
	"https://www.%s.com/login",
	"https://%s.com/login",
	"https://accounts.%s.com",
	"https://login.%s.com",
	"https://www.%s.com/signin",
	"https://%s.com/signin",
}

// Verifier checks that a URL answers below 400
type Verifier struct {
	client *http.Client
}

// NewVerifier creates a verifier; redirects are followed by client
func NewVerifier(client *http.Client) *Verifier {
	if client == nil {
		client = NewHTTPClient(DefaultTimeout)
	}
	return &Verifier{client: client}
}

// Exists sends HEAD, falling back to GET when HEAD is not allowed
func (v *Verifier) Exists(ctx context.Context, target string) bool {
	status, err := v.status(ctx, http.MethodHead, target)
	if err == nil && (status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented) {
		status, err = v.status(ctx, http.MethodGet, target)
	}
	return err == nil && status < 400
}

func (v *Verifier) status(ctx context.Context, method, target string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := v.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return resp.StatusCode, nil
}

// TemplateStrategy tries templated URLs built from the app slug
type TemplateStrategy struct {
	verifier  *Verifier
	templates []string
}

// NewTemplateStrategy creates a template strategy; nil templates use DefaultTemplates
func NewTemplateStrategy(verifier *Verifier, templates []string) *TemplateStrategy {
	if len(templates) == 0 {
		templates = DefaultTemplates
	}
	return &TemplateStrategy{verifier: verifier, templates: templates}
}

func (s *TemplateStrategy) Name() string { return "template" }

// Discover returns the first candidate that exists
func (s *TemplateStrategy) Discover(ctx context.Context, appName string) (string, error) {
	slug := Slug(appName)
	if slug == "" {
		return "", nil
	}
	for _, tmpl := range s.templates {
		candidate := strings.ReplaceAll(tmpl, "%s", slug)
		if s.verifier.Exists(ctx, candidate) {
			return candidate, nil
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
	}
	return "", nil
}

// Suggester proposes candidate login URLs for an app
type Suggester interface {
	SuggestLoginURLs(ctx context.Context, appName string) ([]string, error)
}

// SuggestStrategy checks URLs proposed by a Suggester
type SuggestStrategy struct {
	suggester Suggester
	verifier  *Verifier
}

// NewSuggestStrategy creates a suggest strategy
func NewSuggestStrategy(suggester Suggester, verifier *Verifier) *SuggestStrategy {
	return &SuggestStrategy{suggester: suggester, verifier: verifier}
}

func (s *SuggestStrategy) Name() string { return "suggest" }

// Discover returns the first suggested URL that exists
func (s *SuggestStrategy) Discover(ctx context.Context, appName string) (string, error) {
	candidates, err := s.suggester.SuggestLoginURLs(ctx, appName)
	if err != nil {
		return "", fmt.Errorf("suggest: %w", err)
	}
	for _, candidate := range candidates {
		if s.verifier.Exists(ctx, candidate) {
			return candidate, nil
		}
	}
	return "", nil
}
