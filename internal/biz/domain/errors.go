package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures by how callers should treat them
type ErrorKind string

const (
	KindValidation  ErrorKind = "validation"
	KindPersistence ErrorKind = "persistence"
	KindAuth        ErrorKind = "auth"
	KindUpstream    ErrorKind = "upstream"
	KindCrawl       ErrorKind = "crawl"
)

// Error is a classified error carrying the failed operation
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("%s error: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError creates a classified error
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// PersistenceError wraps a storage failure
func PersistenceError(op string, err error) *Error {
	return NewError(KindPersistence, op, err)
}

// AuthError wraps an upstream login or token exchange failure
func AuthError(op string, err error) *Error {
	return NewError(KindAuth, op, err)
}

// UpstreamError wraps a non-auth failure from the upstream dashboard
func UpstreamError(op string, err error) *Error {
	return NewError(KindUpstream, op, err)
}

// CrawlError wraps a login URL discovery failure
func CrawlError(op string, err error) *Error {
	return NewError(KindCrawl, op, err)
}

// IsKind reports whether err is a domain error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}
