// Package storage turns stored blob keys (prescription scans, delivery proofs,
// product images) into URLs a client can fetch.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Resolver maps an object key to a readable URL.
type Resolver interface {
	ReadURL(ctx context.Context, key string) (string, error)
}

// Pinger exposes the readiness check for resolvers backed by a remote store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StaticResolver joins keys onto a public base URL.
type StaticResolver struct {
	base string
}

func NewStaticResolver(base string) *StaticResolver {
	return &StaticResolver{base: strings.TrimRight(strings.TrimSpace(base), "/")}
}

func (s *StaticResolver) ReadURL(_ context.Context, key string) (string, error) {
	clean, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	if isAbsoluteURL(clean) {
		return clean, nil
	}
	escaped := make([]string, 0)
	for _, part := range strings.Split(clean, "/") {
		escaped = append(escaped, url.PathEscape(part))
	}
	return s.base + "/" + strings.Join(escaped, "/"), nil
}

// CleanKey normalizes an object key and rejects traversal attempts.
func CleanKey(key string) (string, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return "", fmt.Errorf("object key is required")
	}
	if isAbsoluteURL(trimmed) {
		return trimmed, nil
	}
	trimmed = strings.TrimLeft(trimmed, "/")
	for _, part := range strings.Split(trimmed, "/") {
		if part == ".." {
			return "", fmt.Errorf("object key %q must not contain ..", key)
		}
	}
	return trimmed, nil
}

func isAbsoluteURL(v string) bool {
	return strings.HasPrefix(v, "https://") || strings.HasPrefix(v, "http://")
}

// ResolveOptional resolves key when present, returning nil for absent keys and
// falling back to the raw key when resolution fails.
func ResolveOptional(ctx context.Context, r Resolver, key *string) *string {
	if key == nil || strings.TrimSpace(*key) == "" {
		return nil
	}
	if r == nil {
		return key
	}
	resolved, err := r.ReadURL(ctx, *key)
	if err != nil {
		return key
	}
	return &resolved
}
