// Package bridge provides version-bridge value types and pure matching
// functions. A bridge declares how payloads exchanged with clients speaking
// an older API version are reshaped to and from the current one.
package bridge

import (
	"time"
)

// MatchType defines how a bridge pattern matches request paths.
type MatchType string

const (
	MatchExact  MatchType = "exact"  // /api/users matches only /api/users
	MatchPrefix MatchType = "prefix" // /api/* matches /api/users, /api/posts
	MatchRegex  MatchType = "regex"  // /api/users/[0-9]+ matches /api/users/123
)

// Operations is a raw, declarative operation-record list, exactly as loaded
// from configuration. The app layer compiles it into an executable set.
type Operations []map[string]any

// RequestChanges holds the per-medium operation lists applied to an
// incoming request before it reaches the current-version handler.
type RequestChanges struct {
	Headers Operations `yaml:"headers,omitempty" json:"headers,omitempty"`
	Body    Operations `yaml:"body,omitempty" json:"body,omitempty"`
	Query   Operations `yaml:"query,omitempty" json:"query,omitempty"`
	Params  Operations `yaml:"params,omitempty" json:"params,omitempty"`
}

// ResponseChanges holds the per-medium operation lists applied to an
// outgoing response on its way back to an older client.
type ResponseChanges struct {
	Headers Operations `yaml:"headers,omitempty" json:"headers,omitempty"`
	Body    Operations `yaml:"body,omitempty" json:"body,omitempty"`
}

// Bridge represents one version-bridge rule (immutable value type).
// A bridge with Version V applies to every request whose declared client
// version is older than V: its request changes upgrade the payload toward
// the current version, its response changes downgrade the reply.
type Bridge struct {
	ID          string
	Name        string
	Description string

	// Path matching criteria
	PathPattern string    // Pattern to match: "/api/v1/*", exact path, regex
	MatchType   MatchType // How to interpret the pattern
	Methods     []string  // HTTP methods to match; empty = all methods

	// The API version this bridge upgrades requests to.
	Version string

	Request  RequestChanges
	Response ResponseChanges

	Priority  int // Higher = evaluated first among equal versions
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsEmpty reports whether the change sets carry no operations at all.
func (b Bridge) IsEmpty() bool {
	return len(b.Request.Headers) == 0 &&
		len(b.Request.Body) == 0 &&
		len(b.Request.Query) == 0 &&
		len(b.Request.Params) == 0 &&
		len(b.Response.Headers) == 0 &&
		len(b.Response.Body) == 0
}
