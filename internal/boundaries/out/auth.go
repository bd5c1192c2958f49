package out

import (
	"context"

	"github.com/bnema/hangar/internal/domain"
)

// Credentials carries what the client presented, unverified.
type Credentials struct {
	Username    string
	Password    string
	BearerToken string
}

// Empty reports whether the client presented no credentials at all.
func (c Credentials) Empty() bool {
	return c.Username == "" && c.Password == "" && c.BearerToken == ""
}

// AccessRequest is the question asked of an Authorizer. An empty Repository
// targets the registry itself (base endpoint and catalog).
type AccessRequest struct {
	Credentials Credentials
	Repository  string
	Action      string
}

// Decision is the authorizer's answer. Subject is set whenever the credentials
// were valid, even if the action is denied.
type Decision struct {
	Allowed bool
	Subject domain.Subject
}

// Authorizer decides whether a request may proceed.
type Authorizer interface {
	Authorize(ctx context.Context, req AccessRequest) (Decision, error)
}

// VisibilityPolicy decides which repositories a subject may see in listings.
type VisibilityPolicy interface {
	Visible(subject domain.Subject, repository string) bool
}
