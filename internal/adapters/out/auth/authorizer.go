// Package auth validates registry credentials and decides repository access.
package auth

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/bnema/zerowrap"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/bnema/hangar/internal/boundaries/out"
	"github.com/bnema/hangar/internal/config"
	"github.com/bnema/hangar/internal/domain"
	"github.com/bnema/hangar/internal/logging"
)

var (
	_ out.Authorizer       = (*Authorizer)(nil)
	_ out.VisibilityPolicy = (*Authorizer)(nil)
)

var errInvalidToken = errors.New("invalid token")

// fullAccess is granted to basic-auth users.
var fullAccess = domain.Scope{Type: "repository", Name: "*", Actions: []string{domain.ActionAll}}

// tokenClaims are the claims accepted in bearer tokens. Scopes use the
// repository:name:actions form.
type tokenClaims struct {
	jwt.RegisteredClaims
	Scopes []string `json:"scopes,omitempty"`
}

// Authorizer checks basic and bearer credentials against the configuration.
type Authorizer struct {
	enabled       bool
	anonymousPull bool
	public        []string
	users         map[string][]byte
	secret        []byte
	issuer        string
	dummyHash     []byte
}

// NewAuthorizer creates an Authorizer from cfg. Password hashes must be bcrypt.
func NewAuthorizer(cfg config.AuthConfig, log zerowrap.Logger) (*Authorizer, error) {
	a := &Authorizer{
		enabled:       cfg.Enabled,
		anonymousPull: cfg.AnonymousPull,
		public:        cfg.PublicRepositories,
		users:         make(map[string][]byte, len(cfg.Users)),
		secret:        []byte(cfg.TokenSecret),
		issuer:        cfg.TokenIssuer,
	}

	for _, u := range cfg.Users {
		if _, err := bcrypt.Cost([]byte(u.PasswordHash)); err != nil {
			return nil, fmt.Errorf("invalid password hash for user %s: %w", u.Username, err)
		}
		a.users[u.Username] = []byte(u.PasswordHash)
	}
	for _, pattern := range a.public {
		if _, err := path.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("invalid public repository pattern %q: %w", pattern, err)
		}
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("hangar"), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare password check: %w", err)
	}
	a.dummyHash = dummy

	if a.enabled {
		log.Info().
			Str(zerowrap.FieldLayer, "adapter").
			Str(zerowrap.FieldAdapter, "auth").
			Int("users", len(a.users)).
			Int("public_patterns", len(a.public)).
			Bool("anonymous_pull", a.anonymousPull).
			Msg("registry authorization enabled")
	}

	return a, nil
}

// Authorize implements out.Authorizer. Invalid credentials produce a denied
// decision with an anonymous subject.
func (a *Authorizer) Authorize(ctx context.Context, req out.AccessRequest) (out.Decision, error) {
	if !a.enabled {
		return out.Decision{Allowed: true}, nil
	}

	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:     "adapter",
		zerowrap.FieldAdapter:   "auth",
		logging.FieldRepository: req.Repository,
		zerowrap.FieldAction:    req.Action,
	})
	log := zerowrap.FromCtx(ctx)

	subject, ok := a.authenticate(ctx, req.Credentials)
	if !ok {
		return out.Decision{}, nil
	}

	if subject.Anonymous() {
		return out.Decision{Allowed: a.anonymousAllowed(req)}, nil
	}

	allowed := req.Repository == "" || grants(subject.Scopes, req.Repository, req.Action)
	if !allowed {
		log.Debug().Str(logging.FieldSubject, subject.Name).Msg("access denied")
	}
	return out.Decision{Allowed: allowed, Subject: subject}, nil
}

// Visible implements out.VisibilityPolicy.
func (a *Authorizer) Visible(subject domain.Subject, repository string) bool {
	if !a.enabled || a.isPublic(repository) {
		return true
	}
	if subject.Anonymous() {
		return a.anonymousPull
	}
	return grants(subject.Scopes, repository, domain.ActionPull)
}

func (a *Authorizer) anonymousAllowed(req out.AccessRequest) bool {
	if req.Action != domain.ActionPull {
		return false
	}
	if req.Repository == "" {
		return a.anonymousPull
	}
	return a.anonymousPull || a.isPublic(req.Repository)
}

func (a *Authorizer) authenticate(ctx context.Context, creds out.Credentials) (domain.Subject, bool) {
	log := zerowrap.FromCtx(ctx)
	switch {
	case creds.BearerToken != "":
		subject, err := a.verifyToken(creds.BearerToken)
		if err != nil {
			log.Debug().Err(err).Msg("bearer token rejected")
			return domain.Subject{}, false
		}
		return subject, true
	case creds.Username != "" || creds.Password != "":
		if !a.verifyPassword(creds.Username, creds.Password) {
			log.Debug().Str("username", creds.Username).Msg("password validation failed")
			return domain.Subject{}, false
		}
		return domain.Subject{Name: creds.Username, Scopes: []domain.Scope{fullAccess}}, true
	default:
		return domain.Subject{}, true
	}
}

func (a *Authorizer) verifyPassword(username, password string) bool {
	hash, known := a.users[username]
	if !known {
		// Keep timing close to a real comparison for unknown users
		_ = bcrypt.CompareHashAndPassword(a.dummyHash, []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}

func (a *Authorizer) verifyToken(raw string) (domain.Subject, error) {
	if len(a.secret) == 0 {
		return domain.Subject{}, fmt.Errorf("%w: no token secret configured", errInvalidToken)
	}

	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.issuer),
	)
	if err != nil {
		return domain.Subject{}, fmt.Errorf("%w: %v", errInvalidToken, err)
	}
	if claims.Subject == "" {
		return domain.Subject{}, fmt.Errorf("%w: missing subject", errInvalidToken)
	}

	subject := domain.Subject{Name: claims.Subject}
	for _, raw := range claims.Scopes {
		scope, err := domain.ParseScope(raw)
		if err != nil {
			return domain.Subject{}, fmt.Errorf("%w: %v", errInvalidToken, err)
		}
		subject.Scopes = append(subject.Scopes, scope)
	}
	return subject, nil
}

func (a *Authorizer) isPublic(repository string) bool {
	for _, pattern := range a.public {
		if ok, _ := path.Match(pattern, repository); ok {
			return true
		}
	}
	return false
}

func grants(scopes []domain.Scope, repository, action string) bool {
	for _, scope := range scopes {
		if scope.Allows(repository, action) {
			return true
		}
	}
	return false
}
