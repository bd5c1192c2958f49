package admin

import (
	"fmt"
	"net/http"

	"github.com/bnema/zerowrap"
	"github.com/labstack/echo/v4"

	"github.com/bnema/hangar/internal/adapters/in/http/middleware"
	"github.com/bnema/hangar/internal/boundaries/out"
	"github.com/bnema/hangar/internal/domain"
	"github.com/bnema/hangar/internal/logging"
)

// Context keys set by the auth middleware.
const (
	ContextKeySubject     = "subject"
	ContextKeyCredentials = "credentials"
)

// AuthMiddleware establishes the caller's subject. Callers without
// credentials continue as anonymous; presented credentials that the
// authorizer rejects stop the request with 401.
func AuthMiddleware(authorizer out.Authorizer, realm string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			creds := middleware.Credentials(c.Request())
			c.Set(ContextKeyCredentials, creds)

			if authorizer == nil {
				c.Set(ContextKeySubject, domain.Subject{})
				return next(c)
			}

			decision, err := authorizer.Authorize(ctx, out.AccessRequest{
				Credentials: creds,
				Action:      domain.ActionPull,
			})
			if err != nil {
				return fmt.Errorf("failed to authorize request: %w", err)
			}

			if decision.Subject.Anonymous() && !creds.Empty() && !decision.Allowed {
				zerowrap.Ctx(ctx).Warn().Msg("invalid credentials on listing API")
				return unauthorized(c, realm)
			}

			if !decision.Subject.Anonymous() {
				ctx = zerowrap.CtxWithField(ctx, logging.FieldSubject, decision.Subject.Name)
				c.SetRequest(c.Request().WithContext(ctx))
			}
			c.Set(ContextKeySubject, decision.Subject)
			return next(c)
		}
	}
}

// GetSubject returns the subject established by AuthMiddleware.
func GetSubject(c echo.Context) domain.Subject {
	subject, _ := c.Get(ContextKeySubject).(domain.Subject)
	return subject
}

// GetCredentials returns the credentials seen by AuthMiddleware.
func GetCredentials(c echo.Context) out.Credentials {
	creds, _ := c.Get(ContextKeyCredentials).(out.Credentials)
	return creds
}

func unauthorized(c echo.Context, realm string) error {
	c.Response().Header().Set("WWW-Authenticate", fmt.Sprintf("Basic realm=%q", realm))
	return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
}
