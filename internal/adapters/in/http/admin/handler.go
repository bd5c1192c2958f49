// Package admin implements the repository listing API served under /api.
package admin

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bnema/zerowrap"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/samber/lo"

	"github.com/bnema/hangar/internal/adapters/dto"
	"github.com/bnema/hangar/internal/boundaries/in"
	"github.com/bnema/hangar/internal/boundaries/out"
	"github.com/bnema/hangar/internal/domain"
	"github.com/bnema/hangar/internal/logging"
	"github.com/bnema/hangar/pkg/validation"
)

// PathPrefix is the mount point of the listing API.
const PathPrefix = "/api"

// maxAdminRequestSize is the maximum allowed size for request bodies.
const maxAdminRequestSize = "1M"

// Handler serves the listing API.
type Handler struct {
	catalog    in.CatalogService
	authorizer out.Authorizer
	realm      string
	echo       *echo.Echo
}

// NewHandler creates the listing API. A nil authorizer allows everything.
func NewHandler(catalog in.CatalogService, authorizer out.Authorizer, realm string) *Handler {
	if realm == "" {
		realm = "hangar"
	}
	h := &Handler{
		catalog:    catalog,
		authorizer: authorizer,
		realm:      realm,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	api := e.Group(PathPrefix,
		requestContext(),
		echomw.BodyLimit(maxAdminRequestSize),
		AuthMiddleware(authorizer, realm),
	)
	api.GET("/repositories", h.listRepositories)
	api.DELETE("/repositories", h.deleteRepositories)

	h.echo = e
	return h
}

// RegisterRoutes registers the listing API on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle(PathPrefix+"/", h)
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.echo.ServeHTTP(w, r)
}

func (h *Handler) listRepositories(c echo.Context) error {
	ctx := c.Request().Context()

	repos, err := h.catalog.ListVisibleRepositories(ctx, GetSubject(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.RepositoryListResponse{
		Repositories: lo.Map(repos, func(r domain.Repository, _ int) dto.RepositorySummary {
			tags := r.Tags
			if tags == nil {
				tags = []string{}
			}
			return dto.RepositorySummary{Name: r.Name, Tags: tags}
		}),
	})
}

func (h *Handler) deleteRepositories(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.DeleteRepositoriesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	names := lo.Uniq(req.Repositories)
	if len(names) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no repositories given")
	}
	for _, name := range names {
		if err := validation.ValidateRepositoryName(name); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	if h.authorizer != nil {
		creds := GetCredentials(c)
		for _, name := range names {
			decision, err := h.authorizer.Authorize(ctx, out.AccessRequest{
				Credentials: creds,
				Repository:  name,
				Action:      domain.ActionDelete,
			})
			if err != nil {
				return fmt.Errorf("failed to authorize request: %w", err)
			}
			if decision.Allowed {
				continue
			}
			if decision.Subject.Anonymous() {
				return unauthorized(c, h.realm)
			}
			zerowrap.Ctx(ctx).Info().Str(logging.FieldRepository, name).Msg("repository delete denied")
			return echo.NewHTTPError(http.StatusForbidden, fmt.Sprintf("delete access to %s denied", name))
		}
	}

	deleted, err := h.catalog.DeleteRepositories(ctx, names)
	if err != nil {
		return err
	}
	if deleted == nil {
		deleted = []string{}
	}
	return c.JSON(http.StatusOK, dto.DeleteRepositoriesResponse{Deleted: deleted})
}

// requestContext tags the request logger with the adapter fields.
func requestContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := zerowrap.CtxWithFields(c.Request().Context(), map[string]any{
				zerowrap.FieldLayer:   "adapter",
				zerowrap.FieldAdapter: "http",
				logging.FieldRoute:    "api",
			})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// errorHandler renders every error as a JSON body. Errors that are not
// echo HTTP errors are logged and reported as 500 without detail.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := http.StatusText(status)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(status)
		}
	} else {
		zerowrap.Ctx(c.Request().Context()).Error().Err(err).Msg("listing API request failed")
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, dto.ErrorResponse{Error: message})
}
