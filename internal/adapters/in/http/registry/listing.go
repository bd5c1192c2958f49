package registry

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/bnema/hangar/internal/adapters/dto"
	"github.com/bnema/hangar/internal/domain"
)

var errPaginationInvalid = newError(http.StatusBadRequest, CodePaginationInvalid, "invalid number of results requested")

func (r *Router) tags(ctx context.Context, req *Request, name string) *Response {
	tags, err := r.svc.ListTags(ctx, name)
	if err != nil {
		return Respond(ctx, err)
	}

	page, next, err := paginate(tags, req.Query)
	if err != nil {
		return Respond(ctx, err)
	}

	resp := jsonResponse(ctx, http.StatusOK, dto.TagListResponse{Name: name, Tags: page})
	if next != "" {
		setNextLink(resp, fmt.Sprintf("/v2/%s/tags/list", name), req.Query.Get("n"), next)
	}
	return resp
}

// catalog lists only the repositories the authorized subject may pull.
func (r *Router) catalog(ctx context.Context, req *Request, subject domain.Subject) *Response {
	repos, err := r.svc.ListRepositories(ctx, subject)
	if err != nil {
		return Respond(ctx, err)
	}

	page, next, err := paginate(repos, req.Query)
	if err != nil {
		return Respond(ctx, err)
	}

	resp := jsonResponse(ctx, http.StatusOK, dto.CatalogResponse{Repositories: page})
	if next != "" {
		setNextLink(resp, "/v2/_catalog", req.Query.Get("n"), next)
	}
	return resp
}

// paginate applies the n and last query parameters to a sorted list. next is
// the last returned entry when more entries remain.
func paginate(items []string, query url.Values) (page []string, next string, err error) {
	if !sort.StringsAreSorted(items) {
		items = append([]string(nil), items...)
		sort.Strings(items)
	}

	if last := query.Get("last"); last != "" {
		i := sort.SearchStrings(items, last)
		if i < len(items) && items[i] == last {
			i++
		}
		items = items[i:]
	}

	page = items
	if raw := query.Get("n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, "", errPaginationInvalid.WithDetail(raw)
		}
		if n < len(items) {
			page = items[:n]
			if n > 0 {
				next = page[n-1]
			}
		}
	}

	if page == nil {
		page = []string{}
	}
	return page, next, nil
}

func setNextLink(resp *Response, path, n, last string) {
	q := url.Values{}
	q.Set("n", n)
	q.Set("last", last)
	resp.Header.Set("Link", fmt.Sprintf("<%s?%s>; rel=\"next\"", path, q.Encode()))
}
