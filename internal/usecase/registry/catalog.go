package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/bnema/hangar/internal/boundaries/out"
	"github.com/bnema/hangar/internal/domain"
)

// Catalog derives repositories from stored keys. A repository exists while
// it holds at least one blob or manifest object.
type Catalog struct {
	storage    out.ObjectStorage
	manifests  *ManifestStore
	visibility out.VisibilityPolicy
}

// NewCatalog creates a catalog. A nil visibility policy shows everything.
func NewCatalog(storage out.ObjectStorage, manifests *ManifestStore, visibility out.VisibilityPolicy) *Catalog {
	return &Catalog{storage: storage, manifests: manifests, visibility: visibility}
}

// Repositories returns every repository name in lexical order.
func (c *Catalog) Repositories(ctx context.Context) ([]string, error) {
	infos, err := c.storage.List(ctx, repositoriesRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}

	names := lo.Uniq(lo.FilterMap(infos, func(info out.ObjectInfo, _ int) (string, bool) {
		return repositoryFromKey(info.Key)
	}))
	sort.Strings(names)
	return names, nil
}

// VisibleNames returns the repository names subject may see in lexical order.
func (c *Catalog) VisibleNames(ctx context.Context, subject domain.Subject) ([]string, error) {
	names, err := c.Repositories(ctx)
	if err != nil || c.visibility == nil {
		return names, err
	}
	return lo.Filter(names, func(name string, _ int) bool {
		return c.visibility.Visible(subject, name)
	}), nil
}

// Visible returns the repositories subject may see, with their tags.
func (c *Catalog) Visible(ctx context.Context, subject domain.Subject) ([]domain.Repository, error) {
	names, err := c.VisibleNames(ctx, subject)
	if err != nil {
		return nil, err
	}

	repos := make([]domain.Repository, 0, len(names))
	for _, name := range names {
		tags, err := c.manifests.Tags(ctx, name)
		if err != nil && !errors.Is(err, domain.ErrRepositoryNotFound) {
			return nil, err
		}
		if tags == nil {
			tags = []string{}
		}
		repos = append(repos, domain.Repository{Name: name, Tags: tags})
	}
	return repos, nil
}

// Delete removes every object of each named repository, nested repositories
// excepted, and any uploads in progress for it. It returns the names that
// existed.
func (c *Catalog) Delete(ctx context.Context, names []string) ([]string, error) {
	deleted := make([]string, 0, len(names))
	for _, name := range lo.Uniq(names) {
		found, err := c.deleteOwned(ctx, repositoryPrefix(name), name, repositoryFromKey)
		if err != nil {
			return deleted, err
		}

		_, err = c.deleteOwned(ctx, uploadsRoot+name+"/", name, func(key string) (string, bool) {
			owner, _, ok := uploadFromKey(key)
			return owner, ok
		})
		if err != nil {
			return deleted, err
		}

		if found {
			deleted = append(deleted, name)
		}
	}
	return deleted, nil
}

func (c *Catalog) deleteOwned(ctx context.Context, prefix, name string, owner func(string) (string, bool)) (bool, error) {
	infos, err := c.storage.List(ctx, prefix)
	if err != nil {
		return false, fmt.Errorf("failed to list %s: %w", prefix, err)
	}

	found := false
	for _, info := range infos {
		if o, ok := owner(info.Key); !ok || o != name {
			continue
		}
		if err := c.storage.Delete(ctx, info.Key); err != nil {
			return found, fmt.Errorf("failed to delete %s: %w", info.Key, err)
		}
		found = true
	}
	return found, nil
}
