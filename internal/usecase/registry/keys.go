package registry

import (
	"fmt"
	"strings"

	"github.com/opencontainers/go-digest"
)

// Storage key layout. Repository name components never start with an
// underscore, so the first "/_" after the root ends the repository name.
//
//	repositories/<name>/_blobs/<alg>/<hex>
//	repositories/<name>/_manifests/revisions/<alg>/<hex>/data
//	repositories/<name>/_manifests/revisions/<alg>/<hex>/mediatype
//	repositories/<name>/_manifests/tags/<tag>
//	uploads/<name>/<id>/session
//	uploads/<name>/<id>/parts/<n>
const (
	repositoriesRoot = "repositories/"
	uploadsRoot      = "uploads/"
	sessionObject    = "session"
)

func repositoryPrefix(name string) string {
	return repositoriesRoot + name + "/"
}

func blobKey(name string, dgst digest.Digest) string {
	return fmt.Sprintf("%s_blobs/%s/%s", repositoryPrefix(name), dgst.Algorithm(), dgst.Encoded())
}

func revisionPrefix(name string, dgst digest.Digest) string {
	return fmt.Sprintf("%s_manifests/revisions/%s/%s/", repositoryPrefix(name), dgst.Algorithm(), dgst.Encoded())
}

func revisionDataKey(name string, dgst digest.Digest) string {
	return revisionPrefix(name, dgst) + "data"
}

func revisionMediaTypeKey(name string, dgst digest.Digest) string {
	return revisionPrefix(name, dgst) + "mediatype"
}

func tagsPrefix(name string) string {
	return repositoryPrefix(name) + "_manifests/tags/"
}

func tagKey(name, tag string) string {
	return tagsPrefix(name) + tag
}

func uploadPrefix(name, id string) string {
	return uploadsRoot + name + "/" + id + "/"
}

func uploadSessionKey(name, id string) string {
	return uploadPrefix(name, id) + sessionObject
}

func uploadPartKey(name, id string, n int) string {
	return fmt.Sprintf("%sparts/%06d", uploadPrefix(name, id), n)
}

// repositoryFromKey extracts the repository name from a key below repositoriesRoot.
func repositoryFromKey(key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, repositoriesRoot)
	if !ok {
		return "", false
	}
	name, _, found := strings.Cut(rest, "/_")
	if !found || name == "" {
		return "", false
	}
	return name, true
}

// uploadFromKey splits a key below uploadsRoot into repository and upload id.
// Upload ids never contain a slash, so the id is the last component before
// the session object or the parts directory.
func uploadFromKey(key string) (name, id string, ok bool) {
	rest, found := strings.CutPrefix(key, uploadsRoot)
	if !found {
		return "", "", false
	}

	if before, _, isPart := strings.Cut(rest, "/parts/"); isPart {
		rest = before
	} else if before, isSession := strings.CutSuffix(rest, "/"+sessionObject); isSession {
		rest = before
	} else {
		return "", "", false
	}

	i := strings.LastIndex(rest, "/")
	if i <= 0 || i == len(rest)-1 {
		return "", "", false
	}
	return rest[:i], rest[i+1:], true
}
