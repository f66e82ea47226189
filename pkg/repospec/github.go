// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package repospec

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/go-github/v43/github"
	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
	"github.com/peterbourgon/diskv"
	"golang.org/x/oauth2"
	"k8s.io/klog/v2"
)

// GitHubFallback resolves a ref via the GitHub tags API when HEAD carries
// no local tag,
// grounded on docforge's buildClient/initResourceHandlers (cmd/app) split
// between a plain git resourcehandler and a GitHub-API-backed one, and on
// the transport-level disk cache docforge's github_http_cache.go wraps
// around every GitHub API call.
type GitHubFallback struct {
	Owner string
	Repo string
	OAuthToken string
	// CacheDir is the directory the httpcache transport's diskv store
	// persists responses under, one subdirectory per host, exactly as
	// docforge's cmd/app.initResourceHandlers lays out
	// "$cache-dir/diskv/$host".
	CacheDir string
}

// NewGitHubFallback builds a fallback resolver for owner/repo, reusing the
// same OAuth-wrapped, disk-cached transport docforge builds per configured
// GitHub host.
func NewGitHubFallback(host, owner, repo, oAuthToken, cacheDir string) *GitHubFallback {
	return &GitHubFallback{Owner: owner, Repo: repo, OAuthToken: oAuthToken, CacheDir: filepath.Join(cacheDir, "diskv", host)}
}

func (f *GitHubFallback) client(ctx context.Context) *github.Client {
	base := http.DefaultTransport
	if f.OAuthToken != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: f.OAuthToken})
		base = oauth2.NewClient(ctx, ts).Transport
	}
	flatTransform := func(s string) []string { return []string{} }
	d := diskv.New(diskv.Options{
		BasePath: f.CacheDir,
		Transform: flatTransform,
		CacheSizeMax: 1024 * 1024 * 1024,
	})
	cacheTransport := &httpcache.Transport{
		Transport: base,
		Cache: diskcache.NewWithDiskv(d),
		MarkCachedResponses: true,
	}
	return github.NewClient(cacheTransport.Client())
}

// ResolveRef returns a tag name whose commit matches headSHA, or headSHA
// itself if no tag matches, querying the GitHub API through a disk-cached
// transport so repeated invocations in the same cache-dir cost one network
// round trip per changed ref.
func (f *GitHubFallback) ResolveRef(ctx context.Context, headSHA string) (string, error) {
	client := f.client(ctx)
	tags, _, err := client.Repositories.ListTags(ctx, f.Owner, f.Repo, &github.ListOptions{PerPage: 100})
	if err != nil {
		return "", fmt.Errorf("repospec: listing tags via GitHub API for %s/%s: %w", f.Owner, f.Repo, err)
	}
	for _, t := range tags {
		if t.GetCommit() != nil && t.GetCommit().GetSHA() == headSHA {
			klog.V(2).Infof("repospec: GitHub API resolved HEAD %s to tag %s", headSHA, t.GetName())
			return t.GetName(), nil
		}
	}
	return headSHA, nil
}

// ownerRepoFromHost splits an "owner/repo" slug as accepted by the
// manifest-dir-adjacent configuration, mirroring docforge's own
// host-then-owner-then-repo URL segmenting in resource_locator.go.
func ownerRepoFromHost(slug string) (owner, repo string, ok bool) {
	parts := strings.SplitN(strings.Trim(slug, "/"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
