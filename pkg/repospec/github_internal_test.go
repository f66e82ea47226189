// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package repospec

import "testing"

func TestOwnerRepoFromHost(t *testing.T) {
	cases := []struct {
		slug          string
		owner, repo   string
		ok            bool
	}{
		{"owner/repo", "owner", "repo", true},
		{"/owner/repo/", "owner", "repo", true},
		{"owner", "", "", false},
		{"", "", "", false},
		{"owner/", "", "", false},
		{"/repo", "", "", false},
	}
	for _, c := range cases {
		owner, repo, ok := ownerRepoFromHost(c.slug)
		if ok != c.ok || owner != c.owner || repo != c.repo {
			t.Errorf("ownerRepoFromHost(%q) = (%q, %q, %v), want (%q, %q, %v)", c.slug, owner, repo, ok, c.owner, c.repo, c.ok)
		}
	}
}
