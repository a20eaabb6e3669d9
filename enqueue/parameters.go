/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package enqueue

import (
	"strconv"
	"strings"

	"chainguard.dev/buildtrigger/entity"
	"chainguard.dev/buildtrigger/trigger"
)

// Prefix returns the parameter name prefix for kind.
func Prefix(kind entity.Kind) string {
	switch kind {
	case entity.KindPullRequest:
		return "GITHUB_PR"
	case entity.KindTag:
		return "GITHUB_TAG"
	default:
		return "GITHUB_BRANCH"
	}
}

// Parameters renders the named build parameters for req, e.g.
// GITHUB_PR_HEAD_SHA or GITHUB_BRANCH_NAME.
func Parameters(req trigger.Request) map[string]string {
	p := Prefix(req.Kind) + "_"
	c := req.Cause
	params := map[string]string{
		p + "HEAD_SHA":   c.HeadSHA(),
		p + "SHORT_DESC": c.ShortDescription(),
		p + "TITLE":      c.Title(),
		p + "URL":        c.URL(),
		p + "CAUSE_SKIP": strconv.FormatBool(c.Skip()),
		p + "REPOSITORY": req.Repository.FullName(),
	}
	if req.Kind == entity.KindPullRequest {
		params[p+"NUMBER"] = req.Key
		params[p+"LABELS"] = strings.Join(c.Labels(), ",")
		params[p+"STATE"] = c.State()
		if body := c.CommentBody(); body != "" {
			params[p+"COMMENT_BODY"] = body
		}
	} else {
		params[p+"NAME"] = req.Key
	}
	return params
}
