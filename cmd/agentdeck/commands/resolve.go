// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentdeck/agentdeck/lib/schema"
	"github.com/agentdeck/agentdeck/lib/tui"
)

// maxAmbiguousListed caps the candidates named in an ambiguity error.
const maxAmbiguousListed = 5

// resolveSession turns a user-typed session argument into an id known
// to the daemon.
func (env *Env) resolveSession(ctx context.Context, query string) (string, error) {
	var list schema.ListResponse
	if err := env.call(ctx, schema.ActionList, nil, &list); err != nil {
		return "", err
	}
	ids := make([]string, 0, len(list.Sessions))
	for _, session := range list.Sessions {
		ids = append(ids, session.ID)
	}
	return matchSession(ids, query)
}

// matchSession picks the session id query refers to: an exact id, the
// only fuzzy match, or a fuzzy match scoring strictly above the rest.
func matchSession(ids []string, query string) (string, error) {
	if query == "" {
		return "", fmt.Errorf("session argument is empty")
	}
	for _, id := range ids {
		if id == query {
			return id, nil
		}
	}

	ranked := tui.Rank(ids, query)
	switch {
	case len(ranked) == 0:
		return "", fmt.Errorf("no session matches %q", query)
	case len(ranked) == 1 || ranked[0].Score > ranked[1].Score:
		return ranked[0].Text, nil
	}

	var tied []string
	for _, candidate := range ranked {
		if candidate.Score != ranked[0].Score || len(tied) == maxAmbiguousListed {
			break
		}
		tied = append(tied, candidate.Text)
	}
	return "", fmt.Errorf("%q is ambiguous: %s", query, strings.Join(tied, ", "))
}
