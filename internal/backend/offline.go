// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backend

import (
	"context"

	"github.com/pdiddy/refcheck/internal/index"
	"github.com/pdiddy/refcheck/pkg/types"
)

// offlineQuerier answers from a local SQLite index instead of the
// network. One implementation serves DBLP, ACL Anthology, and OpenAlex
// snapshots; the source only changes the store behind it.
type offlineQuerier struct {
	name  string
	store *index.Store
}

func (q *offlineQuerier) Name() string { return q.name }

func (q *offlineQuerier) lookup(_ context.Context, ref types.Reference) (*record, error) {
	recs, err := q.store.Lookup(ref.Title)
	if err != nil {
		return nil, err
	}
	// Entries without author data (common in raw DBLP dumps) cannot
	// confirm a citation; treat them as absent.
	for _, r := range recs {
		if len(r.Authors) > 0 {
			return &record{title: r.Title, authors: r.Authors}, nil
		}
	}
	return nil, nil
}
