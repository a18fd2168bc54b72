package database

import (
	"context"
	"fmt"
)

// Comparison describes how the failures of two runs differ.
type Comparison struct {
	Old RunMeta `json:"old"`
	New RunMeta `json:"new"`

	// Introduced are failures of the new run that the old run did not have.
	Introduced []FailureRecord `json:"introduced"`

	// Resolved are failures of the old run that are gone in the new run.
	Resolved []FailureRecord `json:"resolved"`

	// Persisting counts failures present in both runs.
	Persisting int `json:"persisting"`
}

// SitemapChanged reports whether the sitemap content differs between runs.
func (c *Comparison) SitemapChanged() bool {
	return c.Old.SitemapDigest != c.New.SitemapDigest
}

// HasChanges reports whether any failure appeared or disappeared.
func (c *Comparison) HasChanges() bool {
	return len(c.Introduced) > 0 || len(c.Resolved) > 0
}

// CompareRuns compares the failures of two runs. Failures are matched by
// check name and report line.
func (r *RunDB) CompareRuns(ctx context.Context, oldID, newID int64) (*Comparison, error) {
	oldMeta, err := r.GetRunMeta(ctx, oldID)
	if err != nil {
		return nil, fmt.Errorf("old run %d: %w", oldID, err)
	}
	newMeta, err := r.GetRunMeta(ctx, newID)
	if err != nil {
		return nil, fmt.Errorf("new run %d: %w", newID, err)
	}

	oldFailures, err := r.GetFailures(ctx, oldID)
	if err != nil {
		return nil, err
	}
	newFailures, err := r.GetFailures(ctx, newID)
	if err != nil {
		return nil, err
	}

	cmp := &Comparison{
		Old:        oldMeta,
		New:        newMeta,
		Introduced: make([]FailureRecord, 0),
		Resolved:   make([]FailureRecord, 0),
	}

	oldKeys := make(map[string]bool, len(oldFailures))
	for _, f := range oldFailures {
		oldKeys[f.key()] = true
	}
	newKeys := make(map[string]bool, len(newFailures))
	for _, f := range newFailures {
		newKeys[f.key()] = true
		if oldKeys[f.key()] {
			cmp.Persisting++
		} else {
			cmp.Introduced = append(cmp.Introduced, f)
		}
	}
	for _, f := range oldFailures {
		if !newKeys[f.key()] {
			cmp.Resolved = append(cmp.Resolved, f)
		}
	}
	return cmp, nil
}

// CompareLatest compares the two most recent runs of site.
func (r *RunDB) CompareLatest(ctx context.Context, site string) (*Comparison, error) {
	runs, err := r.ListRuns(ctx, site, 2)
	if err != nil {
		return nil, err
	}
	if len(runs) < 2 {
		return nil, ErrNotEnoughRuns
	}
	return r.CompareRuns(ctx, runs[1].ID, runs[0].ID)
}
