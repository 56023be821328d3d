// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package sites

import (
	"context"
	"fmt"

	"github.com/skyglint/skyglint/pkg/model"
)

// ImportSite is one element of an import payload: a site payload plus an optional id
// selecting upsert-by-id semantics.
type ImportSite struct {
	ID uint `json:"id"`
	SiteRequest
}

// ImportSummary reports the outcome of one import run.
type ImportSummary struct {
	Created  int      `json:"created"`
	Updated  int      `json:"updated"`
	Errors   int      `json:"errors"`
	Messages []string `json:"messages"`
}

// Export returns all sites for serialization as a JSON array. The export round-trips
// through Import since pinned geometry is carried as concrete values.
func (s *Service) Export(ctx context.Context) ([]model.Site, error) {
	return s.db.Sites().List(ctx)
}

// Upsert applies one import element: an element with a known id updates, an element with
// an unknown id fails, an element without id creates. It reports whether a new site was
// created.
func (s *Service) Upsert(ctx context.Context, element *ImportSite) (bool, error) {
	if element.ID == 0 {
		if _, err := s.Create(ctx, &element.SiteRequest); err != nil {
			return false, err
		}
		return true, nil
	}

	if _, err := s.Update(ctx, element.ID, &element.SiteRequest); err != nil {
		return false, err
	}
	return false, nil
}

// Import processes every element with upsert semantics. Element failures are collected
// into the summary and do not stop the run.
func (s *Service) Import(ctx context.Context, elements []ImportSite) (*ImportSummary, error) {
	summary := &ImportSummary{Messages: []string{}}

	for i := range elements {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		created, err := s.Upsert(ctx, &elements[i])
		if err != nil {
			summary.Errors++
			summary.Messages = append(summary.Messages, fmt.Sprintf("element %d (%s): %v", i, elements[i].Name, err))
			continue
		}

		if created {
			summary.Created++
		} else {
			summary.Updated++
		}
	}
	return summary, nil
}
