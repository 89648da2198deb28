// Package recipe defines the recipe records exchanged between the remote
// search API, the search session and the persisted collections.
package recipe

import (
	"context"
	"strings"
)

// Summary is one search hit as returned by the remote API. The ID is only
// meaningful within the search session that produced it.
type Summary struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Image     string `json:"image,omitempty"`
	Summary   string `json:"summary,omitempty"`
	SourceURL string `json:"sourceUrl,omitempty"`
}

// Validate checks the fields every stored summary must carry.
func (s Summary) Validate() error {
	if s.ID == 0 {
		return &ValidationError{Field: "id", Message: "is required"}
	}
	if strings.TrimSpace(s.Title) == "" {
		return &ValidationError{Field: "title", Message: "is required"}
	}
	return nil
}

// Favourite is a verbatim copy of a Summary taken when the visitor saved it.
type Favourite = Summary

// Custom is a recipe written by the visitor. It has no identity; saving the
// same text twice yields two entries.
type Custom struct {
	Title        string `json:"title"`
	Ingredients  string `json:"ingredients"`
	Instructions string `json:"instructions"`
}

// Validate reports a ValidationError when any field is blank.
func (c Custom) Validate() error {
	switch {
	case strings.TrimSpace(c.Title) == "":
		return &ValidationError{Field: "title", Message: "is required"}
	case strings.TrimSpace(c.Ingredients) == "":
		return &ValidationError{Field: "ingredients", Message: "is required"}
	case strings.TrimSpace(c.Instructions) == "":
		return &ValidationError{Field: "instructions", Message: "is required"}
	}
	return nil
}

// SearchRequest is one page worth of a remote query.
type SearchRequest struct {
	Query  string
	Number int
	Offset int
}

// SearchPage is the decoded remote response.
type SearchPage struct {
	Results      []Summary `json:"results"`
	TotalResults int       `json:"totalResults"`
}

// Searcher runs a query against a recipe source. Implementations return an
// *APIError for non-success HTTP statuses.
type Searcher interface {
	Search(ctx context.Context, req SearchRequest) (SearchPage, error)
}
