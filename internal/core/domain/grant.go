package domain

import (
	"strings"
	"time"
)

type Grant struct {
	ID           string    `json:"_id,omitempty" yaml:"id,omitempty"`
	Name         string    `json:"grant_name" yaml:"grant_name"`
	Description  string    `json:"grant_description" yaml:"grant_description"`
	WebsiteURLs  []string  `json:"website_urls" yaml:"website_urls"`
	DocumentURLs []string  `json:"document_urls" yaml:"document_urls"`
	Tags         []string  `json:"tags" yaml:"tags,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty" yaml:"-"`
}

// Clone returns a deep copy so callers can enrich a grant without aliasing the input slices.
func (g Grant) Clone() Grant {
	out := g
	out.WebsiteURLs = cloneStrings(g.WebsiteURLs)
	out.DocumentURLs = cloneStrings(g.DocumentURLs)
	out.Tags = cloneStrings(g.Tags)
	return out
}

// MissingFields reports required fields that are absent or blank.
func (g Grant) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(g.Name) == "" {
		missing = append(missing, "grant_name")
	}
	if strings.TrimSpace(g.Description) == "" {
		missing = append(missing, "grant_description")
	}
	return missing
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
