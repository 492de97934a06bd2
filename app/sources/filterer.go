package sources

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/lysyi3m/feed-normalizer/app/feed"
)

var filterFields = map[string]bool{
	"title":       true,
	"description": true,
	"content":     true,
	"authors":     true,
	"urls":        true,
	"copyright":   true,
}

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Run returns the entries that pass the source filters, in their original
// order, and the number of entries dropped.
func (f *Filterer) Run(entries []feed.Entry, sourceConfig *Config) ([]feed.Entry, int) {
	if len(sourceConfig.Filters) == 0 {
		return entries, 0
	}

	kept := make([]feed.Entry, 0, len(entries))
	for _, entry := range entries {
		if isFiltered, reason := f.applyFilters(entry, sourceConfig.Filters); isFiltered {
			slog.Debug("Entry filtered", "source", sourceConfig.Name, "entry", entry.ID, "reason", reason)
			continue
		}
		kept = append(kept, entry)
	}

	return kept, len(entries) - len(kept)
}

func (f *Filterer) applyFilters(entry feed.Entry, filters []ConfigFilter) (bool, string) {
	for _, filter := range filters {
		value := f.getFieldValue(entry, filter.Field)

		for _, exclude := range filter.Excludes {
			if f.matchesFilter(value, exclude) {
				return true, fmt.Sprintf("Excluded by %s filter: contains '%s'", filter.Field, exclude)
			}
		}

		if len(filter.Includes) > 0 {
			matched := false
			for _, include := range filter.Includes {
				if f.matchesFilter(value, include) {
					matched = true
					break
				}
			}
			if !matched {
				return true, fmt.Sprintf("Excluded by %s filter: does not contain any of %v", filter.Field, filter.Includes)
			}
		}
	}

	return false, ""
}

func (f *Filterer) matchesFilter(value, pattern string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(pattern))
}

func (f *Filterer) getFieldValue(entry feed.Entry, field string) string {
	switch field {
	case "title":
		return entry.Title
	case "description":
		return entry.Description
	case "content":
		return entry.Content.Body
	case "authors":
		return strings.Join(entry.Authors, " ")
	case "urls":
		return strings.Join(entry.URLs, " ")
	case "copyright":
		return entry.Copyright
	default:
		return ""
	}
}
