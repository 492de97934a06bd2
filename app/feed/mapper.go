package feed

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Target is a normalized value the mapper can populate field by field.
// Assign reports whether values produced a non-empty result for field.
type Target interface {
	Assign(field Field, values []string) bool
}

var (
	_ Target = (*Feed)(nil)
	_ Target = (*Entry)(nil)
)

// Map populates target from node. For every rule the sources are tried in
// order and the first one that yields a value wins; targets whose sources are
// all empty are left unset.
func Map(node Node, m Mapping, target Target) {
	for _, rule := range m {
		for _, source := range rule.Sources {
			if target.Assign(rule.Target, node[source]) {
				break
			}
		}
	}
}

func (f *Feed) Assign(field Field, values []string) bool {
	switch field {
	case FieldGenerator:
		return assignString(&f.Generator, values)
	case FieldTitle:
		return assignString(&f.Title, values)
	case FieldURLs:
		return assignStrings(&f.URLs, values)
	case FieldDescription:
		return assignString(&f.Description, values)
	case FieldCopyright:
		return assignString(&f.Copyright, values)
	case FieldAuthors:
		return assignStrings(&f.Authors, values)
	case FieldLastUpdated:
		return assignTime(&f.LastUpdated, values)
	case FieldID:
		return assignString(&f.ID, values)
	}
	return false
}

func (e *Entry) Assign(field Field, values []string) bool {
	switch field {
	case FieldDatePublished:
		return assignTime(&e.DatePublished, values)
	case FieldURLs:
		return assignStrings(&e.URLs, values)
	case FieldDescription:
		return assignString(&e.Description, values)
	case FieldTitle:
		return assignString(&e.Title, values)
	case FieldAuthors:
		return assignStrings(&e.Authors, values)
	case FieldID:
		return assignString(&e.ID, values)
	case FieldCopyright:
		return assignString(&e.Copyright, values)
	}
	return false
}

func assignString(dst *string, values []string) bool {
	for _, v := range values {
		if v = trimValue(v); v != "" {
			*dst = v
			return true
		}
	}
	return false
}

func assignStrings(dst *[]string, values []string) bool {
	var out []string
	for _, v := range values {
		if v = trimValue(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return false
	}
	*dst = out
	return true
}

func assignTime(dst **time.Time, values []string) bool {
	for _, v := range values {
		if v = trimValue(v); v == "" {
			continue
		}
		t, err := dateparse.ParseAny(v)
		if err != nil {
			// An unreadable date counts as empty
			return false
		}
		*dst = &t
		return true
	}
	return false
}

func trimValue(v string) string {
	return strings.TrimSpace(v)
}
