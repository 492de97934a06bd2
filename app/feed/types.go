package feed

import (
	"time"
)

// Normalized feed model

type Feed struct {
	Generator   string     `json:"generator,omitempty"`
	Title       string     `json:"title,omitempty"`
	URLs        []string   `json:"urls"`
	Description string     `json:"description,omitempty"`
	Copyright   string     `json:"copyright,omitempty"`
	Authors     []string   `json:"authors"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
	ID          string     `json:"id,omitempty"`
	Image       string     `json:"image,omitempty"`
	Entries     []Entry    `json:"entries"`

	// Name of the adapter that produced the feed
	Parser string `json:"parser"`
}

type Entry struct {
	DatePublished *time.Time `json:"date_published,omitempty"`
	URLs          []string   `json:"urls"`
	Description   string     `json:"description,omitempty"`
	Title         string     `json:"title,omitempty"`
	Authors       []string   `json:"authors"`
	ID            string     `json:"id,omitempty"`
	Copyright     string     `json:"copyright,omitempty"` // Falls back to the feed copyright
	Content       Content    `json:"content"`
}

type Content struct {
	Body string `json:"body,omitempty"`
}

func NewFeed(parser string) *Feed {
	return &Feed{
		URLs:    []string{},
		Authors: []string{},
		Entries: []Entry{},
		Parser:  parser,
	}
}

func NewEntry() Entry {
	return Entry{
		URLs:    []string{},
		Authors: []string{},
	}
}

// Adapter boundary types

// Node is the uniform field access contract every adapter presents to the
// mapper: field name to the field's values in document order.
type Node map[string][]string

// Tree is what a successful adapter attempt returns.
type Tree struct {
	Channel Node
	Items   []Node
}

func (n Node) Add(field string, values ...string) {
	for _, v := range values {
		if v != "" {
			n[field] = append(n[field], v)
		}
	}
}

// First returns the first non-blank value of the first field that has one.
func (n Node) First(fields ...string) string {
	for _, field := range fields {
		for _, v := range n[field] {
			if v = trimValue(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// Mapping tables

type Field string

const (
	FieldGenerator     Field = "generator"
	FieldTitle         Field = "title"
	FieldURLs          Field = "urls"
	FieldDescription   Field = "description"
	FieldCopyright     Field = "copyright"
	FieldAuthors       Field = "authors"
	FieldLastUpdated   Field = "last_updated"
	FieldID            Field = "id"
	FieldDatePublished Field = "date_published"
)

type Rule struct {
	Target  Field
	Sources []string
}

type Mapping []Rule

type Mappings struct {
	Feed  Mapping
	Entry Mapping
}
