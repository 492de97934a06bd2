package feed

import (
	"regexp"
	"strings"
)

// Helpers for dialect specific extraction that does not fit a plain
// field fallback. Adapters call them from Extract after generic mapping.

var imageURLPattern = regexp.MustCompile(`(?is)<url>(.*?)</url>`)

// ExtractImage returns the image URL held by raw. RSS images come as markup
// with a nested <url> element, in which case the first <url> wins; anything
// else is taken to be the URL itself.
func ExtractImage(raw string) string {
	raw = trimValue(raw)
	if !strings.Contains(strings.ToLower(raw), "<url>") {
		return raw
	}

	match := imageURLPattern.FindStringSubmatch(raw)
	if match == nil {
		return ""
	}
	return trimValue(match[1])
}

// IDOrLink prefers an explicit id field and derives the id from the first
// link when the node has none.
func IDOrLink(node Node, idFields []string, linkFields []string) string {
	if id := node.First(idFields...); id != "" {
		return id
	}
	return node.First(linkFields...)
}

func InheritCopyright(f *Feed) {
	if f.Copyright == "" {
		return
	}
	for i := range f.Entries {
		if f.Entries[i].Copyright == "" {
			f.Entries[i].Copyright = f.Copyright
		}
	}
}

// EachEntry walks tree items alongside the entries mapped from them.
func EachEntry(tree *Tree, f *Feed, fn func(node Node, entry *Entry)) {
	for i := range f.Entries {
		if i >= len(tree.Items) {
			return
		}
		fn(tree.Items[i], &f.Entries[i])
	}
}
