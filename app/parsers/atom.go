package parsers

import (
	"bytes"
	"context"

	"github.com/mmcdole/gofeed/atom"

	"github.com/lysyi3m/feed-normalizer/app/feed"
)

var atomMappings = feed.Mappings{
	Feed: feed.Mapping{
		{Target: feed.FieldGenerator, Sources: []string{"generator"}},
		{Target: feed.FieldTitle, Sources: []string{"title"}},
		{Target: feed.FieldLastUpdated, Sources: []string{"updated"}},
		{Target: feed.FieldCopyright, Sources: []string{"copyright", "rights"}},
		{Target: feed.FieldAuthors, Sources: []string{"author", "contributor"}},
		{Target: feed.FieldURLs, Sources: []string{"link"}},
		{Target: feed.FieldDescription, Sources: []string{"subtitle"}},
	},
	Entry: feed.Mapping{
		{Target: feed.FieldDatePublished, Sources: []string{"published", "updated"}},
		{Target: feed.FieldURLs, Sources: []string{"link"}},
		{Target: feed.FieldDescription, Sources: []string{"summary"}},
		{Target: feed.FieldTitle, Sources: []string{"title"}},
		{Target: feed.FieldAuthors, Sources: []string{"author", "contributor"}},
		{Target: feed.FieldCopyright, Sources: []string{"rights"}},
	},
}

// Atom wraps the strict gofeed Atom parser (Atom 0.3 and 1.0).
type Atom struct {
	adapter
}

func NewAtom(priority int) *Atom {
	return &Atom{adapter: adapter{name: NameAtom, priority: priority}}
}

func (a *Atom) Attempt(ctx context.Context, raw []byte) (*feed.Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parser := &atom.Parser{}
	parsed, err := parser.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	channel := feed.Node{}
	channel.Add("title", parsed.Title)
	channel.Add("id", parsed.ID)
	channel.Add("updated", parsed.Updated)
	channel.Add("subtitle", parsed.Subtitle)
	channel.Add("rights", parsed.Rights)
	channel.Add("icon", parsed.Icon)
	channel.Add("logo", parsed.Logo)
	channel.Add("link", atomLinks(parsed.Links)...)
	channel.Add("author", atomPersons(parsed.Authors)...)
	channel.Add("contributor", atomPersons(parsed.Contributors)...)
	if parsed.Generator != nil {
		channel.Add("generator", parsed.Generator.Value)
	}

	tree := &feed.Tree{Channel: channel, Items: make([]feed.Node, 0, len(parsed.Entries))}
	for _, entry := range parsed.Entries {
		if entry == nil {
			continue
		}

		node := feed.Node{}
		node.Add("title", entry.Title)
		node.Add("id", entry.ID)
		node.Add("updated", entry.Updated)
		node.Add("published", entry.Published)
		node.Add("summary", entry.Summary)
		node.Add("rights", entry.Rights)
		node.Add("link", atomLinks(entry.Links)...)
		node.Add("author", atomPersons(entry.Authors)...)
		node.Add("contributor", atomPersons(entry.Contributors)...)
		if entry.Content != nil {
			node.Add("content", entry.Content.Value)
		}

		tree.Items = append(tree.Items, node)
	}

	return tree, nil
}

func (a *Atom) Mappings() feed.Mappings {
	return atomMappings
}

func (a *Atom) Extract(tree *feed.Tree, f *feed.Feed) {
	f.Image = feed.ExtractImage(tree.Channel.First("logo", "icon"))
	f.ID = feed.IDOrLink(tree.Channel, []string{"id"}, []string{"link"})

	feed.EachEntry(tree, f, func(node feed.Node, entry *feed.Entry) {
		entry.ID = feed.IDOrLink(node, []string{"id"}, []string{"link"})
		entry.Content.Body = node.First("content", "summary")
	})

	feed.InheritCopyright(f)
}

// atomLinks lists alternate links first; other relations only count when
// there is no alternate link at all.
func atomLinks(links []*atom.Link) []string {
	var alternate, other []string
	for _, link := range links {
		if link == nil || link.Href == "" {
			continue
		}
		switch link.Rel {
		case "", "alternate":
			alternate = append(alternate, link.Href)
		default:
			other = append(other, link.Href)
		}
	}
	if len(alternate) > 0 {
		return alternate
	}
	return other
}

func atomPersons(persons []*atom.Person) []string {
	var out []string
	for _, person := range persons {
		if person == nil {
			continue
		}
		if s := formatAuthor(person.Name, person.Email); s != "" {
			out = append(out, s)
		}
	}
	return out
}
