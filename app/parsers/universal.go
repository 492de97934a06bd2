package parsers

import (
	"bytes"
	"context"

	"github.com/mmcdole/gofeed"

	"github.com/lysyi3m/feed-normalizer/app/feed"
)

var universalMappings = feed.Mappings{
	Feed: feed.Mapping{
		{Target: feed.FieldGenerator, Sources: []string{"generator"}},
		{Target: feed.FieldTitle, Sources: []string{"title"}},
		{Target: feed.FieldURLs, Sources: []string{"link", "links"}},
		{Target: feed.FieldDescription, Sources: []string{"description"}},
		{Target: feed.FieldCopyright, Sources: []string{"copyright", "dc:rights"}},
		{Target: feed.FieldAuthors, Sources: []string{"author", "dc:creator"}},
		{Target: feed.FieldLastUpdated, Sources: []string{"updated", "published"}},
	},
	Entry: feed.Mapping{
		{Target: feed.FieldDatePublished, Sources: []string{"published", "updated"}},
		{Target: feed.FieldURLs, Sources: []string{"link", "links"}},
		{Target: feed.FieldDescription, Sources: []string{"description"}},
		{Target: feed.FieldTitle, Sources: []string{"title"}},
		{Target: feed.FieldAuthors, Sources: []string{"author", "dc:creator"}},
		{Target: feed.FieldCopyright, Sources: []string{"dc:rights"}},
	},
}

// Universal wraps gofeed's format detecting parser. It is more forgiving
// than the dialect parsers and also understands JSON Feed.
type Universal struct {
	adapter
}

func NewUniversal(priority int) *Universal {
	return &Universal{adapter: adapter{name: NameUniversal, priority: priority}}
}

func (a *Universal) Attempt(ctx context.Context, raw []byte) (*feed.Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parser := gofeed.NewParser()
	parsed, err := parser.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	channel := feed.Node{}
	channel.Add("generator", parsed.Generator)
	channel.Add("title", parsed.Title)
	channel.Add("description", parsed.Description)
	channel.Add("link", parsed.Link)
	channel.Add("links", parsed.Links...)
	channel.Add("copyright", parsed.Copyright)
	channel.Add("updated", parsed.Updated)
	channel.Add("published", parsed.Published)
	channel.Add("author", gofeedPersons(parsed.Author, parsed.Authors)...)
	if parsed.Image != nil {
		channel.Add("image", parsed.Image.URL)
	}
	addDublinCore(channel, parsed.DublinCoreExt)

	tree := &feed.Tree{Channel: channel, Items: make([]feed.Node, 0, len(parsed.Items))}
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}

		node := feed.Node{}
		node.Add("title", item.Title)
		node.Add("description", item.Description)
		node.Add("content", item.Content)
		node.Add("link", item.Link)
		node.Add("links", item.Links...)
		node.Add("updated", item.Updated)
		node.Add("published", item.Published)
		node.Add("guid", item.GUID)
		node.Add("author", gofeedPersons(item.Author, item.Authors)...)
		addDublinCore(node, item.DublinCoreExt)

		tree.Items = append(tree.Items, node)
	}

	return tree, nil
}

func (a *Universal) Mappings() feed.Mappings {
	return universalMappings
}

func (a *Universal) Extract(tree *feed.Tree, f *feed.Feed) {
	f.Image = feed.ExtractImage(tree.Channel.First("image"))
	f.ID = feed.IDOrLink(tree.Channel, []string{"dc:identifier"}, []string{"link", "links"})

	feed.EachEntry(tree, f, func(node feed.Node, entry *feed.Entry) {
		entry.ID = feed.IDOrLink(node, []string{"guid", "dc:identifier"}, []string{"link", "links"})
		entry.Content.Body = node.First("content", "description")
	})

	feed.InheritCopyright(f)
}

// gofeedPersons prefers the Authors list, falling back to the single Author
// field older gofeed translators fill.
func gofeedPersons(author *gofeed.Person, authors []*gofeed.Person) []string {
	var out []string
	for _, person := range authors {
		if person == nil {
			continue
		}
		if s := formatAuthor(person.Name, person.Email); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 && author != nil {
		if s := formatAuthor(author.Name, author.Email); s != "" {
			out = append(out, s)
		}
	}
	return out
}
