package parsers

import (
	"bytes"
	"context"

	ext "github.com/mmcdole/gofeed/extensions"
	"github.com/mmcdole/gofeed/rss"

	"github.com/lysyi3m/feed-normalizer/app/feed"
)

var rssMappings = feed.Mappings{
	Feed: feed.Mapping{
		{Target: feed.FieldGenerator, Sources: []string{"generator"}},
		{Target: feed.FieldTitle, Sources: []string{"title"}},
		{Target: feed.FieldURLs, Sources: []string{"link"}},
		{Target: feed.FieldDescription, Sources: []string{"description"}},
		{Target: feed.FieldCopyright, Sources: []string{"copyright", "dc:rights"}},
		{Target: feed.FieldAuthors, Sources: []string{"managingEditor", "dc:creator"}},
		{Target: feed.FieldLastUpdated, Sources: []string{"lastBuildDate", "pubDate", "dc:date"}},
	},
	Entry: feed.Mapping{
		{Target: feed.FieldDatePublished, Sources: []string{"pubDate", "dc:date"}},
		{Target: feed.FieldURLs, Sources: []string{"link"}},
		{Target: feed.FieldDescription, Sources: []string{"description"}},
		{Target: feed.FieldTitle, Sources: []string{"title"}},
		{Target: feed.FieldAuthors, Sources: []string{"author", "dc:creator"}},
		{Target: feed.FieldCopyright, Sources: []string{"dc:rights"}},
	},
}

// RSS wraps the strict gofeed RSS parser (RSS 0.9x, 1.0 and 2.0).
type RSS struct {
	adapter
}

func NewRSS(priority int) *RSS {
	return &RSS{adapter: adapter{name: NameRSS, priority: priority}}
}

func (a *RSS) Attempt(ctx context.Context, raw []byte) (*feed.Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parser := &rss.Parser{}
	parsed, err := parser.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	channel := feed.Node{}
	channel.Add("generator", parsed.Generator)
	channel.Add("title", parsed.Title)
	channel.Add("link", parsed.Link)
	channel.Add("description", parsed.Description)
	channel.Add("copyright", parsed.Copyright)
	channel.Add("managingEditor", parsed.ManagingEditor)
	channel.Add("webMaster", parsed.WebMaster)
	channel.Add("lastBuildDate", parsed.LastBuildDate)
	channel.Add("pubDate", parsed.PubDate)
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
		node.Add("link", item.Link)
		node.Add("description", item.Description)
		node.Add("content:encoded", item.Content)
		node.Add("author", item.Author)
		node.Add("pubDate", item.PubDate)
		if item.GUID != nil {
			node.Add("guid", item.GUID.Value)
		}
		addDublinCore(node, item.DublinCoreExt)

		tree.Items = append(tree.Items, node)
	}

	return tree, nil
}

func (a *RSS) Mappings() feed.Mappings {
	return rssMappings
}

func (a *RSS) Extract(tree *feed.Tree, f *feed.Feed) {
	f.Image = feed.ExtractImage(tree.Channel.First("image"))
	f.ID = feed.IDOrLink(tree.Channel, []string{"dc:identifier"}, []string{"link"})

	feed.EachEntry(tree, f, func(node feed.Node, entry *feed.Entry) {
		entry.ID = feed.IDOrLink(node, []string{"guid", "dc:identifier"}, []string{"link"})
		entry.Content.Body = node.First("content:encoded", "description")
	})

	feed.InheritCopyright(f)
}

func addDublinCore(node feed.Node, dc *ext.DublinCoreExtension) {
	if dc == nil {
		return
	}
	node.Add("dc:creator", dc.Creator...)
	node.Add("dc:date", dc.Date...)
	node.Add("dc:rights", dc.Rights...)
	node.Add("dc:identifier", dc.Identifier...)
}
