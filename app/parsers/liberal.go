package parsers

import (
	"context"
	"errors"
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/lysyi3m/feed-normalizer/app/feed"
)

var liberalMappings = feed.Mappings{
	Feed: feed.Mapping{
		{Target: feed.FieldGenerator, Sources: []string{"generator"}},
		{Target: feed.FieldTitle, Sources: []string{"title"}},
		{Target: feed.FieldLastUpdated, Sources: []string{"updated", "lastBuildDate", "pubDate"}},
		{Target: feed.FieldCopyright, Sources: []string{"copyright", "rights"}},
		{Target: feed.FieldAuthors, Sources: []string{"author", "webMaster", "managingEditor", "contributor"}},
		{Target: feed.FieldURLs, Sources: []string{"link"}},
		{Target: feed.FieldDescription, Sources: []string{"description", "subtitle"}},
	},
	Entry: feed.Mapping{
		{Target: feed.FieldDatePublished, Sources: []string{"pubDate", "published"}},
		{Target: feed.FieldURLs, Sources: []string{"link"}},
		{Target: feed.FieldDescription, Sources: []string{"description", "summary"}},
		{Target: feed.FieldTitle, Sources: []string{"title"}},
		{Target: feed.FieldAuthors, Sources: []string{"author", "contributor"}},
		{Target: feed.FieldCopyright, Sources: []string{"copyright", "rights"}},
	},
}

var (
	liberalChannelTags = []string{
		"generator", "title", "updated", "lastBuildDate", "pubDate", "copyright", "rights",
		"author", "webMaster", "managingEditor", "contributor", "link", "description",
		"subtitle", "id", "logo",
	}

	// Channel children with their own title, link and description.
	liberalNestedChannelTags = []string{"image", "textInput"}
	liberalItemTags = []string{
		"pubDate", "published", "link", "description", "summary", "title", "author",
		"contributor", "guid", "id", "content", "content:encoded", "copyright", "rights",
	}

	errNotAFeed = errors.New("no rss, rdf or atom root element found")

	feedRootPattern    = regexp.MustCompile(`(?is)<(?:rss|rdf:rdf|feed|channel)[\s>]`)
	itemPattern        = regexp.MustCompile(`(?is)<(?:rss:|atom:)?(?:item|entry)(?:\s[^>]*)?>(.*?)</(?:rss:|atom:)?(?:item|entry)\s*>`)
	cdataPattern       = regexp.MustCompile(`(?s)<!\[CDATA\[(.*?)\]\]>`)
	hrefPattern        = regexp.MustCompile(`(?is)\bhref\s*=\s*["']([^"']*)["']`)
	relPattern         = regexp.MustCompile(`(?is)\brel\s*=\s*["']([^"']*)["']`)
	personNamePattern  = regexp.MustCompile(`(?is)<name>(.*?)</name>`)
	personEmailPattern = regexp.MustCompile(`(?is)<email>(.*?)</email>`)

	tagPatterns   = map[string]*regexp.Regexp{}
	tagPatternsMu sync.Mutex
)

// Liberal scans the raw text for known tags instead of building an XML tree,
// so it copes with documents no XML parser accepts: unescaped ampersands,
// unclosed elements, broken namespaces. It handles both RSS and Atom.
type Liberal struct {
	adapter
}

func NewLiberal(priority int) *Liberal {
	return &Liberal{adapter: adapter{name: NameLiberal, priority: priority}}
}

func (a *Liberal) Attempt(ctx context.Context, raw []byte) (*feed.Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text := string(raw)
	if !feedRootPattern.MatchString(text) {
		return nil, errNotAFeed
	}

	items := itemPattern.FindAllStringSubmatch(text, -1)
	channelText := itemPattern.ReplaceAllString(text, "")

	imageText := strings.Join(tagPattern("image").FindAllString(channelText, -1), "\n")
	for _, tag := range liberalNestedChannelTags {
		channelText = tagPattern(tag).ReplaceAllString(channelText, "")
	}

	channel := scanTags(channelText, liberalChannelTags)
	channel.Add("image", scanTags(imageText, []string{"image"})["image"]...)

	tree := &feed.Tree{
		Channel: channel,
		Items:   make([]feed.Node, 0, len(items)),
	}
	for _, item := range items {
		tree.Items = append(tree.Items, scanTags(item[1], liberalItemTags))
	}

	return tree, nil
}

func (a *Liberal) Mappings() feed.Mappings {
	return liberalMappings
}

func (a *Liberal) Extract(tree *feed.Tree, f *feed.Feed) {
	f.Image = feed.ExtractImage(tree.Channel.First("image"))
	if f.Image == "" {
		f.Image = tree.Channel.First("logo")
	}
	f.ID = feed.IDOrLink(tree.Channel, []string{"id"}, []string{"link"})

	feed.EachEntry(tree, f, func(node feed.Node, entry *feed.Entry) {
		entry.ID = feed.IDOrLink(node, []string{"guid", "id"}, []string{"link"})
		entry.Content.Body = node.First("content", "content:encoded", "description", "summary")
	})

	feed.InheritCopyright(f)
}

func scanTags(text string, tags []string) feed.Node {
	node := feed.Node{}
	for _, tag := range tags {
		var alternate, other []string

		for _, match := range tagPattern(tag).FindAllStringSubmatch(text, -1) {
			attrs, inner := match[1], match[3]

			switch tag {
			case "link":
				value := strings.TrimSpace(unwrapValue(inner))
				if href := hrefPattern.FindStringSubmatch(attrs); href != nil {
					value = html.UnescapeString(strings.TrimSpace(href[1]))
				}
				if rel := relPattern.FindStringSubmatch(attrs); rel != nil && rel[1] != "alternate" {
					other = append(other, value)
				} else {
					alternate = append(alternate, value)
				}
			case "author", "contributor":
				alternate = append(alternate, personValue(inner))
			default:
				alternate = append(alternate, unwrapValue(inner))
			}
		}

		if len(alternate) == 0 {
			alternate = other
		}
		node.Add(tag, alternate...)
	}
	return node
}

// tagPattern matches <tag attrs/> and <tag attrs>inner</tag>, with optional
// rss: or atom: prefixes. Group 1 holds the attributes, group 3 the inner text.
func tagPattern(tag string) *regexp.Regexp {
	tagPatternsMu.Lock()
	defer tagPatternsMu.Unlock()

	if re, ok := tagPatterns[tag]; ok {
		return re
	}

	name := regexp.QuoteMeta(tag)
	re := regexp.MustCompile(`(?is)<(?:rss:|atom:)?` + name + `((?:\s[^>]*?)?)(/>|>(.*?)</(?:rss:|atom:)?` + name + `\s*>)`)
	tagPatterns[tag] = re
	return re
}

func unwrapValue(inner string) string {
	inner = cdataPattern.ReplaceAllString(inner, "$1")
	return strings.TrimSpace(html.UnescapeString(inner))
}

// personValue flattens Atom person constructs; RSS authors are plain text.
func personValue(inner string) string {
	name := personNamePattern.FindStringSubmatch(inner)
	if name == nil {
		return unwrapValue(inner)
	}

	var email string
	if m := personEmailPattern.FindStringSubmatch(inner); m != nil {
		email = unwrapValue(m[1])
	}
	return formatAuthor(unwrapValue(name[1]), email)
}
