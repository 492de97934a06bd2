package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"strings"
	"time"
)

// Generator renders a normalized feed as RSS 2.0.
type Generator struct {
	version string
}

func NewGenerator(version string) *Generator {
	return &Generator{version: version}
}

func (g *Generator) Run(f *Feed, selfLink string) (string, error) {
	if f == nil {
		return "", fmt.Errorf("feed is nil")
	}

	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	link := first(f.URLs)

	g.writeElement(&buf, "title", f.Title, 4)
	g.writeElement(&buf, "link", link, 4)
	description := f.Description
	if description == "" {
		description = fmt.Sprintf("Normalized feed from %s", link)
	}
	g.writeElement(&buf, "description", description, 4)

	if selfLink != "" {
		buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
			html.EscapeString(selfLink)))
	}

	g.writeElement(&buf, "copyright", f.Copyright, 4)
	if len(f.Authors) > 0 {
		g.writeElement(&buf, "managingEditor", f.Authors[0], 4)
	}

	lastBuildDate := time.Now().In(time.Local)
	if f.LastUpdated != nil {
		lastBuildDate = *f.LastUpdated
	}
	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)

	generator := fmt.Sprintf("Feed-Normalizer/%s", g.version)
	if f.Generator != "" {
		generator = fmt.Sprintf("%s via %s", f.Generator, generator)
	}
	g.writeElement(&buf, "generator", generator, 4)

	if f.Image != "" {
		buf.WriteString("    <image>\n")
		g.writeElement(&buf, "url", f.Image, 6)
		g.writeElement(&buf, "title", f.Title, 6)
		g.writeElement(&buf, "link", link, 6)
		buf.WriteString("    </image>\n")
	}

	for _, entry := range f.Entries {
		g.writeItem(&buf, entry)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, entry Entry) {
	buf.WriteString("    <item>\n")

	if entry.ID != "" {
		buf.WriteString(fmt.Sprintf("      <guid isPermaLink=\"%t\">", g.isURL(entry.ID)))
		xml.EscapeText(buf, []byte(entry.ID))
		buf.WriteString("</guid>\n")
	}

	g.writeElement(buf, "title", entry.Title, 6)
	g.writeElement(buf, "link", first(entry.URLs), 6)
	g.writeElement(buf, "description", entry.Description, 6)

	if entry.Content.Body != "" && entry.Content.Body != entry.Description {
		buf.WriteString("      <content:encoded><![CDATA[")
		buf.WriteString(strings.ReplaceAll(entry.Content.Body, "]]>", "]]]]><![CDATA[>"))
		buf.WriteString("]]></content:encoded>\n")
	}

	if entry.DatePublished != nil {
		g.writeElement(buf, "pubDate", entry.DatePublished.Format(time.RFC1123Z), 6)
	}

	if len(entry.Authors) > 0 {
		g.writeElement(buf, "author", entry.Authors[0], 6)
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func (g *Generator) isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
