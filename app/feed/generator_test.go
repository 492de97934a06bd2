package feed

import (
	"strings"
	"testing"
	"time"
)

func TestGenerateRSS(t *testing.T) {
	generator := NewGenerator("test")

	updated := time.Date(2023, 7, 1, 12, 0, 0, 0, time.UTC)
	published := time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC)

	f := NewFeed("atom")
	f.Title = "Test Feed"
	f.URLs = []string{"https://example.com"}
	f.Copyright = "CC-BY"
	f.LastUpdated = &updated
	f.Image = "https://example.com/logo.png"
	f.Generator = "Hugo"

	firstEntry := NewEntry()
	firstEntry.ID = "item-1"
	firstEntry.Title = "Test Item 1"
	firstEntry.URLs = []string{"https://example.com/item1"}
	firstEntry.Description = "Test Item 1 Description"
	firstEntry.Content.Body = "Test Item 1 Content"
	firstEntry.DatePublished = &published
	firstEntry.Authors = []string{"test@example.com (Test Author)"}

	secondEntry := NewEntry()
	secondEntry.ID = "https://example.com/item2"
	secondEntry.Title = "Test Item 2 & more"
	secondEntry.Description = "Same"
	secondEntry.Content.Body = "Same"

	f.Entries = []Entry{firstEntry, secondEntry}

	rss, err := generator.Run(f, "http://localhost:8080/feeds/abc/rss")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	expected := []string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<rss version="2.0"`,
		`xmlns:content="http://purl.org/rss/1.0/modules/content/"`,
		"<title>Test Feed</title>",
		"<link>https://example.com</link>",
		"<description>Normalized feed from https://example.com</description>",
		`<atom:link href="http://localhost:8080/feeds/abc/rss" rel="self" type="application/rss+xml" />`,
		"<copyright>CC-BY</copyright>",
		"<lastBuildDate>Sat, 01 Jul 2023 12:00:00 +0000</lastBuildDate>",
		"<generator>Hugo via Feed-Normalizer/test</generator>",
		"<url>https://example.com/logo.png</url>",
		`<guid isPermaLink="false">item-1</guid>`,
		"<link>https://example.com/item1</link>",
		"<content:encoded><![CDATA[Test Item 1 Content]]></content:encoded>",
		"<pubDate>Mon, 03 Jul 2023 10:00:00 +0000</pubDate>",
		"<author>test@example.com (Test Author)</author>",
		`<guid isPermaLink="true">https://example.com/item2</guid>`,
		"<title>Test Item 2 &amp; more</title>",
	}

	for _, want := range expected {
		if !strings.Contains(rss, want) {
			t.Errorf("Expected RSS to contain %s", want)
		}
	}

	if strings.Count(rss, "<content:encoded>") != 1 {
		t.Error("Expected content:encoded only when content differs from description")
	}
}

func TestGenerateRSSEscapesCDATA(t *testing.T) {
	f := NewFeed("rss")
	entry := NewEntry()
	entry.Content.Body = "a ]]> b"
	f.Entries = []Entry{entry}

	rss, err := NewGenerator("test").Run(f, "")
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(rss, "<![CDATA[a ]]]]><![CDATA[> b]]>") {
		t.Errorf("Expected CDATA terminator to be split, got: %s", rss)
	}
	if strings.Contains(rss, "atom:link href") {
		t.Error("Expected no self link when none is given")
	}
}

func TestGenerateRSSNilFeed(t *testing.T) {
	if _, err := NewGenerator("test").Run(nil, ""); err == nil {
		t.Error("Expected error for nil feed")
	}
}
