package parsers

import (
	"context"
	"reflect"
	"testing"

	"github.com/lysyi3m/feed-normalizer/app/feed"
)

func liberalOnly() *feed.Normalizer {
	n := feed.NewNormalizer()
	n.Register(NewLiberal(PriorityLiberal))
	return n
}

func TestLiberalAtom(t *testing.T) {
	f, err := liberalOnly().Run(context.Background(), []byte(atomData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if f.Title != "Atom Example" {
		t.Errorf("Expected title 'Atom Example', got: %s", f.Title)
	}
	if !reflect.DeepEqual(f.URLs, []string{"http://ex.com"}) {
		t.Errorf("Expected alternate link only, got: %v", f.URLs)
	}
	if f.Copyright != "CC-BY" {
		t.Errorf("Expected copyright from rights, got: %s", f.Copyright)
	}
	if f.Description != "Atom Subtitle" {
		t.Errorf("Expected description from subtitle, got: %s", f.Description)
	}
	if f.Image != "http://img/y.png" {
		t.Errorf("Expected logo as image, got: %s", f.Image)
	}
	if f.ID != "urn:uuid:feed" {
		t.Errorf("Expected id 'urn:uuid:feed', got: %s", f.ID)
	}
	if !reflect.DeepEqual(f.Authors, []string{"atom@ex.com (Atom Author)"}) {
		t.Errorf("Unexpected authors: %v", f.Authors)
	}

	if len(f.Entries) != 2 {
		t.Fatalf("Expected 2 entries, got: %d", len(f.Entries))
	}
	if f.Entries[0].ID != "atom-1" {
		t.Errorf("Expected id 'atom-1', got: %s", f.Entries[0].ID)
	}
	if !reflect.DeepEqual(f.Entries[0].URLs, []string{"http://ex.com/atom1"}) {
		t.Errorf("Unexpected entry URLs: %v", f.Entries[0].URLs)
	}
	if f.Entries[0].Content.Body != "Entry Content" {
		t.Errorf("Expected content 'Entry Content', got: %s", f.Entries[0].Content.Body)
	}
	if f.Entries[1].Copyright != "All rights reserved" {
		t.Errorf("Expected own copyright, got: %s", f.Entries[1].Copyright)
	}
}

func TestLiberalRSS(t *testing.T) {
	f, err := liberalOnly().Run(context.Background(), []byte(rssData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if f.Title != "Example" {
		t.Errorf("Expected title 'Example', got: %s", f.Title)
	}
	if f.Image != "http://img/x.png" {
		t.Errorf("Expected URL extracted from image markup, got: %s", f.Image)
	}
	if !reflect.DeepEqual(f.URLs, []string{"http://ex.com"}) {
		t.Errorf("Expected channel link only, got: %v", f.URLs)
	}
	if len(f.Entries) != 2 {
		t.Fatalf("Expected 2 entries, got: %d", len(f.Entries))
	}
	if f.Entries[0].ID != "123" || f.Entries[0].Content.Body != "Hi" {
		t.Errorf("Unexpected first entry: %+v", f.Entries[0])
	}
	if f.Entries[0].Copyright != "(c) Example" {
		t.Errorf("Expected inherited copyright, got: %s", f.Entries[0].Copyright)
	}
	if f.Entries[1].Content.Body != "<p>Full text</p>" {
		t.Errorf("Expected encoded content, got: %s", f.Entries[1].Content.Body)
	}
}

func TestLiberalCopyrightFallback(t *testing.T) {
	data := `<feed><title>T</title><rights>CC-BY</rights></feed>`

	f, err := liberalOnly().Run(context.Background(), []byte(data))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if f.Copyright != "CC-BY" {
		t.Errorf("Expected copyright 'CC-BY', got: %s", f.Copyright)
	}
}

func TestLiberalPlainImage(t *testing.T) {
	data := `<rss><channel><image>http://img/y.png</image></channel></rss>`

	f, err := liberalOnly().Run(context.Background(), []byte(data))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if f.Image != "http://img/y.png" {
		t.Errorf("Expected image unchanged, got: %s", f.Image)
	}
}

func TestLiberalRejectsNonFeeds(t *testing.T) {
	inputs := []string{
		"<not valid xml",
		"<html><body>Not a feed</body></html>",
		"",
	}

	for _, input := range inputs {
		if _, err := NewLiberal(PriorityLiberal).Attempt(context.Background(), []byte(input)); err == nil {
			t.Errorf("Expected error for %q", input)
		}
	}
}

func TestPersonValue(t *testing.T) {
	tests := []struct {
		inner    string
		expected string
	}{
		{"jane@ex.com (Jane)", "jane@ex.com (Jane)"},
		{"<name>Jane</name>", "Jane"},
		{"<name>Jane</name><email>jane@ex.com</email>", "jane@ex.com (Jane)"},
		{"<![CDATA[Joe]]>", "Joe"},
	}

	for _, tt := range tests {
		if got := personValue(tt.inner); got != tt.expected {
			t.Errorf("personValue(%q): expected '%s', got '%s'", tt.inner, tt.expected, got)
		}
	}
}

func TestLiberalIgnoresNestedChannelBlocks(t *testing.T) {
	data := `<rss><channel>
<title>Ex</title>
<link>http://ex.com</link>
<image><url>http://img/x.png</url><title>Ex Logo</title><link>http://ex.com/img</link></image>
<textInput><title>Search</title><description>Search the site</description><name>q</name><link>http://ex.com/search</link></textInput>
<description>Channel text</description>
<item><title>One</title><link>http://ex.com/1</link></item>
</channel></rss>`

	f, err := liberalOnly().Run(context.Background(), []byte(data))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !reflect.DeepEqual(f.URLs, []string{"http://ex.com"}) {
		t.Errorf("Expected channel link only, got: %v", f.URLs)
	}
	if f.Title != "Ex" {
		t.Errorf("Expected channel title 'Ex', got: %s", f.Title)
	}
	if f.Description != "Channel text" {
		t.Errorf("Expected channel description, got: %s", f.Description)
	}
	if f.Image != "http://img/x.png" {
		t.Errorf("Expected image URL, got: %s", f.Image)
	}
	if len(f.Entries) != 1 || !reflect.DeepEqual(f.Entries[0].URLs, []string{"http://ex.com/1"}) {
		t.Errorf("Unexpected entries: %+v", f.Entries)
	}
}
