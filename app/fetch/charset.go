package fetch

import (
	"fmt"
	"mime"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

var (
	xmlEncodingPattern = regexp.MustCompile(`(?i)^\s*<\?xml[^>]*?encoding\s*=\s*["']([^"']+)["']`)
	xmlEncodingRewrite = regexp.MustCompile(`(?i)^(\s*<\?xml[^>]*?encoding\s*=\s*["'])[^"']+(["'])`)
)

// toUTF8 decodes body using the charset from the Content-Type header, or the
// XML declaration when the header has none. Unknown charsets leave the body
// untouched.
func toUTF8(body []byte, contentType string) ([]byte, error) {
	label := charsetFromContentType(contentType)
	if label == "" {
		label = charsetFromXMLDeclaration(body)
	}
	if label == "" {
		return body, nil
	}

	enc, err := htmlindex.Get(label)
	if err != nil {
		return body, nil
	}

	if name, _ := htmlindex.Name(enc); name == "utf-8" {
		return body, nil
	}

	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s body: %w", label, err)
	}

	return xmlEncodingRewrite.ReplaceAll(decoded, []byte("${1}utf-8${2}")), nil
}

func charsetFromContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(params["charset"])
}

func charsetFromXMLDeclaration(body []byte) string {
	m := xmlEncodingPattern.FindSubmatch(body)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(string(m[1]))
}
