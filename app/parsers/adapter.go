package parsers

import (
	"fmt"
	"strings"
)

// Adapter names, also used as keys in the parsers configuration file.
const (
	NameRSS       = "rss"
	NameAtom      = "atom"
	NameUniversal = "universal"
	NameLiberal   = "liberal"
)

// Default priorities: strict, fast parsers first, the liberal scanner last.
const (
	PriorityRSS       = 100
	PriorityAtom      = 200
	PriorityUniversal = 500
	PriorityLiberal   = 900
)

type adapter struct {
	name     string
	priority int
}

func (a adapter) Name() string {
	return a.name
}

func (a adapter) Priority() int {
	return a.priority
}

func formatAuthor(name, email string) string {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if name != "" && email != "" {
		return fmt.Sprintf("%s (%s)", email, name)
	} else if name != "" {
		return name
	} else if email != "" {
		return email
	}

	return ""
}
