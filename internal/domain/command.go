package domain

import "strings"

type ActionKind string

const (
	ActionOpenURL ActionKind = "open_url"
	ActionSay     ActionKind = "say"
	ActionStop    ActionKind = "stop"
	ActionSearch  ActionKind = "search"
)

// TextCommandPrefix is the marker used to indicate text commands (vs audio)
const TextCommandPrefix = "__TEXT__:"

// Trigger binds a phrase to the action performed when a command contains it.
// For ActionSearch, URL is the prefix the follow-up text is appended to and
// Suffix is appended after it.
type Trigger struct {
	Phrase  string
	Kind    ActionKind
	Message string
	URL     string
	Suffix  string
}

func (t Trigger) Matches(command string) bool {
	return strings.Contains(command, t.Phrase)
}

// SearchURL builds the target of a search trigger. The query is used verbatim.
func (t Trigger) SearchURL(query string) string {
	return t.URL + query + t.Suffix
}

// DefaultTriggers returns the command table in priority order.
func DefaultTriggers() []Trigger {
	return []Trigger{
		{
			Phrase:  "play music",
			Kind:    ActionOpenURL,
			Message: "Playing music now",
			URL:     "https://www.spotify.com",
		},
		{
			Phrase:  "stop",
			Kind:    ActionStop,
			Message: "OK stopping now",
		},
		{
			Phrase:  "tell me a joke",
			Kind:    ActionSay,
			Message: "Why don't scientists trust atoms? Because they make up everything!",
		},
		{
			Phrase:  "search video",
			Kind:    ActionSearch,
			Message: "What video should I search for?",
			URL:     "https://www.youtube.com/results?search_query=",
		},
		{
			Phrase:  "find recipe",
			Kind:    ActionSearch,
			Message: "What is the recipe?",
			URL:     "https://www.google.com/search?q=",
			Suffix:  "+recipe",
		},
		{
			Phrase:  "read book",
			Kind:    ActionSearch,
			Message: "What is the name of the book?",
			URL:     "https://www.gutenberg.org/ebooks/search/?query=",
		},
		{
			Phrase:  "news",
			Kind:    ActionOpenURL,
			Message: "Opening news",
			URL:     "https://www.bbc.com/news",
		},
	}
}
