package chat

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// titlePatterns are tried in order against the raw utterance; the first
// pattern whose capture survives cleanup wins.
var titlePatterns = []*regexp.Regexp{
	// "add a task called Buy groceries", "create todo: fix the sink"
	regexp.MustCompile(`(?i)(?:add|create|new|make)\s+(?:a|an|the)?\s*(?:task|todo|reminder)?\s*(?:called|named|for|to)?\s*[:"']?\s*([^"'.!?\n]+?)(?:"|'|\.|!|\?|\n|$)`),
	// "add Buy groceries to my task list"
	regexp.MustCompile(`(?i)(?:add|create)\s+["']?([^"']+?)["']?\s+(?:to|in|as|on|for|my)\s+(?:task|tasks|todo|list|todos)`),
	// "task: water the plants", "todo - call mom". The lazy capture stops at
	// the first whitespace, so this usually yields a one-word hint for the
	// matcher rather than a full title.
	regexp.MustCompile(`(?i)(?:task|todo|reminder)[:\s=-]+(.+?)(?:\s|[.!?]|$)`),
	// "please add water the plants"
	regexp.MustCompile(`(?i)^(?:please\s+)?(?:add|create|put)\s+(.+?)(?:\s+to\s+my\s+(?:task|todo|list))?$`),
	// "water the plants to my list"
	regexp.MustCompile(`(?i)(.+?)\s+(?:to|in|on|for)\s+my\s+(?:task|todo|list|todos)`),
}

// actionVerbs feed the positional fallback: everything after the first verb
// occurrence becomes the candidate title.
var actionVerbs = []string{
	"add", "create", "make", "new", "put",
	"schedule", "remind", "update", "change", "rename",
}

// strayWords are captures too generic to be a title on their own.
var strayWords = map[string]bool{
	"a": true, "an": true, "the": true, "to": true, "for": true, "with": true,
}

// ExtractTitle pulls a task title out of an utterance. It tries the
// titlePatterns in order, then falls back to taking the text after the
// first action verb. Returns "" when no plausible title is found.
func ExtractTitle(utterance string) string {
	text := strings.TrimSpace(utterance)
	if text == "" {
		return ""
	}

	for _, pattern := range titlePatterns {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if title := cleanTitle(m[1]); title != "" {
			return title
		}
	}

	return fallbackTitle(text)
}

// fallbackTitle takes everything after the first action verb, strips a
// leading article or task/todo word, and capitalizes the result.
func fallbackTitle(text string) string {
	lower := strings.ToLower(text)
	for _, verb := range actionVerbs {
		idx := strings.Index(lower, verb)
		if idx < 0 {
			continue
		}
		candidate := strings.TrimSpace(text[idx+len(verb):])
		for _, prefix := range []string{"a ", "an ", "the ", "task ", "todo "} {
			if len(candidate) > len(prefix) &&
				strings.EqualFold(candidate[:len(prefix)], prefix) {
				candidate = strings.TrimSpace(candidate[len(prefix):])
			}
		}
		if title := cleanTitle(candidate); title != "" {
			return capitalize(title)
		}
	}
	return ""
}

// cleanTitle trims quotes and whitespace and rejects captures that are too
// short or are a lone stray word.
func cleanTitle(raw string) string {
	title := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), `"'`))
	if utf8.RuneCountInString(title) < 2 {
		return ""
	}
	if strayWords[strings.ToLower(title)] {
		return ""
	}
	return title
}

// capitalize upper-cases the first rune, leaving the rest untouched.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
