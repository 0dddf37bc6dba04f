package console

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sahilm/fuzzy"
)

const maxCompletions = 20

// Complete returns candidates for the identifier at the end of input, best
// match first. Candidates are evaluator names followed by history lines.
func (c *Console) Complete(input string) []string {
	word := lastWord(input)
	if word == "" {
		return nil
	}
	seen := map[string]bool{}
	var candidates []string
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			candidates = append(candidates, s)
		}
	}
	if c.names != nil {
		for _, name := range c.names() {
			add(name)
		}
	}
	if word == strings.TrimSpace(input) {
		entries := c.history.Entries()
		for i := len(entries) - 1; i >= 0; i-- {
			add(entries[i])
		}
	}

	matches := fuzzy.Find(strings.ToLower(word), lowered(candidates))
	out := make([]string, 0, min(len(matches), maxCompletions))
	for _, m := range matches {
		if len(out) == maxCompletions {
			break
		}
		out = append(out, candidates[m.Index])
	}
	return out
}

// ApplyCompletion replaces the word at the end of input with choice.
func ApplyCompletion(input, choice string) string {
	word := lastWord(input)
	return input[:len(input)-len(word)] + choice
}

func lastWord(input string) string {
	i := strings.LastIndexFunc(input, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})
	if i < 0 {
		return input
	}
	_, size := utf8.DecodeRuneInString(input[i:])
	return input[i+size:]
}

func lowered(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
