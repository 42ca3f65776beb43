package keywords

import (
	"strings"
	"unicode/utf8"
)

// Kind tells how a ranking response was understood.
type Kind int

const (
	// Empty means nothing usable was found.
	Empty Kind = iota
	// Structured means a bracketed list of string literals was parsed.
	Structured
	// Heuristic means phrases were recovered by the line scan.
	Heuristic
)

func (k Kind) String() string {
	switch k {
	case Structured:
		return "structured"
	case Heuristic:
		return "heuristic"
	default:
		return "empty"
	}
}

// kindOf maps a Kind's String form back to the Kind.
func kindOf(s string) Kind {
	switch s {
	case "structured":
		return Structured
	case "heuristic":
		return Heuristic
	default:
		return Empty
	}
}

// Parsed is the outcome of reading a ranking response.
type Parsed struct {
	Kind    Kind
	Phrases []string
}

const maxHeuristicPhrases = 10

// Parse extracts phrases from a free-form ranking response. The text between
// the first '[' and the last ']' is read as a list of quoted strings; when
// that fails the response is scanned line by line.
func Parse(text string) Parsed {
	if phrases, ok := parseList(text); ok {
		if len(phrases) == 0 {
			return Parsed{Kind: Empty}
		}
		return Parsed{Kind: Structured, Phrases: phrases}
	}
	phrases := scanLines(text)
	if len(phrases) == 0 {
		return Parsed{Kind: Empty}
	}
	return Parsed{Kind: Heuristic, Phrases: phrases}
}

func parseList(text string) ([]string, bool) {
	flat := strings.ReplaceAll(text, "\n", " ")
	start := strings.Index(flat, "[")
	end := strings.LastIndex(flat, "]")
	if start < 0 || end < start {
		return nil, false
	}
	body := flat[start+1 : end]
	var out []string
	i := 0
	// A trailing comma before ']' is accepted.
	expectItem := true
	for {
		for i < len(body) && (body[i] == ' ' || body[i] == '\t' || body[i] == '\r') {
			i++
		}
		if i >= len(body) {
			break
		}
		if !expectItem {
			if body[i] != ',' {
				return nil, false
			}
			i++
			expectItem = true
			continue
		}
		q := body[i]
		if q != '"' && q != '\'' {
			return nil, false
		}
		s, n, ok := readQuoted(body[i:], q)
		if !ok {
			return nil, false
		}
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
		i += n
		expectItem = false
	}
	return out, true
}

// readQuoted reads a literal starting at s[0] == q and returns its value and
// the number of bytes consumed.
func readQuoted(s string, q byte) (string, int, bool) {
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s):
			i++
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(s[i])
			}
		case c == q:
			return b.String(), i + 1, true
		default:
			b.WriteByte(c)
		}
	}
	return "", 0, false
}

func scanLines(text string) []string {
	var out []string
	seen := map[string]struct{}{}
	add := func(s string) {
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if utf8.RuneCountInString(line) <= 4 || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.Contains(line, `"`) {
			parts := strings.Split(line, `"`)
			for i := 1; i < len(parts); i += 2 {
				if p := strings.TrimSpace(parts[i]); p != "" {
					add(p)
				}
			}
			continue
		}
		if utf8.RuneCountInString(line) < 30 && !strings.HasPrefix(line, "[") && !strings.HasSuffix(line, "]") {
			add(line)
		}
	}
	if len(out) > maxHeuristicPhrases {
		out = out[:maxHeuristicPhrases]
	}
	return out
}
