package notifier

import (
	"strings"
	"unicode/utf8"
)

// splitMessage breaks text into pieces of at most limit runes, preferring
// line breaks. A single overlong line is cut without splitting an HTML tag
// or entity.
func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	var chunks []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if s := strings.TrimRight(cur.String(), "\n"); strings.TrimSpace(s) != "" {
			chunks = append(chunks, s)
		}
		cur.Reset()
		curLen = 0
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		n := utf8.RuneCountInString(line)
		if curLen+n > limit {
			flush()
		}
		for n > limit {
			head := cutHTML(line, limit)
			chunks = append(chunks, head)
			line = line[len(head):]
			n = utf8.RuneCountInString(line)
		}
		cur.WriteString(line)
		curLen += n
	}
	flush()
	return chunks
}

// cutHTML returns the longest prefix of s with at most limit runes that does
// not end inside a tag or an entity.
func cutHTML(s string, limit int) string {
	end, runes := 0, 0
	for i := range s {
		if runes == limit {
			end = i
			break
		}
		runes++
		end = len(s)
	}
	head := s[:end]
	if lt := strings.LastIndexByte(head, '<'); lt > strings.LastIndexByte(head, '>') {
		head = head[:lt]
	}
	if amp := strings.LastIndexByte(head, '&'); amp > strings.LastIndexByte(head, ';') {
		head = head[:amp]
	}
	if head == "" {
		// A malformed tag or entity longer than the limit; cut it anyway.
		head = s[:end]
	}
	return head
}

// truncateHTML shortens an HTML fragment to at most limit bytes. It never
// cuts inside a tag or entity and closes any tags left open.
func truncateHTML(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	const ellipsis = "..."
	var out strings.Builder
	var open []string
	closing := func() int {
		n := 0
		for _, tag := range open {
			n += len(tag) + 3
		}
		return n
	}
	for i := 0; i < len(s); {
		token := s[i : i+1]
		switch s[i] {
		case '<':
			if j := strings.IndexByte(s[i:], '>'); j > 0 {
				token = s[i : i+j+1]
			}
		case '&':
			if j := strings.IndexByte(s[i:], ';'); j > 0 && j < 10 {
				token = s[i : i+j+1]
			}
		default:
			_, size := utf8.DecodeRuneInString(s[i:])
			token = s[i : i+size]
		}
		name, closingTag := tagName(token)
		extra := 0
		if name != "" && !closingTag {
			extra = len(name) + 3
		}
		if out.Len()+len(token)+extra+closing()+len(ellipsis) > limit {
			break
		}
		out.WriteString(token)
		if name != "" {
			if closingTag {
				if k := len(open) - 1; k >= 0 && open[k] == name {
					open = open[:k]
				}
			} else {
				open = append(open, name)
			}
		}
		i += len(token)
	}
	out.WriteString(ellipsis)
	for k := len(open) - 1; k >= 0; k-- {
		out.WriteString("</" + open[k] + ">")
	}
	return out.String()
}

// tagName reports the element name of an HTML tag token.
func tagName(token string) (name string, closing bool) {
	if len(token) < 3 || token[0] != '<' || token[len(token)-1] != '>' {
		return "", false
	}
	body := token[1 : len(token)-1]
	if strings.HasPrefix(body, "/") {
		closing = true
		body = body[1:]
	}
	if i := strings.IndexAny(body, " \t"); i >= 0 {
		body = body[:i]
	}
	return strings.ToLower(body), closing
}
