package render

import (
	"html"
	"html/template"
	"strings"
)

type blockKind int

const (
	blockParagraph blockKind = iota
	blockHeading
	blockList
	blockCode
)

type block struct {
	kind  blockKind
	level int
	lines []string
}

// Markdown renders the small Markdown subset used in agent file excerpts:
// fenced code, inline code, headings 1-4, bold, italic, unordered lists and
// line breaks. The source is HTML-escaped before it is parsed, so the only
// markup in the result is the fixed set of tags emitted here.
func Markdown(src string) template.HTML {
	var b strings.Builder
	for _, blk := range parseBlocks(html.EscapeString(src)) {
		blk.write(&b)
	}
	return template.HTML(b.String())
}

func parseBlocks(src string) []block {
	lines := strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")

	var blocks []block
	var cur *block
	flush := func() {
		if cur != nil {
			blocks = append(blocks, *cur)
			cur = nil
		}
	}

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		switch {
		case strings.HasPrefix(line, "```"):
			flush()
			code := block{kind: blockCode}
			for i++; i < len(lines) && !strings.HasPrefix(strings.TrimSpace(lines[i]), "```"); i++ {
				code.lines = append(code.lines, lines[i])
			}
			blocks = append(blocks, code)
		case line == "":
			flush()
		case headingLevel(line) > 0:
			flush()
			level := headingLevel(line)
			blocks = append(blocks, block{kind: blockHeading, level: level, lines: []string{strings.TrimSpace(line[level:])}})
		case strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* "):
			if cur == nil || cur.kind != blockList {
				flush()
				cur = &block{kind: blockList}
			}
			cur.lines = append(cur.lines, strings.TrimSpace(line[2:]))
		default:
			if cur == nil || cur.kind != blockParagraph {
				flush()
				cur = &block{kind: blockParagraph}
			}
			cur.lines = append(cur.lines, line)
		}
	}
	flush()
	return blocks
}

// headingLevel returns 1-4 for "# text" through "#### text", else 0. line is
// already trimmed, so a marker followed by a blank has text after it.
func headingLevel(line string) int {
	n := 0
	for n < len(line) && line[n] == '#' {
		n++
	}
	if n == 0 || n > 4 || n == len(line) {
		return 0
	}
	if line[n] != ' ' && line[n] != '\t' {
		return 0
	}
	return n
}

func (blk block) write(b *strings.Builder) {
	switch blk.kind {
	case blockCode:
		b.WriteString("<pre><code>")
		b.WriteString(strings.Join(blk.lines, "\n"))
		b.WriteString("</code></pre>")
	case blockHeading:
		tag := "h" + string(rune('0'+blk.level))
		b.WriteString("<" + tag + ">")
		writeInline(b, blk.lines[0])
		b.WriteString("</" + tag + ">")
	case blockList:
		b.WriteString("<ul>")
		for _, item := range blk.lines {
			b.WriteString("<li>")
			writeInline(b, item)
			b.WriteString("</li>")
		}
		b.WriteString("</ul>")
	default:
		b.WriteString("<p>")
		for i, line := range blk.lines {
			if i > 0 {
				b.WriteString("<br>")
			}
			writeInline(b, line)
		}
		b.WriteString("</p>")
	}
}

func writeInline(b *strings.Builder, s string) {
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '`':
			if j := strings.IndexByte(s[i+1:], '`'); j >= 0 {
				b.WriteString("<code>")
				b.WriteString(s[i+1 : i+1+j])
				b.WriteString("</code>")
				i += j + 2
				continue
			}
		case c == '*' && strings.HasPrefix(s[i:], "**"):
			if j := strings.Index(s[i+2:], "**"); j > 0 {
				b.WriteString("<strong>")
				writeInline(b, s[i+2:i+2+j])
				b.WriteString("</strong>")
				i += j + 4
				continue
			}
		case c == '*' || c == '_':
			if j := closingEmphasis(s, i); j > 0 {
				b.WriteString("<em>")
				writeInline(b, s[i+1:j])
				b.WriteString("</em>")
				i = j + 1
				continue
			}
		}
		b.WriteByte(c)
		i++
	}
}

// closingEmphasis finds the marker closing the emphasis opened at s[open],
// or -1. Code spans and "**" pairs are stepped over whole, so the closer is
// never one half of a nested construct. Underscores only count at word
// boundaries so snake_case survives.
func closingEmphasis(s string, open int) int {
	m := s[open]
	if open+1 >= len(s) || s[open+1] == ' ' || s[open+1] == m {
		return -1
	}
	if m == '_' && open > 0 && isWordByte(s[open-1]) {
		return -1
	}
	for j := open + 1; j < len(s); j++ {
		switch {
		case s[j] == '`':
			if k := strings.IndexByte(s[j+1:], '`'); k >= 0 {
				j += k + 1
			}
			continue
		case s[j] == '*' && j+1 < len(s) && s[j+1] == '*':
			j++
			continue
		}
		if s[j] != m || s[j-1] == ' ' {
			continue
		}
		if m == '_' && j+1 < len(s) && isWordByte(s[j+1]) {
			continue
		}
		return j
	}
	return -1
}

func isWordByte(c byte) bool {
	return c >= 0x80 || c == '_' ||
		(c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
