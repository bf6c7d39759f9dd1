package aggregate

import (
	"errors"
	"fmt"
	"html"
	"strings"
)

const (
	openPrefix = `<file path="`
	openSuffix = "\">\n"
	closeMark  = "</file>"
	closeTag   = closeMark + "\n"
)

// FormatBlock wraps content in a file block:
//
//	<file path="/abs/path">
//	content
//	</file>
//
// A newline is added before the closing tag when content does not end in one.
// The path attribute is HTML-escaped. A content line made of backslashes
// followed by "</file>" gets one more leading backslash, so the only bare
// "</file>" line in a block is its closing tag.
func FormatBlock(path, content string) string {
	content = escapeContent(content)
	var b strings.Builder
	b.Grow(len(openPrefix) + len(path) + len(openSuffix) + len(content) + len(closeTag) + 1)
	b.WriteString(openPrefix)
	b.WriteString(html.EscapeString(path))
	b.WriteString(openSuffix)
	b.WriteString(content)
	if !strings.HasSuffix(content, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString(closeTag)
	return b.String()
}

// ErrMalformedView is returned by ParseView for input that is not a sequence of file blocks.
var ErrMalformedView = errors.New("malformed view")

// ParsedBlock is one file block recovered from a view.
type ParsedBlock struct {
	Path    string
	Content string
}

// ParseView splits a view produced by concatenating FormatBlock output back into
// its blocks. Content keeps its trailing newline and has the escaping of
// FormatBlock undone.
func ParseView(view string) ([]ParsedBlock, error) {
	var blocks []ParsedBlock
	rest := view
	for rest != "" {
		if !strings.HasPrefix(rest, openPrefix) {
			return nil, fmt.Errorf("%w: expected %q at offset %d", ErrMalformedView, openPrefix, len(view)-len(rest))
		}
		rest = rest[len(openPrefix):]
		end := strings.Index(rest, openSuffix)
		if end < 0 {
			return nil, fmt.Errorf("%w: unterminated path attribute", ErrMalformedView)
		}
		p := html.UnescapeString(rest[:end])
		rest = rest[end+len(openSuffix):]

		var content string
		if strings.HasPrefix(rest, closeTag) {
			return nil, fmt.Errorf("%w: block for %s has no content line", ErrMalformedView, p)
		}
		idx := strings.Index(rest, "\n"+closeTag)
		if idx < 0 {
			return nil, fmt.Errorf("%w: block for %s is not closed", ErrMalformedView, p)
		}
		content = unescapeContent(rest[:idx+1])
		rest = rest[idx+1+len(closeTag):]
		blocks = append(blocks, ParsedBlock{Path: p, Content: content})
	}
	return blocks, nil
}

// isCloseLine reports whether line is zero or more backslashes followed by "</file>".
func isCloseLine(line string) bool {
	prefix, ok := strings.CutSuffix(line, closeMark)
	return ok && strings.Trim(prefix, `\`) == ""
}

func escapeContent(content string) string {
	if !strings.Contains(content, closeMark) {
		return content
	}
	lines := strings.SplitAfter(content, "\n")
	for i, l := range lines {
		if isCloseLine(strings.TrimSuffix(l, "\n")) {
			lines[i] = `\` + l
		}
	}
	return strings.Join(lines, "")
}

func unescapeContent(content string) string {
	if !strings.Contains(content, closeMark) {
		return content
	}
	lines := strings.SplitAfter(content, "\n")
	for i, l := range lines {
		if strings.HasPrefix(l, `\`) && isCloseLine(strings.TrimSuffix(l, "\n")) {
			lines[i] = l[1:]
		}
	}
	return strings.Join(lines, "")
}
