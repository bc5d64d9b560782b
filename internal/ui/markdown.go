// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ui

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// BlockKind identifies a block produced by ParseSynthesis.
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockList
	BlockBreak
)

// Block is one top-level element of formatted synthesis text. Text and
// Items hold escaped inline HTML (only <strong> is introduced).
type Block struct {
	Kind  BlockKind
	Text  string
	Items []string
}

var (
	boldPattern     = regexp.MustCompile(`\*\*(.*?)\*\*`)
	numberedPattern = regexp.MustCompile(`^\d+\.\s`)
	bulletPattern   = regexp.MustCompile(`^[-*]\s`)
)

// ParseSynthesis splits text into paragraphs, bullet lists and breaks.
// Lines starting with "- ", "* " or "N. " are bullets; consecutive bullets
// share one list. A blank line closes any open list and adds a break.
func ParseSynthesis(text string) []Block {
	var (
		blocks []Block
		list   *Block
	)
	closeList := func() {
		if list != nil {
			blocks = append(blocks, *list)
			list = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		clean := strings.TrimSpace(line)
		if clean == "" {
			closeList()
			blocks = append(blocks, Block{Kind: BlockBreak})
			continue
		}

		clean = boldPattern.ReplaceAllString(html.EscapeString(clean), "<strong>$1</strong>")

		if isBullet(clean) {
			if list == nil {
				list = &Block{Kind: BlockList}
			}
			item := bulletPattern.ReplaceAllString(clean, "")
			item = numberedPattern.ReplaceAllString(item, "")
			list.Items = append(list.Items, item)
			continue
		}

		closeList()
		blocks = append(blocks, Block{Kind: BlockParagraph, Text: clean})
	}
	closeList()
	return blocks
}

func isBullet(line string) bool {
	return strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") || numberedPattern.MatchString(line)
}

// FormatSynthesis renders the markdown subset as HTML. It is a pure
// function of text.
func FormatSynthesis(text string) string {
	var b strings.Builder
	for _, block := range ParseSynthesis(text) {
		switch block.Kind {
		case BlockBreak:
			b.WriteString("<br>")
		case BlockList:
			b.WriteString(`<ul class="synthesis-list">`)
			for _, item := range block.Items {
				b.WriteString("<li>")
				b.WriteString(item)
				b.WriteString("</li>")
			}
			b.WriteString("</ul>")
		default:
			b.WriteString("<p>")
			b.WriteString(block.Text)
			b.WriteString("</p>")
		}
	}
	return b.String()
}

// PlainHTML escapes text for display as-is, keeping line breaks.
func PlainHTML(text string) string {
	return strings.ReplaceAll(html.EscapeString(text), "\n", "<br>")
}

// ErrorHTML renders msg as an error notice.
func ErrorHTML(msg string) string {
	return `<span class="error">` + html.EscapeString(msg) + `</span>`
}
