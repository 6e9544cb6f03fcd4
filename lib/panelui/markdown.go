// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

package panelui

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/facet-analytics/facet/lib/tui"
)

// markdownParserInstance is initialized once and reused. The parser
// configuration never changes and the goldmark Parser is safe to
// share; parsing creates per-call state via Parse(reader).
var (
	markdownParserInstance goldmark.Markdown
	markdownParserOnce     sync.Once
)

func getMarkdownParser() goldmark.Markdown {
	markdownParserOnce.Do(func() {
		markdownParserInstance = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		)
	})
	return markdownParserInstance
}

// renderDescription parses a chart description as markdown and
// renders it as styled terminal text. Soft line breaks become spaces
// so hard-wrapped source reflows at any panel width. Descriptions are
// a few paragraphs at most; the supported structure is paragraphs,
// headings, emphasis, lists, code, and links. Tables and raw HTML
// degrade to their text content.
func renderDescription(input string, theme tui.Theme, width int) string {
	if input == "" {
		return ""
	}
	source := []byte(input)
	document := getMarkdownParser().Parser().Parse(text.NewReader(source))

	// Force the ANSI256 profile: this output is always for terminal
	// display, and auto-detection produces uncolored output in test
	// environments with no TTY.
	lipRenderer := lipgloss.NewRenderer(os.Stderr, termenv.WithProfile(termenv.ANSI256))
	lipRenderer.SetColorProfile(termenv.ANSI256)

	renderer := &descriptionRenderer{
		source:      source,
		theme:       theme,
		width:       width,
		lipRenderer: lipRenderer,
	}
	ast.Walk(document, renderer.walk)
	return strings.TrimRight(renderer.output.String(), "\n")
}

// descriptionRenderer walks a goldmark AST with accumulate-then-wrap
// semantics: inline content collects in a buffer and gets word-wrapped
// as a unit when its containing block closes.
type descriptionRenderer struct {
	source []byte
	theme  tui.Theme
	width  int

	output strings.Builder
	inline strings.Builder

	// Inline style counters; counters rather than booleans so nested
	// emphasis unwinds correctly.
	boldCount   int
	italicCount int
	strikeCount int

	// List nesting: indent is two spaces per level, bullet pending
	// for the first line of the current item.
	listDepth     int
	orderedCounts []int
	pendingBullet string

	lipRenderer *lipgloss.Renderer
}

func (renderer *descriptionRenderer) newStyle() lipgloss.Style {
	return renderer.lipRenderer.NewStyle()
}

func (renderer *descriptionRenderer) contentWidth() int {
	width := renderer.width - 2*renderer.listDepth
	if width < 10 {
		width = 10
	}
	return width
}

func (renderer *descriptionRenderer) indent() string {
	return strings.Repeat("  ", renderer.listDepth)
}

// writeBlock word-wraps content to the current width, indents each
// line, and appends it to the output followed by a newline. The
// pending bullet replaces the indent on the first line.
func (renderer *descriptionRenderer) writeBlock(content string) {
	if content == "" {
		return
	}
	wrapped := ansi.Wrap(content, renderer.contentWidth(), " ,.;-+|")
	for index, line := range strings.Split(wrapped, "\n") {
		if index == 0 && renderer.pendingBullet != "" {
			renderer.output.WriteString(renderer.pendingBullet)
			renderer.pendingBullet = ""
		} else {
			renderer.output.WriteString(renderer.indent())
		}
		renderer.output.WriteString(line)
		renderer.output.WriteString("\n")
	}
}

func (renderer *descriptionRenderer) styledText(content string) string {
	style := renderer.newStyle().Foreground(renderer.theme.NormalText)
	if renderer.boldCount > 0 {
		style = style.Bold(true)
	}
	if renderer.italicCount > 0 {
		style = style.Italic(true)
	}
	if renderer.strikeCount > 0 {
		style = style.Strikethrough(true)
	}
	return style.Render(content)
}

func (renderer *descriptionRenderer) walk(node ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node.Kind() {

	case ast.KindParagraph, ast.KindTextBlock:
		if entering {
			renderer.inline.Reset()
		} else {
			content := renderer.inline.String()
			renderer.inline.Reset()
			renderer.writeBlock(content)
			if renderer.listDepth == 0 {
				renderer.output.WriteString("\n")
			}
		}

	case ast.KindHeading:
		if entering {
			renderer.inline.Reset()
		} else {
			content := ansi.Strip(renderer.inline.String())
			renderer.inline.Reset()
			if content != "" {
				style := renderer.newStyle().Bold(true).
					Foreground(renderer.theme.HeaderForeground)
				renderer.writeBlock(style.Render(content))
				renderer.output.WriteString("\n")
			}
		}

	case ast.KindFencedCodeBlock:
		if entering {
			renderer.renderFencedCode(node.(*ast.FencedCodeBlock))
			return ast.WalkSkipChildren, nil
		}

	case ast.KindList:
		if entering {
			list := node.(*ast.List)
			start := 0
			if list.IsOrdered() {
				start = list.Start
			}
			renderer.orderedCounts = append(renderer.orderedCounts, start)
		} else {
			renderer.orderedCounts = renderer.orderedCounts[:len(renderer.orderedCounts)-1]
			if renderer.listDepth == 0 {
				renderer.output.WriteString("\n")
			}
		}

	case ast.KindListItem:
		if entering {
			top := len(renderer.orderedCounts) - 1
			bullet := "- "
			if renderer.orderedCounts[top] > 0 {
				bullet = fmt.Sprintf("%d. ", renderer.orderedCounts[top])
				renderer.orderedCounts[top]++
			}
			renderer.pendingBullet = renderer.indent() + bullet
			renderer.listDepth++
		} else {
			renderer.listDepth--
			renderer.pendingBullet = ""
		}

	case ast.KindText:
		if entering {
			textNode := node.(*ast.Text)
			renderer.inline.WriteString(renderer.styledText(
				string(textNode.Segment.Value(renderer.source))))
			if textNode.SoftLineBreak() {
				renderer.inline.WriteString(" ")
			}
			if textNode.HardLineBreak() {
				renderer.inline.WriteString("\n")
			}
		}

	case ast.KindString:
		if entering {
			renderer.inline.WriteString(renderer.styledText(
				string(node.(*ast.String).Value)))
		}

	case ast.KindEmphasis:
		emphasis := node.(*ast.Emphasis)
		delta := 1
		if !entering {
			delta = -1
		}
		if emphasis.Level >= 2 {
			renderer.boldCount += delta
		} else {
			renderer.italicCount += delta
		}

	case extast.KindStrikethrough:
		if entering {
			renderer.strikeCount++
		} else {
			renderer.strikeCount--
		}

	case ast.KindCodeSpan:
		if entering {
			renderer.renderCodeSpan(node)
			return ast.WalkSkipChildren, nil
		}

	case ast.KindLink:
		if entering {
			link := node.(*ast.Link)
			label := renderer.collectInline(link)
			renderer.inline.WriteString(label)
			if url := string(link.Destination); url != "" {
				faint := renderer.newStyle().Foreground(renderer.theme.FaintText)
				renderer.inline.WriteString(" " + faint.Render("("+url+")"))
			}
			return ast.WalkSkipChildren, nil
		}

	case ast.KindAutoLink:
		if entering {
			faint := renderer.newStyle().Foreground(renderer.theme.FaintText)
			renderer.inline.WriteString(faint.Render(
				string(node.(*ast.AutoLink).URL(renderer.source))))
		}
	}

	return ast.WalkContinue, nil
}

// collectInline renders a node's children into a string, preserving
// the caller's inline buffer and style state.
func (renderer *descriptionRenderer) collectInline(node ast.Node) string {
	savedInline := renderer.inline.String()
	savedBold, savedItalic, savedStrike := renderer.boldCount, renderer.italicCount, renderer.strikeCount

	renderer.inline.Reset()
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		ast.Walk(child, renderer.walk)
	}
	result := renderer.inline.String()

	renderer.inline.Reset()
	renderer.inline.WriteString(savedInline)
	renderer.boldCount, renderer.italicCount, renderer.strikeCount = savedBold, savedItalic, savedStrike
	return result
}

func (renderer *descriptionRenderer) renderCodeSpan(node ast.Node) {
	var code strings.Builder
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		switch child := child.(type) {
		case *ast.Text:
			code.Write(child.Segment.Value(renderer.source))
		case *ast.String:
			code.Write(child.Value)
		}
	}
	style := renderer.newStyle().Foreground(renderer.theme.FaintText)
	renderer.inline.WriteString(style.Render(code.String()))
}

// renderFencedCode highlights a code block with Chroma when the fence
// declares a known language, falling back to faint plain text.
func (renderer *descriptionRenderer) renderFencedCode(node *ast.FencedCodeBlock) {
	var code strings.Builder
	lines := node.Lines()
	for index := 0; index < lines.Len(); index++ {
		segment := lines.At(index)
		code.Write(segment.Value(renderer.source))
	}

	language := string(node.Language(renderer.source))
	highlighted := ""
	if language != "" {
		var buffer strings.Builder
		if err := quick.Highlight(&buffer, code.String(), language, "terminal256", "monokai"); err == nil {
			highlighted = buffer.String()
		}
	}
	if highlighted == "" {
		faint := renderer.newStyle().Foreground(renderer.theme.FaintText)
		highlighted = faint.Render(strings.TrimRight(code.String(), "\n"))
	}

	for _, line := range strings.Split(strings.TrimRight(highlighted, "\n"), "\n") {
		renderer.output.WriteString(renderer.indent())
		renderer.output.WriteString(line)
		renderer.output.WriteString("\n")
	}
	renderer.output.WriteString("\n")
}
