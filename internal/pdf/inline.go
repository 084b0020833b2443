package pdf

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// segment is a run of inline text with uniform styling.
type segment struct {
	Text string
	Bold bool
	URL  string
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.Linkify))

// Markers that would turn a lone line into a list, heading or quote.
var (
	orderedMarker = regexp.MustCompile(`^(\s*\d{1,9})([.)])(\s|$)`)
	blockMarker   = regexp.MustCompile(`^(\s*)([-+*#])(\s|$|#)`)
	quoteMarker   = regexp.MustCompile(`^(\s*)>`)
)

// escapeBlockMarkers keeps a line's leading marker as literal text.
func escapeBlockMarkers(line string) string {
	line = orderedMarker.ReplaceAllString(line, `$1\$2$3`)
	line = blockMarker.ReplaceAllString(line, `$1\$2$3`)
	return quoteMarker.ReplaceAllString(line, `$1\>`)
}

// parseInline splits one line into styled segments. Emphasis of any level is
// bold; links and bare URLs carry their target. The line is never read as a
// block, so "1. Giraffe Centre" keeps its number.
func parseInline(line string) []segment {
	src := []byte(escapeBlockMarkers(line))
	doc := markdown.Parser().Parse(text.NewReader(src))

	var (
		segs []segment
		bold int
	)
	push := func(s segment) {
		if s.Text == "" {
			return
		}
		if n := len(segs); n > 0 && segs[n-1].URL == "" && s.URL == "" && segs[n-1].Bold == s.Bold {
			segs[n-1].Text += s.Text
			return
		}
		segs = append(segs, s)
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Emphasis:
			if entering {
				bold++
			} else {
				bold--
			}
		case *ast.Link:
			if entering {
				push(segment{Text: nodeText(node, src), Bold: bold > 0, URL: string(node.Destination)})
				return ast.WalkSkipChildren, nil
			}
		case *ast.AutoLink:
			if entering {
				url := string(node.URL(src))
				if node.AutoLinkType == ast.AutoLinkURL && !strings.Contains(url, "://") {
					url = "http://" + url
				}
				push(segment{Text: string(node.Label(src)), Bold: bold > 0, URL: url})
			}
		case *ast.Text:
			if entering {
				t := string(node.Segment.Value(src))
				if node.SoftLineBreak() || node.HardLineBreak() {
					t += " "
				}
				push(segment{Text: t, Bold: bold > 0})
			}
		case *ast.String:
			if entering {
				push(segment{Text: string(node.Value), Bold: bold > 0})
			}
		}
		return ast.WalkContinue, nil
	})

	for i := range segs {
		segs[i].Text = string(util.UnescapePunctuations([]byte(segs[i].Text)))
	}
	if len(segs) == 0 && strings.TrimSpace(line) != "" {
		segs = append(segs, segment{Text: line})
	}
	return segs
}

func nodeText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
