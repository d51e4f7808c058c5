package render

import (
	"fmt"
	"strings"

	"github.com/russross/blackfriday/v2"
)

// ToMrkdwn converts the model's Markdown into Slack's mrkdwn dialect:
// *bold*, _italic_, ~strike~, <url|text> links, "- " and "1. " lists,
// fenced code blocks passed through.
func ToMrkdwn(markdown string) string {
	md := blackfriday.New(blackfriday.WithExtensions(blackfriday.CommonExtensions))
	doc := md.Parse([]byte(markdown))

	var blocks []string
	for child := doc.FirstChild; child != nil; child = child.Next {
		if block := renderBlock(child, 0); block != "" {
			blocks = append(blocks, block)
		}
	}
	return strings.Join(blocks, "\n\n")
}

func renderBlock(node *blackfriday.Node, depth int) string {
	switch node.Type {
	case blackfriday.Paragraph:
		return renderInline(node)
	case blackfriday.Heading:
		return "*" + renderInline(node) + "*"
	case blackfriday.CodeBlock:
		return "```\n" + strings.TrimRight(string(node.Literal), "\n") + "\n```"
	case blackfriday.BlockQuote:
		return renderBlockQuote(node, depth)
	case blackfriday.List:
		return renderList(node, depth)
	case blackfriday.HorizontalRule:
		return "---"
	case blackfriday.HTMLBlock:
		return strings.TrimSpace(string(node.Literal))
	default:
		return renderInline(node)
	}
}

func renderBlockQuote(node *blackfriday.Node, depth int) string {
	var inner []string
	for child := node.FirstChild; child != nil; child = child.Next {
		inner = append(inner, renderBlock(child, depth))
	}
	lines := strings.Split(strings.Join(inner, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "> " + line
	}
	return strings.Join(lines, "\n")
}

func renderList(list *blackfriday.Node, depth int) string {
	ordered := list.ListData.ListFlags&blackfriday.ListTypeOrdered != 0
	indent := strings.Repeat("    ", depth)

	var lines []string
	index := 1
	for item := list.FirstChild; item != nil; item = item.Next {
		marker := "- "
		if ordered {
			marker = fmt.Sprintf("%d. ", index)
			index++
		}

		first := true
		for child := item.FirstChild; child != nil; child = child.Next {
			var rendered string
			if child.Type == blackfriday.List {
				rendered = renderList(child, depth+1)
			} else {
				rendered = renderBlock(child, depth)
			}
			if rendered == "" {
				continue
			}
			if first && child.Type != blackfriday.List {
				lines = append(lines, indent+marker+rendered)
				first = false
				continue
			}
			lines = append(lines, rendered)
		}
	}
	return strings.Join(lines, "\n")
}

func renderInline(node *blackfriday.Node) string {
	var b strings.Builder
	for child := node.FirstChild; child != nil; child = child.Next {
		b.WriteString(inlineText(child))
	}
	return b.String()
}

func inlineText(node *blackfriday.Node) string {
	switch node.Type {
	case blackfriday.Text:
		return string(node.Literal)
	case blackfriday.Strong:
		return "*" + renderInline(node) + "*"
	case blackfriday.Emph:
		return "_" + renderInline(node) + "_"
	case blackfriday.Del:
		return "~" + renderInline(node) + "~"
	case blackfriday.Code:
		return "`" + string(node.Literal) + "`"
	case blackfriday.Link:
		return renderLink(node)
	case blackfriday.Image:
		return renderLink(node)
	case blackfriday.Hardbreak, blackfriday.Softbreak:
		return "\n"
	case blackfriday.HTMLSpan:
		return string(node.Literal)
	default:
		return renderInline(node)
	}
}

func renderLink(node *blackfriday.Node) string {
	dest := string(node.LinkData.Destination)
	text := renderInline(node)
	if text == "" || text == dest {
		return "<" + dest + ">"
	}
	return "<" + dest + "|" + text + ">"
}
