package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// Page is the readable part of a fetched HTML document
type Page struct {
	Title string
	Text  string
}

// blockElements end a line of visible text
var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"br": true, "blockquote": true, "pre": true, "dd": true, "dt": true,
}

// skippedElements never contribute text
var skippedElements = map[string]bool{
	"head": true, "script": true, "style": true, "noscript": true, "iframe": true,
	"nav": true, "footer": true, "header": true, "form": true, "svg": true,
}

// ParsePage extracts the title and visible main-content text from HTML.
// Main content is the first <main>, <article> or role="main" element, else the whole body.
func ParsePage(htmlContent string) (*Page, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, err
	}

	page := &Page{}
	if t := findFirst(doc, func(n *html.Node) bool { return isElement(n, "title") }); t != nil {
		page.Title = strings.Join(strings.Fields(textOf(t)), " ")
	}

	root := findFirst(doc, func(n *html.Node) bool { return isElement(n, "main") })
	if root == nil {
		root = findFirst(doc, func(n *html.Node) bool {
			return isElement(n, "article") || (n.Type == html.ElementNode && attr(n, "role") == "main")
		})
	}
	if root == nil {
		root = doc
	}

	page.Text = visibleText(root)
	return page, nil
}

// VisibleText returns the visible text of an HTML document, one block per line
func VisibleText(htmlContent string) (string, error) {
	page, err := ParsePage(htmlContent)
	if err != nil {
		return "", err
	}
	return page.Text, nil
}

func visibleText(root *html.Node) string {
	var lines []string
	var current strings.Builder

	flush := func() {
		line := strings.Join(strings.Fields(current.String()), " ")
		if line != "" {
			lines = append(lines, line)
		}
		current.Reset()
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skippedElements[n.Data] {
				return
			}
			if blockElements[n.Data] {
				flush()
				defer flush()
			}
		}
		if n.Type == html.TextNode {
			current.WriteString(n.Data)
			current.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(root)
	flush()
	return strings.Join(lines, "\n")
}

func textOf(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return buf.String()
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func isElement(n *html.Node, tag string) bool {
	return n.Type == html.ElementNode && n.Data == tag
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
