package listing

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/maine/dou_bot/internal/textnorm"
)

// deepAnchors собирает все <a href> документа, включая содержимое <template>,
// куда сессия браузера сериализует теневые деревья.
func deepAnchors(pageHTML string) []rawRef {
	root, err := html.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return nil
	}
	var out []rawRef
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			if href, ok := attr(n, "href"); ok {
				title := textnorm.CollapseSpace(nodeText(n))
				if title == "" {
					title, _ = attr(n, "title")
					title = textnorm.CollapseSpace(title)
				}
				out = append(out, rawRef{href: href, title: title})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
