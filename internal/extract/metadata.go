package extract

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// PageMetadata holds the descriptive tags of a fetched page
type PageMetadata struct {
	OGDescription      string
	Description        string
	TwitterDescription string
	OGTitle            string
	Title              string
}

// Summary returns the best available description, falling back to a title.
// Priority: og:description, description, twitter:description, og:title, <title>.
func (m PageMetadata) Summary() string {
	for _, s := range []string{m.OGDescription, m.Description, m.TwitterDescription, m.OGTitle, m.Title} {
		if s != "" {
			return s
		}
	}
	return ""
}

// ParseMetadata walks an HTML document and collects its meta and title tags
func ParseMetadata(r io.Reader) (PageMetadata, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return PageMetadata{}, err
	}

	var meta PageMetadata
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				applyMetaTag(&meta, n)
			case "title":
				if meta.Title == "" {
					meta.Title = collapseSpace(nodeText(n))
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return meta, nil
}

func applyMetaTag(meta *PageMetadata, n *html.Node) {
	var key, content string
	for _, attr := range n.Attr {
		switch strings.ToLower(attr.Key) {
		case "property", "name":
			if key == "" {
				key = strings.ToLower(strings.TrimSpace(attr.Val))
			}
		case "content":
			content = collapseSpace(attr.Val)
		}
	}
	if content == "" {
		return
	}

	// first occurrence wins
	switch key {
	case "og:description":
		if meta.OGDescription == "" {
			meta.OGDescription = content
		}
	case "description":
		if meta.Description == "" {
			meta.Description = content
		}
	case "twitter:description":
		if meta.TwitterDescription == "" {
			meta.TwitterDescription = content
		}
	case "og:title":
		if meta.OGTitle == "" {
			meta.OGTitle = content
		}
	}
}

func nodeText(n *html.Node) string {
	var buf strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			buf.WriteString(c.Data)
		}
	}
	return buf.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
