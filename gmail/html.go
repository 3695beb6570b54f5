package gmail

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"
)

// Pre-compiled regexes to avoid runtime compilation per email.
var (
	scriptRe         = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRe          = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	commentRe        = regexp.MustCompile(`(?s)<!--.*?-->`)
	excessiveLinesRe = regexp.MustCompile(`\n{3,}`)
)

// htmlConverter turns HTML email bodies into readable text for the parsing
// tiers. Bank notification HTML is table soup; markdown conversion keeps
// the amounts and labels while dropping the layout.
type htmlConverter struct {
	converter *md.Converter
}

func newHTMLConverter() *htmlConverter {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &htmlConverter{converter: converter}
}

// ToText converts an HTML body to plain readable text. Conversion failures
// fall back to tag stripping so an ugly body is still parseable.
func (c *htmlConverter) ToText(htmlBody string) string {
	cleaned := scriptRe.ReplaceAllString(htmlBody, "")
	cleaned = styleRe.ReplaceAllString(cleaned, "")
	cleaned = commentRe.ReplaceAllString(cleaned, "")

	text, err := c.converter.ConvertString(cleaned)
	if err != nil {
		text = stripTags(cleaned)
	}

	text = excessiveLinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// stripTags walks the parse tree and concatenates text nodes.
func stripTags(content string) string {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return content
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				b.WriteString(t)
				b.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return b.String()
}
