package facts

import (
	"regexp"
	"strings"

	"animalfacts/pkg/logger"
	"animalfacts/pkg/models"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Labels holds the patterns that locate the labelled table cells on a
// detail page.
type Labels struct {
	Type    *regexp.Regexp
	Feature *regexp.Regexp
}

// ExtractRecord builds a record from a detail page. Name is the first h1.
// Type and Features are read from the cell following the labelled cell; a
// missing label or sibling leaves the field empty and is logged at warn.
func ExtractRecord(doc *goquery.Document, labels Labels, log logger.Logger) models.AnimalRecord {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if doc == nil {
		return models.AnimalRecord{}
	}

	return models.AnimalRecord{
		Name:     strings.TrimSpace(doc.Find("h1").First().Text()),
		Type:     labelledValue(doc, labels.Type, log),
		Features: labelledValue(doc, labels.Feature, log),
	}
}

func labelledValue(doc *goquery.Document, label *regexp.Regexp, log logger.Logger) string {
	if label == nil {
		return ""
	}

	cell := findLabelCell(doc, label)
	if cell == nil {
		log.WarnWithFields("Label not found", map[string]interface{}{
			"label": label.String(),
		})
		return ""
	}

	value := cell.Next()
	if value.Length() == 0 {
		log.WarnWithFields("Label has no value cell", map[string]interface{}{
			"label": label.String(),
		})
		return ""
	}

	return strings.TrimSpace(value.Text())
}

// findLabelCell returns the nearest td enclosing the first text node that
// matches label. Matches outside any table cell are passed over.
func findLabelCell(doc *goquery.Document, label *regexp.Regexp) *goquery.Selection {
	for _, root := range doc.Nodes {
		if td := walkText(root, label); td != nil {
			return doc.FindNodes(td)
		}
	}
	return nil
}

func walkText(n *html.Node, label *regexp.Regexp) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			if !label.MatchString(c.Data) {
				continue
			}
			if td := enclosingCell(c); td != nil {
				return td
			}
		case html.ElementNode:
			if c.Data == "script" || c.Data == "style" {
				continue
			}
			if td := walkText(c, label); td != nil {
				return td
			}
		default:
			if td := walkText(c, label); td != nil {
				return td
			}
		}
	}
	return nil
}

func enclosingCell(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == "td" {
			return p
		}
	}
	return nil
}
