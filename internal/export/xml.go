package export

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
)

// FeedVersion is the export format version.
const FeedVersion = "1.0"

// Marshal renders the feed as an XML document.
func Marshal(f *Feed) ([]byte, error) {
	return document(f).WriteToBytes()
}

// Write streams the feed as an XML document to w.
func Write(w io.Writer, f *Feed) error {
	_, err := document(f).WriteTo(w)
	return err
}

func document(f *Feed) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("findologic")
	root.CreateAttr("version", FeedVersion)

	items := root.CreateElement("items")
	items.CreateAttr("start", strconv.Itoa(f.Start))
	items.CreateAttr("count", strconv.Itoa(f.Count))
	items.CreateAttr("total", strconv.Itoa(f.Total))
	for i := range f.Items {
		writeItem(items, &f.Items[i])
	}

	doc.Indent(2)
	return doc
}

func writeItem(parent *etree.Element, it *Item) {
	el := parent.CreateElement("item")
	el.CreateAttr("id", it.ID)

	list(el, "orderNumbers", "orderNumber", it.OrderNumbers)
	list(el, "names", "name", nonEmpty(it.Name))
	list(el, "summaries", "summary", nonEmpty(it.Summary))
	list(el, "descriptions", "description", nonEmpty(it.Description))

	prices := el.CreateElement("prices")
	for _, p := range it.Prices {
		price := prices.CreateElement("price")
		if p.UserGroup != "" {
			price.CreateAttr("usergroup", p.UserGroup)
		}
		price.SetText(formatPrice(p.Value))
	}

	list(el, "urls", "url", nonEmpty(it.URL))

	images := el.CreateElement("images")
	for i, src := range it.Images {
		img := images.CreateElement("image")
		if i == 0 {
			img.CreateAttr("type", "default")
		} else {
			img.CreateAttr("type", "thumbnail")
		}
		cdata(img, src)
	}

	list(el, "keywords", "keyword", it.Keywords)

	groups := el.CreateElement("usergroups")
	for _, g := range it.UserGroups {
		groups.CreateElement("usergroup").SetText(g)
	}

	el.CreateElement("salesFrequencies").CreateElement("salesFrequency").SetText(strconv.Itoa(it.SalesFrequency))
	dates := el.CreateElement("dateAddeds")
	if !it.DateAdded.IsZero() {
		dates.CreateElement("dateAdded").SetText(it.DateAdded.UTC().Format(time.RFC3339))
	}

	attrs := el.CreateElement("allAttributes").CreateElement("attributes")
	for _, a := range it.Attributes {
		attr := attrs.CreateElement("attribute")
		cdata(attr.CreateElement("key"), a.Key)
		values := attr.CreateElement("values")
		for _, v := range a.Values {
			cdata(values.CreateElement("value"), v)
		}
	}

	props := el.CreateElement("allProperties").CreateElement("properties")
	for _, p := range it.Properties {
		prop := props.CreateElement("property")
		cdata(prop.CreateElement("key"), p.Key)
		cdata(prop.CreateElement("value"), p.Value)
	}
}

// list writes a wrapper element with one CDATA child per value.
func list(parent *etree.Element, wrapper, tag string, values []string) {
	w := parent.CreateElement(wrapper)
	for _, v := range values {
		cdata(w.CreateElement(tag), v)
	}
}

// cdata writes s as CDATA. A "]]>" inside s would end the section early, so
// it is split across two sections: "]]" closes the first, ">" opens the next.
func cdata(el *etree.Element, s string) {
	parts := strings.Split(s, "]]>")
	for i, part := range parts {
		if i > 0 {
			part = ">" + part
		}
		if i < len(parts)-1 {
			part += "]]"
		}
		el.CreateCData(part)
	}
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}
