package domain

import "time"

// Flag names shared by simple conditions and indexed documents.
const (
	FlagShippingFree = "shipping_free"
	FlagHighlight    = "highlight"
	FlagInStock      = "immediate_delivery"
)

// SearchDocument is the flattened article the native engine indexes.
type SearchDocument struct {
	ID               string              `json:"id"`
	Name             string              `json:"name"`
	Description      string              `json:"description"`
	Keywords         string              `json:"keywords"`
	ManufacturerID   int                 `json:"manufacturer_id"`
	ManufacturerName string              `json:"manufacturer_name"`
	CategoryIDs      []int               `json:"category_ids"`
	Price            float64             `json:"price"`
	Attributes       map[string][]string `json:"attributes"`
	Flags            []string            `json:"flags"`
	SalesFrequency   int                 `json:"sales_frequency"`
	CreatedAt        time.Time           `json:"created_at"`
}

// NewSearchDocument flattens a for the native engine. Category ids include
// every ancestor found in categories so a navigation on a parent category
// matches. The price is the cheapest net price for customerGroup.
func NewSearchDocument(a *Article, customerGroup string, categories []Category) SearchDocument {
	doc := SearchDocument{
		ID:             a.ProductID(),
		Name:           a.Name,
		Description:    a.Description,
		Keywords:       a.Keywords,
		Attributes:     make(map[string][]string),
		SalesFrequency: a.SalesFrequency,
		CreatedAt:      a.CreatedAt,
	}
	if a.Manufacturer != nil {
		doc.ManufacturerID = a.Manufacturer.ID
		doc.ManufacturerName = a.Manufacturer.Name
	}
	if p, ok := a.CheapestPrice(customerGroup); ok {
		doc.Price = p
	}

	seen := make(map[int]bool)
	addCategory := func(id int) {
		if !seen[id] {
			seen[id] = true
			doc.CategoryIDs = append(doc.CategoryIDs, id)
		}
	}
	for _, id := range a.CategoryIDs {
		addCategory(id)
	}
	for _, c := range categories {
		if !seen[c.ID] {
			continue
		}
		for _, id := range c.PathIDs {
			addCategory(id)
		}
	}

	for name, values := range a.Properties {
		doc.Attributes[name] = append(doc.Attributes[name], values...)
	}
	for _, v := range a.ActiveVariants() {
		for group, option := range v.Options {
			doc.Attributes[group] = appendUnique(doc.Attributes[group], option)
		}
	}

	if a.ShippingFree {
		doc.Flags = append(doc.Flags, FlagShippingFree)
	}
	if a.Highlight {
		doc.Flags = append(doc.Flags, FlagHighlight)
	}
	if a.InStock() {
		doc.Flags = append(doc.Flags, FlagInStock)
	}
	return doc
}

// HasFlag reports whether the document carries the flag.
func (d *SearchDocument) HasFlag(flag string) bool {
	for _, f := range d.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
