package domain

import (
	"strconv"
	"time"
)

// Article is a product with its variants as stored in the shop catalog.
type Article struct {
	ID             int
	Name           string
	Summary        string
	Description    string
	Keywords       string
	Manufacturer   *Manufacturer
	Variants       []Variant
	CategoryIDs    []int
	Images         []string
	Properties     map[string][]string
	SalesFrequency int
	TaxRate        float64
	Highlight      bool
	ShippingFree   bool
	CreatedAt      time.Time
	Active         bool
}

// Variant is an orderable detail of an article.
type Variant struct {
	ID             int
	OrderNumber    string
	EAN            string
	SupplierNumber string
	Stock          int
	Active         bool
	Main           bool
	Options        map[string]string
	// Prices are net prices keyed by customer group.
	Prices map[string]float64
}

// Category is a node of the shop's category tree. PathIDs holds the
// ancestors from the tree root down to the parent.
type Category struct {
	ID       int
	Name     string
	ParentID int
	PathIDs  []int
}

// Manufacturer is a product vendor.
type Manufacturer struct {
	ID   int
	Name string
}

// CustomerGroup prices articles for a class of customers.
type CustomerGroup struct {
	Key      string
	Name     string
	ShowsTax bool
}

// ActiveVariants returns the variants that can be ordered.
func (a *Article) ActiveVariants() []Variant {
	var out []Variant
	for _, v := range a.Variants {
		if v.Active {
			out = append(out, v)
		}
	}
	return out
}

// InStock reports whether any active variant has stock.
func (a *Article) InStock() bool {
	for _, v := range a.ActiveVariants() {
		if v.Stock > 0 {
			return true
		}
	}
	return false
}

// MainVariant returns the variant marked main, else the first active one.
func (a *Article) MainVariant() (Variant, bool) {
	active := a.ActiveVariants()
	for _, v := range active {
		if v.Main {
			return v, true
		}
	}
	if len(active) > 0 {
		return active[0], true
	}
	return Variant{}, false
}

// CheapestPrice returns the lowest net price of any active variant for the
// customer group. ok is false when no variant has a price for it.
func (a *Article) CheapestPrice(group string) (price float64, ok bool) {
	for _, v := range a.ActiveVariants() {
		p, has := v.Prices[group]
		if !has {
			continue
		}
		if !ok || p < price {
			price, ok = p, true
		}
	}
	return price, ok
}

// GrossPrice applies the article's tax rate to a net price.
func (a *Article) GrossPrice(net float64) float64 {
	return net * (1 + a.TaxRate/100)
}

// ProductID is the article id as used in search results.
func (a *Article) ProductID() string {
	return strconv.Itoa(a.ID)
}

// ArticleFilter selects the articles a catalog query returns.
type ArticleFilter struct {
	// ProductID restricts the query to one article when non-zero.
	ProductID      int
	RootCategoryID int
	HideOutOfStock bool
}
