package export

import "time"

// Feed is one page of the catalog export.
type Feed struct {
	Start int
	Count int
	Total int
	Items []Item
}

// Item is an exported article.
type Item struct {
	ID             string
	OrderNumbers   []string
	Name           string
	Summary        string
	Description    string
	Prices         []Price
	URL            string
	Images         []string
	Keywords       []string
	UserGroups     []string
	SalesFrequency int
	DateAdded      time.Time
	Attributes     []Attribute
	Properties     []Property
}

// Price is the price for one customer group. An empty UserGroup marks the
// shop's default group.
type Price struct {
	UserGroup string
	Value     float64
}

// Attribute is a filterable value list.
type Attribute struct {
	Key    string
	Values []string
}

// Property is a single display value.
type Property struct {
	Key   string
	Value string
}
