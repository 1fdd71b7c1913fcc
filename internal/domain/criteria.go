package domain

// Condition names. Product attribute conditions are named after their field
// with the ConditionAttributePrefix; simple conditions use their field.
const (
	ConditionCategory        = "category"
	ConditionPrice           = "price"
	ConditionSearchTerm      = "search"
	ConditionManufacturer    = "manufacturer"
	ConditionAttributePrefix = "product_attribute_"
)

// Attribute condition operators.
const (
	OperatorEq      = "="
	OperatorIn      = "IN"
	OperatorBetween = "BETWEEN"
)

// Condition restricts the set of products a query matches.
type Condition interface {
	Name() string
}

// CategoryCondition limits results to products in any of the categories.
type CategoryCondition struct {
	CategoryIDs []int
}

func (CategoryCondition) Name() string { return ConditionCategory }

// PriceCondition limits results to a price range. A Max of 0 means unbounded.
type PriceCondition struct {
	Min float64
	Max float64
}

func (PriceCondition) Name() string { return ConditionPrice }

// ProductAttributeCondition filters on a named product attribute. With
// OperatorBetween the range in Min/Max applies, otherwise Values.
type ProductAttributeCondition struct {
	Field    string
	Operator string
	Values   []string
	Min      float64
	Max      float64
}

func (c ProductAttributeCondition) Name() string { return ConditionAttributePrefix + c.Field }

// IsRange reports whether the condition carries a min/max range.
func (c ProductAttributeCondition) IsRange() bool { return c.Operator == OperatorBetween }

// SearchTermCondition is the user's free text query.
type SearchTermCondition struct {
	Term string
}

func (SearchTermCondition) Name() string { return ConditionSearchTerm }

// ManufacturerCondition limits results to the given manufacturers.
type ManufacturerCondition struct {
	ManufacturerIDs []int
}

func (ManufacturerCondition) Name() string { return ConditionManufacturer }

// SimpleCondition is a boolean flag such as "shipping_free".
type SimpleCondition struct {
	Field string
}

func (c SimpleCondition) Name() string { return c.Field }

// SortDirection is ASC or DESC.
type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// Sorting orders a result set.
type Sorting interface {
	Name() string
	Direction() SortDirection
}

type PriceSorting struct{ Order SortDirection }

func (PriceSorting) Name() string               { return "price" }
func (s PriceSorting) Direction() SortDirection { return s.Order }

type PopularitySorting struct{ Order SortDirection }

func (PopularitySorting) Name() string               { return "popularity" }
func (s PopularitySorting) Direction() SortDirection { return s.Order }

type ProductNameSorting struct{ Order SortDirection }

func (ProductNameSorting) Name() string               { return "product_name" }
func (s ProductNameSorting) Direction() SortDirection { return s.Order }

type ReleaseDateSorting struct{ Order SortDirection }

func (ReleaseDateSorting) Name() string               { return "release_date" }
func (s ReleaseDateSorting) Direction() SortDirection { return s.Order }

// RelevanceSorting leaves the order to the engine's scoring.
type RelevanceSorting struct{}

func (RelevanceSorting) Name() string             { return "relevance" }
func (RelevanceSorting) Direction() SortDirection { return SortDesc }

// Criteria is an engine independent description of a product query.
type Criteria struct {
	Conditions         []Condition
	Sortings           []Sorting
	Offset             int
	Limit              int
	FacetNames         []string
	ForceOriginalQuery bool
}

// AddCondition adds cond, replacing a condition with the same name.
func (c *Criteria) AddCondition(cond Condition) {
	for i, existing := range c.Conditions {
		if existing.Name() == cond.Name() {
			c.Conditions[i] = cond
			return
		}
	}
	c.Conditions = append(c.Conditions, cond)
}

// AddSorting appends a sorting. Earlier sortings take precedence.
func (c *Criteria) AddSorting(s Sorting) {
	c.Sortings = append(c.Sortings, s)
}

// HasCondition reports whether a condition with the given name is set.
func (c *Criteria) HasCondition(name string) bool {
	return c.Condition(name) != nil
}

// Condition returns the condition with the given name or nil.
func (c *Criteria) Condition(name string) Condition {
	for _, cond := range c.Conditions {
		if cond.Name() == name {
			return cond
		}
	}
	return nil
}

// SearchTerm returns the free text query, or "" for navigation requests.
func (c *Criteria) SearchTerm() string {
	if cond, ok := c.Condition(ConditionSearchTerm).(SearchTermCondition); ok {
		return cond.Term
	}
	return ""
}

// HasSearchTerm reports whether the criteria is a search (as opposed to a
// category navigation).
func (c *Criteria) HasSearchTerm() bool {
	return c.SearchTerm() != ""
}

// CategoryIDs returns the ids of the category condition, if any.
func (c *Criteria) CategoryIDs() []int {
	if cond, ok := c.Condition(ConditionCategory).(CategoryCondition); ok {
		return cond.CategoryIDs
	}
	return nil
}

// WantsFacet reports whether the facet was requested. No explicit request
// means every facet.
func (c *Criteria) WantsFacet(name string) bool {
	if len(c.FacetNames) == 0 {
		return true
	}
	for _, n := range c.FacetNames {
		if n == name {
			return true
		}
	}
	return false
}

// sortingNames maps the storefront's sort parameter values to sortings.
var sortingNames = map[string]Sorting{
	"relevance":  RelevanceSorting{},
	"price_asc":  PriceSorting{Order: SortAsc},
	"price_desc": PriceSorting{Order: SortDesc},
	"name_asc":   ProductNameSorting{Order: SortAsc},
	"name_desc":  ProductNameSorting{Order: SortDesc},
	"popularity": PopularitySorting{Order: SortDesc},
	"newest":     ReleaseDateSorting{Order: SortDesc},
}

// SortingNames lists the accepted sort parameter values.
const SortingNames = "relevance, price_asc, price_desc, name_asc, name_desc, popularity, newest"

// ParseSorting resolves a sort parameter value such as "price_asc".
func ParseSorting(name string) (Sorting, bool) {
	s, ok := sortingNames[name]
	return s, ok
}
