package response

// Filter is one <filter> of the service response.
type Filter struct {
	Name                   string
	Display                string
	Select                 string
	Type                   string
	CSSClass               string
	NoAvailableFiltersText string
	Items                  []Item
	Attributes             FilterAttributes
}

// Filter types sent by the service.
const (
	FilterTypeSelect = "select"
	FilterTypeLabel  = "label"
	FilterTypeColor  = "color"
	FilterTypeImage  = "image"
	FilterTypeRange  = "range-slider"
)

// SelectSingle marks a filter allowing one value only.
const SelectSingle = "single"

// FilterAttributes holds the range information of slider filters.
type FilterAttributes struct {
	SelectedRange *Range
	TotalRange    *Range
	StepSize      float64
	Unit          string
}

// Range is a min/max pair.
type Range struct {
	Min float64
	Max float64
}

// Item is a filter value, possibly with nested values.
type Item struct {
	Name      string
	Weight    float64
	Frequency int
	Image     string
	Color     string
	Items     []Item
}
