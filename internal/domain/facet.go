package domain

// Facet result types, used as the JSON discriminator.
const (
	FacetTypeTree      = "tree"
	FacetTypeValueList = "value_list"
	FacetTypeRadio     = "radio"
	FacetTypeRange     = "range"
	FacetTypeMediaList = "media_list"
)

// FacetResult is a filter the storefront can render next to a result list.
type FacetResult interface {
	FacetName() string
	IsActive() bool
	Label() string
	Template() string
}

// FacetBase holds the fields shared by every facet result.
type FacetBase struct {
	Type         string `json:"type"`
	Name         string `json:"name"`
	FieldLabel   string `json:"label"`
	Active       bool   `json:"active"`
	TemplateName string `json:"template,omitempty"`
}

func (b FacetBase) FacetName() string { return b.Name }
func (b FacetBase) IsActive() bool    { return b.Active }
func (b FacetBase) Label() string     { return b.FieldLabel }
func (b FacetBase) Template() string  { return b.TemplateName }

// TreeItem is a node of a hierarchical facet. ID is the full path.
type TreeItem struct {
	ID       string     `json:"id"`
	Label    string     `json:"label"`
	Active   bool       `json:"active"`
	Children []TreeItem `json:"children,omitempty"`
}

// TreeFacetResult renders nested values, e.g. categories.
type TreeFacetResult struct {
	FacetBase
	Values []TreeItem `json:"values"`
}

// ValueListItem is one selectable value.
type ValueListItem struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Active bool   `json:"active"`
}

// ValueListFacetResult is a multi-select list of values.
type ValueListFacetResult struct {
	FacetBase
	Values []ValueListItem `json:"values"`
}

// RadioFacetResult is a single-select list of values.
type RadioFacetResult struct {
	FacetBase
	Values []ValueListItem `json:"values"`
}

// RangeFacetResult is a numeric slider.
type RangeFacetResult struct {
	FacetBase
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	ActiveMin float64 `json:"active_min"`
	ActiveMax float64 `json:"active_max"`
	Step      float64 `json:"step,omitempty"`
	Unit      string  `json:"unit,omitempty"`
	MinParam  string  `json:"min_param"`
	MaxParam  string  `json:"max_param"`
}

// MediaItem is a value rendered as an image or color swatch.
type MediaItem struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Active   bool   `json:"active"`
	ImageURL string `json:"image_url,omitempty"`
	Color    string `json:"color,omitempty"`
}

// MediaListFacetResult is a list of image or color values.
type MediaListFacetResult struct {
	FacetBase
	Values []MediaItem `json:"values"`
}
