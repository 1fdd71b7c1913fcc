package domain

// Source names which engine produced a result.
type Source string

const (
	SourceService Source = "service"
	SourceNative  Source = "native"
)

// Did-you-mean types.
const (
	DidYouMeanCorrected = "corrected"
	DidYouMeanImproved  = "improved"
	DidYouMeanSuggested = "did-you-mean"
)

// SmartDidYouMean tells the storefront the query was corrected, improved or
// has a suggested alternative.
type SmartDidYouMean struct {
	Type             string `json:"type"`
	AlternativeQuery string `json:"alternative_query"`
	OriginalQuery    string `json:"original_query,omitempty"`
	DidYouMeanQuery  string `json:"did_you_mean_query,omitempty"`
}

// Promotion is a banner the service attached to the query.
type Promotion struct {
	Image string `json:"image"`
	Link  string `json:"link"`
}

// LandingPage redirects the query to a fixed page.
type LandingPage struct {
	Link string `json:"link"`
}

// SearchResult is the shop-native answer to a Criteria.
type SearchResult struct {
	ProductIDs      []string         `json:"product_ids"`
	Total           int              `json:"total"`
	Facets          []FacetResult    `json:"facets"`
	SmartDidYouMean *SmartDidYouMean `json:"smart_did_you_mean,omitempty"`
	Promotion       *Promotion       `json:"promotion,omitempty"`
	LandingPage     *LandingPage     `json:"landing_page,omitempty"`
	QueryString     string           `json:"query_string,omitempty"`
	Source          Source           `json:"source"`
}
