package facet

import (
	"github.com/findologic/plugin-shopware-5-sub000/internal/domain"
	"github.com/findologic/plugin-shopware-5-sub000/internal/response"
)

// ColorHandler renders color filters as swatches.
type ColorHandler struct{}

func (ColorHandler) Supports(f response.Filter) bool { return f.Type == response.FilterTypeColor }

func (ColorHandler) Generate(f response.Filter, _ *domain.Criteria, active domain.Condition) domain.FacetResult {
	return mediaList(f, active, TemplateColor)
}

// ImageHandler renders image filters, e.g. vendor logos.
type ImageHandler struct{}

func (ImageHandler) Supports(f response.Filter) bool { return f.Type == response.FilterTypeImage }

func (ImageHandler) Generate(f response.Filter, _ *domain.Criteria, active domain.Condition) domain.FacetResult {
	return mediaList(f, active, TemplateImage)
}

func mediaList(f response.Filter, active domain.Condition, template string) *domain.MediaListFacetResult {
	selected := activeValues(active)
	result := &domain.MediaListFacetResult{
		FacetBase: base(domain.FacetTypeMediaList, f, active, template),
		Values:    make([]domain.MediaItem, 0, len(f.Items)),
	}
	for _, it := range f.Items {
		result.Values = append(result.Values, domain.MediaItem{
			ID:       it.Name,
			Label:    it.Name,
			Active:   contains(selected, it.Name),
			ImageURL: it.Image,
			Color:    it.Color,
		})
	}
	return result
}
