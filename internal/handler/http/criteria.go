package http

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/findologic/plugin-shopware-5-sub000/internal/domain"
	apperrors "github.com/findologic/plugin-shopware-5-sub000/pkg/errors"
	"github.com/findologic/plugin-shopware-5-sub000/pkg/pagination"
)

// criteriaFromRequest translates storefront query parameters into criteria.
// Malformed values yield an INVALID_INPUT error naming the parameter.
func criteriaFromRequest(r *http.Request) (*domain.Criteria, pagination.Params, error) {
	q := r.URL.Query()
	page := pagination.FromRequest(r, pagination.DefaultLimits())
	c := &domain.Criteria{Offset: page.Offset, Limit: page.PerPage}

	if term := strings.TrimSpace(q.Get("q")); term != "" {
		c.AddCondition(domain.SearchTermCondition{Term: term})
	}

	if values := q["category"]; len(values) > 0 {
		ids, err := parseIDs("category", values)
		if err != nil {
			return nil, page, err
		}
		c.AddCondition(domain.CategoryCondition{CategoryIDs: ids})
	}

	if values := q["manufacturer"]; len(values) > 0 {
		ids, err := parseIDs("manufacturer", values)
		if err != nil {
			return nil, page, err
		}
		c.AddCondition(domain.ManufacturerCondition{ManufacturerIDs: ids})
	}

	price, ok, err := parsePrice(q)
	if err != nil {
		return nil, page, err
	}
	if ok {
		c.AddCondition(price)
	}

	attributes, err := parseAttributes(q)
	if err != nil {
		return nil, page, err
	}
	for _, cond := range attributes {
		c.AddCondition(cond)
	}

	for _, flag := range q["flag"] {
		if flag = strings.TrimSpace(flag); flag != "" {
			c.AddCondition(domain.SimpleCondition{Field: flag})
		}
	}

	if v := q.Get("sort"); v != "" {
		s, ok := domain.ParseSorting(v)
		if !ok {
			return nil, page, apperrors.InvalidInput("sort must be one of: " + domain.SortingNames)
		}
		c.AddSorting(s)
	}

	c.FacetNames = q["facet"]

	if v := q.Get("force_original"); v != "" {
		force, err := strconv.ParseBool(v)
		if err != nil {
			return nil, page, apperrors.InvalidInput("force_original must be a boolean")
		}
		c.ForceOriginalQuery = force
	}

	return c, page, nil
}

func parseIDs(name string, values []string) ([]int, error) {
	ids := make([]int, 0, len(values))
	for _, v := range values {
		id, err := strconv.Atoi(v)
		if err != nil || id <= 0 {
			return nil, apperrors.InvalidInput(fmt.Sprintf("%s must be a positive integer", name))
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseFloat(q url.Values, name string) (float64, bool, error) {
	v := q.Get(name)
	if v == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false, apperrors.InvalidInput(name + " must be a valid number")
	}
	if f < 0 {
		return 0, false, apperrors.InvalidInput(name + " must not be negative")
	}
	return f, true, nil
}

func parsePrice(q url.Values) (domain.PriceCondition, bool, error) {
	lo, hasMin, err := parseFloat(q, "min_price")
	if err != nil {
		return domain.PriceCondition{}, false, err
	}
	hi, hasMax, err := parseFloat(q, "max_price")
	if err != nil {
		return domain.PriceCondition{}, false, err
	}
	if hasMax && hi > 0 && lo > hi {
		return domain.PriceCondition{}, false, apperrors.InvalidInput("min_price must not exceed max_price")
	}
	return domain.PriceCondition{Min: lo, Max: hi}, hasMin || hasMax, nil
}

// parseAttributes reads attrib[field], attrib[field][] and the range form
// attrib[field][min] / attrib[field][max].
func parseAttributes(q url.Values) ([]domain.ProductAttributeCondition, error) {
	byField := make(map[string]*domain.ProductAttributeCondition)
	var order []string

	for key, values := range q {
		field, part, ok := attributeKey(key)
		if !ok {
			continue
		}
		cond, seen := byField[field]
		if !seen {
			cond = &domain.ProductAttributeCondition{Field: field, Operator: domain.OperatorIn}
			byField[field] = cond
			order = append(order, field)
		}

		switch part {
		case "", "[]":
			for _, v := range values {
				if v != "" {
					cond.Values = append(cond.Values, v)
				}
			}
		case "[min]", "[max]":
			f, err := strconv.ParseFloat(q.Get(key), 64)
			if err != nil {
				return nil, apperrors.InvalidInput(key + " must be a valid number")
			}
			cond.Operator = domain.OperatorBetween
			if part == "[min]" {
				cond.Min = f
			} else {
				cond.Max = f
			}
		default:
			return nil, apperrors.InvalidInput("unsupported attribute parameter " + key)
		}
	}

	sort.Strings(order)
	out := make([]domain.ProductAttributeCondition, 0, len(order))
	for _, field := range order {
		cond := byField[field]
		if !cond.IsRange() && len(cond.Values) == 0 {
			continue
		}
		if !cond.IsRange() && len(cond.Values) == 1 {
			cond.Operator = domain.OperatorEq
		}
		out = append(out, *cond)
	}
	return out, nil
}

// attributeKey splits "attrib[color][]" into ("color", "[]").
func attributeKey(key string) (field, rest string, ok bool) {
	const prefix = "attrib["
	if !strings.HasPrefix(key, prefix) {
		return "", "", false
	}
	end := strings.IndexByte(key, ']')
	if end <= len(prefix) {
		return "", "", false
	}
	return key[len(prefix):end], key[end+1:], true
}
