package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/findologic/plugin-shopware-5-sub000/internal/app"
	"github.com/findologic/plugin-shopware-5-sub000/internal/config"
	"github.com/findologic/plugin-shopware-5-sub000/internal/domain"
)

var (
	urlQuery         string
	urlCategories    []int
	urlManufacturers []int
	urlMinPrice      float64
	urlMaxPrice      float64
	urlAttributes    []string
	urlSort          string
	urlGroup         string
	urlOffset        int
	urlLimit         int
)

var urlCmd = &cobra.Command{
	Use:   "url",
	Short: "Print the search service URL a query would be sent to",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := criteriaFromFlags()
		if err != nil {
			return err
		}
		return withApp(func(a *app.App, cfg *config.Config, _ *slog.Logger) error {
			group := urlGroup
			if group == "" {
				group = cfg.DefaultCustomerGroup
			}
			u, err := a.SearchService().BuildRequestURL(cmd.Context(), c, domain.ShopContext{
				ShopID:           "1",
				Shopkey:          cfg.Shopkey,
				CustomerGroupKey: group,
				RootCategoryID:   cfg.ShopRootCategoryID,
				BaseURL:          cfg.ShopBaseURL,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), u)
			return nil
		})
	},
}

func criteriaFromFlags() (*domain.Criteria, error) {
	c := &domain.Criteria{Offset: urlOffset, Limit: urlLimit}
	if q := strings.TrimSpace(urlQuery); q != "" {
		c.AddCondition(domain.SearchTermCondition{Term: q})
	}
	if len(urlCategories) > 0 {
		c.AddCondition(domain.CategoryCondition{CategoryIDs: urlCategories})
	}
	if len(urlManufacturers) > 0 {
		c.AddCondition(domain.ManufacturerCondition{ManufacturerIDs: urlManufacturers})
	}
	if urlMinPrice > 0 || urlMaxPrice > 0 {
		c.AddCondition(domain.PriceCondition{Min: urlMinPrice, Max: urlMaxPrice})
	}

	values := make(map[string][]string)
	var fields []string
	for _, a := range urlAttributes {
		field, value, ok := strings.Cut(a, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("attribute %q must look like field=value", a)
		}
		if _, seen := values[field]; !seen {
			fields = append(fields, field)
		}
		values[field] = append(values[field], value)
	}
	for _, f := range fields {
		c.AddCondition(domain.ProductAttributeCondition{Field: f, Operator: domain.OperatorIn, Values: values[f]})
	}

	if urlSort != "" {
		s, ok := domain.ParseSorting(urlSort)
		if !ok {
			return nil, fmt.Errorf("sort must be one of: %s", domain.SortingNames)
		}
		c.AddSorting(s)
	}
	return c, nil
}

func init() {
	urlCmd.Flags().StringVarP(&urlQuery, "q", "q", "", "search term; without one a navigation request is built")
	urlCmd.Flags().IntSliceVar(&urlCategories, "category", nil, "category ids")
	urlCmd.Flags().IntSliceVar(&urlManufacturers, "manufacturer", nil, "manufacturer ids")
	urlCmd.Flags().Float64Var(&urlMinPrice, "min-price", 0, "minimum price")
	urlCmd.Flags().Float64Var(&urlMaxPrice, "max-price", 0, "maximum price (0 means unbounded)")
	urlCmd.Flags().StringArrayVar(&urlAttributes, "attrib", nil, "attribute filter as field=value, repeatable")
	urlCmd.Flags().StringVar(&urlSort, "sort", "", "sorting ("+domain.SortingNames+")")
	urlCmd.Flags().StringVar(&urlGroup, "customer-group", "", "customer group key (default from config)")
	urlCmd.Flags().IntVar(&urlOffset, "offset", 0, "first result")
	urlCmd.Flags().IntVar(&urlLimit, "limit", 24, "results per page")
	rootCmd.AddCommand(urlCmd)
}
