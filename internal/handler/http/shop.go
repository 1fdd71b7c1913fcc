package http

import (
	"net"
	"net/http"

	"github.com/findologic/plugin-shopware-5-sub000/internal/domain"
)

// ShopDefaults configures the shop every request is answered for.
type ShopDefaults struct {
	ShopID               string
	Shopkey              string
	RootCategoryID       int
	DefaultCustomerGroup string
	Currency             string
	BaseURL              string
}

// shopContext derives the request's shop context. The customer_group
// parameter overrides the default group.
func (d ShopDefaults) shopContext(r *http.Request) domain.ShopContext {
	group := r.URL.Query().Get("customer_group")
	if group == "" {
		group = d.DefaultCustomerGroup
	}
	return domain.ShopContext{
		ShopID:           d.ShopID,
		Shopkey:          d.Shopkey,
		CustomerGroupKey: group,
		RootCategoryID:   d.RootCategoryID,
		Currency:         d.Currency,
		BaseURL:          d.BaseURL,
		ClientIP:         clientIP(r),
		Referer:          r.Referer(),
	}
}

// clientIP strips the port from RemoteAddr. Behind a trusted proxy
// TrustedRealIP has already replaced it with the forwarded address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
