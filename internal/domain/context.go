package domain

// ShopContext carries the shop-scoped values every handler needs: which shop
// and customer group the request belongs to and who sent it.
type ShopContext struct {
	ShopID           string
	Shopkey          string
	CustomerGroupKey string
	RootCategoryID   int
	Currency         string
	BaseURL          string
	ClientIP         string
	Referer          string
}
