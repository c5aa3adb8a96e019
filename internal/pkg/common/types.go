package common

// Ingredient 食材
type Ingredient struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
}

// PriceQuote 商店代號對應價格，未解析的商店值為 nil
type PriceQuote map[string]*float64

// NewPriceQuote 建立包含所有商店的報價表
func NewPriceQuote(stores []string) PriceQuote {
	q := make(PriceQuote, len(stores))
	for _, s := range stores {
		q[s] = nil
	}
	return q
}

// Resolved 是否至少有一間商店有價格
func (q PriceQuote) Resolved() bool {
	for _, p := range q {
		if p != nil {
			return true
		}
	}
	return false
}

// Missing 依照商店順序列出尚未有價格的商店
func (q PriceQuote) Missing(stores []string) []string {
	var missing []string
	for _, s := range stores {
		if q[s] == nil {
			missing = append(missing, s)
		}
	}
	return missing
}

// Float 取得指標
func Float(v float64) *float64 {
	return &v
}
