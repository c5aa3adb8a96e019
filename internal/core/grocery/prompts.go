package grocery

import (
	"fmt"
	"net/url"
	"strings"
)

var storeLabels = map[string]string{
	"osave":           "OSAVE supermarket",
	"dali":            "Dali Supermarket",
	"dti":             "DTI price monitoring",
	"pampanga_market": "Pampanga public market",
}

// StoreLabel 商店顯示名稱，未知代號直接使用代號
func StoreLabel(store string) string {
	if label, ok := storeLabels[store]; ok {
		return label
	}
	return store
}

func webscrapePrompt(store, ingredient string) string {
	label := StoreLabel(store)
	searchURL := "https://www.google.com/search?q=" + url.QueryEscape(fmt.Sprintf("%s %s price", label, ingredient))

	return fmt.Sprintf(`You are an AI web scraping engine.

REQUIRED:
- Fetch the webpage: %s
- Search for the product related to %q at %q (Philippines).
- Extract the exact numeric price in PHP shown.
- If multiple matches exist, choose the most relevant.
- If the price is not available, return null.

Return STRICT JSON only:
{"price": <number or null>}`, searchURL, ingredient, label)
}

func estimatePrompt(ingredient string, stores []string) string {
	var targets, keys strings.Builder
	for i, store := range stores {
		fmt.Fprintf(&targets, "- %s\n", StoreLabel(store))
		if i > 0 {
			keys.WriteString(", ")
		}
		fmt.Fprintf(&keys, "%q: <number>", store)
	}

	return fmt.Sprintf(`You MUST estimate current retail prices in PHP for the ingredient %q at:
%s
Use DA price watch bulletins, public market reports, marketplace listings, local market trends and typical grocery pricing behavior.

Return STRICT JSON only, no explanation:
{%s}`, ingredient, targets.String(), keys.String())
}

func ingredientsPrompt(dish string, people int) string {
	return fmt.Sprintf(`List the grocery ingredients needed to cook %q for %d people in a Filipino household.
Scale every quantity for %d servings and use local market units (kg, g, pcs, pack, bottle).

Return STRICT JSON only: an array of objects with exactly these keys
[{"name": "<ingredient name>", "quantity": "<amount with unit>"}]`, dish, people, people)
}
