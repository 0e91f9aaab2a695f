package feedmodel

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// collator performs locale-aware natural comparison for the title/author
// sort strategies, so "Item 9" sorts before "Item 10".
var collator = collate.New(language.Und, collate.Numeric)

func naturalCompare(a, b string) int {
	return collator.CompareString(a, b)
}

func sortStableItems(items []*Item, cmp func(a, b *Item) int, desc bool) {
	sort.SliceStable(items, func(i, j int) bool {
		c := cmp(items[i], items[j])
		if desc {
			return c > 0
		}
		return c < 0
	})
}
