package intent

import "strings"

type grocery struct {
	name  string
	terms []string
}

// Declaration order is the output order.
var groceries = []grocery{
	{"milk", []string{"milk", "حليب"}},
	{"eggs", []string{"egg", "بيض"}},
	{"bread", []string{"bread", "خبز"}},
	{"rice", []string{"rice", "رز"}},
	{"sugar", []string{"sugar", "سكر"}},
	{"oil", []string{"oil", "زيت"}},
	{"flour", []string{"flour", "طحين"}},
	{"chicken", []string{"chicken", "دجاج"}},
	{"meat", []string{"meat", "لحم"}},
	{"fish", []string{"fish", "سمك"}},
	{"tea", []string{"tea", "شاي"}},
	{"coffee", []string{"coffee", "قهوة"}},
	{"water", []string{"water", "ماء", "مياه"}},
	{"tomatoes", []string{"tomato", "طماطم"}},
	{"onions", []string{"onion", "بصل"}},
	{"cheese", []string{"cheese", "جبن"}},
}

// ExtractItems finds shopping-list items in text by case-insensitive
// substring match. Items come back in English whatever the input language.
func ExtractItems(text string) []string {
	lower := strings.ToLower(text)
	if strings.TrimSpace(lower) == "" {
		return nil
	}
	var items []string
	for _, g := range groceries {
		if containsAny(lower, g.terms) {
			items = append(items, g.name)
		}
	}
	return items
}
