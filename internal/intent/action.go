// Package intent turns free-form assistant replies into app actions.
package intent

import "strings"

// Language is the reply language tag echoed back to the client.
type Language string

const (
	English Language = "en"
	Arabic  Language = "ar"
)

// ParseLanguage maps a client tag such as "ar", "ar-BH" or "EN" onto a
// supported language. Anything unrecognised is English.
func ParseLanguage(tag string) Language {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "ar" || strings.HasPrefix(tag, "ar-") || strings.HasPrefix(tag, "ar_") {
		return Arabic
	}
	return English
}

type ActionType string

const (
	ActionNavigate   ActionType = "navigate"
	ActionAddToNotes ActionType = "add_to_notes"
)

const (
	RouteBills  = "/(tabs)/bills"
	RouteDeals  = "/(tabs)/deals"
	RouteHealth = "/(tabs)/health"
)

type ActionData struct {
	Route        string   `json:"route,omitempty"`
	Items        []string `json:"items,omitempty"`
	Confirmation string   `json:"confirmation"`
}

// Action is an optional side effect inferred from a reply.
type Action struct {
	Type ActionType `json:"type"`
	Data ActionData `json:"data"`
}

func Navigate(route, confirmation string) *Action {
	return &Action{Type: ActionNavigate, Data: ActionData{Route: route, Confirmation: confirmation}}
}

func AddToNotes(items []string, confirmation string) *Action {
	return &Action{Type: ActionAddToNotes, Data: ActionData{Items: items, Confirmation: confirmation}}
}
