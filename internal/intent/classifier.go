package intent

import "strings"

// Input is what a classifier sees for one exchange.
type Input struct {
	Reply    string
	UserText string
	Language Language
}

// Classifier maps a reply to an action, or nil when none applies.
type Classifier interface {
	Classify(in Input) *Action
}

type ClassifierFunc func(in Input) *Action

func (f ClassifierFunc) Classify(in Input) *Action { return f(in) }

// Chain returns the first non-nil action produced by cs, in order.
func Chain(cs ...Classifier) Classifier {
	return ClassifierFunc(func(in Input) *Action {
		for _, c := range cs {
			if c == nil {
				continue
			}
			if a := c.Classify(in); a != nil {
				return a
			}
		}
		return nil
	})
}

type localized map[Language][]string

type navRule struct {
	route    string
	keywords localized
	confirm  map[Language]string
}

var navTriggers = localized{
	English: {"opening", "taking you to", "navigating to"},
	Arabic:  {"فتح", "أنقلك"},
}

// Checked in order; the first matching rule wins.
var navRules = []navRule{
	{
		route:    RouteBills,
		keywords: localized{English: {"bill"}, Arabic: {"فاتورة", "فواتير"}},
		confirm:  map[Language]string{English: "Opening your bills.", Arabic: "جاري فتح الفواتير."},
	},
	{
		route:    RouteDeals,
		keywords: localized{English: {"bank deal", "deals", "offers"}, Arabic: {"عروض", "البنك"}},
		confirm:  map[Language]string{English: "Opening bank deals.", Arabic: "جاري فتح عروض البنوك."},
	},
	{
		route:    RouteHealth,
		keywords: localized{English: {"health", "hospital", "clinic"}, Arabic: {"صحة", "مستشفى"}},
		confirm:  map[Language]string{English: "Opening health services.", Arabic: "جاري فتح الخدمات الصحية."},
	},
}

var (
	addTriggers  = localized{English: {"add"}, Arabic: {"ضف", "ضافة"}}
	listKeywords = localized{English: {"list", "notes", "shopping"}, Arabic: {"قائمة", "ملاحظات"}}
)

// KeywordClassifier is the hard-coded bilingual heuristic over reply text.
type KeywordClassifier struct{}

func (KeywordClassifier) Classify(in Input) *Action {
	lang := in.Language
	if lang != Arabic {
		lang = English
	}
	reply := strings.ToLower(in.Reply)

	if containsAny(reply, navTriggers[lang]) {
		for _, rule := range navRules {
			if containsAny(reply, rule.keywords[lang]) {
				return Navigate(rule.route, rule.confirm[lang])
			}
		}
	}

	if containsAny(reply, addTriggers[lang]) && containsAny(reply, listKeywords[lang]) {
		items := ExtractItems(in.UserText)
		if len(items) == 0 {
			items = ExtractItems(in.Reply)
		}
		if len(items) > 0 {
			return AddToNotes(items, notesConfirmation(lang, items))
		}
	}
	return nil
}

func notesConfirmation(lang Language, items []string) string {
	joined := strings.Join(items, ", ")
	if lang == Arabic {
		return "تمت إضافة العناصر إلى ملاحظاتك: " + joined
	}
	return "Added " + joined + " to your notes."
}

// BillClassifier recognises bills in image descriptions.
type BillClassifier struct{}

func (BillClassifier) Classify(in Input) *Action {
	reply := strings.ToLower(in.Reply)
	if !strings.Contains(reply, "bill") && !strings.Contains(reply, "فاتورة") {
		return nil
	}
	if in.Language == Arabic {
		return Navigate(RouteBills, "وجدت فاتورة. جاري فتح الفواتير.")
	}
	return Navigate(RouteBills, "I found a bill. Opening your bills.")
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
