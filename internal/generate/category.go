package generate

import "strings"

// Categories form the fixed publication taxonomy. Reconciliation never
// produces a value outside this set.
const (
	CategoryPolitics      = "politics"
	CategoryEconomy       = "economy"
	CategoryDisaster      = "disaster"
	CategoryCrime         = "crime"
	CategoryTechnology    = "technology"
	CategoryHealth        = "health"
	CategorySports        = "sports"
	CategoryEntertainment = "entertainment"
	CategoryGeneral       = "general"
)

// categoryAliases maps provider-reported category strings (and their common
// variants) onto the fixed set. Unmapped strings are discarded. Layer A of
// the reconciliation.
var categoryAliases = map[string]string{
	"politics":      CategoryPolitics,
	"political":     CategoryPolitics,
	"government":    CategoryPolitics,
	"policy":        CategoryPolitics,
	"economy":       CategoryEconomy,
	"economic":      CategoryEconomy,
	"business":      CategoryEconomy,
	"finance":       CategoryEconomy,
	"financial":     CategoryEconomy,
	"markets":       CategoryEconomy,
	"disaster":      CategoryDisaster,
	"accident":      CategoryDisaster,
	"weather":       CategoryDisaster,
	"environment":   CategoryDisaster,
	"crime":         CategoryCrime,
	"criminal":      CategoryCrime,
	"justice":       CategoryCrime,
	"court":         CategoryCrime,
	"legal":         CategoryCrime,
	"technology":    CategoryTechnology,
	"tech":          CategoryTechnology,
	"science":       CategoryTechnology,
	"ai":            CategoryTechnology,
	"health":        CategoryHealth,
	"medical":       CategoryHealth,
	"medicine":      CategoryHealth,
	"covid":         CategoryHealth,
	"sports":        CategorySports,
	"sport":         CategorySports,
	"football":      CategorySports,
	"entertainment": CategoryEntertainment,
	"celebrity":     CategoryEntertainment,
	"culture":       CategoryEntertainment,
	"music":         CategoryEntertainment,
	"film":          CategoryEntertainment,
	"general":       CategoryGeneral,
	"world":         CategoryGeneral,
	"local":         CategoryGeneral,
}

// keywordRules drive Layer B: an independent first-match keyword scan over
// the article text. Order matters; the first rule whose keyword appears
// wins.
var keywordRules = []struct {
	category string
	keywords []string
}{
	{CategoryDisaster, []string{"earthquake", "flood", "wildfire", "storm", "typhoon", "hurricane", "tsunami", "landslide", "evacuation", "collapse"}},
	{CategoryCrime, []string{"arrest", "police", "murder", "robbery", "trafficking", "fraud", "court", "sentenced", "shooting", "stabbing"}},
	{CategoryPolitics, []string{"parliament", "election", "minister", "senate", "cabinet", "legislation", "referendum", "coalition", "president", "government"}},
	{CategoryEconomy, []string{"inflation", "stocks", "market", "economy", "gdp", "exports", "interest rate", "central bank", "unemployment", "investment"}},
	{CategoryHealth, []string{"hospital", "vaccine", "outbreak", "virus", "disease", "patients", "treatment", "epidemic"}},
	{CategoryTechnology, []string{"software", "startup", "artificial intelligence", "chip", "satellite", "cyberattack", "data breach", "robot"}},
	{CategorySports, []string{"championship", "tournament", "league", "olympic", "match", "coach", "stadium"}},
	{CategoryEntertainment, []string{"concert", "festival", "box office", "album", "actor", "actress", "premiere"}},
}

// NormalizeCategory resolves a provider-reported category string against
// the alias map. Returns "" for unmapped input.
func NormalizeCategory(reported string) string {
	key := strings.ToLower(strings.TrimSpace(reported))
	if key == "" {
		return ""
	}
	if cat, ok := categoryAliases[key]; ok {
		return cat
	}
	// Providers sometimes return compounds like "Politics / Government";
	// try each word before giving up.
	for _, part := range strings.FieldsFunc(key, func(r rune) bool {
		return r == '/' || r == ',' || r == '&' || r == ' ' || r == '-'
	}) {
		if cat, ok := categoryAliases[part]; ok {
			return cat
		}
	}
	return ""
}

// ClassifyByKeywords picks a category from the article text by first match.
func ClassifyByKeywords(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.category
			}
		}
	}
	return CategoryGeneral
}

// ReconcileCategory combines the two classifiers: the normalized provider
// category wins when valid, otherwise the keyword scan decides. The second
// return reports whether the layers agreed, for observability only.
func ReconcileCategory(reported, text string) (category string, agreed bool) {
	layerA := NormalizeCategory(reported)
	layerB := ClassifyByKeywords(text)
	if layerA == "" {
		return layerB, false
	}
	return layerA, layerA == layerB
}
