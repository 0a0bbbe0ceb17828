package language

import "strings"

// Language codes returned by Detect.
const (
	Norwegian = "no"
	English   = "en"
)

var norwegianKeywords = []string{
	"hei",
	"hva",
	"hvordan",
	"takk",
	"vær",
	"besøkende",
	"kontakt",
	"erfaring",
	"ferdigheter",
	"bakgrunn",
}

var englishKeywords = []string{
	"hello",
	"what",
	"how",
	"thanks",
	"please",
	"contact",
	"background",
	"experience",
	"skills",
	"portfolio",
}

// Detect infers whether the visitor is likely writing Norwegian or English.
// Norwegian-specific letters win outright, then Norwegian keywords, then
// English keywords. Unknown input defaults to Norwegian, matching the bot's
// primary audience.
func Detect(text string) string {
	lowered := strings.ToLower(text)
	if strings.ContainsAny(lowered, "æøå") {
		return Norwegian
	}
	for _, keyword := range norwegianKeywords {
		if strings.Contains(lowered, keyword) {
			return Norwegian
		}
	}
	for _, keyword := range englishKeywords {
		if strings.Contains(lowered, keyword) {
			return English
		}
	}
	return Norwegian
}
