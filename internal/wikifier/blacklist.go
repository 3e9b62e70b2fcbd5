package wikifier

// TextBlacklist terms are deleted from the text before it is sent for
// annotation, so caption noise cannot influence the relevance ranking.
// Removal is exact, case-sensitive substring deletion and can split
// surrounding tokens; stored enrichments rely on this, keep it bit-for-bit.
var TextBlacklist = []string{
	"[Music]",
	"[MUSIC]",
	"[Applause]",
	"[APPLAUSE]",
	"[Laughter]",
	"[LAUGHTER]",
	"[Inaudible]",
	">>",
}

// TitleBlacklist drops stopword-grade pages that the annotation service
// attaches to almost any text. Matched against the annotation title exactly,
// case-sensitive.
var TitleBlacklist = []string{
	"The",
	"A",
	"An",
	"Of",
	"And",
	"In",
	"It",
	"This",
	"All rights reserved",
}

func titleBlacklisted(title string) bool {
	for _, t := range TitleBlacklist {
		if title == t {
			return true
		}
	}
	return false
}

func stripBlacklistedTerms(text string) string {
	for _, term := range TextBlacklist {
		text = removeAll(text, term)
	}
	return text
}
