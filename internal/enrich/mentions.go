package enrich

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

var (
	sentenceEndRE = regexp.MustCompile(`[.!?]( |$)`)
	parenthesesRE = regexp.MustCompile(`\([^)]*\)`)
)

// ExtractMentions locates each entity's title inside the chunk texts and
// records the surrounding sentence together with its fractional position in
// the resource. Titles are matched case-insensitively with parenthesized
// qualifiers stripped, so "Strategy (game theory)" matches "strategy".
func ExtractMentions(chunks []Chunk) map[string][]Mention {
	mentions := make(map[string][]Mention)
	for _, entity := range distinctEntities(chunks) {
		title := strings.TrimSpace(parenthesesRE.ReplaceAllString(strings.ToLower(entity.Title), ""))
		if title == "" {
			continue
		}
		for _, chunk := range chunks {
			lower := strings.ToLower(chunk.Text)
			offset := 0
			for {
				i := strings.Index(lower[offset:], title)
				if i < 0 {
					break
				}
				// Focus on the middle of the title to absorb variations in
				// surrounding blanks.
				position := offset + i + len(title)/2
				offset += i + len(title)
				sentence, posInChunk := sentenceAt(chunk.Text, position)
				if len(sentence) > 200 { // probably not a normal sentence
					sentence, posInChunk = excerptAt(chunk.Text, position)
				}
				positionInResource := round4(chunk.Start + chunk.Length*float64(posInChunk)/float64(len(chunk.Text)))
				prev := mentions[entity.ID]
				if len(prev) > 0 && prev[len(prev)-1].PositionInResource == positionInResource {
					continue
				}
				mentions[entity.ID] = append(prev, Mention{Sentence: sentence, PositionInResource: positionInResource})
			}
		}
	}
	return mentions
}

// TopTitles returns the five most frequent entity titles across all chunks.
func TopTitles(chunks []Chunk) []string {
	occurrences := make(map[string]int)
	var order []string
	for _, chunk := range chunks {
		for _, entity := range chunk.Entities {
			if occurrences[entity.Title] == 0 {
				order = append(order, entity.Title)
			}
			occurrences[entity.Title]++
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return occurrences[order[i]] > occurrences[order[j]]
	})
	if len(order) > 5 {
		order = order[:5]
	}
	return order
}

// distinctEntities flattens chunk entities, deduplicated by id. Titles of a
// single character are dropped: one-letter names of mathematical variables
// mention everything and mean nothing.
func distinctEntities(chunks []Chunk) []Entity {
	seen := make(map[string]bool)
	var entities []Entity
	for _, chunk := range chunks {
		for _, entity := range chunk.Entities {
			if seen[entity.ID] || len(entity.Title) <= 1 {
				continue
			}
			seen[entity.ID] = true
			entities = append(entities, entity)
		}
	}
	return entities
}

// sentenceAt returns the sentence containing position and the byte offset
// where the sentence starts in text.
func sentenceAt(text string, position int) (string, int) {
	ends := sentenceEndRE.FindAllStringIndex(text, -1)
	if len(ends) == 0 {
		return text, 0
	}
	start := 0
	for _, end := range ends {
		if end[0] > position {
			return text[start : end[0]+1], start
		}
		start = end[0] + 1
	}
	return text[start:], start
}

// excerptAt returns a word-bounded window of roughly 150 characters around
// position, for texts where sentence detection found nothing sane.
func excerptAt(text string, position int) (string, int) {
	start := position - 70
	if start < 0 {
		start = 0
	}
	end := position + 80
	if end > len(text) {
		end = len(text)
	}
	words := strings.Split(text[start:end], " ")
	if len(words) > 2 {
		words = words[1 : len(words)-1]
	}
	return "…" + strings.Join(words, " ") + "…", start
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
