package enrich

import "math"

// CharacterLimit is the annotation service's hard per-call cap.
const CharacterLimit = 24999

// MinTextLength is the shortest text worth chunking; shorter documents fail
// with ErrContentTooShort at the pipeline level.
const MinTextLength = 500

// SplitIntoParts slices text into consecutive equal-sized windows. The part
// count grows sublinearly with document length (exponent 0.7) with a floor
// of three parts for small documents, while no part ever exceeds
// CharacterLimit. Returns nil for texts shorter than MinTextLength.
func SplitIntoParts(text string) []string {
	runes := []rune(text)
	n := len(runes)
	if n < MinTextLength {
		return nil
	}
	nParts := math.Max(
		float64(n)/float64(CharacterLimit),
		float64(int(math.Pow(float64(n)/5000, 0.7))+3),
	)
	size := int(math.Ceil(float64(n) / nParts))
	parts := make([]string, 0, n/size+1)
	for i := 0; i < n; i += size {
		end := i + size
		if end > n {
			end = n
		}
		parts = append(parts, string(runes[i:end]))
	}
	return parts
}
