package enrich

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Section is a time-aligned slice of a video transcript.
type Section struct {
	StartSecond   int
	LengthSeconds int
	Text          string
}

// MaxTranscriptSections caps how many sections a transcript is cut into,
// regardless of video length.
const MaxTranscriptSections = 4

var (
	allCapsRE    = regexp.MustCompile(`[A-Z][A-Z]+`)
	timestampRE  = regexp.MustCompile(`^\d\d+:\d\d$`)
	whitespaceRE = regexp.MustCompile(`[\n\r ]+`)
)

// SplitIntoSections cuts a timestamped transcript into between one and
// MaxTranscriptSections sections of roughly targetSeconds each. Lines that
// look like timestamps mark candidate boundaries; all other lines accumulate
// into the running section. Runs of all-caps letters are treated as caption
// artifacts and removed. The last section absorbs all remaining time up to
// durationSeconds.
func SplitIntoSections(transcript string, durationSeconds, targetSeconds int) []Section {
	lines := strings.Split(allCapsRE.ReplaceAllString(transcript, ""), "\n")

	nSections := int(math.Round(float64(durationSeconds) / float64(targetSeconds)))
	if nSections < 1 {
		nSections = 1
	}
	if nSections > MaxTranscriptSections {
		nSections = MaxTranscriptSections
	}
	secondsPerSection := int(math.Round(float64(durationSeconds)/float64(nSections) - 0.01))

	var (
		sections    []Section
		startSecond int
		text        strings.Builder
	)
	for _, line := range lines {
		if !timestampRE.MatchString(line) {
			text.WriteByte(' ')
			text.WriteString(line)
			continue
		}
		second, err := SecondsFromTimestamp(line)
		if err != nil {
			continue
		}
		if second >= startSecond+secondsPerSection && len(sections) < nSections-1 {
			sections = append(sections, newSection(startSecond, second-startSecond, text.String()))
			startSecond = second
			text.Reset()
		}
	}
	return append(sections, newSection(startSecond, durationSeconds-startSecond, text.String()))
}

func newSection(startSecond, lengthSeconds int, text string) Section {
	return Section{
		StartSecond:   startSecond,
		LengthSeconds: lengthSeconds,
		Text:          strings.TrimSpace(whitespaceRE.ReplaceAllString(text, " ")),
	}
}

// SecondsFromTimestamp parses "MM:SS"-style stamps and duration strings,
// falling back to the "PT4M13S" shape some scrapers emit.
func SecondsFromTimestamp(s string) (int, error) {
	if i := strings.IndexByte(s, ':'); i >= 0 {
		minutes, errM := strconv.Atoi(s[:i])
		seconds, errS := strconv.Atoi(s[i+1:])
		if errM == nil && errS == nil {
			return minutes*60 + seconds, nil
		}
		return 0, fmt.Errorf("malformed timestamp %q", s)
	}
	if m := strings.IndexByte(s, 'M'); m > 2 && strings.HasSuffix(s, "S") {
		minutes, errM := strconv.Atoi(s[2:m])
		seconds, errS := strconv.Atoi(s[m+1 : len(s)-1])
		if errM == nil && errS == nil {
			return minutes*60 + seconds, nil
		}
	}
	return 0, fmt.Errorf("malformed timestamp %q", s)
}
