package enrich

// Entity is a linked-data reference (a Wikidata item) for a topic mentioned
// in a chunk.
type Entity struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Chunk is a position-bounded segment of a resource's content. Start and
// Length are fractions of the whole content span: chunks of one enrichment
// tile [0,1) contiguously and the last chunk ends at exactly 1.0.
type Chunk struct {
	Start    float64  `json:"start"`
	Length   float64  `json:"length"`
	Entities []Entity `json:"entities"`
	Text     string   `json:"text"`
}

// Mention records one occurrence of an entity inside the resource text.
type Mention struct {
	Sentence           string  `json:"sentence"`
	PositionInResource float64 `json:"positionInResource"`
}

// Enrichment is the finished output for one resource. It is handed to the
// collaborator store wholesale and never mutated afterwards.
type Enrichment struct {
	Chunks    []Chunk              `json:"chunks"`
	Mentions  map[string][]Mention `json:"mentions"`
	TopTitles []string             `json:"top_titles"`
	Errors    bool                 `json:"errors"`
}

// Resource mirrors the collaborator store's OER record. Read-only to the
// pipeline; only the fields the chunkifiers consume are carried.
type Resource struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	MediaType   string `json:"mediatype"`
	Duration    string `json:"duration"`
	Transcript  string `json:"transcript"`
}
