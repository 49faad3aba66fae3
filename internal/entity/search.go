package entity

// SearchQuery is what a strategy asks the search index for.
type SearchQuery struct {
	Text     string
	Vector   []float32
	Top      int
	Filter   string
	Semantic bool
	Captions bool
}

type SearchDocument struct {
	SourcePage string
	Content    string
	Captions   []string
	Score      float64
}
