package domain

// FallbackTitle is used when neither the platform nor the LLM produced a title.
const FallbackTitle = "未知视频"

// Transcript is a resolved video plus its cleaned-up speech text.
type Transcript struct {
	Title     string  `json:"title"`
	Author    string  `json:"author"`
	SourceURL string  `json:"source_url"`
	PlayURL   string  `json:"play_url"`
	Duration  float64 `json:"duration"`
	Text      string  `json:"text"`
	Summary   string  `json:"summary"`
}

// SavedDocument references a transcript stored in the document store.
type SavedDocument struct {
	URL   string `json:"doc_url"`
	Title string `json:"doc_title"`
}
