package crawler

// Document is the record the crawler emits for indexing: one fetched and
// parsed page. It crosses the bounded ingestion channel, which is the
// crawler's backpressure point.
type Document struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text"`
}
