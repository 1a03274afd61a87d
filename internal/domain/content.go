package domain

// ContentSource selects how a rule's content-based conditions resolve a
// file's text (§4.9).
type ContentSource string

const (
	ContentText ContentSource = "text"
	ContentOCR  ContentSource = "ocr"
	ContentAuto ContentSource = "auto"
)
