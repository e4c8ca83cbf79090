package models

import "time"

// Document is one uploaded file and its extracted text. Documents are never mutated
// after upload.
type Document struct {
	Filename   string    `json:"filename"`
	Text       string    `json:"-"`
	Size       int       `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Chunk is a contiguous, paragraph-aligned piece of a document's text.
type Chunk struct {
	Content  string `json:"content"`
	Source   string `json:"source"`
	Position int    `json:"position"`
}

// Summary is the generated overview of a document plus its smart questions.
type Summary struct {
	Text      string   `json:"text"`
	Questions []string `json:"questions"`
}

// Message is one entry of a chat-completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Turn is one entry of a session's conversation history.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Feedback records whether an assistant turn was helpful.
type Feedback struct {
	TurnIndex int       `json:"turnIndex"`
	Helpful   bool      `json:"helpful"`
	Comment   string    `json:"comment,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type PromptResponse struct {
	Query     string `json:"query"`
	Answer    string `json:"answer"`
	Context   string `json:"-"`
	TurnIndex int    `json:"turnIndex"`
}
