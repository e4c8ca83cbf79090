package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"document-assistant/internal/models"
)

var (
	ErrNotFound          = errors.New("session not found")
	ErrDuplicateDocument = errors.New("document already uploaded")
	ErrInvalidTurn       = errors.New("turn index does not reference an assistant reply")
	ErrInvalidMode       = errors.New("unknown session mode")
)

// Session is the per-user state passed into every handler: uploaded documents in
// upload order, their summaries, the conversation and the feedback on it.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu           sync.RWMutex
	mode         models.Mode
	documents    []models.Document
	summaries    map[string]models.Summary
	turns        []models.Turn
	feedback     []models.Feedback
	lastAccessed time.Time
}

// Snapshot is a point-in-time copy of a session, safe to read without locking.
type Snapshot struct {
	ID        string                    `json:"id"`
	Mode      models.Mode               `json:"mode"`
	CreatedAt time.Time                 `json:"createdAt"`
	Documents []models.Document         `json:"documents"`
	Summaries map[string]models.Summary `json:"summaries"`
	Turns     []models.Turn             `json:"turns"`
	Feedback  []models.Feedback         `json:"feedback"`
}

// New creates an empty session. An empty mode defaults to client-asks.
func New(id string, mode models.Mode) (*Session, error) {
	if mode == "" {
		mode = models.ModeClientAsks
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	now := time.Now()
	return &Session{
		ID:           id,
		CreatedAt:    now,
		mode:         mode,
		summaries:    make(map[string]models.Summary),
		lastAccessed: now,
	}, nil
}

func (s *Session) Mode() models.Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

func (s *Session) SetMode(mode models.Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()
	return nil
}

// AddDocument stores a document. Filenames are unique within a session.
func (s *Session) AddDocument(doc models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.documents {
		if d.Filename == doc.Filename {
			return fmt.Errorf("%w: %s", ErrDuplicateDocument, doc.Filename)
		}
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now()
	}
	s.documents = append(s.documents, doc)
	return nil
}

func (s *Session) HasDocument(filename string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.documents {
		if d.Filename == filename {
			return true
		}
	}
	return false
}

// Documents returns the documents in upload order.
func (s *Session) Documents() []models.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Document(nil), s.documents...)
}

func (s *Session) SetSummary(filename string, summary models.Summary) {
	s.mu.Lock()
	s.summaries[filename] = summary
	s.mu.Unlock()
}

func (s *Session) Summary(filename string) (models.Summary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum, ok := s.summaries[filename]
	return sum, ok
}

// AppendExchange records a question and its answer as two turns and returns the
// index of the assistant turn.
func (s *Session) AppendExchange(question, answer string) int {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns,
		models.Turn{Role: models.RoleUser, Content: question, Timestamp: now},
		models.Turn{Role: models.RoleAssistant, Content: answer, Timestamp: now},
	)
	return len(s.turns) - 1
}

func (s *Session) Turns() []models.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Turn(nil), s.turns...)
}

// ResetHistory clears the conversation and the feedback that refers to it.
func (s *Session) ResetHistory() {
	s.mu.Lock()
	s.turns = nil
	s.feedback = nil
	s.mu.Unlock()
}

// AddFeedback rates the assistant turn at index.
func (s *Session) AddFeedback(index int, helpful bool, comment string) (models.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.turns) || s.turns[index].Role != models.RoleAssistant {
		return models.Feedback{}, fmt.Errorf("%w: %d", ErrInvalidTurn, index)
	}
	fb := models.Feedback{
		TurnIndex: index,
		Helpful:   helpful,
		Comment:   comment,
		Timestamp: time.Now(),
	}
	s.feedback = append(s.feedback, fb)
	return fb, nil
}

func (s *Session) Feedback() []models.Feedback {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Feedback(nil), s.feedback...)
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summaries := make(map[string]models.Summary, len(s.summaries))
	for k, v := range s.summaries {
		summaries[k] = v
	}
	return Snapshot{
		ID:        s.ID,
		Mode:      s.mode,
		CreatedAt: s.CreatedAt,
		Documents: append([]models.Document(nil), s.documents...),
		Summaries: summaries,
		Turns:     append([]models.Turn(nil), s.turns...),
		Feedback:  append([]models.Feedback(nil), s.feedback...),
	}
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastAccessed = time.Now()
	s.mu.Unlock()
}

func (s *Session) LastAccessed() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastAccessed
}
