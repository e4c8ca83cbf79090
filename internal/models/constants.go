package models

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Mode selects who asks the questions in a session.
type Mode string

const (
	ModeClientAsks  Mode = "client-asks"
	ModeAdvisorAsks Mode = "advisor-asks"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeClientAsks || m == ModeAdvisorAsks
}

const (
	ContextSeparator   = "\n\n"
	SmartQuestionCount = 5
	ThinkTag           = `(?s)<think>.*?</think>`
)

var (
	SummarySystemPrompt = "You are a helpful AI assistant working alongside a consultant."

	SummaryPromptTemplate = `You are a consultant. Summarize the document below and then generate %d smart questions a consultant should ask about it.

Reply in exactly this layout:
Summary:
<a few short paragraphs>

Questions:
1. <question>
2. <question>
...

Document (%s):
%s`

	AnswerSystemPrompt = "You are a document-savvy AI assistant. Answer only from the documents you are given. If the documents do not contain the answer, say so."

	AnswerPromptTemplate = `Answer the question using the following documents.

Documents:
%s

Question: %s`

	AdvisorSystemPrompt = "You are an experienced advisor preparing for a client conversation. You ask sharp, specific questions grounded in the client's documents."

	AdvisorPromptTemplate = `Using the documents below as background, list the questions an advisor should ask the client about the following topic. Number the questions and keep each to one sentence.

Documents:
%s

Topic: %s`

	ImageTextPrompt = "Please extract all the text from this document image. Reply with the extracted text only."
)
