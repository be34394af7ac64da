package domain

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

type FeedbackType string

const (
	FeedbackNone    FeedbackType = ""
	FeedbackLike    FeedbackType = "like"
	FeedbackDislike FeedbackType = "dislike"
)

func (f FeedbackType) Valid() bool {
	return f == FeedbackLike || f == FeedbackDislike
}

// MemoryCitation is a memory the assistant cited as evidence for a
// response.
type MemoryCitation struct {
	ID      string
	Content string
}

// Message is a single transcript entry. Messages are append-only; the
// only field mutated after creation is Feedback.
type Message struct {
	ID           string
	Content      string
	Sender       Sender
	Timestamp    string
	UsedMemories []MemoryCitation
	Feedback     FeedbackType
	// IsError marks a synthetic assistant message appended in place of a
	// reply that never arrived.
	IsError bool
}
