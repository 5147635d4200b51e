package model

import "time"

// GeneratedQuestion is a speaking-test question produced by the language model.
type GeneratedQuestion struct {
	ID        int       `json:"id"`
	Topic     string    `json:"topic"`
	Question  string    `json:"question"`
	CreatedAt time.Time `json:"created_at"`
}

// GenerateQuestionRequest is the payload for single-topic generation.
type GenerateQuestionRequest struct {
	Topic string `json:"topic" binding:"required,max=255"`
}

// GenerateQuestionsRequest is the payload for batch generation.
// A non-array value or a non-string element fails JSON binding.
type GenerateQuestionsRequest struct {
	Topics []string `json:"topics" binding:"required,min=1,dive,required,max=255"`
}

// TopicError reports why one topic of a batch produced no question.
// Error is an error code; Message never carries upstream or database detail.
type TopicError struct {
	Topic   string `json:"topic"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// BatchOutcome aggregates the settled topics of one batch request.
type BatchOutcome struct {
	Generated []GeneratedQuestion `json:"generated"`
	Errors    []TopicError        `json:"errors"`
}

// Status returns 200 when every topic succeeded and 207 otherwise,
// including when every topic failed.
func (o *BatchOutcome) Status() int {
	if len(o.Errors) == 0 {
		return 200
	}
	return 207
}
