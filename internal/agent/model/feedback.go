package model

import "time"

// DefaultFeedbackKey is the category key attached to ratings when none is configured.
const DefaultFeedbackKey = "user_rating"

// Rating is a parsed 1..5 star rating with an optional comment.
type Rating struct {
	Score   int
	Comment string
}

// FeedbackRecord is created once per accepted rating and never mutated afterwards.
type FeedbackRecord struct {
	ID        string    `json:"id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	Key       string    `json:"key"`
	TraceID   string    `json:"trace_id"`
	ThreadID  string    `json:"thread_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Submitted bool      `json:"submitted"`
}
