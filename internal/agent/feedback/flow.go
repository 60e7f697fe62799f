package feedback

import (
	"strings"

	"github.com/Chative-core-poc-v1/chatcli/internal/agent/model"
)

// State is the position of the rating conversation.
type State int

const (
	StateIdle State = iota
	StateAwaitingRating
	StateAwaitingComment
)

func (s State) String() string {
	switch s {
	case StateAwaitingRating:
		return "awaiting_rating"
	case StateAwaitingComment:
		return "awaiting_comment"
	default:
		return "idle"
	}
}

// OutcomeKind tells the caller what to do with the input it just fed in.
type OutcomeKind int

const (
	// OutcomeNotFeedback: the input is a normal conversation turn.
	OutcomeNotFeedback OutcomeKind = iota
	// OutcomeSkipped: the user declined to rate.
	OutcomeSkipped
	// OutcomeReprompt: the input looked like a rating but did not parse.
	OutcomeReprompt
	// OutcomeNeedComment: a rating was accepted; ask for an optional comment.
	OutcomeNeedComment
	// OutcomeReady: Request is complete and should be submitted.
	OutcomeReady
)

type Outcome struct {
	Kind    OutcomeKind
	Request Request
}

// target is the trace the pending rating belongs to.
type target struct {
	traceID  string
	threadID string
}

// Flow is the Idle -> AwaitingRating -> AwaitingComment -> Idle state machine.
// The rating awaiting a comment lives inside the flow, so a comment can never
// arrive without one.
type Flow struct {
	state  State
	target target
	rating model.Rating
	key    string
}

func NewFlow(key string) *Flow {
	return &Flow{key: key}
}

func (f *Flow) State() State {
	return f.state
}

// Await starts asking for a rating of the given trace.
func (f *Flow) Await(traceID, threadID string) {
	f.state = StateAwaitingRating
	f.target = target{traceID: traceID, threadID: threadID}
	f.rating = model.Rating{}
}

// Reset returns to Idle, dropping any pending rating.
func (f *Flow) Reset() {
	f.state = StateIdle
	f.target = target{}
	f.rating = model.Rating{}
}

// Handle feeds one line of user input through the machine.
func (f *Flow) Handle(text string) Outcome {
	trimmed := strings.TrimSpace(text)

	switch f.state {
	case StateAwaitingRating:
		if trimmed == "" || isSkip(trimmed) {
			f.Reset()
			return Outcome{Kind: OutcomeSkipped}
		}
		rating, err := ParseRating(trimmed)
		if err != nil {
			if LooksLikeRating(trimmed) {
				return Outcome{Kind: OutcomeReprompt}
			}
			f.Reset()
			return Outcome{Kind: OutcomeNotFeedback}
		}
		if rating.Comment != "" {
			return f.complete(rating)
		}
		f.rating = rating
		f.state = StateAwaitingComment
		return Outcome{Kind: OutcomeNeedComment}

	case StateAwaitingComment:
		rating := f.rating
		if !isSkip(trimmed) {
			rating.Comment = trimmed
		}
		return f.complete(rating)

	default:
		return Outcome{Kind: OutcomeNotFeedback}
	}
}

func (f *Flow) complete(rating model.Rating) Outcome {
	req := Request{
		Rating:   rating,
		Key:      f.key,
		TraceID:  f.target.traceID,
		ThreadID: f.target.threadID,
	}
	f.Reset()
	return Outcome{Kind: OutcomeReady, Request: req}
}

func isSkip(s string) bool {
	switch strings.ToLower(s) {
	case "skip", "s", "no", "n":
		return true
	}
	return false
}
