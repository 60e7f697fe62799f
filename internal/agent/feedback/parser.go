package feedback

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Chative-core-poc-v1/chatcli/internal/agent/model"
)

// ErrUnparseableRating means the text matched none of the rating templates;
// the caller should ask again.
var ErrUnparseableRating = errors.New("could not parse rating")

const (
	MinRating = 1
	MaxRating = 5
)

// Rating templates in precedence order. The score group only admits 1-5 and
// must not be followed by another digit, so "0", "7" and "10" never match.
var ratingPatterns = []*regexp.Regexp{
	// 4 | 4 stars | 4/5 [- comment]
	regexp.MustCompile(`(?i)^([1-5])\s*(?:stars?|/\s*5)?\s*(?:-\s*(.*))?$`),
	// Rating: 4 | Score: 4 [- comment]
	regexp.MustCompile(`(?i)^(?:rating|score)\s*:\s*([1-5])(?:\s*(?:stars?|/\s*5))?\s*(?:-\s*(.*))?$`),
	// 4 - comment
	regexp.MustCompile(`(?i)^([1-5])\s*-\s*(.*)$`),
	// 4
	regexp.MustCompile(`^([1-5])$`),
}

var ratingAttempt = regexp.MustCompile(`(?i)^(?:\d|-|rating\s*:|score\s*:)`)

// ParseRating converts free text into a rating. It is a strict grammar over a
// few literal templates: no rounding, clamping or guessing.
func ParseRating(text string) (model.Rating, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Rating{}, ErrUnparseableRating
	}
	for _, re := range ratingPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		score, err := strconv.Atoi(m[1])
		if err != nil || score < MinRating || score > MaxRating {
			return model.Rating{}, ErrUnparseableRating
		}
		var comment string
		if len(m) > 2 {
			comment = strings.TrimSpace(m[2])
		}
		return model.Rating{Score: score, Comment: comment}, nil
	}
	return model.Rating{}, ErrUnparseableRating
}

// LooksLikeRating reports whether text was probably meant as a rating, so a
// failed parse should re-prompt instead of starting a new turn.
func LooksLikeRating(text string) bool {
	return ratingAttempt.MatchString(strings.TrimSpace(text))
}

// NormalizedScore maps 1..5 onto 0..1.
func NormalizedScore(score int) float64 {
	return float64(score-MinRating) / float64(MaxRating-MinRating)
}

// Stars renders a rating as filled and empty stars.
func Stars(score int) string {
	if score < 0 {
		score = 0
	}
	if score > MaxRating {
		score = MaxRating
	}
	return strings.Repeat("★", score) + strings.Repeat("☆", MaxRating-score)
}

// describe is the short form used in confirmations, e.g. "★★★★☆ (4/5)".
func describe(score int) string {
	return fmt.Sprintf("%s (%d/%d)", Stars(score), score, MaxRating)
}
