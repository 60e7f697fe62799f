package feedback

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRating_AcceptedForms(t *testing.T) {
	for r := 1; r <= 5; r++ {
		cases := map[string]string{
			fmt.Sprintf("%d", r):                       "",
			fmt.Sprintf("  %d  ", r):                   "",
			fmt.Sprintf("%d stars", r):                 "",
			fmt.Sprintf("%d STAR", r):                  "",
			fmt.Sprintf("%d/5", r):                     "",
			fmt.Sprintf("%d stars - nice work", r):     "nice work",
			fmt.Sprintf("%d/5 - ok", r):                "ok",
			fmt.Sprintf("Rating: %d", r):               "",
			fmt.Sprintf("score:%d - meh", r):           "meh",
			fmt.Sprintf("RATING : %d/5 -  spaced ", r): "spaced",
			fmt.Sprintf("%d - could be better", r):     "could be better",
			fmt.Sprintf("%d-terse", r):                 "terse",
		}
		for in, comment := range cases {
			got, err := ParseRating(in)
			require.NoError(t, err, in)
			assert.Equal(t, r, got.Score, in)
			assert.Equal(t, comment, got.Comment, in)
		}
	}
}

func TestParseRating_Failures(t *testing.T) {
	for _, in := range []string{
		"",
		"   ",
		"banana",
		"0",
		"6",
		"7 - great",
		"10",
		"45",
		"4.5",
		"-3",
		"4 great",
		"four",
		"rating: 9",
		"score: ",
		"I'd say 4",
		"4 or 5",
	} {
		_, err := ParseRating(in)
		assert.ErrorIs(t, err, ErrUnparseableRating, "%q", in)
	}
}

func TestParseRating_Example(t *testing.T) {
	got, err := ParseRating("4 - could be more detailed")
	require.NoError(t, err)
	assert.Equal(t, 4, got.Score)
	assert.Equal(t, "could be more detailed", got.Comment)
	assert.Equal(t, 0.75, NormalizedScore(got.Score))
}

func TestNormalizedScore(t *testing.T) {
	want := map[int]float64{1: 0, 2: 0.25, 3: 0.5, 4: 0.75, 5: 1.0}
	for r, score := range want {
		assert.Equal(t, score, NormalizedScore(r), "rating %d", r)
	}
}

func TestLooksLikeRating(t *testing.T) {
	assert.True(t, LooksLikeRating("9"))
	assert.True(t, LooksLikeRating("- meh"))
	assert.True(t, LooksLikeRating("Score: x"))
	assert.False(t, LooksLikeRating("what is the weather"))
}

func TestStars(t *testing.T) {
	assert.Equal(t, "★★★☆☆", Stars(3))
	assert.Equal(t, "★★★★☆ (4/5)", describe(4))
}
