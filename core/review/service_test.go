package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeStats(t *testing.T) {
	ratings := func(rs ...int) []Review {
		reviews := make([]Review, 0, len(rs))
		for _, r := range rs {
			reviews = append(reviews, Review{Rating: r})
		}
		return reviews
	}

	tests := []struct {
		name    string
		reviews []Review
		want    Stats
	}{
		{
			name: "no reviews",
			want: Stats{Distribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}},
		},
		{
			name:    "rounded to one decimal",
			reviews: ratings(5, 4, 4),
			want:    Stats{AverageRating: 4.3, TotalReviews: 3, Distribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 2, 5: 1}},
		},
		{
			name:    "rounded up",
			reviews: ratings(5, 5, 4),
			want:    Stats{AverageRating: 4.7, TotalReviews: 3, Distribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 1, 5: 2}},
		},
		{
			name:    "spread",
			reviews: ratings(1, 2, 3, 4, 5, 5),
			want:    Stats{AverageRating: 3.3, TotalReviews: 6, Distribution: map[int]int{1: 1, 2: 1, 3: 1, 4: 1, 5: 2}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeStats(tt.reviews))
		})
	}
}
