package domain

import "math"

// ReviewSummary contains aggregate review statistics for a product.
// AverageRating is the exact mean; round it with DisplayRating for output.
type ReviewSummary struct {
	AverageRating   float64 `json:"average_rating"`
	NumberOfRatings int     `json:"number_of_ratings"`
}

// SummarizeRatings averages the given ratings. The average of no ratings is 0.
func SummarizeRatings(ratings []int) ReviewSummary {
	if len(ratings) == 0 {
		return ReviewSummary{}
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return ReviewSummary{
		AverageRating:   float64(sum) / float64(len(ratings)),
		NumberOfRatings: len(ratings),
	}
}

// DisplayRating is the average rounded to one decimal place.
func (s ReviewSummary) DisplayRating() float64 {
	return math.Round(s.AverageRating*10) / 10
}
