package rating

import "context"

// RatingSource returns the ratings each provider received as the accepted
// provider of a completed gig.
type RatingSource interface {
	Ratings(ctx context.Context, providerIDs []int64) (map[int64][]int, error)
}

// Rating is a provider's aggregate. Average is nil when the provider has no
// reviews yet.
type Rating struct {
	ProviderID int64    `json:"provider_id"`
	Average    *float64 `json:"average"`
	Count      int      `json:"count"`
}

func (r Rating) HasRating() bool { return r.Average != nil }

// Mean returns the arithmetic mean of ratings. ok is false for an empty slice.
func Mean(ratings []int) (mean float64, ok bool) {
	if len(ratings) == 0 {
		return 0, false
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return float64(sum) / float64(len(ratings)), true
}

func newRating(providerID int64, ratings []int) Rating {
	out := Rating{ProviderID: providerID, Count: len(ratings)}
	if mean, ok := Mean(ratings); ok {
		out.Average = &mean
	}
	return out
}

// Service computes ratings on every call; nothing is cached.
type Service struct {
	source RatingSource
}

func NewService(source RatingSource) *Service {
	return &Service{source: source}
}

func (s *Service) ProviderRating(ctx context.Context, providerID int64) (Rating, error) {
	all, err := s.source.Ratings(ctx, []int64{providerID})
	if err != nil {
		return Rating{}, err
	}
	return newRating(providerID, all[providerID]), nil
}

// ProviderRatings computes ratings for a listing in one query. Every requested
// id is present in the result.
func (s *Service) ProviderRatings(ctx context.Context, providerIDs []int64) (map[int64]Rating, error) {
	ids := uniqueIDs(providerIDs)
	all, err := s.source.Ratings(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]Rating, len(ids))
	for _, id := range ids {
		out[id] = newRating(id, all[id])
	}
	return out, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
