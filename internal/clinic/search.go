package clinic

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
)

const earthRadiusKm = 6371.0

// HaversineKm is the great-circle distance between two coordinates.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Searcher ranks doctor-clinic pairings by distance from the caller.
type Searcher struct {
	repo Repository
}

func NewSearcher(repo Repository) *Searcher {
	return &Searcher{repo: repo}
}

func (p SearchParams) validate() error {
	if (p.Latitude == nil) != (p.Longitude == nil) {
		return fmt.Errorf("%w: latitude and longitude must be given together", ErrInvalidSearch)
	}
	if p.Latitude != nil && (*p.Latitude < -90 || *p.Latitude > 90) {
		return fmt.Errorf("%w: latitude out of range", ErrInvalidSearch)
	}
	if p.Longitude != nil && (*p.Longitude < -180 || *p.Longitude > 180) {
		return fmt.Errorf("%w: longitude out of range", ErrInvalidSearch)
	}
	if p.MaxDistanceKm != nil && *p.MaxDistanceKm < 0 {
		return fmt.Errorf("%w: max distance must not be negative", ErrInvalidSearch)
	}
	return nil
}

// Search filters by specialty and free-text query, computes distances when an
// origin is given, drops anything beyond MaxDistanceKm and sorts nearest first.
// Without an origin every distance is 0 and results are ordered by doctor name.
func (s *Searcher) Search(ctx context.Context, p SearchParams) ([]SearchResult, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	candidates, err := s.repo.ListSearchCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("search doctors: %w", err)
	}

	specialty := strings.TrimSpace(p.Specialty)
	query := strings.ToLower(strings.TrimSpace(p.Query))
	hasOrigin := p.Latitude != nil && p.Longitude != nil

	results := make([]SearchResult, 0, len(candidates))
	for _, c := range candidates {
		if specialty != "" && !strings.EqualFold(c.Specialty, specialty) {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(c.DoctorName), query) &&
			!strings.Contains(strings.ToLower(c.Specialty), query) {
			continue
		}

		var distance float64
		if hasOrigin {
			distance = HaversineKm(*p.Latitude, *p.Longitude, c.Latitude, c.Longitude)
			if p.MaxDistanceKm != nil && distance > *p.MaxDistanceKm {
				continue
			}
		}
		results = append(results, SearchResult{SearchCandidate: c, DistanceKm: distance})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].DistanceKm != results[j].DistanceKm {
			return results[i].DistanceKm < results[j].DistanceKm
		}
		if results[i].DoctorName != results[j].DoctorName {
			return results[i].DoctorName < results[j].DoctorName
		}
		return results[i].DoctorClinicID < results[j].DoctorClinicID
	})

	return results, nil
}
