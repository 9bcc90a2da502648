package models

import (
	"math"
)

// WeightSettings maps bet types and novelty values to their scoring weights.
type WeightSettings struct {
	BetType map[BetType]float64 `json:"betType"`
	Novelty map[Novelty]float64 `json:"novelty"`
}

// DefaultWeightSettings returns a fresh copy of the default weights.
func DefaultWeightSettings() WeightSettings {
	return WeightSettings{
		BetType: map[BetType]float64{
			BetNewProduct: 3.0,
			BetFeature:    1.5,
			BetIteration:  1.0,
			BetExperiment: 1.0,
		},
		Novelty: map[Novelty]float64{
			NoveltyNewBehavior:  1.5,
			NoveltyNewPersona:   1.3,
			NoveltyKnownProblem: 1.0,
		},
	}
}

// Clone returns a copy that shares no maps with s.
func (s WeightSettings) Clone() WeightSettings {
	c := WeightSettings{
		BetType: make(map[BetType]float64, len(s.BetType)),
		Novelty: make(map[Novelty]float64, len(s.Novelty)),
	}
	for k, v := range s.BetType {
		c.BetType[k] = v
	}
	for k, v := range s.Novelty {
		c.Novelty[k] = v
	}
	return c
}

// Validate checks that every bet type and novelty has a positive, finite weight.
func (s *WeightSettings) Validate() error {
	for _, b := range BetTypes {
		w, ok := s.BetType[b]
		if !ok {
			return NewConfigError("betType."+string(b), "is missing")
		}
		if !validWeight(w) {
			return NewConfigError("betType."+string(b), "must be a positive number")
		}
	}
	for _, n := range Novelties {
		w, ok := s.Novelty[n]
		if !ok {
			return NewConfigError("novelty."+string(n), "is missing")
		}
		if !validWeight(w) {
			return NewConfigError("novelty."+string(n), "must be a positive number")
		}
	}
	return nil
}

func validWeight(w float64) bool {
	return w > 0 && !math.IsInf(w, 0) && !math.IsNaN(w)
}
