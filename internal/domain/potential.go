package domain

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// ─── Daily Potential Estimator ──────────────────────────────────────────────
// Projects what an active player could earn per day from their current stats.
// Pure function: identical inputs always yield identical output.

// Assumed daily activity behind the projection.
const (
	PotentialDailyTaps      = 600
	PotentialMissionReward  = 0.5
	PotentialLoginReward    = 0.1
	PotentialReputationRate = 0.0001
	PotentialDaysPerMonth   = 30
)

// PlayerStats are the inputs to the estimator.
type PlayerStats struct {
	Level       int     `json:"level"`
	Reputation  float64 `json:"reputation"`
	NFTCount    int     `json:"nftCount"`
	AvgNFTLevel float64 `json:"avgNFTLevel"`
}

// DefaultPlayerStats is a fresh player: level 1, no reputation, one level-1 NFT.
func DefaultPlayerStats() PlayerStats {
	return PlayerStats{Level: 1, Reputation: 0, NFTCount: 1, AvgNFTLevel: 1}
}

// clamp keeps level at least 1 and reputation non-negative.
func (s PlayerStats) clamp() PlayerStats {
	if s.Level < 1 {
		s.Level = 1
	}
	if s.Reputation < 0 {
		s.Reputation = 0
	}
	return s
}

// PotentialInput is the wire form of PlayerStats. A nil field is absent and
// takes its DefaultPlayerStats value; an explicit zero is kept.
type PotentialInput struct {
	Level       *int     `json:"level,omitempty"`
	Reputation  *float64 `json:"reputation,omitempty"`
	NFTCount    *int     `json:"nftCount,omitempty"`
	AvgNFTLevel *float64 `json:"avgNFTLevel,omitempty"`
}

// Stats resolves absent fields to their defaults.
func (in PotentialInput) Stats() PlayerStats {
	s := DefaultPlayerStats()
	if in.Level != nil {
		s.Level = *in.Level
	}
	if in.Reputation != nil {
		s.Reputation = *in.Reputation
	}
	if in.NFTCount != nil {
		s.NFTCount = *in.NFTCount
	}
	if in.AvgNFTLevel != nil {
		s.AvgNFTLevel = *in.AvgNFTLevel
	}
	return s
}

// DailyPotential is the per-source projection, rounded to 4 decimal places.
type DailyPotential struct {
	TapEarnings        float64 `json:"tapEarnings"`
	EvolutionEarnings  float64 `json:"evolutionEarnings"`
	ReputationEarnings float64 `json:"reputationEarnings"`
	MissionEarnings    float64 `json:"missionEarnings"`
	LoginEarnings      float64 `json:"loginEarnings"`
	TotalDaily         float64 `json:"totalDaily"`
	TotalMonthly       float64 `json:"totalMonthly"`
}

// CalculateDailyEarningPotential projects daily and monthly earnings.
//
//	tap        = 0.001 × 600 × (1 + (level−1) × 0.1)
//	evolution  = 0.1 + avgNFTLevel × 0.05
//	reputation = reputation × 0.0001
//	mission    = 0.5
//	login      = 0.1
func CalculateDailyEarningPotential(stats PlayerStats) DailyPotential {
	s := stats.clamp()

	tap := 0.001 * PotentialDailyTaps * (1 + float64(s.Level-1)*0.1)
	evolution := 0.1 + s.AvgNFTLevel*0.05
	reputation := s.Reputation * PotentialReputationRate
	mission := PotentialMissionReward
	login := PotentialLoginReward

	total := tap + evolution + reputation + mission + login

	return DailyPotential{
		TapEarnings:        round4(tap),
		EvolutionEarnings:  round4(evolution),
		ReputationEarnings: round4(reputation),
		MissionEarnings:    round4(mission),
		LoginEarnings:      round4(login),
		TotalDaily:         round4(total),
		TotalMonthly:       round4(total * PotentialDaysPerMonth),
	}
}

// round4 rounds the exact binary value of v to 4 decimal places, ties away
// from zero, and returns the nearest float64 to the result.
func round4(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r := new(big.Rat).SetFloat64(v)
	r.Mul(r, big.NewRat(10000, 1))

	n, rem := new(big.Int).QuoRem(r.Num(), r.Denom(), new(big.Int))
	// tie or above when 2|rem| >= denom
	rem.Abs(rem).Lsh(rem, 1)
	if rem.Cmp(r.Denom()) >= 0 {
		if r.Sign() < 0 {
			n.Sub(n, big.NewInt(1))
		} else {
			n.Add(n, big.NewInt(1))
		}
	}
	return decimal.NewFromBigInt(n, -4).InexactFloat64()
}
