package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ─── Reward-Rate Policy ─────────────────────────────────────────────────────
// The game economy. These rates are fixed constants and are not configurable.

var (
	TapBaseReward        = decimal.RequireFromString("0.001")
	TapLevelBonus        = decimal.RequireFromString("0.1")
	EvolutionBaseReward  = decimal.RequireFromString("0.1")
	EvolutionLevelBonus  = decimal.RequireFromString("0.05")
	TransferRewardAmount = decimal.RequireFromString("0.05")
	ReputationPointRate  = decimal.RequireFromString("0.02")
	LoginBaseReward      = decimal.RequireFromString("0.1")
	LoginStreakBonus     = decimal.RequireFromString("0.05")
	NFTSaleFeeShare      = decimal.RequireFromString("0.005")
	ReferralShare        = decimal.RequireFromString("0.1")
	GovernanceVoteReward = decimal.RequireFromString("0.5")
	DefaultContribution  = decimal.RequireFromString("0.5")
)

// MissionDifficulty selects a mission reward tier.
type MissionDifficulty string

const (
	DifficultyEasy      MissionDifficulty = "easy"
	DifficultyNormal    MissionDifficulty = "normal"
	DifficultyHard      MissionDifficulty = "hard"
	DifficultyLegendary MissionDifficulty = "legendary"
)

var missionRewards = map[MissionDifficulty]decimal.Decimal{
	DifficultyEasy:      decimal.RequireFromString("0.2"),
	DifficultyNormal:    decimal.RequireFromString("0.5"),
	DifficultyHard:      decimal.RequireFromString("1.0"),
	DifficultyLegendary: decimal.RequireFromString("2.5"),
}

// levelMultiplier returns 1 + (level-1)*0.1; levels below 1 count as 1.
func levelMultiplier(level int) decimal.Decimal {
	if level < 1 {
		level = 1
	}
	return decimal.NewFromInt(1).Add(decimal.NewFromInt(int64(level - 1)).Mul(TapLevelBonus))
}

// TapReward is 0.001 × taps × (1 + (level−1) × 0.1).
func TapReward(level, taps int) decimal.Decimal {
	return TapBaseReward.Mul(decimal.NewFromInt(int64(taps))).Mul(levelMultiplier(level))
}

// EvolutionReward is 0.1 + nftLevel × 0.05.
func EvolutionReward(nftLevel int) decimal.Decimal {
	return EvolutionBaseReward.Add(decimal.NewFromInt(int64(nftLevel)).Mul(EvolutionLevelBonus))
}

// TransferReward is a flat 0.05 per instant transfer.
func TransferReward() decimal.Decimal {
	return TransferRewardAmount
}

// ReputationReward is 0.02 per reputation point gained.
func ReputationReward(points int) decimal.Decimal {
	return ReputationPointRate.Mul(decimal.NewFromInt(int64(points)))
}

// MissionReward looks up the difficulty tier; unknown difficulties pay the normal rate.
func MissionReward(difficulty MissionDifficulty) decimal.Decimal {
	if r, ok := missionRewards[MissionDifficulty(strings.ToLower(string(difficulty)))]; ok {
		return r
	}
	return missionRewards[DifficultyNormal]
}

// DailyLoginReward is 0.1 + consecutiveDays × 0.05.
func DailyLoginReward(consecutiveDays int) decimal.Decimal {
	return LoginBaseReward.Add(decimal.NewFromInt(int64(consecutiveDays)).Mul(LoginStreakBonus))
}

// NFTSaleReward is a 0.5% fee share of the sale value.
func NFTSaleReward(saleValue decimal.Decimal) decimal.Decimal {
	return saleValue.Mul(NFTSaleFeeShare)
}

// ReferralReward is 10% of the referred amount.
func ReferralReward(referralAmount decimal.Decimal) decimal.Decimal {
	return referralAmount.Mul(ReferralShare)
}

// GovernanceReward is a flat 0.5 per vote.
func GovernanceReward() decimal.Decimal {
	return GovernanceVoteReward
}

// ContributionReward returns the caller-supplied amount, or 0.5 when none was given.
func ContributionReward(amount decimal.Decimal) decimal.Decimal {
	if amount.IsZero() {
		return DefaultContribution
	}
	return amount
}
