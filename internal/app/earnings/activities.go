package earnings

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/hashing-heroes/heroes/internal/domain"
)

// ─── Activity Rewards ───────────────────────────────────────────────────────
// Each game activity prices its reward with the fixed rate policy in domain
// and records it with a human-readable description.

// EarnFromTapping rewards a batch of taps at the player's level.
func (l *Ledger) EarnFromTapping(address string, level, taps int) (domain.EarningRecord, error) {
	if level < 1 {
		level = 1
	}
	return l.AddEarning(address, domain.TapReward(level, taps), domain.SourceTap,
		fmt.Sprintf("Earned from %d taps at level %d", taps, level))
}

// EarnFromNFTEvolution rewards an NFT reaching nftLevel.
func (l *Ledger) EarnFromNFTEvolution(address string, nftLevel int) (domain.EarningRecord, error) {
	return l.AddEarning(address, domain.EvolutionReward(nftLevel), domain.SourceNFTEvolution,
		fmt.Sprintf("NFT evolved to level %d", nftLevel))
}

// EarnFromTransfer rewards an instant NFT transfer.
func (l *Ledger) EarnFromTransfer(address string, nftID int64) (domain.EarningRecord, error) {
	return l.AddEarning(address, domain.TransferReward(), domain.SourceInstantTransfer,
		fmt.Sprintf("Instant transfer of NFT #%d on BlockDAG", nftID))
}

// EarnFromReputation rewards a reputation gain of points.
func (l *Ledger) EarnFromReputation(address string, points int) (domain.EarningRecord, error) {
	return l.AddEarning(address, domain.ReputationReward(points), domain.SourceReputation,
		fmt.Sprintf("Reputation increased by %d points", points))
}

// EarnFromMission rewards a completed mission by difficulty tier.
func (l *Ledger) EarnFromMission(address, missionID string, difficulty domain.MissionDifficulty) (domain.EarningRecord, error) {
	if difficulty == "" {
		difficulty = domain.DifficultyNormal
	}
	return l.AddEarning(address, domain.MissionReward(difficulty), domain.SourceMission,
		fmt.Sprintf("Completed %s mission #%s", difficulty, missionID))
}

// EarnFromDailyLogin rewards a login streak of consecutiveDays.
func (l *Ledger) EarnFromDailyLogin(address string, consecutiveDays int) (domain.EarningRecord, error) {
	return l.AddEarning(address, domain.DailyLoginReward(consecutiveDays), domain.SourceDailyLogin,
		fmt.Sprintf("Daily login streak: %d days", consecutiveDays))
}

// EarnFromNFTSale rewards the 0.5% fee share of a sale.
func (l *Ledger) EarnFromNFTSale(address string, saleValue decimal.Decimal) (domain.EarningRecord, error) {
	return l.AddEarning(address, domain.NFTSaleReward(saleValue), domain.SourceNFTSale,
		fmt.Sprintf("Traded NFT for %s %s", saleValue.String(), domain.Denomination))
}

// EarnFromReferral rewards 10% of a referred user's earnings.
func (l *Ledger) EarnFromReferral(address string, referralAmount decimal.Decimal) (domain.EarningRecord, error) {
	return l.AddEarning(address, domain.ReferralReward(referralAmount), domain.SourceReferral,
		"Referral bonus earned")
}

// EarnFromGovernance rewards a governance vote.
func (l *Ledger) EarnFromGovernance(address, proposalID string) (domain.EarningRecord, error) {
	return l.AddEarning(address, domain.GovernanceReward(), domain.SourceGovernance,
		fmt.Sprintf("Voted on proposal #%s", proposalID))
}

// EarnFromContribution rewards a community contribution. A zero amount pays the default 0.5.
func (l *Ledger) EarnFromContribution(address, contributionType string, amount decimal.Decimal) (domain.EarningRecord, error) {
	return l.AddEarning(address, domain.ContributionReward(amount), domain.SourceCommunity,
		fmt.Sprintf("Community contribution: %s", contributionType))
}

// ─── Activity Dispatch ──────────────────────────────────────────────────────

// Activity describes one rewardable game event. Only the fields relevant to
// Source are read.
type Activity struct {
	Source           domain.Source            `json:"source"`
	Level            int                      `json:"level,omitempty"`
	Taps             int                      `json:"taps,omitempty"`
	NFTLevel         int                      `json:"nft_level,omitempty"`
	NFTID            int64                    `json:"nft_id,omitempty"`
	RepPoints        int                      `json:"rep_points,omitempty"`
	MissionID        string                   `json:"mission_id,omitempty"`
	Difficulty       domain.MissionDifficulty `json:"difficulty,omitempty"`
	ConsecutiveDays  int                      `json:"consecutive_days,omitempty"`
	SaleValue        decimal.Decimal          `json:"sale_value"`
	ReferralAmount   decimal.Decimal          `json:"referral_amount"`
	ProposalID       string                   `json:"proposal_id,omitempty"`
	ContributionType string                   `json:"contribution_type,omitempty"`
	Amount           decimal.Decimal          `json:"amount"`
}

// Earn records the reward for an activity, dispatching on its source.
// Missing counters take the same defaults the game UI uses (one tap, level 1, …).
func (l *Ledger) Earn(address string, act Activity) (domain.EarningRecord, error) {
	switch act.Source {
	case domain.SourceTap:
		return l.EarnFromTapping(address, act.Level, orOne(act.Taps))
	case domain.SourceNFTEvolution:
		return l.EarnFromNFTEvolution(address, orOne(act.NFTLevel))
	case domain.SourceInstantTransfer:
		return l.EarnFromTransfer(address, orOne(act.NFTID))
	case domain.SourceReputation:
		return l.EarnFromReputation(address, orOne(act.RepPoints))
	case domain.SourceMission:
		return l.EarnFromMission(address, act.MissionID, act.Difficulty)
	case domain.SourceDailyLogin:
		return l.EarnFromDailyLogin(address, orOne(act.ConsecutiveDays))
	case domain.SourceNFTSale:
		sale := act.SaleValue
		if sale.IsZero() {
			sale = decimal.NewFromInt(1)
		}
		return l.EarnFromNFTSale(address, sale)
	case domain.SourceReferral:
		return l.EarnFromReferral(address, act.ReferralAmount)
	case domain.SourceGovernance:
		return l.EarnFromGovernance(address, act.ProposalID)
	case domain.SourceCommunity:
		return l.EarnFromContribution(address, act.ContributionType, act.Amount)
	default:
		return domain.EarningRecord{}, fmt.Errorf("%w: %q", domain.ErrInvalidSource, act.Source)
	}
}

func orOne[T int | int64](n T) T {
	if n == 0 {
		return 1
	}
	return n
}
