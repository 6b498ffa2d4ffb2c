package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/hashing-heroes/heroes/internal/domain"
)

func init() {
	rootCmd.AddCommand(potentialCmd)

	f := potentialCmd.Flags()
	f.Int("level", 1, "player level")
	f.Float64("reputation", 0, "reputation score")
	f.Int("nft-count", 1, "number of NFTs owned")
	f.Float64("avg-nft-level", 1, "average NFT level")
	f.Float64("price", 0.15, "token price in USD")
	f.Bool("json", false, "print JSON")
}

var potentialCmd = &cobra.Command{
	Use:   "potential",
	Short: "Estimate daily and monthly earnings for a player profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		level, _ := f.GetInt("level")
		rep, _ := f.GetFloat64("reputation")
		nfts, _ := f.GetInt("nft-count")
		avg, _ := f.GetFloat64("avg-nft-level")
		price, _ := f.GetFloat64("price")
		asJSON, _ := f.GetBool("json")

		p := domain.CalculateDailyEarningPotential(domain.PlayerStats{
			Level: level, Reputation: rep, NFTCount: nfts, AvgNFTLevel: avg,
		})

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(p)
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SOURCE\tBDAG/DAY")
		fmt.Fprintf(tw, "tapping\t%v\n", p.TapEarnings)
		fmt.Fprintf(tw, "nft evolution\t%v\n", p.EvolutionEarnings)
		fmt.Fprintf(tw, "reputation\t%v\n", p.ReputationEarnings)
		fmt.Fprintf(tw, "missions\t%v\n", p.MissionEarnings)
		fmt.Fprintf(tw, "daily login\t%v\n", p.LoginEarnings)
		fmt.Fprintf(tw, "total daily\t%v (≈ $%s)\n", p.TotalDaily,
			domain.TokenToUSD(decimal.NewFromFloat(p.TotalDaily), price).StringFixed(2))
		fmt.Fprintf(tw, "total monthly\t%v (≈ $%s)\n", p.TotalMonthly,
			domain.TokenToUSD(decimal.NewFromFloat(p.TotalMonthly), price).StringFixed(2))
		return tw.Flush()
	},
}
