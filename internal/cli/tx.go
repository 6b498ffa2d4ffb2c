package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hashing-heroes/heroes/internal/app/history"
	"github.com/hashing-heroes/heroes/internal/daemon"
	"github.com/hashing-heroes/heroes/internal/domain"
)

func init() {
	rootCmd.AddCommand(txCmd)
	txCmd.AddCommand(txListCmd, txShowCmd, txStatsCmd, txExportCmd, txImportCmd, txClearCmd)

	txListCmd.Flags().String("address", "", "only transactions to or from this address")
	txListCmd.Flags().Int("limit", 20, "maximum transactions to list (0 for all)")
	txListCmd.Flags().Bool("json", false, "print JSON")
	txExportCmd.Flags().StringP("output", "o", "", "write to file instead of stdout")
	txClearCmd.Flags().Bool("yes", false, "confirm deleting every transaction")
}

var txCmd = &cobra.Command{
	Use:   "tx",
	Short: "Inspect and manage the simulated transaction history",
}

// withStore opens the configured store for the duration of fn.
func withStore(fn func(ctx context.Context, store domain.TransactionStore) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	store, err := daemon.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("transaction history is disabled with the memory storage driver")
	}
	defer store.Close()
	return fn(ctx, store)
}

var txListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent transactions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("address")
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		return withStore(func(ctx context.Context, store domain.TransactionStore) error {
			var (
				txs []domain.Transaction
				err error
			)
			if addr != "" {
				txs, err = store.ListByAddress(ctx, addr, limit)
			} else {
				txs, err = store.ListTransactions(ctx, limit)
			}
			if err != nil {
				return err
			}
			return printTransactions(cmd.OutOrStdout(), txs, asJSON)
		})
	},
}

var txShowCmd = &cobra.Command{
	Use:   "show HASH",
	Short: "Show one transaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, store domain.TransactionStore) error {
			tx, err := store.GetTransaction(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Hash:          %s\n", tx.Hash)
			fmt.Fprintf(out, "Type:          %s\n", tx.Type)
			fmt.Fprintf(out, "Status:        %s (%d confirmations)\n", tx.Status, tx.Confirmations)
			fmt.Fprintf(out, "From:          %s\n", tx.From)
			fmt.Fprintf(out, "To:            %s\n", tx.To)
			fmt.Fprintf(out, "Value:         %s BDAG\n", tx.Value)
			fmt.Fprintf(out, "Submitted:     %s\n", tx.Timestamp.Format("2006-01-02 15:04:05"))
			if tx.DAGTimestamp != nil {
				fmt.Fprintf(out, "Confirmed:     %s\n", tx.DAGTimestamp.Format("2006-01-02 15:04:05"))
			}
			fmt.Fprintf(out, "Explorer:      %s\n", tx.ExplorerURL())
			return nil
		})
	},
}

var txStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise the stored history",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, store domain.TransactionStore) error {
			st, err := store.TransactionStats(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total:     %d\n", st.Total)
			fmt.Fprintf(out, "Confirmed: %d\n", st.Confirmed)
			fmt.Fprintf(out, "Pending:   %d\n", st.Pending)
			fmt.Fprintf(out, "Failed:    %d\n", st.Failed)
			if st.Oldest != nil && st.Newest != nil {
				fmt.Fprintf(out, "Range:     %s .. %s\n",
					st.Oldest.Format("2006-01-02 15:04:05"), st.Newest.Format("2006-01-02 15:04:05"))
			}
			return nil
		})
	},
}

var txExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the history as a JSON array",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("output")
		return withStore(func(ctx context.Context, store domain.TransactionStore) error {
			w := cmd.OutOrStdout()
			if path != "" {
				f, err := os.Create(path)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			n, err := history.Export(ctx, store, w)
			if err != nil {
				return err
			}
			if path != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d transactions to %s\n", n, path)
			}
			return nil
		})
	},
}

var txImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Replace the history with a previously exported JSON array",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		return withStore(func(ctx context.Context, store domain.TransactionStore) error {
			n, err := history.Import(ctx, store, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d transactions\n", n)
			return nil
		})
	},
}

var txClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every stored transaction",
	RunE: func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return errors.New("refusing to clear history without --yes")
		}
		return withStore(func(ctx context.Context, store domain.TransactionStore) error {
			if err := store.ClearTransactions(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Transaction history cleared")
			return nil
		})
	},
}

func printTransactions(out io.Writer, txs []domain.Transaction, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(txs)
	}
	if len(txs) == 0 {
		fmt.Fprintln(out, "No transactions.")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "HASH\tTYPE\tSTATUS\tTO\tVALUE\tTIME")
	for _, tx := range txs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			shortHash(tx.Hash), tx.Type, tx.Status, tx.To, tx.Value, tx.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

func shortHash(h string) string {
	if len(h) <= 14 {
		return h
	}
	return h[:8] + "…" + h[len(h)-4:]
}
