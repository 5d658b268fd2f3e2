package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/arshiaxbt/Aura/pkg/conductor"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <address|name>",
	Short: "Look up the reputation of one address or name",
	Long: `Resolve a name (vitalik.eth, jesse.base.eth) or take a raw address and
fetch its reputation score and profile. Transport failures are reported
instead of being shown as missing data.

Examples:
  aura lookup vitalik.eth
  aura lookup 0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045 --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := conductor.Lookup(cmd.Context(), newResolver(), newScorer(nil), args[0])
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if jsonOut {
			out := map[string]any{
				"query":   r.Query,
				"kind":    r.Kind.String(),
				"address": r.Address,
				"score":   r.Score,
				"tier":    string(r.Tier),
			}
			if r.Profile != nil {
				out["displayName"] = r.Profile.DisplayName
				out["avatarUrl"] = r.Profile.AvatarURL
			}
			return printJSON(w, out)
		}

		printStatus(w, "Query", "%s (%s)", r.Query, r.Kind)
		if !r.Resolved() {
			printWarning("%s does not resolve to an address", r.Query)
			return nil
		}
		printStatus(w, "Address", "%s", r.Address)
		score := "no reputation data"
		if r.Score != nil {
			score = strconv.Itoa(*r.Score)
		}
		printStatus(w, "Score", "%s", score)
		printStatus(w, "Tier", "%s", r.Tier)
		if r.Profile != nil && r.Profile.DisplayName != "" {
			printStatus(w, "Name", "%s", r.Profile.DisplayName)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lookupCmd)
}
