package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arshiaxbt/Aura/pkg/identifier"
)

var securityStrict bool

var securityCmd = &cobra.Command{
	Use:   "security <address>",
	Short: "Scan an address against security and blacklist sources",
	Long: `Query the address security API on every default chain, and the blacklist
API set by AURA_BLACKLIST_API, and print the merged report. A source that
fails or is not configured makes the report partial, never clean.

Examples:
  aura security 0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045
  aura security 0x... --strict   # exit non-zero unless clean`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := identifier.Normalize(args[0])
		if !identifier.IsAddress(addr) {
			return fmt.Errorf("%q is not an address", args[0])
		}

		rep := newSecurityScanner().Scan(cmd.Context(), addr)
		w := cmd.OutOrStdout()
		if jsonOut {
			if err := printJSON(w, rep); err != nil {
				return err
			}
		} else {
			printStatus(w, "Address", "%s", rep.Address)
			printStatus(w, "Flags", "%s", orDash(strings.Join(rep.Flags, ", ")))
			chains := make([]int, 0, len(rep.FlagsByChain))
			for c := range rep.FlagsByChain {
				chains = append(chains, c)
			}
			sort.Ints(chains)
			for _, c := range chains {
				printStatus(w, fmt.Sprintf("  chain %d", c), "%s", strings.Join(rep.FlagsByChain[c], ", "))
			}
			printStatus(w, "Blacklisted", "%t", rep.Blacklisted)
			for _, f := range rep.Failures {
				printWarning("%s: %s", f.Source, f.Err)
			}
			switch {
			case rep.Clean():
				printSuccess("no issues found")
			case rep.Partial:
				printWarning("report is partial")
			}
		}

		if securityStrict && !rep.Clean() {
			return errors.New("address is not clean")
		}
		return nil
	},
}

func init() {
	securityCmd.Flags().BoolVar(&securityStrict, "strict", false, "fail unless the report is clean")
	rootCmd.AddCommand(securityCmd)
}
