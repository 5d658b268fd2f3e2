package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arshiaxbt/Aura/pkg/identifier"
	"github.com/arshiaxbt/Aura/pkg/vault"
)

var vaultPassword string

var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Manage the encrypted notes vault",
	Long: `The vault keeps private notes about addresses, encrypted under a password
that is never stored. The password is taken from --password, then
AURA_VAULT_PASSWORD, then one line of stdin.`,
}

var vaultInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the vault",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVault(func(v *vaultEnv) error {
			pw, err := readPassword(cmd.InOrStdin())
			if err != nil {
				return err
			}
			if err := v.manager.Setup(pw); err != nil {
				return err
			}
			printSuccess("vault created in %s", cfg.DataDir)
			return nil
		})
	},
}

var vaultUnlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Check the vault password",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUnlockedVault(cmd, func(v *vaultEnv) error {
			printSuccess("password accepted")
			return nil
		})
	},
}

var vaultNoteCmd = &cobra.Command{
	Use:   "note",
	Short: "Read and write notes",
}

var vaultNoteGetCmd = &cobra.Command{
	Use:   "get <address>",
	Short: "Print the note for an address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		return withUnlockedVault(cmd, func(v *vaultEnv) error {
			text, err := v.notes.Get(addr)
			if errors.Is(err, vault.ErrNoNote) {
				printWarning("no note for %s", addr)
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		})
	},
}

var vaultNoteSetCmd = &cobra.Command{
	Use:   "set <address> <text...>",
	Short: "Write the note for an address; empty text deletes it",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		text := strings.Join(args[1:], " ")
		return withUnlockedVault(cmd, func(v *vaultEnv) error {
			if err := v.notes.Set(addr, text); err != nil {
				return err
			}
			if strings.TrimSpace(text) == "" {
				printSuccess("note for %s deleted", addr)
			} else {
				printSuccess("note for %s saved", addr)
			}
			return nil
		})
	},
}

var vaultNoteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the addresses that have a note",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVault(func(v *vaultEnv) error {
			addrs, err := v.notes.Addresses()
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(cmd.OutOrStdout(), addrs)
			}
			for _, a := range addrs {
				fmt.Fprintln(cmd.OutOrStdout(), a)
			}
			return nil
		})
	},
}

var vaultNoteHistoryCmd = &cobra.Command{
	Use:   "history <address>",
	Short: "Print every version of the note for an address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		return withUnlockedVault(cmd, func(v *vaultEnv) error {
			revs, err := v.notes.History(addr)
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(cmd.OutOrStdout(), revs)
			}
			for _, r := range revs {
				printStatus(cmd.OutOrStdout(), fmt.Sprintf("v%d %s", r.Version, r.UpdatedAt.Format("2006-01-02 15:04")), "%s", r.Text)
			}
			return nil
		})
	},
}

func init() {
	vaultCmd.PersistentFlags().StringVar(&vaultPassword, "password", "", "vault password")

	vaultNoteCmd.AddCommand(vaultNoteGetCmd)
	vaultNoteCmd.AddCommand(vaultNoteSetCmd)
	vaultNoteCmd.AddCommand(vaultNoteListCmd)
	vaultNoteCmd.AddCommand(vaultNoteHistoryCmd)

	vaultCmd.AddCommand(vaultInitCmd)
	vaultCmd.AddCommand(vaultUnlockCmd)
	vaultCmd.AddCommand(vaultNoteCmd)
	rootCmd.AddCommand(vaultCmd)
}

func withVault(fn func(v *vaultEnv) error) error {
	v, err := openVault()
	if err != nil {
		return err
	}
	defer v.Close()
	return fn(v)
}

func withUnlockedVault(cmd *cobra.Command, fn func(v *vaultEnv) error) error {
	return withVault(func(v *vaultEnv) error {
		pw, err := readPassword(cmd.InOrStdin())
		if err != nil {
			return err
		}
		if err := v.manager.Unlock(pw); err != nil {
			if errors.Is(err, vault.ErrNoVault) {
				return fmt.Errorf("%w; run `aura vault init` first", err)
			}
			return err
		}
		defer v.manager.Lock()
		return fn(v)
	})
}

func readPassword(stdin io.Reader) (string, error) {
	if vaultPassword != "" {
		return vaultPassword, nil
	}
	if pw := os.Getenv("AURA_VAULT_PASSWORD"); pw != "" {
		return pw, nil
	}
	fmt.Fprint(os.Stderr, "Vault password: ")
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	// only the line terminator is stripped; the password is matched exactly
	line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
	if line == "" {
		return "", vault.ErrEmptyPassword
	}
	return line, nil
}

func parseAddress(s string) (string, error) {
	addr := identifier.Normalize(s)
	if !identifier.IsAddress(addr) {
		return "", fmt.Errorf("%q is not an address", s)
	}
	return addr, nil
}
