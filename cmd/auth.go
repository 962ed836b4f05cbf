package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fioncat/vbrowse/provider"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func Auth() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage repository tokens in the system keyring",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set DOMAIN [TOKEN]",
		Short: "Save the token of a domain to the keyring, prompt for it when omitted",

		Args: cobra.RangeArgs(1, 2),

		RunE: func(_ *cobra.Command, args []string) error {
			domain := args[0]
			token, err := readToken(args[1:], func() ([]byte, error) {
				fmt.Print("Token: ")
				data, err := term.ReadPassword(int(os.Stdin.Fd()))
				fmt.Println()
				return data, err
			})
			if err != nil {
				return err
			}
			err = provider.SaveToken(domain, token)
			if err != nil {
				return err
			}
			fmt.Printf("Saved token for %q, set `auths.%s: %s` in config to use it\n",
				domain, domain, provider.KeyringToken)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove DOMAIN",
		Short: "Remove the token of a domain from the keyring",

		Args: cobra.ExactArgs(1),

		RunE: func(_ *cobra.Command, args []string) error {
			err := provider.RemoveToken(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Removed token for %q\n", args[0])
			return nil
		},
	})

	return cmd
}

// readToken returns the token given on the command line, or asks prompt for
// it so that it stays out of the shell history.
func readToken(args []string, prompt func() ([]byte, error)) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	data, err := prompt()
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", errors.New("token is empty")
	}
	return token, nil
}
