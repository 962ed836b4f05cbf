package cmd

import (
	"fmt"

	"github.com/fioncat/vbrowse/pathcodec"
	"github.com/fioncat/vbrowse/types"
	"github.com/spf13/cobra"
)

func URL() *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "url PATH [--root ROOT]",
		Short: "Show the access url and fetch candidates of a path",

		Args: cobra.ExactArgs(1),

		RunE: func(_ *cobra.Command, args []string) error {
			if root == "" {
				cfg, err := types.LoadConfig()
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				root = cfg.AccessRoot
			}

			codec := pathcodec.New(root)
			logical := pathcodec.Normalize(args[0])

			fmt.Println(codec.BuildAccessURL(logical))
			fmt.Println("")
			for i, candidate := range codec.CandidateURLs(logical) {
				fmt.Printf("%d. %s\n", i+1, candidate)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&root, "root", "r", "", "The access root, default is the config accessRoot")

	return cmd
}
