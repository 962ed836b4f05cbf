package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/fatih/color"
	"github.com/fioncat/vbrowse/cmd"
	"github.com/fioncat/vbrowse/types"
	"github.com/spf13/cobra"
)

var (
	Version     = "N/A"
	BuildType   = "N/A"
	BuildCommit = "N/A"
	BuildTime   = "N/A"
)

var rootCmd = &cobra.Command{
	Use: "vbrowse",

	Short: "Read-only browser for local folders, archives, repositories and buckets",

	SilenceErrors: true,
	SilenceUsage:  true,

	Version: Version,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show vbrowse full version info",

	Args: cobra.ExactArgs(0),

	RunE: func(_ *cobra.Command, _ []string) error {
		fmt.Printf("vbrowse %s\n", Version)
		fmt.Printf("golang %s\n", strings.TrimPrefix(runtime.Version(), "go"))
		fmt.Println("")
		fmt.Printf("Build type:   %s\n", BuildType)
		fmt.Printf("Build target: %s-%s\n", runtime.GOOS, runtime.GOARCH)
		fmt.Printf("Commit SHA:   %s\n", BuildCommit)
		fmt.Printf("Build time:   %s\n", BuildTime)
		fmt.Println("")

		cfg, err := types.LoadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Config path: %s\n", cfg.Path)
		fmt.Printf("Base path:   %s\n", cfg.BaseDir)

		return nil
	},
}

func main() {
	rootCmd.AddCommand(cmd.Ls())
	rootCmd.AddCommand(cmd.View())
	rootCmd.AddCommand(cmd.URL())
	rootCmd.AddCommand(cmd.Shell())
	rootCmd.AddCommand(cmd.Cache())
	rootCmd.AddCommand(cmd.Auth())

	rootCmd.AddCommand(versionCmd)

	err := rootCmd.Execute()
	if err != nil {
		fmt.Printf("%s: %v\n", color.RedString("Error"), err)
		os.Exit(1)
	}
}
