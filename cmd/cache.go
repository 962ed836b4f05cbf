package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fioncat/vbrowse/osutils"
	"github.com/fioncat/vbrowse/storage"
	"github.com/fioncat/vbrowse/types"
	"github.com/spf13/cobra"
)

func Cache() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the listing cache",
	}

	cmd.AddCommand(cacheList())
	cmd.AddCommand(cacheClean())

	return cmd
}

func buildCacheCommand(cmd *cobra.Command, action func(cfg *types.Config, cache *storage.BoltListingCache, args []string) error) {
	cmd.RunE = func(_ *cobra.Command, args []string) error {
		cfg, err := types.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cache, err := storage.OpenBolt(cfg)
		if err != nil {
			return fmt.Errorf("open listing cache: %w", err)
		}
		defer cache.Close()

		return action(cfg, cache, args)
	}
}

func cacheList() *cobra.Command {
	var showJson bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show cached listings",

		Args: cobra.ExactArgs(0),
	}
	buildCacheCommand(cmd, func(cfg *types.Config, cache *storage.BoltListingCache, _ []string) error {
		listings, err := cache.List()
		if err != nil {
			return err
		}

		if showJson {
			data, err := json.MarshalIndent(listings, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal json listings: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		if len(listings) == 0 {
			fmt.Println("No cached listing")
			return nil
		}

		now := time.Now()
		rows := make([][]string, len(listings))
		for i, listing := range listings {
			status := "fresh"
			if listing.Expired(cfg.Cache.TTL, now) {
				status = "expired"
			}
			rows[i] = []string{
				listing.Source,
				listing.Path,
				strconv.Itoa(len(listing.Entries)),
				humanize.Time(time.Unix(listing.CachedAt, 0)),
				status,
			}
		}
		osutils.ShowTable([]string{"Source", "Path", "Entries", "Cached", "Status"}, rows)
		return nil
	})

	cmd.Flags().BoolVarP(&showJson, "json", "J", false, "Show json output")

	return cmd
}

func cacheClean() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove all cached listings",

		Args: cobra.ExactArgs(0),
	}
	buildCacheCommand(cmd, func(_ *types.Config, cache *storage.BoltListingCache, _ []string) error {
		count, err := cache.Clear()
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d cached listings\n", count)
		return nil
	})

	return cmd
}
