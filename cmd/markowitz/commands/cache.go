package commands

import (
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aristath/markowitz/internal/database"
	"github.com/aristath/markowitz/internal/domain"
)

func newCacheCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the price cache",
	}
	cmd.AddCommand(
		newCacheStatsCommand(a),
		newCacheCleanupCommand(a),
		newCacheInvalidateCommand(a),
	)
	return cmd
}

type cacheStats struct {
	Path    string          `json:"path"`
	Entries int             `json:"entries"`
	DB      *database.Stats `json:"db"`
}

func newCacheStatsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache size and entry count",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, _, err := a.wire()
			if err != nil {
				return err
			}
			defer container.Close()
			if container.CacheDB == nil {
				return domain.InvalidInputf("price cache is disabled")
			}

			entries, err := container.ClientDataRepo.Count()
			if err != nil {
				return err
			}
			dbStats, err := container.CacheDB.GetStats()
			if err != nil {
				return err
			}
			stats := cacheStats{Path: container.CacheDB.Path(), Entries: entries, DB: dbStats}

			return a.render(cmd, stats, func(w io.Writer) {
				printTitle(w, "Price cache")
				printField(w, "Path", stats.Path)
				printField(w, "Entries", stats.Entries)
				printField(w, "Size (bytes)", stats.DB.SizeBytes)
				printField(w, "WAL (bytes)", stats.DB.WALSizeBytes)
			})
		},
	}
}

func newCacheCleanupCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete expired cache entries and checkpoint the WAL",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, jobs, err := a.wire()
			if err != nil {
				return err
			}
			defer container.Close()
			if jobs.ClientDataCleanup == nil {
				return domain.InvalidInputf("price cache is disabled")
			}

			for _, name := range []string{jobs.ClientDataCleanup.Name(), jobs.CheckWAL.Name()} {
				if err := container.Scheduler.RunNow(name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newCacheInvalidateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate SYMBOL...",
		Short: "Drop cached series for instruments",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, _, err := a.wire()
			if err != nil {
				return err
			}
			defer container.Close()
			if container.Cached == nil {
				return domain.InvalidInputf("price cache is disabled")
			}

			for _, inst := range args {
				if err := container.Cached.Invalidate(strings.TrimSpace(inst)); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
