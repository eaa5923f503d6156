package cmd

import (
	"fmt"
	"os"

	"github.com/bjaergning/rapport/internal/api/models"
	"github.com/bjaergning/rapport/internal/attachment"
	"github.com/bjaergning/rapport/internal/config"
	"github.com/bjaergning/rapport/internal/database"
	"github.com/ccoveille/go-safecast"
	"github.com/dustin/go-humanize"
	"github.com/mergestat/timediff"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database and attachment statistics",
	Long:  `Display row counts of the database and the disk usage of the attachment directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(rootCmdPersistentFlags.ConfigFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		db, err := database.New(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close() //nolint: errcheck

		stats, err := db.GetStats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get database stats: %w", err)
		}

		fmt.Println("Database Statistics:")
		fmt.Printf("Reports: %s\n", humanize.Comma(stats.Reports))
		fmt.Printf("Entries: %s\n", humanize.Comma(stats.Entries))
		fmt.Printf("Entries with photo: %s\n", humanize.Comma(stats.Attachments))
		fmt.Printf("Users: %s\n", humanize.Comma(stats.Users))

		if latest, err := models.ParseTimestamp(stats.LatestReport); err == nil {
			fmt.Printf("Latest Report: %s (%s)\n", stats.LatestReport, timediff.TimeDiff(latest))
		}

		store := attachment.New(cfg.Attachments.Dir)
		size, err := store.Size()
		if err != nil {
			return fmt.Errorf("failed to measure attachment directory: %w", err)
		}
		files, err := store.List()
		if err != nil {
			return fmt.Errorf("failed to list attachments: %w", err)
		}
		sizeBytes, err := safecast.Convert[uint64](size)
		if err != nil {
			return fmt.Errorf("invalid attachment size: %w", err)
		}

		fmt.Println("\nAttachments:")
		fmt.Printf("Directory: %s\n", store.Dir())
		fmt.Printf("Files: %d (%s)\n", len(files), humanize.Bytes(sizeBytes))

		usagePath := store.Dir()
		if _, err := os.Stat(usagePath); err != nil {
			usagePath = "."
		}
		usage, err := disk.UsageWithContext(cmd.Context(), usagePath)
		if err != nil {
			return fmt.Errorf("failed to get disk usage: %w", err)
		}
		fmt.Printf("Disk: %s free of %s (%.1f%% used)\n",
			humanize.Bytes(usage.Free), humanize.Bytes(usage.Total), usage.UsedPercent)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
