package commands

import (
	"os"
	"time"

	"carpulse-backend/lib/configutil"
	"carpulse-backend/lib/serviceutil"
	"carpulse-backend/lib/timezone"
	collectordb "carpulse-backend/services/collector/db"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

var runsConfig *string

func init() {
	runsConfig = runsCmd.Flags().String("config", "config.json5", "The config file pointing at the database.")
	rootCmd.AddCommand(runsCmd)
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Prints past collection runs, newest first.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := configutil.ReadConfig[Config](*runsConfig)
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		database, err := cfg.Database.OpenDB(collectordb.Schema)
		if err != nil {
			serviceutil.Fatal("failed to open database", err)
		}
		defer database.Close()

		runs, err := collectordb.New(database).ListCollectionRuns(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to list collection runs", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Source", "Make", "Records", "Errors", "Finished"})
		for _, run := range runs {
			t.AppendRow(table.Row{
				run.Source,
				run.Make,
				run.Records,
				run.Errors,
				time.Unix(run.FinishedAt, 0).In(timezone.Location).Format(time.DateTime),
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
