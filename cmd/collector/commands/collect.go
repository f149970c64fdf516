package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"carpulse-backend/lib/collect"
	"carpulse-backend/lib/configutil"
	configlibsql "carpulse-backend/lib/configutil/libsql"
	"carpulse-backend/lib/fetch"
	"carpulse-backend/lib/listing"
	"carpulse-backend/lib/scrapers/bringatrailer"
	"carpulse-backend/lib/scrapers/carsandbids"
	"carpulse-backend/lib/serviceutil"
	"carpulse-backend/lib/telemetry"
	collectorservice "carpulse-backend/services/collector"
	collectordb "carpulse-backend/services/collector/db"

	"github.com/go-resty/resty/v2"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

type Config struct {
	Database configlibsql.Struct `json:"database"`
	// source names to walk, defaults to all known sources
	Sources []string `json:"sources"`
	Makes   []string `json:"makes"`
	// page ceiling per unit
	MaxPages int `json:"max_pages"`
	// page size requested from sources that honor one
	PerPage           int  `json:"per_page"`
	RequestsPerMinute int  `json:"requests_per_minute"`
	EnrichDetails     bool `json:"enrich_details"`
}

var (
	collectConfig       *string
	collectModel        *string
	collectYearMin      *int
	collectYearMax      *int
	collectTransmission *string
)

func init() {
	collectConfig = collectCmd.Flags().String("config", "config.json5", "The config file to collect with.")
	collectModel = collectCmd.Flags().String("model", "", "Only keep listings matching this model.")
	collectYearMin = collectCmd.Flags().Int("year-min", 0, "Only keep listings from this model year on.")
	collectYearMax = collectCmd.Flags().Int("year-max", 0, "Only keep listings up to this model year.")
	collectTransmission = collectCmd.Flags().String("transmission", "", "Only keep listings with this transmission (manual/automatic).")
	rootCmd.AddCommand(collectCmd)
}

func knownSources() map[string]collect.Source {
	return map[string]collect.Source{
		"bringatrailer": bringatrailer.New(),
		"carsandbids":   carsandbids.New(),
	}
}

var collectCmd = &cobra.Command{
	Use:   "collect [--config <path/to/config.json5>]",
	Short: "Collects listings from the configured sources and writes them to a database.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := configutil.ReadConfig[Config](*collectConfig)
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}

		database, err := cfg.Database.OpenDB(collectordb.Schema)
		if err != nil {
			serviceutil.Fatal("failed to open database", err)
		}
		defer database.Close()

		telemetry.InstrumentPerfStats(cmd.Context())

		gateway := fetch.NewGateway(fetch.Options{
			RequestsPerMinute: cfg.RequestsPerMinute,
		})
		gateway.InstrumentHTTP(func(client *resty.Client) {
			telemetry.InstrumentResty(client, "collector-cli")
		})
		pages := collect.NewCollector(gateway, collect.Options{MaxPages: cfg.MaxPages})
		service := collectorservice.NewService(database, pages)

		units := buildUnits(cfg)
		if len(units) == 0 {
			serviceutil.Fatal("nothing to collect", fmt.Errorf("no sources or makes configured"))
		}

		t1 := time.Now()
		result, err := service.Run(cmd.Context(), units, collectorservice.Options{
			Filter: listing.FilterOptions{
				Model:        *collectModel,
				YearMin:      *collectYearMin,
				YearMax:      *collectYearMax,
				Transmission: listing.Transmission(*collectTransmission),
			},
			EnrichDetails: cfg.EnrichDetails,
		})
		if err != nil {
			serviceutil.Fatal("collection run failed", err)
		}
		t2 := time.Now()

		renderRunResult(result, t2.Sub(t1))
	},
}

func buildUnits(cfg Config) []collectorservice.Unit {
	sources := knownSources()

	names := cfg.Sources
	if len(names) == 0 {
		for name := range sources {
			names = append(names, name)
		}
	}

	var units []collectorservice.Unit
	for _, name := range names {
		source, ok := sources[strings.ToLower(name)]
		if !ok {
			serviceutil.Fatal("unknown source", fmt.Errorf("no source named %q", name))
		}
		if len(cfg.Makes) == 0 {
			units = append(units, collectorservice.Unit{
				Source: source,
				Query:  collect.Query{MaxPages: cfg.MaxPages, PerPage: cfg.PerPage},
			})
			continue
		}
		for _, make := range cfg.Makes {
			units = append(units, collectorservice.Unit{
				Source: source,
				Query:  collect.Query{Make: make, MaxPages: cfg.MaxPages, PerPage: cfg.PerPage},
			})
		}
	}
	return units
}

func renderRunResult(result collectorservice.RunResult, elapsed time.Duration) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Unit", "Records"})
	for unit, count := range result.UnitCounts {
		t.AppendRow(table.Row{unit, count})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()

	t = table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Year", "Make", "Model", "Price", "Status", "Mileage", "Source"})
	for _, r := range result.Merged {
		t.AppendRow(table.Row{
			r.Vehicle.Year,
			r.Vehicle.Make,
			r.Vehicle.Model,
			fmt.Sprintf("$%d", r.PriceCents/100),
			r.Status,
			r.Vehicle.Mileage,
			r.SourceID,
		})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()

	fmt.Printf("%d vehicles, %d errors, %.1fs\n",
		len(result.Merged), len(result.Errors), elapsed.Seconds())
	for _, err := range result.Errors {
		fmt.Fprintln(os.Stderr, err.Error())
	}
}
