package commands

import (
	"fmt"
	"os"
	"strings"

	"carpulse-backend/lib/extract"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(makesCmd)
}

var makesCmd = &cobra.Command{
	Use:   "makes",
	Short: "Prints the manufacturer lexicon used for title parsing.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("lexicon version %s\n", extract.LexiconVersion())

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Make", "Aliases", "Models", "Trims"})
		for _, make := range extract.Makes() {
			t.AppendRow(table.Row{
				make.Name,
				strings.Join(make.Aliases, ", "),
				strings.Join(make.Models, ", "),
				strings.Join(make.Trims, ", "),
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
