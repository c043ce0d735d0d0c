package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-sensory/pkg/crowdmap"
)

var (
	mapCategory string
	mapQuery    string
	mapJSON     bool
)

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Print the predicted crowd level of every location right now",
	RunE:  runMap,
}

func init() {
	mapCmd.Flags().StringVar(&mapCategory, "category", "all", "category id to show")
	mapCmd.Flags().StringVarP(&mapQuery, "query", "q", "", "search name, address or category")
	mapCmd.Flags().BoolVar(&mapJSON, "json", false, "print the board as JSON")
}

func runMap(cmd *cobra.Command, args []string) error {
	locs := crowdmap.Filter(crowdmap.Locations(), mapCategory, mapQuery)
	now := time.Now()
	snap := crowdmap.BuildSnapshot(locs, now)

	out := cmd.OutOrStdout()
	if mapJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "LOCATION\tCATEGORY\tNOW\tPEOPLE\tQUIETEST\n")
	for i, e := range snap.Entries {
		quiet := "-"
		if p, ok := crowdmap.QuietestHour(locs[i]); ok {
			quiet = fmt.Sprintf("%02d:00", p.Hour)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t~%d\t%s\n", e.Name, e.Category, e.Status, e.EstimatedPeople, quiet)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d locations at %s\n", len(snap.Entries), now.Format("15:04"))
	return nil
}
