package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/dronedispatch/core/model"
	"github.com/kilianp07/dronedispatch/core/routing"
)

var routeCmd = &cobra.Command{
	Use:   "route FROM TO",
	Short: "Print the shortest route between two locations",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		g, err := cfg.Network.Graph()
		if err != nil {
			return err
		}
		from, to := model.Location(args[0]), model.Location(args[1])
		for _, l := range []model.Location{from, to} {
			if !g.Has(l) {
				return fmt.Errorf("unknown location %q (known: %v)", l, g.Locations())
			}
		}
		path, dist := g.ShortestPath(from, to)
		if !routing.IsReachable(dist) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s is unreachable from %s\n", to, from)
			return nil
		}
		hops := make([]string, len(path))
		for i, l := range path {
			hops[i] = string(l)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (distance %d)\n", strings.Join(hops, " -> "), dist)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(routeCmd)
}
