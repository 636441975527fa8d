package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"kgview/internal/domain"
)

type statsFlags struct {
	snapshot string
	json     bool
}

func newStatsCmd(g *globalFlags) *cobra.Command {
	f := &statsFlags{}
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Count the nodes and edges of a snapshot by type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, f)
		},
	}
	cmd.Flags().StringVarP(&f.snapshot, "snapshot", "s", "", "Snapshot file (json or yaml)")
	cmd.Flags().BoolVar(&f.json, "json", false, "Print JSON")
	cmd.MarkFlagRequired("snapshot")
	return cmd
}

func runStats(cmd *cobra.Command, f *statsFlags) error {
	snap, err := readSnapshot(f.snapshot)
	if err != nil {
		return err
	}

	g := domain.NewGraph()
	g.Load(*snap, func() domain.Vec { return domain.Vec{} })
	st := g.Stats()

	out := cmd.OutOrStdout()
	if f.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "nodes\t%d\n", st.Nodes)
	for _, t := range domain.NodeTypes {
		if n := st.NodesByType[t]; n > 0 {
			fmt.Fprintf(tw, "  %s\t%d\n", t, n)
		}
	}
	fmt.Fprintf(tw, "edges\t%d\n", st.Edges)
	types := make([]string, 0, len(st.EdgesByType))
	for t := range st.EdgesByType {
		types = append(types, string(t))
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Fprintf(tw, "  %s\t%d\n", t, st.EdgesByType[domain.EdgeType(t)])
	}
	if st.DanglingEdges > 0 {
		fmt.Fprintf(tw, "dangling edges\t%d\n", st.DanglingEdges)
	}
	return tw.Flush()
}
