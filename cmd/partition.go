/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/notargets/femesh/parallel"
)

// PartitionCmd distributes a mesh over ranks and reports the partition
var PartitionCmd = &cobra.Command{
	Use:   "partition constructor [args...]",
	Short: "Partition a utility mesh and print per rank statistics",
	Long: `
Distributes the named mesh over --ranks ranks with the partitioner chosen by
--partitioner (block or metis) and prints the cells, load and neighbors of
every rank. The metis partitioner needs a binary built with -tags metis.

femesh partition unit_cube 4 4 4 --ranks 4 --partitioner metis`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		m, err := buildFromArgs(cmd, args)
		if err != nil {
			return
		}
		ranks, _ := cmd.Flags().GetInt("ranks")
		comm, err := parallel.NewComm(ranks)
		if err != nil {
			return
		}
		d, err := parallel.Distribute(commandContext(cmd), comm, m)
		if err != nil {
			return
		}
		exterior, err := d.ExteriorFacets(commandContext(cmd))
		if err != nil {
			return
		}
		interfaces := d.InterfaceFacets()
		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.SetHeader([]string{"Rank", "Cells", "Load", "Neighbors", "Exterior facets", "Interface facets"})
		for _, s := range d.Stats() {
			neighbors := make([]int, 0, len(s.NumNeighbors))
			for n := range s.NumNeighbors {
				neighbors = append(neighbors, n)
			}
			sort.Ints(neighbors)
			table.Append([]string{
				strconv.Itoa(s.ID),
				strconv.Itoa(s.NumElements),
				strconv.FormatInt(s.ComputeLoad, 10),
				intsString(neighbors),
				strconv.Itoa(exterior[s.ID]),
				strconv.Itoa(len(interfaces[s.ID])),
			})
		}
		table.Render()
		return
	},
}

func init() {
	rootCmd.AddCommand(PartitionCmd)
	addMeshFlags(PartitionCmd)
	PartitionCmd.Flags().Int("ranks", 2, "number of ranks")
}

func intsString(v []int) (s string) {
	for i, n := range v {
		if i > 0 {
			s += " "
		}
		s += strconv.Itoa(n)
	}
	return
}
