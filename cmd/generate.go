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
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/notargets/femesh/fem"
	"github.com/notargets/femesh/mesh"
	"github.com/notargets/femesh/parallel"
)

// GenerateCmd builds a mesh from a registered constructor and reports it
var GenerateCmd = &cobra.Command{
	Use:   "generate constructor [args...]",
	Short: "Build a utility mesh and integrate one over it",
	Long: `
Builds the named mesh, prints its statistics and the integral of the
constant one over the domain. Integer arguments come first, then floats:

femesh generate rectangle 3 3 10 2
femesh generate icosahedral_sphere 2 3 5.0 --ranks 2

Arguments after -- are never read as flags, which negative values need:

femesh generate --ranks 1 -- interval 10 -1`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		m, err := buildFromArgs(cmd, args)
		if err != nil {
			return
		}
		ranks, _ := cmd.Flags().GetInt("ranks")
		var area float64
		if ranks > 1 {
			area, err = parallel.IntegrateOne(commandContext(cmd), ranks, m)
		} else {
			area, err = fem.IntegrateOneContext(commandContext(cmd), m)
		}
		if err != nil {
			return
		}
		out := cmd.OutOrStdout()
		printStats(out, m.Stats())
		fmt.Fprintf(out, "%.10g\t\t= Integral of one\n", area)
		return
	},
}

// ListCmd prints the registered constructors
var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the mesh constructors and their arguments",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.SetHeader([]string{"Constructor", "Integers", "Floats"})
		for _, c := range mesh.Constructors() {
			table.Append([]string{c.Name, strings.Join(c.Ints, " "), strings.Join(c.Floats, " ")})
		}
		table.Render()
	},
}

func init() {
	rootCmd.AddCommand(GenerateCmd, ListCmd)
	addMeshFlags(GenerateCmd)
	GenerateCmd.Flags().Int("ranks", 1, "number of ranks to integrate over")
}

func addMeshFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("quadrilateral", "q", false, "use quadrilateral cells for square and rectangle meshes")
	cmd.Flags().String("diagonal", string(mesh.DiagonalLeft), "triangle split of square meshes: left, right or crossed")
	cmd.Flags().String("reorder", "", "override reorder_meshes for this mesh: true or false")
}

// buildFromArgs runs the constructor named by args[0] on the remaining
// arguments and the mesh flags of cmd
func buildFromArgs(cmd *cobra.Command, args []string) (m *mesh.Mesh, err error) {
	c, ok := mesh.LookupConstructor(args[0])
	if !ok {
		return nil, fmt.Errorf("%w: unknown mesh constructor %q, see femesh list", mesh.ErrInvalidArgument, args[0])
	}
	rest := args[1:]
	if len(rest) != len(c.Ints)+len(c.Floats) {
		return nil, fmt.Errorf("%w: usage: %s", mesh.ErrInvalidArgument, c.Usage())
	}
	ints := make([]int, len(c.Ints))
	for i := range ints {
		if ints[i], err = strconv.Atoi(rest[i]); err != nil {
			return nil, fmt.Errorf("%w: %s must be an integer, got %q", mesh.ErrInvalidArgument, c.Ints[i], rest[i])
		}
	}
	floats := make([]float64, len(c.Floats))
	for i := range floats {
		if floats[i], err = strconv.ParseFloat(rest[len(ints)+i], 64); err != nil {
			return nil, fmt.Errorf("%w: %s must be a number, got %q", mesh.ErrInvalidArgument, c.Floats[i], rest[len(ints)+i])
		}
	}
	opts, err := meshOptions(cmd)
	if err != nil {
		return
	}
	return mesh.Build(c.Name, ints, floats, opts...)
}

func meshOptions(cmd *cobra.Command) (opts []mesh.Option, err error) {
	quad, _ := cmd.Flags().GetBool("quadrilateral")
	diagonal, _ := cmd.Flags().GetString("diagonal")
	if opts, err = reorderOptions(cmd); err != nil {
		return
	}
	return append(opts, mesh.WithQuadrilateral(quad), mesh.WithDiagonal(mesh.Diagonal(diagonal))), nil
}

// reorderOptions turns the --reorder flag into a per mesh override
func reorderOptions(cmd *cobra.Command) (opts []mesh.Option, err error) {
	if r, _ := cmd.Flags().GetString("reorder"); r != "" {
		var reorder bool
		if reorder, err = strconv.ParseBool(r); err != nil {
			return nil, fmt.Errorf("%w: --reorder takes true or false, got %q", mesh.ErrInvalidArgument, r)
		}
		opts = append(opts, mesh.WithReorder(reorder))
	}
	return
}

func printStats(w io.Writer, s mesh.Stats) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Property", "Value"})
	table.AppendBulk([][]string{
		{"Name", s.Name},
		{"Cell", s.CellType.String()},
		{"Geometric dimension", strconv.Itoa(s.GeometricDimension)},
		{"Coordinate degree", strconv.Itoa(s.CoordinateDegree)},
		{"Cells", strconv.Itoa(s.Cells)},
		{"Vertices", strconv.Itoa(s.Vertices)},
		{"Facets", strconv.Itoa(s.Facets)},
		{"Exterior facets", strconv.Itoa(s.ExteriorFacets)},
		{"Periodic", strconv.FormatBool(s.Periodic)},
		{"Reordered", strconv.FormatBool(s.Reordered)},
	})
	table.Render()
}
