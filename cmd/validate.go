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

	"github.com/spf13/cobra"

	"github.com/notargets/femesh/InputParameters"
	"github.com/notargets/femesh/mesh/readers"
)

// ValidateCmd reads mesh files and reports what they contain
var ValidateCmd = &cobra.Command{
	Use:   "validate file.msh [file.msh...]",
	Short: "Read and validate Gmsh mesh files",
	Long: `
Reads each file with the Gmsh reader (format 2.2 or 4.x) and prints the
statistics of the resulting mesh. Files with points that belong to no cell
are rejected.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := reorderOptions(cmd)
		if err != nil {
			return err
		}
		for _, filename := range args {
			m, err := readers.ReadMeshFile(filename, opts...)
			if err != nil {
				return err
			}
			printStats(cmd.OutOrStdout(), m.Stats())
		}
		return nil
	},
}

// CheckCmd runs regression suites
var CheckCmd = &cobra.Command{
	Use:   "check suite.yaml [suite.yaml...]",
	Short: "Run a YAML regression suite of mesh cases",
	Long: `
Runs every case of the suite and prints a table of results. An example suite:

########################################
Title: "Mesh regression"
Parameters:
  reorder_meshes: true
  partitioner: block
  quadrature_degree_boost: 1
Cases:
  - Name: rectangle
    Mesh: rectangle
    Ints: [3, 3]
    Floats: [10, 2]
    Expected: 20
  - Name: negative length
    Mesh: interval
    Ints: [10]
    Floats: [-1]
    ExpectError: invalid_geometry
########################################`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			out    = cmd.OutOrStdout()
			failed int
		)
		for _, filename := range args {
			ip, err := InputParameters.ReadFile(filename)
			if err != nil {
				return err
			}
			ip.Print(out)
			results, err := ip.Run(commandContext(cmd))
			if err != nil {
				return err
			}
			failed += InputParameters.PrintResults(out, results)
		}
		if failed > 0 {
			return fmt.Errorf("%d failed cases", failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ValidateCmd, CheckCmd)
	ValidateCmd.Flags().String("reorder", "", "override reorder_meshes for this mesh: true or false")
}
