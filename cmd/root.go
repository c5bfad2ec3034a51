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
	"context"
	"fmt"
	"os"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/notargets/femesh/parameters"
	"github.com/notargets/femesh/utils"
)

var cfgFile string

// session holds what the persistent hooks set up for one command run
var session struct {
	restoreParams func()
	restoreLogger func()
	profiler      interface{ Stop() }
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "femesh",
	Short: "Build, read, partition and check finite element meshes",
	Long: `
Builds the utility meshes (intervals, squares, cubes, periodic and sphere
meshes), reads Gmsh files and runs regression suites that integrate over
them.

femesh generate unit_square 3 3`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := run(context.Background()); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// run executes the root command and undoes what setup installed, whether
// or not the command failed
func run(ctx context.Context) error {
	defer teardown()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.femesh.yaml)")
	flags.BoolP("verbose", "v", false, "log mesh construction and assembly")
	flags.String("profile", "", "write a profile to the current directory: cpu or mem")
	flags.Bool("reorder_meshes", parameters.Defaults().ReorderMeshes, "reorder mesh entities for locality")
	flags.String("partitioner", parameters.Defaults().Partitioner, "partitioner for parallel runs: block or metis")
	flags.Int("quadrature_degree_boost", parameters.Defaults().QuadratureDegreeBoost, "extra quadrature degree")
	for _, key := range []string{"reorder_meshes", "partitioner", "quadrature_degree_boost"} {
		_ = viper.BindPFlag(key, flags.Lookup(key))
	}
	viper.SetEnvPrefix("femesh")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".femesh" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".femesh")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func setup(cmd *cobra.Command, args []string) (err error) {
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		var l *zap.Logger
		if l, err = zap.NewDevelopment(); err != nil {
			return
		}
		session.restoreLogger = utils.SetLogger(l)
	}
	if session.restoreParams, err = parameters.LoadFromViper(viper.GetViper()); err != nil {
		return
	}
	switch mode, _ := cmd.Flags().GetString("profile"); mode {
	case "":
	case "cpu":
		session.profiler = profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	case "mem":
		session.profiler = profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	default:
		return fmt.Errorf("unknown profile mode %q, want cpu or mem", mode)
	}
	return
}

func teardown() {
	if session.profiler != nil {
		session.profiler.Stop()
		session.profiler = nil
	}
	if session.restoreParams != nil {
		session.restoreParams()
		session.restoreParams = nil
	}
	if session.restoreLogger != nil {
		_ = utils.Logger().Sync()
		session.restoreLogger()
		session.restoreLogger = nil
	}
}

// commandContext is the context the command was executed with
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
