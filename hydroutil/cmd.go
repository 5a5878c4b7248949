/*
Copyright © 2018 the Hydro authors.
This file is part of Hydro.

Hydro is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Hydro is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Hydro.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package hydroutil provides the command-line interface and configuration
// glue for the hydro utilities.
package hydroutil

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/hydro"
	"github.com/spatialmodel/hydro/namelist"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to the hydro
	// utilities.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Compare.Options",
			usage: `
              Compare.Options specifies the long-form command line options
              passed to the nccmp comparison tool.`,
			defaultVal: hydro.DefaultNCCmpOptions,
			flagsets:   []*pflag.FlagSet{compareCmd.Flags()},
		},
		{
			name: "Compare.ExcludeVars",
			usage: `
              Compare.ExcludeVars specifies variable names to exclude from
              the comparison. The default excludes accumulation and runoff
              variables that differ between otherwise-identical restarts.`,
			defaultVal: hydro.DefaultExcludeVars,
			flagsets:   []*pflag.FlagSet{compareCmd.Flags()},
		},
		{
			name: "Compare.Pattern",
			usage: `
              Compare.Pattern is the file name glob selecting the files to
              compare within the candidate and reference directories.`,
			defaultVal: "*.nc",
			flagsets:   []*pflag.FlagSet{compareCmd.Flags()},
		},
		{
			name: "Compare.Manifest",
			usage: `
              Compare.Manifest is the location of a TOML manifest describing
              a batch of candidate-versus-reference comparisons. When it is
              set, the compare command takes no arguments.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{compareCmd.Flags()},
		},
		{
			name: "Concat.Chunks",
			usage: `
              Concat.Chunks specifies chunk sizes for the combined dataset
              in the form dimension=size (e.g. feature_id=1000). If empty,
              the dataset is not chunked.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{concatCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("HYDRO")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(compareCmd)
	Root.AddCommand(nldiffCmd)
	Root.AddCommand(concatCmd)
}

// outChan returns a channel printing to standard output.
func outChan() chan string {
	outChan := make(chan string)
	go func() {
		for {
			msg := <-outChan
			fmt.Printf(msg)
		}
	}()
	return outChan
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("hydro: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "hydro",
	Short: "Utilities for working with WRF-Hydro model runs.",
	Long: `hydro compares NetCDF output between candidate and reference model
runs, diffs Fortran namelist configuration files, and combines multi-file
forecast output into a single dataset.

Refer to the subcommand documentation for configuration options and default
settings. Configuration can be changed by using a configuration file (and
providing the path to the file using the --config flag), by using
command-line arguments, or by setting environment variables in the format
'HYDRO_var' where 'var' is the name of the variable to be set.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of the hydro utilities.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("hydro v%s\n", hydro.Version)
	},
	DisableAutoGenTag: true,
}

// compareCmd compares a candidate run's output against a reference run's.
var compareCmd = &cobra.Command{
	Use:   "compare [candidate directory] [reference directory]",
	Short: "Compare candidate run output against a reference run.",
	Long: `compare runs nccmp on each matching pair of NetCDF files in the
candidate and reference directories and prints a summary of the differences
found. With --Compare.Manifest, the directory pairs are read from a TOML
manifest instead of the command line.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		options := expandStringSlice(Cfg.GetStringSlice("Compare.Options"))
		excludeVars := Cfg.GetStringSlice("Compare.ExcludeVars")

		if manifest := Cfg.GetString("Compare.Manifest"); manifest != "" {
			m, err := LoadManifest(os.ExpandEnv(manifest))
			if err != nil {
				return err
			}
			results, err := m.Run()
			if err != nil {
				return err
			}
			names := make([]string, 0, len(results))
			for name := range results {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				cmd.Printf("== %s\n", name)
				printResults(cmd, results[name])
			}
			return nil
		}

		if len(args) != 2 {
			return fmt.Errorf("hydro: compare needs a candidate directory and a reference directory")
		}
		pattern := Cfg.GetString("Compare.Pattern")
		candidates, err := globFiles(os.ExpandEnv(args[0]), pattern)
		if err != nil {
			return err
		}
		references, err := globFiles(os.ExpandEnv(args[1]), pattern)
		if err != nil {
			return err
		}
		results, err := hydro.CompareNCFiles(candidates, references, options, excludeVars)
		if err != nil {
			return err
		}
		printResults(cmd, results)
		return nil
	},
	DisableAutoGenTag: true,
}

// printResults writes comparison results as aligned text tables.
func printResults(cmd *cobra.Command, results []*hydro.CompareResult) {
	differences := 0
	for _, r := range results {
		if r == nil {
			continue
		}
		differences++
		if r.Raw != nil {
			cmd.Printf("%s\n", r.Raw)
			continue
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
		fmt.Fprintln(w, joinTab(r.Columns))
		for _, row := range r.Rows {
			fmt.Fprintln(w, joinTab(row))
		}
		w.Flush()
	}
	cmd.Printf("%d of %d compared files differ\n", differences, len(results))
}

func joinTab(fields []string) string {
	s := ""
	for i, f := range fields {
		if i > 0 {
			s += "\t"
		}
		s += f
	}
	return s
}

// nldiffCmd diffs two namelist files.
var nldiffCmd = &cobra.Command{
	Use:   "nldiff [namelist 1] [namelist 2]",
	Short: "Diff two Fortran namelist files.",
	Long: `nldiff parses the two given namelist files and prints their
structural differences as JSON. Array values are compared without regard to
element order.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 2 {
			return fmt.Errorf("hydro: nldiff needs two namelist files")
		}
		d, err := namelist.DiffFiles(os.ExpandEnv(args[0]), os.ExpandEnv(args[1]))
		if err != nil {
			return err
		}
		e := json.NewEncoder(cmd.OutOrStdout())
		e.SetIndent("", "  ")
		return e.Encode(d)
	},
	DisableAutoGenTag: true,
}

// concatCmd combines multi-file forecast output into one file.
var concatCmd = &cobra.Command{
	Use:   "concat [output file] [input files...]",
	Short: "Combine multi-file forecast output into a single dataset.",
	Long: `concat opens the given forecast output files, groups them by
reference time, concatenates each group along the time dimension and the
groups along the reference_time dimension, and writes the combined dataset
to the output file. Input files may be local paths or http(s), gs, or s3
URLs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) < 2 {
			return fmt.Errorf("hydro: concat needs an output file and at least one input file")
		}
		outFile, err := checkOutputFile(args[0])
		if err != nil {
			return err
		}
		specs, err := cast.ToStringSliceE(Cfg.Get("Concat.Chunks"))
		if err != nil {
			return fmt.Errorf("hydro: reading Concat.Chunks: %v", err)
		}
		chunks, err := parseChunkSpec(specs)
		if err != nil {
			return err
		}
		msgs := outChan()
		paths := expandStringSlice(args[1:])
		for i := range paths {
			paths[i] = maybeDownload(context.TODO(), paths[i], msgs)
		}
		ds, err := hydro.OpenForecastDataset(paths, chunks)
		if err != nil {
			return err
		}
		w, err := os.Create(outFile)
		if err != nil {
			return err
		}
		defer w.Close()
		return ds.Write(w)
	},
	DisableAutoGenTag: true,
}
