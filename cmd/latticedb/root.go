// Command latticedb is the CLI front end for the storage engine: a
// thin cobra wrapper around the ctl package's command structs, in the
// same split the teacher uses between its cmd package (flag wiring)
// and its ctl package (the actual work).
package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func newRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	rc := &cobra.Command{
		Use:   "latticedb",
		Short: "latticedb is a buffer-pool-backed B+ tree storage engine.",
		Long: `latticedb is a disk-oriented storage engine: a fixed-size buffer
pool with an LRU-K replacer underneath a B+ tree index.

This binary contains tools for exercising and inspecting that engine:
loading and benchmarking a tree, dumping its on-disk page structure,
and printing the buffer pool's runtime counters.
`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			if err := setAllConfig(v, cmd.Flags()); err != nil {
				return err
			}
			dryRun, err := cmd.Flags().GetBool("dry-run")
			if err != nil {
				return fmt.Errorf("problem getting dry-run flag: %v", err)
			}
			if dryRun && cmd.Parent() != nil {
				return fmt.Errorf("dry run")
			}
			return nil
		},
	}
	rc.PersistentFlags().Bool("dry-run", false, "stop before executing")
	_ = rc.PersistentFlags().MarkHidden("dry-run")
	rc.PersistentFlags().StringP("config", "c", "", "configuration file to read from")

	rc.AddCommand(newBenchCommand(stdin, stdout, stderr))
	rc.AddCommand(newInspectCommand(stdin, stdout, stderr))
	rc.AddCommand(newMetricsCommand(stdin, stdout, stderr))

	rc.SetOutput(stderr)
	return rc
}

// setAllConfig merges flag, environment, and config-file values onto
// flags, in that priority order, env vars being the capitalized,
// dash-to-underscore flag names prefixed with LATTICEDB_. Ported
// directly from the teacher's cmd.setAllConfig.
func setAllConfig(v *viper.Viper, flags *pflag.FlagSet) error {
	if err := v.BindPFlags(flags); err != nil {
		return err
	}

	v.SetEnvPrefix("LATTICEDB")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	c := v.GetString("config")
	validTags := make(map[string]bool)
	flags.VisitAll(func(f *pflag.Flag) {
		validTags[f.Name] = true
	})

	if c != "" {
		v.SetConfigFile(c)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading configuration file '%s': %v", c, err)
		}
		for _, key := range v.AllKeys() {
			if _, ok := validTags[key]; !ok {
				return fmt.Errorf("invalid option in configuration file: %v", key)
			}
		}
	}

	var flagErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if flagErr != nil || f.Changed {
			return
		}
		flagErr = f.Value.Set(v.GetString(f.Name))
	})
	return flagErr
}
