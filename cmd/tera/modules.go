package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/terahq/tera/config"
	"github.com/terahq/tera/core/schema"
)

var modulesCmd = &cobra.Command{
	Use:   "modules [dir]",
	Short: "List module definitions",
	Long: `List the module definitions in a directory.

Examples:
  tera modules ./modules
  tera modules         # uses modules.dir from the config file`,
	Args: cobra.MaximumNArgs(1),
	RunE: runModules,
}

func init() {
	rootCmd.AddCommand(modulesCmd)
}

func runModules(cmd *cobra.Command, args []string) error {
	dir, err := modulesDir(args)
	if err != nil {
		return err
	}

	sources, err := moduleSources(dir)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tVERSION\tSCREENS\tWORKFLOWS\tSYSTEM\tSOURCE")
	for _, src := range sources {
		def, err := parseSource(src)
		if err != nil {
			fmt.Fprintf(w, "-\t-\t-\t-\t-\t-\t%s (%v)\n", filepath.Base(src), err)
			continue
		}
		system := ""
		if schema.IsSystemModule(def.Meta.ID) {
			system = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			def.Meta.ID, def.Meta.Name, def.Meta.Version,
			len(def.Screens), len(def.Workflows), system, filepath.Base(src))
	}
	return w.Flush()
}

// loadConfigQuiet loads the config file without falling back to env.
func loadConfigQuiet() (*config.Config, error) {
	if _, err := os.Stat(cfgFile); err != nil {
		return nil, fmt.Errorf("config file %s not found", cfgFile)
	}
	return config.Load(cfgFile)
}
