package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/terahq/tera/core/condition"
	"github.com/terahq/tera/core/schema"
)

const (
	checkMark = "✓"
	crossMark = "✗"
)

var validateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Validate module definitions before deployment",
	Long: `Validate a directory of module definitions.

Checks:
  - YAML syntax is valid
  - Required fields are present
  - Cross-references resolve (screens, forms, workflows, actions)
  - Condition and formula expressions compile

Examples:
  tera validate ./modules
  tera validate        # uses modules.dir from the config file`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	dir, err := modulesDir(args)
	if err != nil {
		return err
	}

	fmt.Printf("Validating %s...\n\n", dir)

	sources, err := moduleSources(dir)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("no module definitions found in %s", dir)
	}

	eval := condition.New()
	failed := 0
	for _, src := range sources {
		def, err := parseSource(src)
		if err != nil {
			fmt.Printf("  %s %s: %v\n", crossMark, filepath.Base(src), err)
			failed++
			continue
		}

		if errs := schema.Validate(def, eval.Check); errs.HasErrors() {
			fmt.Printf("  %s %s (%s)\n", crossMark, filepath.Base(src), def.Meta.ID)
			for _, e := range errs {
				fmt.Printf("      %s: %s\n", e.Path, e.Reason)
			}
			failed++
			continue
		}

		fmt.Printf("  %s %s (%s): %d screens, %d forms, %d workflows, %d actions\n",
			checkMark, filepath.Base(src), def.Meta.ID,
			len(def.Screens), len(def.Forms), len(def.Workflows), len(def.Actions))
	}

	fmt.Println()
	if failed > 0 {
		return fmt.Errorf("%d of %d module definitions invalid", failed, len(sources))
	}
	fmt.Printf("All %d module definitions valid.\n", len(sources))
	return nil
}

// modulesDir resolves the directory to validate: the positional arg,
// falling back to the config file's modules.dir.
func modulesDir(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	cfg, err := loadConfigQuiet()
	if err != nil {
		return "", fmt.Errorf("no directory given and %w", err)
	}
	return cfg.Modules.Dir, nil
}

// moduleSources lists module definition sources in dir: standalone
// YAML files plus subdirectories holding a config.yaml.
func moduleSources(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read modules dir: %w", err)
	}

	var sources []string
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			if _, err := os.Stat(filepath.Join(path, "config.yaml")); err == nil {
				sources = append(sources, path)
			}
			continue
		}
		if strings.HasSuffix(entry.Name(), ".yaml") || strings.HasSuffix(entry.Name(), ".yml") {
			sources = append(sources, path)
		}
	}
	sort.Strings(sources)
	return sources, nil
}

func parseSource(src string) (schema.ModuleDefinition, error) {
	info, err := os.Stat(src)
	if err != nil {
		return schema.ModuleDefinition{}, err
	}
	if info.IsDir() {
		return schema.ParseModuleDir(src)
	}
	return schema.ParseFile(src)
}
