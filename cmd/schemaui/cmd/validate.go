package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/go-drift/schemaui/pkg/core"
)

const (
	checkMark = "✓"
	crossMark = "✗"
)

var validateCmd = &cobra.Command{
	Use:   "validate <schema.yaml>...",
	Short: "Check schemas without rendering them",
	Long: `Validate YAML schema modules.

Checks:
  - YAML syntax is valid
  - Every node has a tag or a module path
  - No node declares both text and children
  - Children are lists

Referenced modules are not loaded; use render for a full check.

Examples:
  schemaui validate app.yaml
  schemaui validate pages/*.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	failed := 0
	for _, file := range args {
		if err := validateFile(file); err != nil {
			fmt.Fprintf(out, "  %s %s: %v\n", crossMark, file, err)
			failed++
			continue
		}
		fmt.Fprintf(out, "  %s %s\n", checkMark, file)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d schemas invalid", failed, len(args))
	}
	return nil
}

func validateFile(file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	schema, err := core.DecodeYAML(data)
	if err != nil {
		return err
	}
	return core.Validate(schema)
}
