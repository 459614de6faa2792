// Package cmd implements the schemaui CLI commands.
//
// The command structure follows standard cobra patterns with a root command
// that dispatches to subcommands (render, route, validate).
package cmd

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/go-drift/schemaui/pkg/config"
	"github.com/go-drift/schemaui/pkg/core"
)

// Version information set at build time.
var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "schemaui",
	Short: "Render declarative UI schemas",
	Long: `schemaui compiles YAML UI schemas into HTML documents.

Schemas are trees of nodes with tags, text, styles, attributes, state and
children. Children may reference other schema modules by path; modules are
loaded from the directory of the schema being rendered, or from loader.root
in schemaui.yaml.

Use "schemaui <command> --help" for more information about a command.`,
	Version:       fmt.Sprintf("%s (built %s)", Version, BuildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: schemaui.yaml next to the schema)")
}

// loadConfig reads --config, or schemaui.yaml in dir when the flag is unset.
func loadConfig(dir string) (*config.Config, error) {
	if cfgFile != "" {
		return config.Load(cfgFile)
	}
	return config.LoadOptional(dir)
}

// workspace is a runtime whose loader serves the modules under root.
type workspace struct {
	cfg  *config.Config
	rt   *core.Runtime
	root string
}

// newWorkspace builds a runtime for rendering file. Its modules come from
// loader.root when configured, else from the file's directory.
func newWorkspace(cmd *cobra.Command, file string) (*workspace, string, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, "", err
	}
	dir := filepath.Dir(abs)
	cfg, err := loadConfig(dir)
	if err != nil {
		return nil, "", err
	}
	root := dir
	if cfg.Loader.Root != "" {
		if root, err = filepath.Abs(cfg.Loader.Root); err != nil {
			return nil, "", err
		}
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || !filepath.IsLocal(rel) {
		return nil, "", fmt.Errorf("%s is outside loader root %s", file, root)
	}

	logger := cfg.Logger(cmd.ErrOrStderr())
	rt := core.New(core.WithConfig(cfg), core.WithLogger(logger))
	rt.Loader().Mount(cfg.Loader.Prefix, os.DirFS(root))
	return &workspace{cfg: cfg, rt: rt, root: root}, path.Join(cfg.Loader.Prefix, filepath.ToSlash(rel)), nil
}
