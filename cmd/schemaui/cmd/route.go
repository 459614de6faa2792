package cmd

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/go-drift/schemaui/pkg/errors"
	"github.com/go-drift/schemaui/pkg/router"
)

var routeCmd = &cobra.Command{
	Use:   "route <routes.yaml> <path>",
	Short: "Render the schema a route table selects for a path",
	Long: `Resolve a path against a YAML route table and render the matching
schema module. Route parameters are passed to the module as args.

A route table looks like:

  routes:
    - pattern: /users/:id
      path: ./user.yaml
    - pattern: /**
      path: ./not-found.yaml

Examples:
  schemaui route routes.yaml /users/42
  schemaui route routes.yaml /users/42 --out user.html`,
	Args: cobra.ExactArgs(2),
	RunE: runRoute,
}

func init() {
	rootCmd.AddCommand(routeCmd)

	routeCmd.Flags().StringVarP(&renderOut, "out", "o", "", "write HTML to this file instead of stdout")
}

func runRoute(cmd *cobra.Command, args []string) error {
	ws, url, err := newWorkspace(cmd, args[0])
	if err != nil {
		return err
	}
	defer ws.rt.Dispose()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	routes, err := router.Parse(data, url)
	if err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(args[0]), err)
	}
	m, ok := router.Resolve(args[1], routes)
	if !ok {
		return &errors.Error{Op: "route", Kind: errors.KindNotFound, Err: errors.ErrRouteNotFound, Path: args[1]}
	}
	logger := ws.rt.Logger()
	logger.Debug().Str("pattern", m.Pattern).Interface("params", m.Params).Msg("route matched")

	if _, err := ws.rt.Mount(cmd.Context(), "", m.Render()); err != nil {
		return fmt.Errorf("render %s: %w", path.Clean(args[1]), err)
	}
	return writeDocument(cmd.OutOrStdout(), ws.rt)
}
