package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/go-drift/schemaui/pkg/core"
)

var (
	renderOut    string
	renderTarget string
	renderWatch  bool
)

var renderCmd = &cobra.Command{
	Use:   "render <schema.yaml>",
	Short: "Render a schema to HTML",
	Long: `Render a YAML schema module to an HTML document.

The schema is mounted into the document body and written with its
generated stylesheet. Relative module references resolve against the
schema's own URL.

With --watch the loader root is watched for changes: a changed module is
dropped from the cache and the schema is rendered again.

Examples:
  schemaui render app.yaml
  schemaui render app.yaml --out dist/index.html
  schemaui render app.yaml --out dist/index.html --watch`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "write HTML to this file instead of stdout")
	renderCmd.Flags().StringVar(&renderTarget, "target", "", "id of the element to mount into (default: body)")
	renderCmd.Flags().BoolVarP(&renderWatch, "watch", "w", false, "re-render when modules change")
}

func runRender(cmd *cobra.Command, args []string) error {
	ws, url, err := newWorkspace(cmd, args[0])
	if err != nil {
		return err
	}
	defer ws.rt.Dispose()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	host, err := ws.rt.Mount(ctx, renderTarget, core.Ref{Path: url})
	if err != nil {
		return fmt.Errorf("render %s: %w", url, err)
	}
	if err := writeDocument(cmd.OutOrStdout(), ws.rt); err != nil {
		return err
	}
	logger := ws.rt.Logger()
	if !renderWatch && !ws.cfg.Loader.Watch {
		return nil
	}
	if renderOut == "" {
		return fmt.Errorf("--watch requires --out")
	}

	changed := make(chan string, 1)
	err = ws.rt.Loader().Watch(ctx, ws.root, ws.cfg.Loader.Prefix, func(u string) {
		select {
		case changed <- u:
		default:
		}
	})
	if err != nil {
		return err
	}
	logger.Info().Str("root", ws.root).Msg("watching for changes")

	for {
		select {
		case <-ctx.Done():
			return nil
		case u := <-changed:
			if old := host; old != nil {
				ws.rt.Dispatch(old.Destroy)
			}
			host, err = ws.rt.Mount(ctx, renderTarget, core.Ref{Path: url})
			if err != nil {
				logger.Error().Err(err).Str("changed", u).Msg("re-render failed")
				continue
			}
			if err := writeDocument(cmd.OutOrStdout(), ws.rt); err != nil {
				return err
			}
			logger.Info().Str("changed", u).Msg("re-rendered")
		}
	}
}

// writeDocument writes the rendered document to --out, or to w.
func writeDocument(w io.Writer, rt *core.Runtime) error {
	var buf bytes.Buffer
	if err := rt.Render(&buf); err != nil {
		return err
	}
	buf.WriteByte('\n')
	if renderOut == "" {
		_, err := w.Write(buf.Bytes())
		return err
	}
	return os.WriteFile(renderOut, buf.Bytes(), 0o644)
}
