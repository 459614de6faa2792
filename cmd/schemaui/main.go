// Command schemaui renders declarative YAML schemas to HTML.
package main

import "github.com/go-drift/schemaui/cmd/schemaui/cmd"

func main() {
	cmd.Execute()
}
