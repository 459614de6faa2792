// Package testing provides a harness for testing schemas without a browser.
//
// # Quick Start
//
// Create a tester, mount a schema, and make assertions:
//
//	func TestCounter(t *testing.T) {
//	    tester := schematest.NewTesterWithT(t)
//	    if err := tester.Mount(counter); err != nil {
//	        t.Fatal(err)
//	    }
//
//	    tester.Tap(schematest.ByTag("button"))
//
//	    if !tester.Find(schematest.ByText("1")).Exists() {
//	        t.Error("expected text '1'")
//	    }
//	}
//
// # Snapshot Testing
//
// Capture the rendered document and compare it with a golden file:
//
//	tester.CaptureSnapshot().MatchesFile(t, "testdata/counter.html")
//
// Update snapshots with:
//
//	SCHEMAUI_UPDATE_SNAPSHOTS=1 go test ./...
//
// # Init Batching
//
// The tester installs a Scheduler that counts yields between init batches
// and can cancel a build after a given number of them.
//
// # Import Alias
//
// Since this package has the same name as the standard library testing
// package, import it with an alias:
//
//	import schematest "github.com/go-drift/schemaui/pkg/testing"
package testing
