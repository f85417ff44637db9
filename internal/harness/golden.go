package harness

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// RunWithGolden executes a scenario and compares the rendered result table
// against a golden file in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Error scenarios (ExpectError set) snapshot the error string instead of a
// table; the request id is never part of the snapshot, so golden files stay
// stable across runs.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if result.Err != nil {
		fmt.Fprintln(&buf, "# error")
		fmt.Fprintln(&buf, result.Err.Error())
	} else {
		if err := result.Table.Render(&buf, result.Table.Meta.KeyField); err != nil {
			return err
		}
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, buf.Bytes())
	return nil
}
