package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/bingen/internal/ir"
)

// Snapshot returns the canonical JSON golden content for a scenario run:
// the scenario name, its top format and the declaration catalog.
func Snapshot(scenario *Scenario, result *Result) ([]byte, error) {
	snap := ir.IRObject{
		"scenario_name": ir.IRString(scenario.Name),
		"top":           ir.IRString(scenario.Top),
	}
	if result.Catalog != nil {
		snap["catalog"] = result.Catalog
	}
	if result.CompileError != "" {
		snap["error"] = ir.IRString(result.CompileError)
	}
	return ir.MarshalCanonical(snap)
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the catalog doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario, result)
}

// AssertGolden compares an existing result against the scenario's golden
// file without re-running it.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenario, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return nil
}
