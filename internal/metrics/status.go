package metrics

import "sort"

// ScenarioRow is one flattened entry of Summary.ByScenario.
type ScenarioRow struct {
	Name string
	ScenarioStats
}

// FlattenScenarios converts the per-scenario map into rows sorted by name.
func FlattenScenarios(byScenario map[string]ScenarioStats) []ScenarioRow {
	if len(byScenario) == 0 {
		return nil
	}
	rows := make([]ScenarioRow, 0, len(byScenario))
	for name, stats := range byScenario {
		rows = append(rows, ScenarioRow{Name: name, ScenarioStats: stats})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Name < rows[j].Name
	})
	return rows
}

// ErrorKindRow is one entry of the error breakdown.
type ErrorKindRow struct {
	Kind  string
	Count int
}

// FlattenErrorKinds converts the error breakdown into rows sorted by descending
// count, then by kind for stability.
func FlattenErrorKinds(kinds map[string]int) []ErrorKindRow {
	if len(kinds) == 0 {
		return nil
	}
	rows := make([]ErrorKindRow, 0, len(kinds))
	for kind, count := range kinds {
		rows = append(rows, ErrorKindRow{Kind: kind, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Kind < rows[j].Kind
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}
