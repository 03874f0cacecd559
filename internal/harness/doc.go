// Package harness runs pipeline documents end to end against SQLite and
// checks the outcome.
//
// A scenario compiles a pipeline document, builds its query model, compiles
// the model to SQL and runs the SQL on a freshly seeded in-memory database.
// The model text, the SQL, the arguments and the returned rows can then be
// checked against expectations, assertions and golden snapshots.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: adults_by_name
//	description: "Adult students, ordered by name"
//	document_file: ../documents/adults.yaml   # or an inline `document:`
//	seed: |
//	  CREATE TABLE "Students" (ID INTEGER, Name TEXT, Age INTEGER);
//	  INSERT INTO "Students" VALUES (1, 'Ada', 36), (2, 'Brendan', 17);
//	expect:
//	  model: "from Student s in Students where ([s].Age > 18) select [s].Name"
//	  rows:
//	    - [Ada]
//	assertions:
//	  - type: row_count
//	    count: 1
//	  - type: sql_contains
//	    text: ORDER BY
//
// document_file paths are relative to the scenario file. A scenario whose
// expect.error is set passes only if compiling, building, translating or
// executing fails with an error containing that text.
//
// # Assertion Types
//
//   - row_count: the query returned exactly count rows
//   - rows_contain: some row matches every column in row (subset match)
//   - column_order: the result columns are exactly columns, in order
//   - model_contains: the model text contains text
//   - sql_contains: the SQL contains text
//
// # Deterministic Testing
//
// Every scenario runs in its own in-memory SQLite database, with builder
// logs discarded and a fixed build id (scenario.build_id, or
// "scenario-<name>"). Compiled SQL adds rowid tiebreaks to its orderings, so
// row order and golden snapshots are reproducible.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/adults.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
