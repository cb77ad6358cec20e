// Package errors provides structured, actionable error messages for the
// reactivecache command.
//
// Every error carries a code that maps to a registered template with a
// short message and a longer explanation. Errors can point at a location in
// a configuration file and carry a hint on how to fix the problem.
//
// # Error Categories
//
//   - config: configuration file loading and validation (E100-E199)
//   - cli: command-line usage and workload errors (E200-E299)
//   - inspect: the inspector HTTP server (E300-E399)
//
// # Usage
//
//	err := errors.New("E103").
//	    WithLocation("reactivecache.yaml", 3, 0).
//	    WithSuggestion("Set cache.capacity to a positive number, e.g. 128")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E103: Invalid cache capacity
//	//
//	//   reactivecache.yaml:3
//	//
//	//       1 │ cache:
//	//       2 │   capacity: 128
//	//   →   3 │   capacity: -1
//	//
//	//   Hint: Set cache.capacity to a positive number, e.g. 128
package errors
