// Package exitcodes defines the exit codes returned by the craft-report binary.
package exitcodes

// Exit code constants used by craft-report:
//
// * Success (0): the report was written, and either every test passed or failures are not fatal
// * TestFailure (1): the report was written and the run had failures while fail-on-test-failure is set
// * RuntimeErr (2): configuration, input decoding or I/O errors
const (
	Success     = 0
	TestFailure = 1
	RuntimeErr  = 2
)
