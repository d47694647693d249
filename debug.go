package remcall

import "log"

// Verbose gates trace logging of decoded date/time/datetime values in the
// communication package. Frame tags and byte counts are not traced, and the
// codec package does not log. It is off by default; cmd/remcalldemo exposes
// it as -verbose.
var Verbose = false

// Tracef logs format/args through log.Printf when Verbose is set, and is a
// no-op otherwise. Library code calls this instead of log.Printf directly so
// wire tracing has one on/off switch.
func Tracef(format string, args ...any) {
	if Verbose {
		log.Printf(format, args...)
	}
}
