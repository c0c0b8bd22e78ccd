package codes

import "fmt"

// ErrorCodes maps exit codes of the cross-toolchain drivers (g++, size, nm,
// c++filt, git) to their descriptions
var ErrorCodes = map[int]string{
	0:   "Success",
	1:   "Errors reported (see diagnostics above)",
	2:   "Invalid usage or fatal driver error",
	4:   "Internal compiler error",
	126: "Tool found but not executable",
	127: "Tool not found on PATH",
	128: "Invalid exit argument",
	130: "Interrupted (SIGINT)",
	134: "Aborted (SIGABRT)",
	137: "Killed (SIGKILL), possibly out of memory",
	139: "Segmentation fault (SIGSEGV)",
	143: "Terminated (SIGTERM)",
}

// GetErrorMessage returns the error message for a given exit code, or a generic message if unknown
func GetErrorMessage(code int) string {
	if msg, ok := ErrorCodes[code]; ok {
		return msg
	}

	if code > 128 && code < 160 {
		return fmt.Sprintf("Terminated by signal %d", code-128)
	}

	if code < 0 {
		return "Terminated by signal"
	}

	return "Unknown error"
}
