package logix

import "github.com/tnunnink/LogixHelper/logging"

var verboseLogging bool // Controls per-value codec logs

// SetVerboseLogging enables or disables detailed codec logs.
func SetVerboseLogging(verbose bool) {
	verboseLogging = verbose
}

func debugLog(format string, args ...interface{}) {
	logging.DebugLog("Logix", format, args...)
}

// debugLogVerbose logs detailed messages only when verbose logging is enabled.
func debugLogVerbose(format string, args ...interface{}) {
	if verboseLogging {
		logging.DebugLog("Radix", format, args...)
	}
}

func debugBytes(label string, data []byte) {
	logging.DebugBytes("Logix", label, data)
}
