package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ValidationResult contains the result of a streamlink compatibility check
type ValidationResult struct {
	OK       bool
	Message  string
	Issues   []string
	Warnings []string
	Fixes    []string
}

// Minimum streamlink release with the Twitch options we pass by default.
const (
	minMajor = 5
	minMinor = 0
)

var versionRe = regexp.MustCompile(`(\d+)\.(\d+)\.(\d+)`)

// ValidateStreamlinkVersion checks `streamlink --version` output such as
// "streamlink 6.7.4" against the minimum supported release.
func ValidateStreamlinkVersion(versionOutput string) *ValidationResult {
	result := &ValidationResult{OK: true}

	matches := versionRe.FindStringSubmatch(versionOutput)
	if len(matches) < 4 {
		result.OK = false
		result.Message = fmt.Sprintf("Could not parse streamlink version: %q", strings.TrimSpace(versionOutput))
		result.Issues = append(result.Issues, "Invalid version format")
		result.Fixes = append(result.Fixes, "Reinstall streamlink: pip install --upgrade streamlink")
		return result
	}

	major, _ := strconv.Atoi(matches[1])
	minor, _ := strconv.Atoi(matches[2])

	if major < minMajor || (major == minMajor && minor < minMinor) {
		result.OK = false
		result.Issues = append(result.Issues, fmt.Sprintf("streamlink %d.%d is too old (requires %d.%d+)", major, minor, minMajor, minMinor))
		result.Fixes = append(result.Fixes, "Upgrade streamlink: pip install --upgrade streamlink")
		result.Message = fmt.Sprintf("streamlink %d.%d requires update to %d.%d+", major, minor, minMajor, minMinor)
		return result
	}

	result.Message = fmt.Sprintf("streamlink %s is compatible (requires %d.%d+)", matches[0], minMajor, minMinor)
	return result
}

// ValidateArgs warns about extra arguments that would clash with the ones
// the archiver sets itself.
func ValidateArgs(args []string) *ValidationResult {
	result := &ValidationResult{OK: true, Message: "streamlink arguments look fine"}

	for _, a := range args {
		switch {
		case a == "-o" || strings.HasPrefix(a, "--output"):
			result.OK = false
			result.Issues = append(result.Issues, fmt.Sprintf("argument %q overrides the recording path", a))
			result.Fixes = append(result.Fixes, "Remove output options from streamlink_args; files are named by the archiver")
		case a == "--stream-url" || a == "--json" || a == "-j":
			result.OK = false
			result.Issues = append(result.Issues, fmt.Sprintf("argument %q stops streamlink from recording", a))
			result.Fixes = append(result.Fixes, fmt.Sprintf("Remove %s from streamlink_args", a))
		case a == "--force" || a == "-f":
			result.Warnings = append(result.Warnings, "--force is redundant: every session writes a new file")
		}
	}
	if !result.OK {
		result.Message = "streamlink_args conflict with the archiver"
	}
	return result
}

// SuggestedFixes returns troubleshooting hints for common streamlink errors
func SuggestedFixes(errorMsg string) []string {
	var fixes []string
	msg := strings.ToLower(errorMsg)

	switch {
	case strings.Contains(msg, "executable file not found") || strings.Contains(msg, "not found. install"):
		fixes = append(fixes, "streamlink is not installed or not on PATH")
		fixes = append(fixes, "  1. Install it: pip install streamlink")
		fixes = append(fixes, "  2. Or set streamlink_path to the full binary path")

	case strings.Contains(msg, "no plugin can handle url"):
		fixes = append(fixes, "streamlink does not recognise the stream URL")
		fixes = append(fixes, "  1. Check stream_base_url and streamer_name")
		fixes = append(fixes, "  2. Upgrade streamlink for current platform plugins")

	case strings.Contains(msg, "no playable streams found"):
		fixes = append(fixes, "The stream is offline or the quality is not offered")
		fixes = append(fixes, "  1. Use a generic quality such as \"best\"")
		fixes = append(fixes, "  2. Run: streamlink <url> to list available qualities")

	case strings.Contains(msg, "403") || strings.Contains(msg, "unable to open url"):
		fixes = append(fixes, "The platform refused the request")
		fixes = append(fixes, "  1. Upgrade streamlink; platforms change their APIs often")
		fixes = append(fixes, "  2. Check network access from this host")

	default:
		fixes = append(fixes, fmt.Sprintf("Error: %s", errorMsg))
		fixes = append(fixes, "Check the .streamlink.log next to the recording for details")
	}

	return fixes
}

// CheckStreamlinkHealth combines the version and argument checks
func CheckStreamlinkHealth(versionOutput string, args []string) *ValidationResult {
	result := &ValidationResult{OK: true}
	var messages []string

	for _, check := range []*ValidationResult{ValidateStreamlinkVersion(versionOutput), ValidateArgs(args)} {
		if !check.OK {
			result.OK = false
			result.Issues = append(result.Issues, check.Issues...)
			result.Fixes = append(result.Fixes, check.Fixes...)
		}
		result.Warnings = append(result.Warnings, check.Warnings...)
		messages = append(messages, check.Message)
	}

	result.Message = strings.Join(messages, " | ")

	if result.OK {
		result.Message = "streamlink health check passed: " + result.Message
	} else {
		result.Message = "streamlink health check FAILED: " + result.Message
	}

	return result
}
