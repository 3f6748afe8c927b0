package applog

import "net/url"

// RedactURL hides the path and query of a URL so webhook tokens never reach
// the log. Unparseable input is replaced wholesale.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "[REDACTED]"
	}
	u.User = nil
	u.RawQuery = ""
	if u.Path != "" && u.Path != "/" {
		u.Path = "/REDACTED"
	}
	return u.String()
}
