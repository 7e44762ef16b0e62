package consent

import (
	"fmt"

	"github.com/mssola/useragent"
)

// clientSummary condenses a raw User-Agent header into a short human-readable
// descriptor for audit detail ("Firefox 121.0 on Linux x86_64"). The raw
// header stays on the consent record for evidentiary purposes; the summary is
// what compliance reviewers read.
func clientSummary(rawUA string) string {
	if rawUA == "" {
		return "unknown client"
	}
	ua := useragent.New(rawUA)
	name, version := ua.Browser()
	if name == "" {
		return "unknown client"
	}
	summary := name
	if version != "" {
		summary = fmt.Sprintf("%s %s", name, version)
	}
	if os := ua.OS(); os != "" {
		summary = fmt.Sprintf("%s on %s", summary, os)
	}
	if ua.Bot() {
		summary += " (bot)"
	}
	return summary
}
