// Package tags is the deterministic fallback enrichment used when the
// analysis service is unavailable: a fixed keyword lexicon mapped to labels
// and markers, plus the rule for composing a fallback summary.
package tags

import (
	"sort"
	"strings"
)

type mapping struct {
	label  string
	marker string
}

var keywordMap = map[string]mapping{
	"healthcare":    {label: "#Healthcare", marker: "🏥"},
	"attack":        {label: "#CyberAttack", marker: "💥"},
	"breach":        {label: "#DataBreach", marker: "🔒"},
	"vulnerability": {label: "#Vulnerability", marker: "⚠️"},
	"hacker":        {label: "#Hacking", marker: "💻"},
	"ai":            {label: "#AI", marker: "🤖"},
}

var baseLabels = []string{"#Cybersecurity", "#Ransomware"}

var defaultMarkers = []string{"🚨", "🛡️"}

// Generate scans text for known keywords and returns the matching labels and
// markers. The base labels are always present; when nothing matched, the
// default marker pair is used. Output is deduplicated and sorted so the
// result is stable for identical input.
func Generate(text string) (labels []string, markers []string) {
	lower := strings.ToLower(text)

	seenLabels := map[string]struct{}{}
	for _, label := range baseLabels {
		seenLabels[label] = struct{}{}
	}

	seenMarkers := map[string]struct{}{}
	for keyword, m := range keywordMap {
		if !strings.Contains(lower, keyword) {
			continue
		}
		seenLabels[m.label] = struct{}{}
		seenMarkers[m.marker] = struct{}{}
	}

	for label := range seenLabels {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	if len(seenMarkers) == 0 {
		return labels, append([]string(nil), defaultMarkers...)
	}

	for marker := range seenMarkers {
		markers = append(markers, marker)
	}
	sort.Strings(markers)

	return labels, markers
}

// Summary composes the degraded summary from an item's title and
// description. Ellipses left over from truncated snippets are removed.
func Summary(title, description string) string {
	s := strings.TrimSpace(title) + " - " + strings.TrimSpace(description)
	return strings.ReplaceAll(s, "...", "")
}

// Decorate renders the full fallback summary: the composed base summary with
// markers appended and labels on a second line.
func Decorate(title, description string) string {
	summary := Summary(title, description)
	labels, markers := Generate(summary)
	return summary + " " + strings.Join(markers, "") + "\n" + strings.Join(labels, " ")
}
