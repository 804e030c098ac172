package memory

import (
	"fmt"
	"strings"
)

const (
	contextHeader = "\n\n## User Context & Preferences:\n"
	contextFooter = "\nUse this information to provide personalized responses.\n"
)

// FormatMemories renders entries as a numbered block for appending to a
// system prompt. The output depends only on the texts and their order; an
// empty input renders as the empty string so nothing is injected.
func FormatMemories(entries []MemoryEntry) string {
	if len(entries) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(contextHeader)
	for i, e := range entries {
		fmt.Fprintf(&b, "%d. %s\n", i+1, e.Text)
	}
	b.WriteString(contextFooter)
	return b.String()
}
