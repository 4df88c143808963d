package workflow

import (
	"fmt"
	"sort"
	"strings"
)

// FormatReply 把最终状态渲染为 Markdown 回复。
func FormatReply(s *State) string {
	if s == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# Research results: %s\n\n", s.Query)

	b.WriteString("## Recommendation\n\n")
	switch {
	case s.Analysis.Recommendation != "":
		b.WriteString(s.Analysis.Recommendation)
	case s.Analysis.Summary != "":
		b.WriteString(s.Analysis.Summary)
	default:
		b.WriteString("No recommendation available.")
	}
	b.WriteString("\n")

	if s.Analysis.Present() {
		b.WriteString("\n## Analysis\n\n")
		if s.Analysis.Status == AnalysisFailed {
			fmt.Fprintf(&b, "_%s_\n", s.Analysis.Summary)
		}
		keys := make([]string, 0, len(s.Analysis.Fields))
		for k := range s.Analysis.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- **%s**: %s\n", k, s.Analysis.Fields[k])
		}
	}

	if len(s.Resources) > 0 {
		b.WriteString("\n## Resources\n\n")
		for i, r := range s.Resources {
			if r.URL != "" {
				fmt.Fprintf(&b, "%d. [%s](%s)", i+1, r.Name, r.URL)
			} else {
				fmt.Fprintf(&b, "%d. %s", i+1, r.Name)
			}
			if r.Description != "" {
				fmt.Fprintf(&b, ": %s", r.Description)
			}
			b.WriteString("\n")
		}
	}

	if len(s.ExtractedItems) > 0 {
		b.WriteString("\n## Extracted items\n\n")
		for _, item := range s.ExtractedItems {
			fmt.Fprintf(&b, "- %s\n", item)
		}
	}
	return b.String()
}

// FormatError 生成运行失败时的回复文本。
func FormatError(query string, err error) string {
	return fmt.Sprintf("# Research results: %s\n\nThe research run failed: %v\n", query, err)
}
