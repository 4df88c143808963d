package workflow

import (
	"fmt"
	"strings"
)

// =============================================================================
// 抽取
// =============================================================================

func extractionSystemPrompt(p Policy) string {
	return fmt.Sprintf("You are a tech researcher. Extract specific %s names from articles.\n"+
		"Focus on actual products, tools or resources people can use, not general concepts or features.", p.Subject)
}

func extractionUserPrompt(p Policy, query, content string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\nArticle Content: %s\n\n", query, content)
	fmt.Fprintf(&b, "Extract a list of specific %s names mentioned in this content that are relevant to %q.\n\n", p.Subject, query)
	b.WriteString("Rules:\n")
	b.WriteString("- Only include actual names, not generic terms\n")
	b.WriteString("- Include both open source and commercial options\n")
	b.WriteString("- Limit to the 5 most relevant items\n")
	b.WriteString("- Return just the names, one per line, no descriptions")
	return b.String()
}

// =============================================================================
// 分析
// =============================================================================

func analysisSystemPrompt(p Policy) string {
	return fmt.Sprintf("You are analyzing %s.\n"+
		"Focus on information relevant to software developers and answer with a single JSON object only.", p.AnalysisSubject)
}

func analysisUserPrompt(p Policy, query, content string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\nCollected Content: %s\n\n", query, content)
	b.WriteString("Analyze this content and return a JSON object with these keys:\n")
	b.WriteString("- summary: Brief 1-2 sentence overview of the findings\n")
	for _, f := range p.Fields {
		fmt.Fprintf(&b, "- %s: %s\n", f.Name, f.Hint)
	}
	b.WriteString("\nUse strings, booleans, lists of strings or null. No code fences, no extra text.")
	return b.String()
}

// =============================================================================
// 推荐
// =============================================================================

func recommendSystemPrompt(p Policy) string {
	return fmt.Sprintf("You are a %s providing quick, concise recommendations.\n"+
		"Keep responses brief and actionable, at most 3-4 sentences.", p.RecommenderRole)
}

func recommendUserPrompt(query, resourcesJSON string) string {
	return fmt.Sprintf("Developer Query: %s\nResources Analyzed: %s\n\n"+
		"Provide a brief recommendation (3-4 sentences max) covering which option is best and why, "+
		"the key cost consideration and the main technical advantage.\n\n"+
		"Be concise and direct.", query, resourcesJSON)
}
