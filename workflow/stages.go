package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/researchflow/llm"
)

const (
	defaultSearchLimit = 3
	maxAnalyzed        = 3
	contextCharLimit   = 2000
	snippetCharLimit   = 1500
	untitledResource   = "Untitled resource"
	maxLoggedItems     = 10
	noContentMessage   = "No content found; continuing with empty extraction."
	noAnalysisMessage  = "No detailed content to analyze; skipping analysis."
)

var (
	errNoProvider = errors.New("no llm provider installed")
	bulletPrefix  = regexp.MustCompile(`^(?:[-*•]+|\d+[.)])\s*`)
)

func (r *run) searchLimit() int {
	if r.cfg.SearchLimit > 0 {
		return r.cfg.SearchLimit
	}
	return defaultSearchLimit
}

// =============================================================================
// Extract
// =============================================================================

func (r *run) extract(ctx context.Context) error {
	query := r.state.Query
	r.log(fmt.Sprintf("Finding resources about: %s", query))

	results := r.cfg.Gateway.Search(ctx, strings.TrimSpace(query+" "+r.cfg.Policy.SearchSuffix), r.searchLimit())

	var blob strings.Builder
	resources := make([]Resource, 0, len(results))
	for _, res := range results {
		content := res.Markdown
		if content == "" && res.URL != "" {
			if page, ok := r.cfg.Gateway.Fetch(ctx, res.URL); ok {
				content = page
			}
		}
		if content != "" {
			blob.WriteString(truncate(content, contextCharLimit))
			blob.WriteString("\n\n")
		}
		if res.URL == "" && res.Title == "" {
			continue
		}
		name := strings.TrimSpace(res.Title)
		if name == "" {
			name = untitledResource
		}
		resources = append(resources, Resource{
			Name:        name,
			URL:         res.URL,
			Description: res.Description,
			Content:     truncate(content, snippetCharLimit),
			Fields:      resourceFields(res.URL, content),
		})
	}
	r.state.Resources = resources

	if blob.Len() == 0 {
		r.log(noContentMessage)
		return nil
	}

	text, err := r.ask(ctx, extractionSystemPrompt(r.cfg.Policy), extractionUserPrompt(r.cfg.Policy, query, blob.String()))
	if err != nil {
		r.log(fmt.Sprintf("Extraction failed: %v", err))
		return nil
	}
	items := parseItems(text)
	r.state.ExtractedItems = items

	logged := items
	if len(logged) > maxLoggedItems {
		logged = logged[:maxLoggedItems]
	}
	r.log(fmt.Sprintf("Extracted items: %s", strings.Join(logged, ", ")))
	return nil
}

// parseItems 按行切分 LLM 输出，去掉项目符号与编号。
func parseItems(text string) []string {
	items := []string{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(bulletPrefix.ReplaceAllString(strings.TrimSpace(line), ""))
		if line != "" {
			items = append(items, line)
		}
	}
	return items
}

func resourceFields(rawURL, content string) map[string]string {
	fields := map[string]string{"content_chars": strconv.Itoa(len([]rune(content)))}
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		fields["host"] = u.Host
	}
	return fields
}

// =============================================================================
// Analyze
// =============================================================================

func (r *run) analyze(ctx context.Context) error {
	r.log("Analyzing aggregated resources")

	candidates := r.state.Resources
	if len(candidates) > maxAnalyzed {
		candidates = candidates[:maxAnalyzed]
	}

	contents := make([]string, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	for i, res := range candidates {
		g.Go(func() error {
			content := res.Content
			if res.URL != "" {
				if page, ok := r.cfg.Gateway.Fetch(gctx, res.URL); ok {
					content = page
				}
			}
			contents[i] = truncate(content, contextCharLimit)
			return nil
		})
	}
	_ = g.Wait()

	var combined strings.Builder
	for _, c := range contents {
		if c == "" {
			continue
		}
		combined.WriteString(c)
		combined.WriteString("\n\n")
	}

	if combined.Len() == 0 {
		r.log(noAnalysisMessage)
		r.state.Analysis = failedAnalysis("no content to analyze")
		return nil
	}

	text, err := r.askJSON(ctx, analysisSystemPrompt(r.cfg.Policy), analysisUserPrompt(r.cfg.Policy, r.state.Query, combined.String()))
	if err != nil {
		r.log(fmt.Sprintf("Analysis failed: %v", err))
		r.state.Analysis = failedAnalysis(err.Error())
		return nil
	}
	analysis, err := parseAnalysis(text, r.cfg.Policy)
	if err != nil {
		r.log(fmt.Sprintf("Analysis failed: %v", err))
		r.state.Analysis = failedAnalysis(err.Error())
		return nil
	}
	r.state.Analysis = analysis
	return nil
}

// parseAnalysis 取第一个 '{' 到最后一个 '}' 之间的 JSON 对象并展平为字符串字段。
func parseAnalysis(text string, p Policy) (Analysis, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return Analysis{}, fmt.Errorf("analysis response is not a JSON object")
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return Analysis{}, fmt.Errorf("decode analysis: %w", err)
	}

	fields := make(map[string]string, len(p.Fields))
	for _, name := range p.FieldNames() {
		if v, ok := flatten(raw[name]); ok {
			fields[name] = v
		}
	}
	summary, _ := flatten(raw["summary"])
	if summary == "" {
		summary, _ = flatten(raw["description"])
	}
	return Analysis{Summary: summary, Fields: fields, Status: AnalysisOK}, nil
}

func flatten(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		x = strings.TrimSpace(x)
		return x, x != ""
	case bool:
		return strconv.FormatBool(x), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case []any:
		parts := make([]string, 0, len(x))
		for _, item := range x {
			if s, ok := flatten(item); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", "), len(parts) > 0
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			if s, ok := flatten(x[k]); ok {
				parts = append(parts, k+": "+s)
			}
		}
		return strings.Join(parts, "; "), len(parts) > 0
	default:
		return fmt.Sprint(x), true
	}
}

// =============================================================================
// Recommend
// =============================================================================

func (r *run) recommend(ctx context.Context) error {
	r.log("Generating final recommendations")

	resourcesJSON, err := json.Marshal(r.state.Resources)
	if err != nil {
		return fmt.Errorf("encode resources: %w", err)
	}
	text, err := r.ask(ctx, recommendSystemPrompt(r.cfg.Policy), recommendUserPrompt(r.state.Query, string(resourcesJSON)))
	if err != nil {
		r.log(fmt.Sprintf("Recommendation failed: %v", err))
		return err
	}

	switch r.state.Analysis.Status {
	case AnalysisOK:
		r.state.Analysis.Summary = text
	case AnalysisFailed:
	default:
		r.state.Analysis = failedAnalysis("analysis stage produced no record")
	}
	r.state.Analysis.Recommendation = text
	return nil
}

// ask 发送 system + user 两条消息，返回首个候选的文本。
func (r *run) ask(ctx context.Context, system, user string) (string, error) {
	return r.complete(ctx, system, user, false)
}

// askJSON 要求提供方只返回 JSON 对象；解析仍走 parseAnalysis 的容错逻辑。
func (r *run) askJSON(ctx context.Context, system, user string) (string, error) {
	return r.complete(ctx, system, user, true)
}

func (r *run) complete(ctx context.Context, system, user string, jsonOutput bool) (string, error) {
	if r.provider == nil {
		return "", errNoProvider
	}
	resp, err := r.provider.Completion(ctx, &llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: user},
		},
		JSONOutput: jsonOutput,
	})
	if err != nil {
		return "", err
	}
	choice, err := llm.FirstChoice(resp)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(choice.Message.Content), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
