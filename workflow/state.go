package workflow

// AnalysisStatus 区分分析记录的三种状态。
type AnalysisStatus string

const (
	AnalysisAbsent AnalysisStatus = "absent"
	AnalysisOK     AnalysisStatus = "ok"
	AnalysisFailed AnalysisStatus = "failed"
)

// FallbackSummary 是分析失败时写入的摘要。
const FallbackSummary = "Analysis failed."

// Resource 是从搜索结果构建的一条资料。
type Resource struct {
	Name        string            `json:"name"`
	URL         string            `json:"url"`
	Description string            `json:"description,omitempty"`
	Content     string            `json:"-"`
	Fields      map[string]string `json:"fields,omitempty"`
}

// Analysis 是分析阶段产出的结构化记录。
type Analysis struct {
	Summary        string            `json:"summary"`
	Fields         map[string]string `json:"fields,omitempty"`
	Recommendation string            `json:"recommendation,omitempty"`
	Status         AnalysisStatus    `json:"status"`
	Err            string            `json:"error,omitempty"`
}

// Present reports whether the analysis stage produced a record, successful or not.
func (a Analysis) Present() bool {
	return a.Status == AnalysisOK || a.Status == AnalysisFailed
}

func failedAnalysis(reason string) Analysis {
	return Analysis{
		Summary: FallbackSummary,
		Fields:  map[string]string{},
		Status:  AnalysisFailed,
		Err:     reason,
	}
}

// State 是一次运行的全部状态，只归属于这一次运行。
// 各字段只会被对应阶段写入一次，LogMessages 只追加。
type State struct {
	Query          string     `json:"query"`
	ExtractedItems []string   `json:"extracted_items"`
	Resources      []Resource `json:"resources"`
	Analysis       Analysis   `json:"analysis"`
	LogMessages    []string   `json:"log_messages"`
}

// NewState 创建初始状态。
func NewState(query string) *State {
	return &State{
		Query:          query,
		ExtractedItems: []string{},
		Resources:      []Resource{},
		Analysis:       Analysis{Status: AnalysisAbsent},
		LogMessages:    []string{},
	}
}
