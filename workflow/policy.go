package workflow

// Domain 是主题所属的业务域，决定检索后缀与分析字段。
type Domain string

const (
	DomainTools               Domain = "tools"
	DomainCareer              Domain = "career"
	DomainSoftwareEngineering Domain = "software_engineering"
)

// Field 是分析阶段要求 LLM 输出的一个字段。
type Field struct {
	Name string
	Hint string
}

// Policy 描述某个域（以及具体主题）的检索与提示词参数。
type Policy struct {
	Domain          Domain
	SearchSuffix    string
	Subject         string // 抽取阶段要找的对象
	AnalysisSubject string
	RecommenderRole string
	Fields          []Field
}

const (
	searchSuffixTools    = "company pricing"
	searchSuffixPractice = "best practices guide"
)

var toolFields = []Field{
	{"pricing_model", `One of "Free", "Freemium", "Paid", "Enterprise", or "Unknown"`},
	{"pricing_details", `Any price information, e.g. "from $20/month for Pro"; empty if unclear`},
	{"is_open_source", "true if open source, false if proprietary, null if unclear"},
	{"category", "Short category label for the leading option"},
	{"tech_stack", "Programming languages, frameworks, databases or APIs supported/used"},
	{"api_available", "true if a REST/GraphQL API, SDK or programmatic access is mentioned"},
	{"language_support", "Programming languages explicitly supported"},
	{"integration_capabilities", "Tools/platforms it integrates with (GitHub, Docker, AWS, ...)"},
}

var careerFields = []Field{
	{"category", "Kind of platform or resource"},
	{"primary_use_case", "What candidates mainly use it for"},
	{"target_users", "Who benefits most (students, senior engineers, career switchers, ...)"},
	{"pricing_model", `One of "Free", "Freemium", "Paid", "Enterprise", or "Unknown"`},
	{"strengths", "Main strengths"},
	{"limitations", "Main limitations"},
	{"ideal_for", "Situations where it is the best choice"},
	{"not_suited_for", "Situations where it should be avoided"},
}

var practiceFields = []Field{
	{"primary_focus", "e.g. testing, architecture, delivery"},
	{"difficulty_level", "Beginner, Intermediate or Advanced"},
	{"ideal_audience", "e.g. backend developers, SREs, team leads"},
	{"key_practices", "Named practices, e.g. TDD, code review, trunk-based development"},
	{"benefits", "Expected benefits"},
	{"drawbacks", "Tradeoffs and limitations"},
	{"recommended_usage", "Brief guidance on how to adopt it"},
}

// PolicyFor 返回某个域的默认策略；未知域按 tools 处理。
func PolicyFor(domain Domain) Policy {
	switch domain {
	case DomainCareer:
		return Policy{
			Domain:          DomainCareer,
			SearchSuffix:    searchSuffixPractice,
			Subject:         "career platform, tool, or learning resource",
			AnalysisSubject: "career development platforms and interview preparation resources",
			RecommenderRole: "career coach for software engineers",
			Fields:          careerFields,
		}
	case DomainSoftwareEngineering:
		return Policy{
			Domain:          DomainSoftwareEngineering,
			SearchSuffix:    searchSuffixPractice,
			Subject:         "tool, framework, practice, or named resource",
			AnalysisSubject: "software engineering tools, frameworks and practices",
			RecommenderRole: "staff-level software engineer",
			Fields:          practiceFields,
		}
	default:
		return Policy{
			Domain:          DomainTools,
			SearchSuffix:    searchSuffixTools,
			Subject:         "technical product, tool, platform, or service",
			AnalysisSubject: "technical products and computing technologies",
			RecommenderRole: "senior technical advisor",
			Fields:          toolFields,
		}
	}
}

// WithProfile 覆盖提示词中的主题措辞，空值保持原样。
func (p Policy) WithProfile(subject, analysisSubject, role string) Policy {
	if subject != "" {
		p.Subject = subject
	}
	if analysisSubject != "" {
		p.AnalysisSubject = analysisSubject
	}
	if role != "" {
		p.RecommenderRole = role
	}
	return p
}

// FieldNames 按顺序返回字段名。
func (p Policy) FieldNames() []string {
	names := make([]string, len(p.Fields))
	for i, f := range p.Fields {
		names[i] = f.Name
	}
	return names
}
