package topic

import (
	"go.uber.org/zap"

	"github.com/BaSui01/researchflow/workflow"
)

// Deps 是内置主题引擎共享的依赖。
type Deps struct {
	Gateway            workflow.Gateway
	Models             workflow.ModelBuilder
	DefaultModel       string
	DefaultTemperature float64
	SearchLimit        int
	Recorder           workflow.Recorder
	Logger             *zap.Logger
}

// profile 覆盖某个主题的提示词措辞，空字段沿用域默认值。
type profile struct {
	subject         string
	analysisSubject string
	role            string
}

type builtin struct {
	key         string
	label       string
	description string
	domain      workflow.Domain
	profile     profile
}

// 顺序即路由兜底顺序：developer_tools 必须排第一。
var builtins = []builtin{
	// ==== tools ====
	{"developer_tools", "Developer Tools",
		"IDEs, editors, debuggers, build tools, CI/CD, and developer productivity tooling.",
		workflow.DomainTools,
		profile{"developer tool, library, platform, or service", "developer tools and programming technologies", "senior software engineer"}},
	{"saas", "SaaS Products",
		"Hosted subscription software (B2B/B2C SaaS apps, CRM, helpdesk, collaboration tools, etc.).",
		workflow.DomainTools,
		profile{"SaaS product, cloud application, or hosted service", "SaaS platforms and hosted software products", "senior SaaS solutions architect"}},
	{"api", "API Platforms",
		"Platforms whose main product is an API/SDK: REST/GraphQL APIs, webhooks, API gateways, etc.",
		workflow.DomainTools,
		profile{"API platform, developer API, or programmatic service", "API platforms, REST/GraphQL services, and developer integrations", "API integration specialist"}},
	{"ai_ml", "AI & ML Platforms",
		"LLM providers, ML platforms, model hosting, vector DBs, embeddings, fine-tuning, AI infra.",
		workflow.DomainTools,
		profile{"AI/ML platform, model API, or machine-learning service", "AI platforms, model hosting solutions, vector DBs, and ML tooling", "machine learning systems engineer"}},
	{"security", "Security & Identity",
		"Auth, identity, IAM, SSO, OAuth/OIDC, MFA, zero trust, WAF, bot/fraud detection, security tools.",
		workflow.DomainTools,
		profile{"security tool, authentication service, or identity platform", "cybersecurity tools, identity management systems, and authentication providers", "security engineer"}},
	{"cloud", "Cloud & Infrastructure",
		"Cloud providers and infra: compute, storage, networking, serverless, managed Kubernetes, etc.",
		workflow.DomainTools,
		profile{"cloud service, infrastructure platform, or managed resource", "cloud computing platforms, infrastructure services, and DevOps tools", "cloud infrastructure architect"}},
	{"database", "Databases & Data Platforms",
		"SQL/NoSQL DBs, data warehouses, OLTP/OLAP engines, and managed database services.",
		workflow.DomainTools,
		profile{"database, data warehouse, or data platform", "databases, analytics platforms, and data infrastructure", "data infrastructure architect"}},

	// ==== career ====
	{"resume_tools", "Resume Optimization & ATS Tools",
		"Resume builders, ATS checkers, keyword optimizers and related tools.",
		workflow.DomainCareer, profile{subject: "resume builder, ATS checker, or resume optimization tool"}},
	{"job_search", "Job Search Platforms & Market Analysis",
		"Job boards, remote job sites, and salary/market insight platforms.",
		workflow.DomainCareer, profile{subject: "job board, remote job site, or salary insight platform"}},
	{"learning_platform", "Learning Platforms & Skill Roadmaps",
		"Online courses, bootcamps, and structured learning roadmaps.",
		workflow.DomainCareer, profile{subject: "online course, bootcamp, or learning roadmap"}},
	{"coding_interview", "Coding Interview Platforms",
		"Platforms for coding interview practice and mock interviews.",
		workflow.DomainCareer, profile{subject: "coding interview practice or mock interview platform"}},
	{"system_design", "System Design Interview Platforms",
		"System design interview preparation platforms and resources.",
		workflow.DomainCareer, profile{subject: "system design interview course, book, or platform"}},
	{"behavioral_interview", "Behavioral Interview & Coaching Tools",
		"Behavioral interview practice tools and career coaching platforms.",
		workflow.DomainCareer, profile{subject: "behavioral interview practice tool or career coaching platform"}},

	// ==== software engineering ====
	{"architecture_design", "Architecture Design Suggestions",
		"Suggestions for architecture design.",
		workflow.DomainSoftwareEngineering, profile{role: "principal software architect"}},
	{"code_quality", "Code Quality Suggestions",
		"Suggestions for code quality.",
		workflow.DomainSoftwareEngineering, profile{subject: "linter, static analysis tool, or code quality practice"}},
	{"testing", "Testing",
		"Testing tools & suggestions for testing.",
		workflow.DomainSoftwareEngineering, profile{subject: "testing framework, tool, or testing practice"}},
	{"agile", "Agile Tools",
		"Agile tools & suggestions.",
		workflow.DomainSoftwareEngineering, profile{subject: "agile tool, framework, or team practice"}},
	{"cicd", "CICD Tools",
		"CICD tools & suggestions.",
		workflow.DomainSoftwareEngineering, profile{subject: "CI/CD platform, pipeline tool, or delivery practice"}},
}

// Default 返回 18 个内置主题，引擎共享 deps 中的网关与模型构建器。
func Default(deps Deps) *Registry {
	configs := make([]Config, 0, len(builtins))
	for _, b := range builtins {
		policy := workflow.PolicyFor(b.domain).WithProfile(b.profile.subject, b.profile.analysisSubject, b.profile.role)
		configs = append(configs, Config{
			Key:         b.key,
			Label:       b.label,
			Description: b.description,
			Domain:      b.domain,
			Factory: func() workflow.Engine {
				return workflow.NewResearchWorkflow(workflow.ResearchConfig{
					TopicKey:           b.key,
					TopicLabel:         b.label,
					Policy:             policy,
					Gateway:            deps.Gateway,
					Models:             deps.Models,
					DefaultModel:       deps.DefaultModel,
					DefaultTemperature: deps.DefaultTemperature,
					SearchLimit:        deps.SearchLimit,
					Recorder:           deps.Recorder,
					Logger:             deps.Logger,
				})
			},
		})
	}
	return MustNewRegistry(configs...)
}
