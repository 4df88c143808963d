package topic

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BaSui01/researchflow/types"
	"github.com/BaSui01/researchflow/workflow"
)

// Config 描述一个研究主题，构建后不可变。
type Config struct {
	Key         string          `json:"key"`
	Label       string          `json:"label"`
	Description string          `json:"description"`
	Domain      workflow.Domain `json:"domain"`

	// Factory 创建该主题的引擎，BuildEngines 在启动时调用一次
	Factory func() workflow.Engine `json:"-"`
}

// Registry 是有序、不可变的主题集合，启动时构建一次。
type Registry struct {
	configs []Config
	index   map[string]int
}

// NewRegistry 按给定顺序构建注册表。
// key 不能为空或重复，label 不能为空或重复（路由按 label 匹配）。
func NewRegistry(configs ...Config) (*Registry, error) {
	if len(configs) == 0 {
		return nil, errors.New("topic registry requires at least one topic")
	}
	r := &Registry{
		configs: make([]Config, 0, len(configs)),
		index:   make(map[string]int, len(configs)),
	}
	labels := make(map[string]string, len(configs))
	for _, c := range configs {
		if strings.TrimSpace(c.Key) == "" {
			return nil, errors.New("topic key must not be empty")
		}
		if _, dup := r.index[c.Key]; dup {
			return nil, fmt.Errorf("duplicate topic key %q", c.Key)
		}
		if strings.TrimSpace(c.Label) == "" {
			return nil, fmt.Errorf("topic %q has an empty label", c.Key)
		}
		folded := strings.ToLower(c.Label)
		if other, dup := labels[folded]; dup {
			return nil, fmt.Errorf("topics %q and %q share label %q", other, c.Key, c.Label)
		}
		labels[folded] = c.Key
		r.index[c.Key] = len(r.configs)
		r.configs = append(r.configs, c)
	}
	return r, nil
}

// MustNewRegistry 同 NewRegistry，出错时 panic，仅用于内置主题表。
func MustNewRegistry(configs ...Config) *Registry {
	r, err := NewRegistry(configs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Len 返回主题数量
func (r *Registry) Len() int { return len(r.configs) }

// First 返回第一个注册的主题，分类失败时用作兜底。
func (r *Registry) First() Config { return r.configs[0] }

// Get 按 key 查找主题
func (r *Registry) Get(key string) (Config, bool) {
	i, ok := r.index[key]
	if !ok {
		return Config{}, false
	}
	return r.configs[i], true
}

// Resolve 校验显式指定的主题；未知 key 返回 UNKNOWN_TOPIC 错误，
// 消息按注册顺序列出全部合法 key。
func (r *Registry) Resolve(key string) (Config, error) {
	if c, ok := r.Get(key); ok {
		return c, nil
	}
	return Config{}, types.NewUnknownTopicError(key, r.Keys())
}

// Keys 按注册顺序返回全部 key
func (r *Registry) Keys() []string {
	keys := make([]string, len(r.configs))
	for i, c := range r.configs {
		keys[i] = c.Key
	}
	return keys
}

// Labels 返回 key → label
func (r *Registry) Labels() map[string]string {
	out := make(map[string]string, len(r.configs))
	for _, c := range r.configs {
		out[c.Key] = c.Label
	}
	return out
}

// Descriptions 返回 key → description
func (r *Registry) Descriptions() map[string]string {
	out := make(map[string]string, len(r.configs))
	for _, c := range r.configs {
		out[c.Key] = c.Description
	}
	return out
}

// Configs 按注册顺序返回全部主题的副本
func (r *Registry) Configs() []Config {
	return append([]Config(nil), r.configs...)
}

// BuildEngines 为每个主题创建一个引擎实例。没有 Factory 的主题被跳过。
func (r *Registry) BuildEngines() map[string]workflow.Engine {
	engines := make(map[string]workflow.Engine, len(r.configs))
	for _, c := range r.configs {
		if c.Factory == nil {
			continue
		}
		if e := c.Factory(); e != nil {
			engines[c.Key] = e
		}
	}
	return engines
}

// lookupLabel 大小写不敏感地按 label 匹配，其次按 key 匹配。
func (r *Registry) lookupLabel(s string) (Config, bool) {
	for _, c := range r.configs {
		if strings.EqualFold(c.Label, s) {
			return c, true
		}
	}
	for _, c := range r.configs {
		if strings.EqualFold(c.Key, s) {
			return c, true
		}
	}
	return Config{}, false
}
