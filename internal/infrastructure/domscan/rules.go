// Package domscan 实现渲染后 DOM 快照的回退扫描
// 网络捕获不可用（端点改版、响应加密）时，从页面 HTML 中尽力恢复消息列表；
// 选择器规则外置为 YAML 并支持热更新，以便在平台改版后无需重新发布即可修复
package domscan

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	domaincapture "github.com/chatvault/backend/internal/domain/capture"
)

// PlatformRules 单个平台的扫描规则
type PlatformRules struct {
	// Selectors 消息容器选择器，按优先级排列
	Selectors []string `yaml:"selectors"`
	// Union 为真时合并所有选择器的命中结果（按文档顺序）；
	// 为假时依序尝试，首个有命中的选择器胜出
	Union bool `yaml:"union"`
	// IDAttributes 稳定消息 ID 的候选属性，按优先级排列
	IDAttributes []string `yaml:"idAttributes"`
}

// RuleSet 全部平台的扫描规则
type RuleSet struct {
	Platforms map[string]PlatformRules `yaml:"platforms"`
}

// ForPlatform 返回平台对应的规则
func (r *RuleSet) ForPlatform(platform domaincapture.Platform) (PlatformRules, bool) {
	rules, ok := r.Platforms[string(platform)]
	return rules, ok
}

// DefaultRuleSet 内置规则
// 平台前端改版时，外置规则文件可在不重新发布的情况下覆盖这里的选择器
func DefaultRuleSet() *RuleSet {
	return &RuleSet{
		Platforms: map[string]PlatformRules{
			string(domaincapture.PlatformChatGPT): {
				Selectors: []string{
					"[data-message-author-role]",
					"div[data-testid^='conversation-turn']",
					"main .text-base",
				},
				IDAttributes: []string{"data-message-id", "id"},
			},
			string(domaincapture.PlatformClaude): {
				// Claude 的用户消息和助手消息没有共同容器，需要并集
				Selectors: []string{
					"[data-testid='user-message']",
					"div.font-claude-message",
					"[data-test-render-count] .whitespace-pre-wrap",
				},
				Union:        true,
				IDAttributes: []string{"data-message-id", "id"},
			},
		},
	}
}

// LoadRuleSet 从 YAML 文件加载规则
func LoadRuleSet(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var rules RuleSet
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}
	if len(rules.Platforms) == 0 {
		return nil, fmt.Errorf("rules file %s defines no platforms", path)
	}
	return &rules, nil
}
