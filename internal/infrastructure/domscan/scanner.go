package domscan

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	domaincapture "github.com/chatvault/backend/internal/domain/capture"
	"github.com/chatvault/backend/internal/infrastructure/config"
	"github.com/chatvault/backend/internal/infrastructure/log"
)

// Scanner DOM 回退扫描器
// 规则可被 Watcher 热更新，读写经锁保护
type Scanner struct {
	mu     sync.RWMutex
	rules  *RuleSet
	logger *slog.Logger
}

// NewScanner 创建扫描器
// 配置了规则文件路径且文件可用时采用外置规则，否则使用内置规则
func NewScanner(cfg *config.ScannerConfig) *Scanner {
	s := &Scanner{
		rules:  DefaultRuleSet(),
		logger: log.NewModuleLogger("domscan", "scanner"),
	}

	if cfg.RulesPath != "" {
		if rules, err := LoadRuleSet(cfg.RulesPath); err != nil {
			s.logger.Warn("failed to load external rules, using builtin",
				"path", cfg.RulesPath,
				"error", err,
			)
		} else {
			s.rules = rules
			s.logger.Info("external scan rules loaded",
				"path", cfg.RulesPath,
				"platforms", len(rules.Platforms),
			)
		}
	}

	return s
}

// ReplaceRules 原子替换规则（热更新入口）
func (s *Scanner) ReplaceRules(rules *RuleSet) {
	s.mu.Lock()
	s.rules = rules
	s.mu.Unlock()
}

// ScanSnapshot 从 HTML 快照中提取消息列表
// 提取失败返回空切片；结果不可视为完整历史
func (s *Scanner) ScanSnapshot(platform domaincapture.Platform, html string) []domaincapture.Message {
	s.mu.RLock()
	rules, ok := s.rules.ForPlatform(platform)
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		s.logger.Warn("failed to parse html snapshot",
			"platform", platform,
			"error", err,
		)
		return nil
	}

	selection := s.selectContainers(doc, rules)
	if selection == nil || selection.Length() == 0 {
		return nil
	}

	var messages []domaincapture.Message
	selection.Each(func(i int, sel *goquery.Selection) {
		text := domaincapture.NormalizeText(sel.Text())
		if text == "" {
			return
		}

		role := detectRole(sel, platform)
		messages = append(messages, domaincapture.Message{
			ID:         messageID(sel, rules.IDAttributes, text, i),
			Role:       role,
			Text:       text,
			AuthorName: domaincapture.AuthorName(platform, role),
		})
	})

	return messages
}

// selectContainers 应用选择器规则
// Union 模式合并所有选择器（逗号并集保持文档顺序），
// 否则依序尝试并采用首个有命中的选择器
func (s *Scanner) selectContainers(doc *goquery.Document, rules PlatformRules) *goquery.Selection {
	if len(rules.Selectors) == 0 {
		return nil
	}

	if rules.Union {
		return doc.Find(strings.Join(rules.Selectors, ", "))
	}

	for _, selector := range rules.Selectors {
		if sel := doc.Find(selector); sel.Length() > 0 {
			return sel
		}
	}
	return nil
}

// detectRole 角色启发式级联
// 数据属性 → testid 子串 → 标题文本 → class 同义词 → 图片 alt → 默认 assistant
func detectRole(sel *goquery.Selection, platform domaincapture.Platform) domaincapture.Role {
	if v, ok := sel.Attr("data-message-author-role"); ok {
		return domaincapture.NormalizeRole(v)
	}
	if v, ok := sel.Attr("data-role"); ok {
		return domaincapture.NormalizeRole(v)
	}

	if v, ok := sel.Attr("data-testid"); ok {
		if r, ok := roleFromHint(v); ok {
			return r
		}
	}

	if heading := sel.Find("h1,h2,h3,h4,h5,h6").First().Text(); heading != "" {
		if r, ok := roleFromHint(heading); ok {
			return r
		}
	}

	if class, ok := sel.Attr("class"); ok {
		if r, ok := roleFromHint(class); ok {
			return r
		}
	}

	if alt, ok := sel.Find("img").First().Attr("alt"); ok {
		if r, ok := roleFromHint(alt); ok {
			return r
		}
	}

	return domaincapture.RoleAssistant
}

// roleFromHint 从属性值或展示文本中猜测角色
func roleFromHint(hint string) (domaincapture.Role, bool) {
	h := strings.ToLower(hint)
	switch {
	case strings.Contains(h, "human"), strings.Contains(h, "user"), strings.Contains(h, "you "), strings.HasPrefix(h, "you"):
		return domaincapture.RoleUser, true
	case strings.Contains(h, "assistant"), strings.Contains(h, "claude"),
		strings.Contains(h, "chatgpt"), strings.Contains(h, "bot"), strings.Contains(h, "agent"):
		return domaincapture.RoleAssistant, true
	}
	return "", false
}

// messageID 稳定消息 ID
// 依序尝试候选属性（自身及内层元素），全部缺失时退化为内容哈希
func messageID(sel *goquery.Selection, attrs []string, text string, index int) string {
	for _, attr := range attrs {
		if v, ok := sel.Attr(attr); ok && v != "" {
			return v
		}
		if v, ok := sel.Find("[" + attr + "]").First().Attr(attr); ok && v != "" {
			return v
		}
	}
	return domaincapture.ContentHashID(text, index)
}
