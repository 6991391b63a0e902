package export

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// 在包初始化时设置离线加载器，避免运行时联网下载编码文件
func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// TokenCounter 基于 tiktoken 的 Token 计数器
// 计数仅作为上下文规模提示，不追求与各平台计费口径完全一致
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
}

var (
	counterInstance *TokenCounter
	counterOnce     sync.Once
	counterErr      error
)

// GetTokenCounter 获取计数器单例
// 编码文件加载较重，进程内只做一次
func GetTokenCounter() (*TokenCounter, error) {
	counterOnce.Do(func() {
		// cl100k_base 与 GPT-4、Claude 等模型兼容
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			counterErr = err
			return
		}
		counterInstance = &TokenCounter{encoding: enc}
	})

	if counterErr != nil {
		return nil, counterErr
	}
	return counterInstance, nil
}

// CountTokens 计算文本的 Token 数量
func (c *TokenCounter) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(c.encoding.Encode(text, nil, nil))
}
