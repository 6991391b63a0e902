package middleware

import (
	"bytes"
	"io"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// EnsureUTF8Body 将非 UTF-8 的请求体转换为 UTF-8
// Windows 中文环境下用 curl 投递信封时请求体可能是 GBK 编码
func EnsureUTF8Body() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body == nil || c.Request.ContentLength == 0 {
			c.Next()
			return
		}

		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Next()
			return
		}
		c.Request.Body.Close()

		// 已是有效 UTF-8（或空）则原样恢复
		if len(raw) == 0 || utf8.Valid(raw) {
			c.Request.Body = io.NopCloser(bytes.NewReader(raw))
			c.Next()
			return
		}

		// 按 GBK 解码重试（Windows 中文系统默认代码页 936）
		decoded, err := gbkToUTF8(raw)
		if err == nil && utf8.Valid(decoded) {
			c.Request.Body = io.NopCloser(bytes.NewReader(decoded))
			c.Request.ContentLength = int64(len(decoded))
		} else {
			// 解码失败，保留原始数据交给后续绑定报错
			c.Request.Body = io.NopCloser(bytes.NewReader(raw))
		}

		c.Next()
	}
}

func gbkToUTF8(raw []byte) ([]byte, error) {
	reader := transform.NewReader(bytes.NewReader(raw), simplifiedchinese.GBK.NewDecoder())
	return io.ReadAll(reader)
}
