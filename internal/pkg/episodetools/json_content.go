package episodetools

import (
	"regexp"
	"strings"
)

var markdownJSONPattern = regexp.MustCompile("(?s)^\\s*```(?:json)?\\s*\\n(.*?)\\n\\s*```\\s*$")

// CleanJSONContent 清理 LLM 返回的 JSON 内容
// 移除 markdown 代码块标记；前后有说明文字时截取最外层的 {...}
func CleanJSONContent(content string) string {
	content = strings.TrimSpace(content)
	if matches := markdownJSONPattern.FindStringSubmatch(content); len(matches) > 1 {
		content = matches[1]
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	if !strings.HasPrefix(content, "{") {
		start := strings.Index(content, "{")
		end := strings.LastIndex(content, "}")
		if start >= 0 && end > start {
			content = content[start : end+1]
		}
	}
	return content
}
