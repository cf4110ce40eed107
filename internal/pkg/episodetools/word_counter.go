package episodetools

import (
	"strings"
	"unicode"

	"github.com/go-ego/gse"
)

// WordCounter 统计台词词数的接口
// 英文剧本按空白切分即可；中文剧本需要分词器
type WordCounter interface {
	CountWords(text string) int
}

// FieldsWordCounter 按空白切分计数（默认）
type FieldsWordCounter struct{}

// CountWords 实现 WordCounter
func (FieldsWordCounter) CountWords(text string) int {
	return len(strings.Fields(text))
}

// GseWordCounter 基于 gse 分词的词数统计，适用于中文台词
// 分词器初始化失败时退化为按空白切分
type GseWordCounter struct {
	segmenter *gse.Segmenter
}

// NewGseWordCounter 创建 gse 分词计数器
func NewGseWordCounter() *GseWordCounter {
	segmenter, err := gse.New()
	if err != nil {
		return &GseWordCounter{}
	}
	return &GseWordCounter{segmenter: &segmenter}
}

// CountWords 实现 WordCounter，标点和空白不计入词数
func (c *GseWordCounter) CountWords(text string) int {
	if c.segmenter == nil {
		return FieldsWordCounter{}.CountWords(text)
	}
	count := 0
	for _, token := range c.segmenter.Cut(text, false) {
		if isWordToken(token) {
			count++
		}
	}
	return count
}

func isWordToken(token string) bool {
	for _, r := range token {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
