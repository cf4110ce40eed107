package id

import (
	"strings"

	"github.com/google/uuid"
)

// storyreelNamespace 派生ID使用的命名空间
var storyreelNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("storyreel"))

// New 生成新的UUID（string格式）
func New() string {
	return uuid.New().String()
}

// Derive 由若干部分确定性地生成 UUID（v5），相同输入得到相同ID
// 用于片段ID：同一剧集重新分段后，相同序号的片段保持相同ID
func Derive(parts ...string) string {
	return uuid.NewSHA1(storyreelNamespace, []byte(strings.Join(parts, "/"))).String()
}

// IsValid 验证UUID格式是否有效
func IsValid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
