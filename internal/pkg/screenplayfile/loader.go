package screenplayfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"storyreel/internal/model/episode"
)

// 支持的文件格式
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// document 文件内容：完整的剧集，或者只有剧本（顶层直接是 scenes）
type document struct {
	episode.Episode `yaml:",inline"`
	Scenes          *[]episode.Scene `json:"scenes" yaml:"scenes"` // 出现 scenes 键时非 nil（即使为空）
}

// FormatOf 根据扩展名判断格式，不支持时返回空字符串
func FormatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return ""
	}
}

// Load 读取剧集文件
// 剧集ID为空时使用文件名（不含扩展名）
func Load(path string) (*episode.Episode, error) {
	format := FormatOf(path)
	if format == "" {
		return nil, fmt.Errorf("unsupported screenplay file %s: want .json, .yaml or .yml", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ep, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if ep.ID == "" {
		ep.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return ep, nil
}

// Decode 解析剧集内容
func Decode(data []byte, format string) (*episode.Episode, error) {
	var doc document
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &doc)
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	if err != nil {
		return nil, err
	}

	ep := doc.Episode
	if ep.Screenplay == nil && doc.Scenes != nil {
		ep.Screenplay = &episode.Screenplay{Title: ep.Title, Scenes: *doc.Scenes}
	}
	return &ep, nil
}

// List 列出目录下所有剧集文件（按文件名排序，不递归）
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || FormatOf(entry.Name()) == "" {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
