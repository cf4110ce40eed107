package episodetools

import (
	"errors"
	"fmt"
)

// InvalidInputError 输入错误（剧本缺失、场景为空、分段参数非法）
// 属于致命错误，在生成任何片段之前同步返回
type InvalidInputError struct {
	Field   string // 出错的字段，如 structured_screenplay / scenes / options
	Message string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input (%s): %s", e.Field, e.Message)
}

// IsInvalidInput 判断错误链中是否包含 InvalidInputError
func IsInvalidInput(err error) bool {
	var target *InvalidInputError
	return errors.As(err, &target)
}

func invalidInput(field, format string, args ...any) error {
	return &InvalidInputError{Field: field, Message: fmt.Sprintf(format, args...)}
}
