package episode

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("not found")

// IsNotFound 判断是否为记录不存在
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, mongo.ErrNoDocuments)
}
