package cache

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Key 根据类型名与一组区分条目的设置值生成缓存键，格式为 #TypeName:hash。
// 每个设置值按 类型+值 写入哈希，"1" 与 1 不会得到相同的键。
func Key(typeName string, settings ...any) string {
	digest := xxhash.New()
	for _, value := range settings {
		encoded := fmt.Sprintf("%T=%v", value, value)
		_, _ = digest.WriteString(strconv.Itoa(len(encoded)))
		_, _ = digest.WriteString(":")
		_, _ = digest.WriteString(encoded)
	}
	return fmt.Sprintf("#%s:%d", typeName, digest.Sum64())
}
