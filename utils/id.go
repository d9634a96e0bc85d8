package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenId 生成不带横线的随机 id
func GenId() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
