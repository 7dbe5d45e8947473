package common

import (
	"strings"

	"github.com/google/uuid"
)

// TempIDPrefix 標記尚未（或永遠不會）被遠端確認的本地識別碼
const TempIDPrefix = "temp-"

// NewTempID 生成暫時識別碼
func NewTempID() string {
	return TempIDPrefix + uuid.New().String()
}

// IsTempID 檢查是否為暫時識別碼
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// MaskSecret 遮罩金鑰，只顯示前後各 4 個字符
func MaskSecret(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
