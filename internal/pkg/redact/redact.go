// redact маскирует секреты перед логированием.
package redact

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Email оставляет первые две руны локальной части и домен.
func Email(s string) string {
	parts := strings.Split(s, "@")
	if len(parts) != 2 {
		return "***"
	}

	local, domain := []rune(parts[0]), parts[1]
	if len(local) > 2 {
		return string(local[:2]) + "***@" + domain
	}

	return "***@" + domain
}

// Token — литерал вместо токена; пустой токен остаётся пустым,
// чтобы по логам было видно его отсутствие.
func Token(tok string) string {
	if tok == "" {
		return ""
	}

	return "[REDACTED_TOKEN]"
}

// Fingerprint — короткий стабильный отпечаток секрета (8 hex-символов sha256)
// для корреляции записей без раскрытия значения.
func Fingerprint(secret string) string {
	if secret == "" {
		return ""
	}

	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:4])
}

func Password() string { return "[REDACTED_PASSWORD]" }
