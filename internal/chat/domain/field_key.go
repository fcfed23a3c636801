package domain

import "strings"

// mongo 以 "." 分隔路徑, "$" 開頭是運算子, email 作為 map key 需要跳脫
var (
	keyEscaper   = strings.NewReplacer("%", "%25", ".", "%2E", "$", "%24")
	keyUnescaper = strings.NewReplacer("%2E", ".", "%24", "$", "%25", "%")
)

// EscapeKey encode a participant id for use as a document field name
func EscapeKey(participantID string) string {
	return keyEscaper.Replace(participantID)
}

// UnescapeKey reverse of EscapeKey
func UnescapeKey(key string) string {
	return keyUnescaper.Replace(key)
}
