package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strings"
)

// ParseStringOrEmpty 把 JSON 标量转换成字符串：字符串去引号，数字保持原文，布尔值为 True/False
func ParseStringOrEmpty(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	switch raw[0] {
	case '"':
		var result string
		if err := json.Unmarshal(raw, &result); err != nil {
			return ""
		}
		return result
	case 't':
		return "True"
	case 'f':
		return "False"
	case '{', '[':
		return ""
	}
	return string(raw)
}

// SanitizeTopicSegment 只保留 MQTT topic 与 object_id 可用的字符。
// 有字符被替换时追加原值的哈希，避免 "a/b" 与 "a_b" 冲突
func SanitizeTopicSegment(value string) string {
	var builder strings.Builder
	replaced := false
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			builder.WriteRune(r)
		default:
			builder.WriteRune('_')
			replaced = true
		}
	}
	if replaced {
		hash := fnv.New32a()
		_, _ = hash.Write([]byte(value))
		_, _ = fmt.Fprintf(&builder, "_%08x", hash.Sum32())
	}
	return builder.String()
}
