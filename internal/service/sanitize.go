package service

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// userTextPolicy 剥离所有 HTML 标签，用户文本只保留纯文字
var userTextPolicy = bluemonday.StrictPolicy()

// sanitizeUserText 清洗来自客户端的自由文本（标题、描述、备注等）。
// 同步 push 与常规 CRUD 的写入路径共用该入口。
func sanitizeUserText(input string) string {
	return strings.TrimSpace(userTextPolicy.Sanitize(input))
}
