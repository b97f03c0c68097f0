package ringd

import (
	"strconv"
)

const (
	DefaultContentType = "text/html"
	DefaultBody        = "Have a nice day!\n"
)

var standardResponse = BuildResponse(DefaultContentType, []byte(DefaultBody))

// StandardResponse
// 默认响应的副本，Content-length 为 17。
func StandardResponse() []byte {
	return append([]byte(nil), standardResponse...)
}

// BuildResponse
// 生成 HTTP/1.1 200 响应，Content-length 按 body 计算。
func BuildResponse(contentType string, body []byte) []byte {
	if contentType == "" {
		contentType = DefaultContentType
	}
	b := make([]byte, 0, 64+len(contentType)+len(body))
	b = append(b, "HTTP/1.1 200 OK\r\n"...)
	b = append(b, "Content-type: "...)
	b = append(b, contentType...)
	b = append(b, "\r\nContent-length: "...)
	b = strconv.AppendInt(b, int64(len(body)), 10)
	b = append(b, "\r\n\r\n"...)
	b = append(b, body...)
	return b
}
