package middleware

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP はリクエストの送信元IPアドレスを返す。
// リバースプロキシ背後を想定し、X-Forwarded-Forの先頭値を優先する。
// ヘッダーがない場合はRemoteAddrからポートを除いた値を返す。
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.SplitN(xff, ",", 2)[0])
		if first != "" {
			return first
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
