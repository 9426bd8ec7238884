// Package http builds the outbound HTTP client shared by the provider clients.
package http

import (
	"net"
	"net/http"
	"time"
)

// NewHTTPClient は外部API呼び出し用に設定されたHTTPクライアントを作成します。
//
// 設定:
//   - Proxy: 環境変数（HTTP_PROXYなど）が設定されている場合に使用
//   - Dialer.Timeout: TCP接続タイムアウト
//   - MaxIdleConnsPerHost: 同一プロバイダへの接続を再利用するため既定の2より多くする
//   - ResponseHeaderTimeout: ヘッダーが返らないプロバイダを早めに切る
//   - Client.Timeout: リクエスト全体のタイムアウト（呼び出し元から渡される）
//
// 注意:
//   - http.DefaultClientにはタイムアウトがないため、常にカスタムクライアントを使用すること
func NewHTTPClient(timeout time.Duration) *http.Client {
	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: responseHeaderTimeout(timeout),
	}
	return &http.Client{Timeout: timeout, Transport: t}
}

// responseHeaderTimeout は 10 秒か全体タイムアウトの短い方を返します。
func responseHeaderTimeout(total time.Duration) time.Duration {
	const limit = 10 * time.Second
	if total <= 0 || total > limit {
		return limit
	}
	return total
}
