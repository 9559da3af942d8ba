package stream

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"pumpwatch.com/pkg/xerr"
)

// Transport 一条 SSE 连接的底层通道。Connect 返回的 Reader
// 在 ctx 取消或 Close 后，阻塞中的读会立刻返回错误。
type Transport interface {
	// Connect 建立长连接，返回响应体（文本行流）
	Connect(ctx context.Context) (io.ReadCloser, error)
}

// HTTPTransport 对 Standby 服务端的 SSE 实现：
// 长连接 GET /events/{endpoint}，Bearer 认证。
type HTTPTransport struct {
	EventsURL      string
	Token          string
	ConnectTimeout time.Duration

	client *http.Client
}

func NewHTTPTransport(eventsURL, token string, connectTimeout time.Duration) *HTTPTransport {
	if connectTimeout <= 0 {
		connectTimeout = 15 * time.Second
	}
	return &HTTPTransport{
		EventsURL:      eventsURL,
		Token:          token,
		ConnectTimeout: connectTimeout,
		client: &http.Client{
			// 注意：整体 Timeout 必须为 0，流式响应没有截止时间；
			// 握手阶段的超时靠 Dial/ResponseHeader 控制。
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   connectTimeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   connectTimeout,
				ResponseHeaderTimeout: connectTimeout,
			},
		},
	}
}

func (t *HTTPTransport) Connect(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.EventsURL, nil)
	if err != nil {
		return nil, xerr.Wrap(xerr.KindFatal, "build stream request", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.Token)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Connection", "keep-alive")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, xerr.Wrap(xerr.KindTransient, "stream connect", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return resp.Body, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		resp.Body.Close()
		// 凭证被拒：继续退避重试，但必须显式上报（光重试救不回来）
		return nil, xerr.New(xerr.KindAuth, fmt.Sprintf("stream rejected: HTTP %d", resp.StatusCode))
	default:
		resp.Body.Close()
		return nil, xerr.New(xerr.KindTransient, fmt.Sprintf("stream connect: HTTP %d", resp.StatusCode))
	}
}
