package stream

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pumpwatch.com/pkg/xerr"
)

func TestHTTPTransport_Connect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Header.Get("Accept") != "text/event-stream" {
			t.Errorf("missing accept header")
		}
		w.Write([]byte("event: trade\ndata: {}\n\n"))
	}))
	defer srv.Close()

	tr := NewHTTPTransport(srv.URL, "tok", 2*time.Second)
	body, err := tr.Connect(context.Background())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer body.Close()

	line, err := bufio.NewReader(body).ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if line != "event: trade\n" {
		t.Fatalf("unexpected first line %q", line)
	}
}

func TestHTTPTransport_AuthRejected(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))

		tr := NewHTTPTransport(srv.URL, "bad", 2*time.Second)
		_, err := tr.Connect(context.Background())
		if err == nil {
			t.Fatalf("HTTP %d must fail", code)
		}
		// 认证失败和瞬时失败要能区分开
		if !xerr.IsAuth(err) {
			t.Fatalf("HTTP %d must classify as auth error, got kind=%s", code, xerr.KindOf(err))
		}
		srv.Close()
	}
}

func TestHTTPTransport_ServerErrorTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	tr := NewHTTPTransport(srv.URL, "tok", 2*time.Second)
	_, err := tr.Connect(context.Background())
	if err == nil {
		t.Fatal("502 must fail")
	}
	if xerr.KindOf(err) != xerr.KindTransient {
		t.Fatalf("502 is transient, got %s", xerr.KindOf(err))
	}
}

func TestHTTPTransport_CancelUnblocksRead(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		<-block // 不再发数据
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	tr := NewHTTPTransport(srv.URL, "tok", 2*time.Second)
	body, err := tr.Connect(ctx)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer body.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 64)
		_, _ = body.Read(buf) // 阻塞读，必须被 cancel 解开
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("blocked read not released by ctx cancel")
	}
}
