package http

import (
	"net/http"
	"testing"
	"time"
)

func TestNewServer_WithAddress(t *testing.T) {
	srv := NewServer(http.NewServeMux(), WithAddress(":9999"))
	if srv.Addr() != ":9999" {
		t.Errorf("Addr() = %s, want :9999", srv.Addr())
	}
}

func TestNewServer_DefaultAddress(t *testing.T) {
	srv := NewServer(http.NewServeMux())
	if srv.Addr() != ":8080" {
		t.Errorf("Addr() = %s, want :8080", srv.Addr())
	}
}

func TestNewServer_WithTimeouts(t *testing.T) {
	srv := NewServer(http.NewServeMux(), WithTimeouts(5*time.Second, 10*time.Second))
	if srv.httpServer.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout = %v, want 5s", srv.httpServer.ReadTimeout)
	}
	if srv.httpServer.WriteTimeout != 10*time.Second {
		t.Errorf("WriteTimeout = %v, want 10s", srv.httpServer.WriteTimeout)
	}
}
