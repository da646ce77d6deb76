package proxy

import (
	"net/http"
	"testing"
	"time"
)

func TestNewClientDirect(t *testing.T) {
	c, err := NewClient("", 3*time.Second)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if c.Timeout != 3*time.Second {
		t.Fatalf("Timeout = %v, want 3s", c.Timeout)
	}
	if c.Transport != nil {
		t.Fatalf("Transport = %T, want default", c.Transport)
	}
}

func TestNewClientSocks(t *testing.T) {
	c, err := NewClient("127.0.0.1:1080", time.Minute)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if _, ok := c.Transport.(*http.Transport); !ok {
		t.Fatalf("Transport = %T, want *http.Transport", c.Transport)
	}
}
