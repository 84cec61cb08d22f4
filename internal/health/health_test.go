package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type noopCache struct{ cleared int }

func (c *noopCache) Clear() { c.cleared++ }

func TestNewFloorsTimeout(t *testing.T) {
	c := New(nil, &noopCache{}, time.Second, time.Millisecond, nil)
	if c.timeout != minCheckTimeout {
		t.Errorf("timeout = %v, want floor %v", c.timeout, minCheckTimeout)
	}
}

func TestNewKeepsTimeoutAboveFloor(t *testing.T) {
	c := New(nil, &noopCache{}, time.Second, 2*time.Second, nil)
	if c.timeout != 2*time.Second {
		t.Errorf("timeout = %v, want 2s", c.timeout)
	}
}

func TestProbeHealthyOn200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(nil, &noopCache{}, time.Second, time.Second, nil)
	if !c.probe(context.Background(), srv.URL) {
		t.Error("expected 200 to be healthy")
	}
}

func TestProbeUnhealthyOn5xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(nil, &noopCache{}, time.Second, time.Second, nil)
	if c.probe(context.Background(), srv.URL) {
		t.Error("expected 500 to be unhealthy")
	}
}

func TestProbeHealthyOn4xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(nil, &noopCache{}, time.Second, time.Second, nil)
	if !c.probe(context.Background(), srv.URL) {
		t.Error("expected 404 (< 500) to still count as healthy")
	}
}

func TestProbeUnhealthyOnUnreachable(t *testing.T) {
	c := New(nil, &noopCache{}, time.Second, minCheckTimeout, nil)
	if c.probe(context.Background(), "http://127.0.0.1:1") {
		t.Error("expected connection failure to be unhealthy")
	}
}

func TestProbeUnhealthyOnMalformedURL(t *testing.T) {
	c := New(nil, &noopCache{}, time.Second, minCheckTimeout, nil)
	if c.probe(context.Background(), "://not-a-url") {
		t.Error("expected malformed URL to be unhealthy")
	}
}
