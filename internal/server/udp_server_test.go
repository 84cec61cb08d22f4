package server

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/authdns/authdns/internal/cache"
	"github.com/authdns/authdns/internal/dnswire"
	"github.com/authdns/authdns/internal/metrics"
	"github.com/authdns/authdns/internal/ratelimit"
	"github.com/authdns/authdns/internal/store"
)

func TestUDPServerAnswersOverLoopback(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	st.CreateZone(store.Zone{Name: "example.com"})
	z, _ := st.GetZone("example.com")
	st.CreateRecord(store.Record{ZoneID: z.ID, Name: "www.example.com", Type: "A", Value: "192.0.2.1", TTL: 60, Weight: 1, Enabled: true})

	handler := &QueryHandler{
		Store:   st,
		Cache:   cache.New[[]store.Record](time.Minute),
		Metrics: metrics.New(prometheus.NewRegistry()),
		Timeout: 2 * time.Second,
	}

	serverConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer serverConn.Close()

	srv := &UDPServer{
		Handler:          handler,
		Limiter:          ratelimit.New(ratelimit.Config{}),
		WorkersPerSocket: 4,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		srv.RunOnConn(ctx, serverConn)
		close(done)
	}()

	client, err := net.DialUDP("udp", nil, serverConn.LocalAddr().(*net.UDPAddr))
	if err != nil {
		t.Fatalf("DialUDP: %v", err)
	}
	defer client.Close()

	p := dnswire.Packet{
		Header:    dnswire.Header{ID: 0xBEEF, Flags: dnswire.RDFlag, QDCount: 1},
		Questions: []dnswire.Question{{Name: "www.example.com", Type: uint16(dnswire.TypeA), Class: uint16(dnswire.ClassIN)}},
	}
	msg, err := p.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	if _, err := client.Write(msg); err != nil {
		t.Fatalf("Write: %v", err)
	}

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 512)
	n, err := client.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	resp, err := dnswire.ParsePacket(buf[:n])
	if err != nil {
		t.Fatalf("ParsePacket: %v", err)
	}
	if resp.Header.ID != 0xBEEF {
		t.Errorf("response ID = %x, want 0xBEEF", resp.Header.ID)
	}
	if len(resp.Answers) != 1 {
		t.Fatalf("expected 1 answer, got %d", len(resp.Answers))
	}
	if ip, ok := resp.Answers[0].IPv4(); !ok || ip != "192.0.2.1" {
		t.Errorf("answer = %q, %v", ip, ok)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down after context cancellation")
	}
}
