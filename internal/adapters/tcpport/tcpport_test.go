package tcpport

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/mbtools/modpoll/internal/domain"
	"github.com/mbtools/modpoll/internal/ports"
)

// serve accepts one connection and hands it to fn.
func serve(t *testing.T, fn func(net.Conn)) ports.ConnectionConfig {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		fn(conn)
	}()

	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	return ports.ConnectionConfig{Mode: ports.ModeTCP, Address: host, TCPPort: port}
}

func TestTransport_ReadFrameReassembles(t *testing.T) {
	// One register response, delivered in two chunks.
	resp := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x05, 0x03, 0x03, 0x02, 0x00, 0x2A}
	cfg := serve(t, func(conn net.Conn) {
		buf := make([]byte, 64)
		if _, err := conn.Read(buf); err != nil {
			return
		}
		conn.Write(resp[:4])
		time.Sleep(10 * time.Millisecond)
		conn.Write(resp[4:])
	})

	tr := New()
	if err := tr.Open(context.Background(), cfg); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer tr.Close()

	if err := tr.Write(context.Background(), []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x06, 0x03, 0x03, 0x00, 0x9C, 0x00, 0x01}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := tr.ReadFrame(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !bytes.Equal(got, resp) {
		t.Errorf("frame = % X, want % X", got, resp)
	}
}

func TestTransport_ReadFrameTimeout(t *testing.T) {
	cfg := serve(t, func(conn net.Conn) {
		// Never answer.
		time.Sleep(time.Second)
	})

	tr := New()
	if err := tr.Open(context.Background(), cfg); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer tr.Close()

	_, err := tr.ReadFrame(context.Background(), 100*time.Millisecond)
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("ReadFrame = %v, want ErrTimeout", err)
	}
}

func TestTransport_ReadFrameCanceled(t *testing.T) {
	cfg := serve(t, func(conn net.Conn) {
		time.Sleep(time.Second)
	})

	tr := New()
	if err := tr.Open(context.Background(), cfg); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer tr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	_, err := tr.ReadFrame(ctx, 5*time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("ReadFrame = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("cancellation was not prompt")
	}
}

func TestTransport_DrainDiscardsStrayBytes(t *testing.T) {
	cfg := serve(t, func(conn net.Conn) {
		conn.Write([]byte{0xDE, 0xAD, 0xBE, 0xEF})
		time.Sleep(time.Second)
	})

	tr := New()
	if err := tr.Open(context.Background(), cfg); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer tr.Close()

	time.Sleep(50 * time.Millisecond)
	if err := tr.Drain(); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if _, err := tr.ReadFrame(context.Background(), 100*time.Millisecond); !errors.Is(err, domain.ErrTimeout) {
		t.Errorf("ReadFrame after drain = %v, want ErrTimeout (stray bytes gone)", err)
	}
}

func TestTransport_Lifecycle(t *testing.T) {
	tr := New()
	if tr.Connected() {
		t.Error("Connected = true before Open")
	}
	if err := tr.Write(context.Background(), []byte{0x01}); !errors.Is(err, domain.ErrNotConnected) {
		t.Errorf("Write while closed = %v, want ErrNotConnected", err)
	}
	if err := tr.Close(); err != nil {
		t.Errorf("Close while closed = %v, want nil", err)
	}

	cfg := serve(t, func(conn net.Conn) { time.Sleep(time.Second) })
	if err := tr.Open(context.Background(), cfg); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !tr.Connected() {
		t.Error("Connected = false after Open")
	}
	if err := tr.Open(context.Background(), cfg); !errors.Is(err, domain.ErrAlreadyConnected) {
		t.Errorf("second Open = %v, want ErrAlreadyConnected", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if tr.Connected() {
		t.Error("Connected = true after Close")
	}
}
