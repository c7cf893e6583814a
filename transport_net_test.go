package mqlite

import (
	"bytes"
	"fmt"
	"net"
	"testing"
	"time"
)

// TestNetTransport_RecvFramesOnePacket Recv从TCP流里切出一个完整报文
func TestNetTransport_RecvFramesOnePacket(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		con, err := ln.Accept()
		if err != nil {
			return
		}
		defer con.Close()
		// 两个报文一次写出: PINGRESP + PUBACK
		_, _ = con.Write([]byte{0xD0, 0x00, 0x40, 0x02, 0x00, 0x01})
		time.Sleep(50 * time.Millisecond)
	}()

	tr := &NetTransport{PollTimeout: 200 * time.Millisecond}
	if err := tr.Open(fmt.Sprintf("mqtt://%s", ln.Addr())); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer tr.Close()
	if !tr.Connected() {
		t.Fatal("transport should be connected after Open")
	}

	buf := make([]byte, 64)
	n, err := tr.Recv(buf)
	if err != nil {
		t.Fatalf("Recv failed: %v", err)
	}
	if !bytes.Equal(buf[:n], []byte{0xD0, 0x00}) {
		t.Errorf("first packet = % X, want D0 00", buf[:n])
	}

	n, err = tr.Recv(buf)
	if err != nil {
		t.Fatalf("Recv failed: %v", err)
	}
	if !bytes.Equal(buf[:n], []byte{0x40, 0x02, 0x00, 0x01}) {
		t.Errorf("second packet = % X, want 40 02 00 01", buf[:n])
	}
	<-done
}

// TestNetTransport_PollTimeout 没有数据时返回(0, nil)
func TestNetTransport_PollTimeout(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		con, err := ln.Accept()
		if err != nil {
			return
		}
		time.Sleep(500 * time.Millisecond)
		con.Close()
	}()

	tr := &NetTransport{PollTimeout: 20 * time.Millisecond}
	if err := tr.Open(fmt.Sprintf("tcp://%s", ln.Addr())); err != nil {
		t.Fatal(err)
	}
	defer tr.Close()

	start := time.Now()
	n, err := tr.Recv(make([]byte, 16))
	if n != 0 || err != nil {
		t.Errorf("Recv = (%d, %v), want (0, nil) on poll timeout", n, err)
	}
	if elapsed := time.Since(start); elapsed > 300*time.Millisecond {
		t.Errorf("poll took %v, want about the poll timeout", elapsed)
	}
}

// TestNetTransport_SendBeforeOpen 未打开时拒绝
func TestNetTransport_SendBeforeOpen(t *testing.T) {
	tr := &NetTransport{}
	if err := tr.Send([]byte{0x10}); err == nil {
		t.Error("send before open should fail")
	}
	if _, err := tr.Recv(make([]byte, 4)); err == nil {
		t.Error("recv before open should fail")
	}
	if tr.Connected() {
		t.Error("unopened transport should not be connected")
	}
	if err := tr.Close(); err != nil {
		t.Errorf("close is idempotent, got %v", err)
	}
}
