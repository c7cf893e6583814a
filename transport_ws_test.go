package mqlite

import (
	"errors"
	"testing"
)

// TestWSTransport_DeferredQueue 通道建立前Send排队并返回ErrPending
func TestWSTransport_DeferredQueue(t *testing.T) {
	tr := &WSTransport{}
	if tr.Connected() {
		t.Error("fresh transport should not be connected")
	}
	err := tr.Send([]byte{0x10, 0x00})
	if !errors.Is(err, ErrPending) {
		t.Errorf("err = %v, want ErrPending", err)
	}
	if len(tr.queue) != 1 {
		t.Fatalf("queue = %d frames, want 1", len(tr.queue))
	}

	// 排队的是副本，调用方的缓冲可以复用
	src := []byte{0x30, 0x02, 0x00, 0x00}
	_ = tr.Send(src)
	src[0] = 0xFF
	if tr.queue[1][0] != 0x30 {
		t.Error("queued frame must be a copy of the caller's buffer")
	}
}

// TestWSTransport_CloseIdempotent Close幂等，关闭后Send拒绝
func TestWSTransport_CloseIdempotent(t *testing.T) {
	tr := &WSTransport{}
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	if err := tr.Send([]byte{0x10}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("send after close = %v, want ErrNotConnected", err)
	}
}

// TestWSTransport_Bind 引擎通过Bind挂上
func TestWSTransport_Bind(t *testing.T) {
	tr := &WSTransport{}
	c := New(ClientID("x"), WithTransport(tr))
	if tr.Receiver == nil {
		t.Fatal("New should bind the client as packet receiver")
	}
	if tr.Receiver.(*Client) != c {
		t.Error("bound receiver should be the client")
	}
}

// TestWSTransport_RecvNoop 异步适配器没有轮询路径
func TestWSTransport_RecvNoop(t *testing.T) {
	tr := &WSTransport{}
	n, err := tr.Recv(make([]byte, 16))
	if n != 0 || err != nil {
		t.Errorf("Recv = (%d, %v), want (0, nil)", n, err)
	}
}
