package mqlite

import (
	"context"
	"crypto/tls"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

// WSTransport 异步事件驱动适配器，WebSocket承载。
//
// Open只是启动拨号协程就返回。通道建立之前Send把帧排队并返回
// ErrPending(deferred connect: 挂起的CONNECT在通道建立后第一时间
// 冲出)；建立之后读泵对每个二进制帧调用一次Receiver.ProcessPacket，
// 引擎的单线程模型由这个唯一的读泵保证。
//
// 传输内部用一把小锁保护队列和连接状态——这属于适配器自己的并发，
// 不违反引擎无锁的约定。
type WSTransport struct {
	// TLSClientConfig wss拨号用的TLS配置。
	TLSClientConfig *tls.Config

	// HandshakeTimeout WebSocket握手时限，0用缺省10秒。
	HandshakeTimeout time.Duration

	// Receiver 接收入向报文的引擎。New(WithTransport(...))时
	// 由客户端通过Bind挂上。
	Receiver PacketHandler

	mu          sync.Mutex
	conn        *websocket.Conn
	queue       [][]byte // 通道建立前排队的帧
	established bool
	closed      bool

	group  *errgroup.Group
	cancel context.CancelFunc
}

// Bind 挂上报文接收方。客户端构造时调用。
func (t *WSTransport) Bind(h PacketHandler) {
	t.Receiver = h
}

// Open 启动异步拨号，立即返回。拨号结果通过读泵的生命周期体现，
// Wait可以拿到最终错误。
func (t *WSTransport) Open(addr string) error {
	u, err := url.Parse(addr)
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "ws", "wss":
	case "mqtt":
		u.Scheme = "ws"
	case "mqtts":
		u.Scheme = "wss"
	}
	if u.Path == "" {
		u.Path = "/mqtt"
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)
	t.mu.Lock()
	t.cancel = cancel
	t.group = group
	t.closed = false
	t.mu.Unlock()

	group.Go(func() error {
		return t.run(ctx, u)
	})
	return nil
}

// run 拨号、冲队列、读泵，直到连接结束。
func (t *WSTransport) run(ctx context.Context, u *url.URL) error {
	timeout := t.HandshakeTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	dialer := &websocket.Dialer{
		TLSClientConfig:  t.TLSClientConfig,
		HandshakeTimeout: timeout,
		Subprotocols:     []string{"mqtt"},
	}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.conn = conn
	t.established = true
	pending := t.queue
	t.queue = nil
	t.mu.Unlock()

	// 连接建立通知: 冲出挂起的CONNECT字节
	for _, frame := range pending {
		if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			return err
		}
	}

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			t.established = false
			t.mu.Unlock()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if t.Receiver == nil {
			continue
		}
		if err := t.Receiver.ProcessPacket(data); err != nil {
			// 解码错误不拆连接，由调用方决定 (引擎状态保持一致)
			log.Printf("mqlite: ws transport: process packet: %v", err)
		}
	}
}

func (t *WSTransport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.established && !t.closed
}

func (t *WSTransport) Send(p []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrNotConnected
	}
	if !t.established {
		// deferred connect: 字节排队，通道建立后run负责冲出
		t.queue = append(t.queue, append([]byte(nil), p...))
		return ErrPending
	}
	return t.conn.WriteMessage(websocket.BinaryMessage, p)
}

// Recv 异步适配器不提供轮询路径，报文经由读泵推进引擎。
func (t *WSTransport) Recv(p []byte) (int, error) {
	return 0, nil
}

func (t *WSTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.established = false
	cancel, conn := t.cancel, t.conn
	t.conn = nil
	t.queue = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// Wait 阻塞到读泵退出，返回拨号或泵的最终错误。
// 不要在引擎回调里调用，会和读泵互等。
func (t *WSTransport) Wait() error {
	t.mu.Lock()
	group := t.group
	t.mu.Unlock()
	if group == nil {
		return nil
	}
	return group.Wait()
}
