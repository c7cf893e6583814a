package mqlite

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/url"
	"time"

	"golang.org/x/net/websocket"
)

// NetTransport 阻塞式socket适配器。Open同步拨号，Recv带轮询超时。
// 支持的scheme: mqtt/tcp(明文)、mqtts/tls、ws/wss(WebSocket子协议mqtt)。
type NetTransport struct {
	// DialContext specifies the dial function for creating unencrypted TCP connections.
	// If nil, the transport dials using package net.
	DialContext func(ctx context.Context, network, addr string) (net.Conn, error)

	// DialTLSContext specifies an optional dial function for creating TLS connections.
	// If nil, DialContext and TLSClientConfig are used.
	DialTLSContext func(ctx context.Context, network, addr string) (net.Conn, error)

	// TLSClientConfig specifies the TLS configuration to use with tls.Client.
	TLSClientConfig *tls.Config

	// Timeout 拨号和读取一个已开始的报文余下字节的时限，0用缺省值。
	Timeout time.Duration

	// PollTimeout Recv等第一个字节的时长，0用DefaultPollTimeout。
	PollTimeout time.Duration

	conn net.Conn
	br   *bufio.Reader
}

func (t *NetTransport) Open(addr string) error {
	u, err := url.Parse(addr)
	if err != nil {
		return err
	}
	host := u.Host
	if u.Port() == "" {
		host = net.JoinHostPort(u.Host, "1883")
	}
	con, err := t.dial(context.Background(), u.Scheme, host, u.Path)
	if err != nil {
		return err
	}
	t.conn = con
	t.br = bufio.NewReader(con)
	return nil
}

// dial 按scheme建链。用户自定义拨号优先。
func (t *NetTransport) dial(ctx context.Context, scheme, addr, path string) (net.Conn, error) {
	if t.DialContext != nil && (scheme == "tcp" || scheme == "mqtt") {
		con, err := t.DialContext(ctx, "tcp", addr)
		if con == nil && err == nil {
			err = errors.New("mqlite: NetTransport.DialContext hook returned (nil, nil)")
		}
		return con, err
	}
	if t.DialTLSContext != nil && (scheme == "tls" || scheme == "mqtts") {
		con, err := t.DialTLSContext(ctx, "tcp", addr)
		if con == nil && err == nil {
			err = errors.New("mqlite: NetTransport.DialTLSContext hook returned (nil, nil)")
		}
		return con, err
	}

	dialer := &net.Dialer{Timeout: t.Timeout}
	switch scheme {
	case "mqtt", "tcp":
		return dialer.DialContext(ctx, "tcp", addr)
	case "mqtts", "tls":
		return tls.DialWithDialer(dialer, "tcp", addr, t.TLSClientConfig)
	case "ws", "wss":
		// 构造 WebSocket URL，默认路径 /mqtt
		if path == "" {
			path = "/mqtt"
		}
		loc := &url.URL{Scheme: scheme, Host: addr, Path: path}
		// 兼容 Origin 要求
		originScheme := "http"
		if scheme == "wss" {
			originScheme = "https"
		}
		origin := &url.URL{Scheme: originScheme, Host: addr}

		cfg, err := websocket.NewConfig(loc.String(), origin.String())
		if err != nil {
			return nil, err
		}
		// 协商 mqtt 子协议，二进制帧
		cfg.Protocol = []string{"mqtt"}
		if scheme == "wss" {
			cfg.TlsConfig = t.TLSClientConfig
		}
		ws, err := websocket.DialConfig(cfg)
		if err != nil {
			return nil, err
		}
		ws.PayloadType = websocket.BinaryFrame
		return ws, nil
	default:
		// 兜底按 tcp 处理
		return dialer.DialContext(ctx, "tcp", addr)
	}
}

func (t *NetTransport) Connected() bool {
	return t.conn != nil
}

func (t *NetTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn, t.br = nil, nil
	return err
}

func (t *NetTransport) Send(p []byte) error {
	if t.conn == nil {
		return ErrNotConnected
	}
	_, err := t.conn.Write(p)
	return err
}

// Recv 从流里切出一个完整的控制报文(含固定报头)写进p。
// PollTimeout内连第一个字节都没等到就返回(0, nil)；一旦报文开始，
// 余下字节在Timeout内读完，读不完按传输错误上报。
func (t *NetTransport) Recv(p []byte) (int, error) {
	if t.conn == nil {
		return 0, ErrNotConnected
	}
	poll := t.PollTimeout
	if poll == 0 {
		poll = DefaultPollTimeout
	}
	_ = t.conn.SetReadDeadline(time.Now().Add(poll))
	first, err := t.br.ReadByte()
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return 0, nil
		}
		return 0, err
	}

	// 报文已经开始，给余下的字节一个宽松的时限
	rest := t.Timeout
	if rest == 0 {
		rest = 10 * time.Second
	}
	_ = t.conn.SetReadDeadline(time.Now().Add(rest))

	n := 0
	p[n] = first
	n++

	// 解析剩余长度，变长整数最多4字节
	remaining, multiplier := 0, 1
	for i := 0; ; i++ {
		if i == 4 {
			return 0, ErrInvalidPacketSize
		}
		b, err := t.br.ReadByte()
		if err != nil {
			return 0, err
		}
		if n >= len(p) {
			return 0, ErrInvalidPacketSize
		}
		p[n] = b
		n++
		remaining += int(b&127) * multiplier
		multiplier *= 128
		if b&128 == 0 {
			break
		}
	}

	if n+remaining > len(p) {
		return 0, ErrInvalidPacketSize
	}
	if _, err := io.ReadFull(t.br, p[n:n+remaining]); err != nil {
		return 0, err
	}
	return n + remaining, nil
}
