package mqlite

import "errors"

// 会话引擎层面的错误。协议和编解码层面的错误(畸形报文、未知属性、
// UTF-8校验失败、能力不支持)在packet包里以ReasonCode形式定义，
// 两边都按sentinel用法配合errors.Is。
var (
	// ErrNilReference 必需的输入指针缺失。
	ErrNilReference = errors.New("mqlite: nil reference")

	// ErrNotConnected 操作需要已完成的MQTT CONNACK握手。
	// 注意区分传输通道的连接状态: TCP通了但CONNACK没回来也算未连接。
	ErrNotConnected = errors.New("mqlite: not connected")

	// ErrInvalidPacketID 报文标识符为0，或者不在在途表里。
	ErrInvalidPacketID = errors.New("mqlite: invalid packet identifier")

	// ErrOutOfResource 在途表满。调用方应该等应答把槽位排空再发。
	ErrOutOfResource = errors.New("mqlite: in-flight table exhausted")

	// ErrUnexpectedPacketType 报文类型不在期望掩码里，
	// 或者报文标识符等待的是另一种应答。
	ErrUnexpectedPacketType = errors.New("mqlite: unexpected packet type")

	// ErrInvalidPacketSize 固定报头声明的剩余长度和收到的字节数不符。
	ErrInvalidPacketSize = errors.New("mqlite: packet size mismatch")

	// ErrServerDeclined CONNACK原因码>=0x80。调用方应该关闭传输
	// 并丢弃客户端。
	ErrServerDeclined = errors.New("mqlite: server declined connection")

	// ErrPending 字节已由传输排队，等待异步通道建立后冲出
	// (deferred connect路径)。对CONNECT来说不算失败。
	ErrPending = errors.New("mqlite: send pending connection establishment")
)
