package packet

import (
	"bytes"
	"fmt"
	"io"
)

/*
================================================================================
MQTT DISCONNECT 包 - 断开连接通知
================================================================================

参考文档:
- MQTT v5.0: 章节 3.14 DISCONNECT - Disconnect notification

双向报文: 客户端用它优雅断开(0x00)或带遗嘱断开(0x04)，服务端用它
宣告为什么要关连接。可变报头: 原因码、属性。

长度压缩规则:
- 剩余长度=0: 原因码按0x00(正常断开)处理 [MQTT-3.14.2-1]
- 剩余长度=1: 只有原因码
- 其余: 原因码+属性表

客户端发出的DISCONNECT里只允许会话过期间隔、原因字符串和用户属性；
服务端方向还会出现服务端参考。
================================================================================
*/

// DISCONNECT 断开连接通知报文
// 参考章节: 3.14 DISCONNECT - Disconnect notification
type DISCONNECT struct {
	*FixedHeader

	// ReasonCode 断开原因码
	// 参考章节: 3.14.2.1 Disconnect Reason Code
	ReasonCode uint8

	// Props 断开属性
	// 参考章节: 3.14.2.2 DISCONNECT Properties
	Props *DisconnectProperties `json:"Properties,omitempty"`
}

func (pkt *DISCONNECT) Kind() byte {
	return 0xE
}

func (pkt *DISCONNECT) String() string {
	return fmt.Sprintf("[0xE]DISCONNECT ReasonCode=0x%02X", pkt.ReasonCode)
}

// Pack 将DISCONNECT报文序列化到写入器。
// 正常断开且没有属性时剩余长度直接是0。
func (pkt *DISCONNECT) Pack(w io.Writer) error {
	if pkt.Props != nil {
		if rs := string(pkt.Props.ReasonString); rs != "" && !ValidUTF8String(rs) {
			return fmt.Errorf("%w: reason string", ErrMalformedInvalidUTF8)
		}
		if err := pkt.Props.UserProperties.validate(); err != nil {
			return err
		}
	}

	buf := GetBuffer()
	defer PutBuffer(buf)

	body := []byte(nil)
	if pkt.Props != nil {
		body = pkt.Props.Pack()
	}
	if pkt.ReasonCode != 0 || len(body) > 0 {
		buf.WriteByte(pkt.ReasonCode)
	}
	if len(body) > 0 {
		if err := writeProps(buf, body); err != nil {
			return err
		}
	}

	pkt.FixedHeader.RemainingLength = uint32(buf.Len())
	if err := pkt.FixedHeader.Pack(w); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

// Unpack 从缓冲区解析DISCONNECT报文
func (pkt *DISCONNECT) Unpack(buf *bytes.Buffer) error {
	pkt.Props = &DisconnectProperties{}
	if buf.Len() == 0 {
		// 剩余长度0: 正常断开 [MQTT-3.14.2-1]
		pkt.ReasonCode = 0
		return nil
	}
	var err error
	if pkt.ReasonCode, err = readByte(buf); err != nil {
		return err
	}
	if buf.Len() == 0 {
		return nil
	}
	return pkt.Props.Unpack(buf)
}

// DisconnectProperties 断开属性
// 参考章节: 3.14.2.2 DISCONNECT Properties
type DisconnectProperties struct {
	// SessionExpiryInterval 会话过期间隔覆盖值 (0x11)
	// 只在客户端方向合法 [MQTT-3.14.2-2]。服务端发来时引擎
	// 把它记进断开记录，由调用方决定怎么处理。
	SessionExpiryInterval SessionExpiryInterval

	// ReasonString 原因字符串 (0x1F)
	ReasonString ReasonString

	// UserProperties 用户属性 (0x26)
	UserProperties UserProperties

	// ServerReference 服务端参考 (0x1C)，配合0x9C/0x9D原因码
	ServerReference ServerReference
}

func (props *DisconnectProperties) Pack() []byte {
	buf := GetBuffer()
	defer PutBuffer(buf)

	props.SessionExpiryInterval.Pack(buf)
	props.ReasonString.Pack(buf)
	props.UserProperties.Pack(buf)
	props.ServerReference.Pack(buf)

	return append([]byte(nil), buf.Bytes()...)
}

func (props *DisconnectProperties) Unpack(buf *bytes.Buffer) error {
	return propReader(buf, func(id byte, buf *bytes.Buffer) (uint32, error) {
		switch id {
		case 0x11:
			return props.SessionExpiryInterval.Unpack(buf)
		case 0x1F:
			return props.ReasonString.Unpack(buf)
		case 0x26:
			return props.UserProperties.unpackOne(buf)
		case 0x1C:
			return props.ServerReference.Unpack(buf)
		default:
			return 0, ErrMalformedBadProperty
		}
	})
}
