package packet

import (
	"bytes"
	"fmt"
	"io"
)

/*
================================================================================
MQTT PUBACK 包 - 发布确认报文 (QoS 1)
================================================================================

参考文档:
- MQTT v5.0: 章节 3.4 PUBACK - Publish acknowledgement

QoS 1投递的唯一应答。可变报头: 报文标识符、原因码、属性。

长度压缩规则对四种发布应答(PUBACK/PUBREC/PUBREL/PUBCOMP)一致:
- 剩余长度=2: 只有报文标识符，原因码按0x00(成功)处理 [MQTT-3.4.2-1]
- 剩余长度=3: 报文标识符+原因码，无属性
- 剩余长度>=4: 报文标识符+原因码+属性表

四种应答的属性集合相同(原因字符串+用户属性)，共用AckProperties；
报文结构的编解码也走同一对packAck/unpackAck。
================================================================================
*/

// PUBACK 发布确认报文，QoS 1交换的终点
// 参考章节: 3.4 PUBACK - Publish acknowledgement
type PUBACK struct {
	*FixedHeader

	// PacketID 被确认的PUBLISH的报文标识符
	PacketID uint16 `json:"PacketID,omitempty"`

	// ReasonCode 发布确认原因码
	// 参考章节: 3.4.2.1 PUBACK Reason Code
	ReasonCode uint8

	// Props 确认属性
	Props *AckProperties `json:"Properties,omitempty"`
}

func (pkt *PUBACK) Kind() byte {
	return 0x4
}

func (pkt *PUBACK) String() string {
	return fmt.Sprintf("[0x4]PUBACK PacketID=%d ReasonCode=0x%02X", pkt.PacketID, pkt.ReasonCode)
}

func (pkt *PUBACK) Pack(w io.Writer) error {
	return packAck(pkt.FixedHeader, pkt.PacketID, pkt.ReasonCode, pkt.Props, w)
}

func (pkt *PUBACK) Unpack(buf *bytes.Buffer) error {
	var err error
	pkt.PacketID, pkt.ReasonCode, pkt.Props, err = unpackAck(pkt.FixedHeader, buf)
	return err
}

// AckProperties 发布应答属性，四种应答共用
// 参考章节: 3.4.2.2 PUBACK Properties (3.5/3.6/3.7同构)
type AckProperties struct {
	// ReasonString 原因字符串 (0x1F)
	ReasonString ReasonString

	// UserProperties 用户属性 (0x26)
	UserProperties UserProperties
}

func (props *AckProperties) Pack() []byte {
	buf := GetBuffer()
	defer PutBuffer(buf)

	props.ReasonString.Pack(buf)
	props.UserProperties.Pack(buf)

	return append([]byte(nil), buf.Bytes()...)
}

func (props *AckProperties) Unpack(buf *bytes.Buffer) error {
	return propReader(buf, func(id byte, buf *bytes.Buffer) (uint32, error) {
		switch id {
		case 0x1F:
			return props.ReasonString.Unpack(buf)
		case 0x26:
			return props.UserProperties.unpackOne(buf)
		default:
			return 0, ErrMalformedBadProperty
		}
	})
}

// packAck 四种发布应答的公共编码路径。
// 成功且无属性时只写报文标识符，利用协议的长度压缩规则省2个字节。
func packAck(fixed *FixedHeader, packetID uint16, reason uint8, props *AckProperties, w io.Writer) error {
	if packetID == 0 {
		return ErrMalformedPacketID
	}
	if props != nil {
		if rs := string(props.ReasonString); rs != "" && !ValidUTF8String(rs) {
			return fmt.Errorf("%w: reason string", ErrMalformedInvalidUTF8)
		}
		if err := props.UserProperties.validate(); err != nil {
			return err
		}
	}

	buf := GetBuffer()
	defer PutBuffer(buf)

	buf.Write(i2b(packetID))

	body := []byte(nil)
	if props != nil {
		body = props.Pack()
	}
	if reason != 0 || len(body) > 0 {
		buf.WriteByte(reason)
	}
	if len(body) > 0 {
		if err := writeProps(buf, body); err != nil {
			return err
		}
	}

	fixed.RemainingLength = uint32(buf.Len())
	if err := fixed.Pack(w); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

// unpackAck 四种发布应答的公共解码路径。
func unpackAck(fixed *FixedHeader, buf *bytes.Buffer) (uint16, uint8, *AckProperties, error) {
	packetID, err := readUint16(buf)
	if err != nil {
		return 0, 0, nil, err
	}
	if packetID == 0 {
		return 0, 0, nil, ErrMalformedPacketID
	}

	props := &AckProperties{}
	var reason uint8
	if buf.Len() > 0 {
		if reason, err = readByte(buf); err != nil {
			return 0, 0, nil, err
		}
	}
	if buf.Len() > 0 {
		if err := props.Unpack(buf); err != nil {
			return 0, 0, nil, err
		}
	}
	return packetID, reason, props, nil
}
