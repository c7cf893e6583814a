package packet

import (
	"bytes"
	"fmt"
	"io"
)

// SUBACK 订阅确认报文
//
// 参考文档: MQTT v5.0 章节 3.9 SUBACK - Subscribe acknowledgement
//
// 可变报头: 报文标识符、属性。
// 载荷: 原因码列表，与SUBSCRIBE里的订阅条目一一对应且顺序一致
// [MQTT-3.9.3-1]。0x00/0x01/0x02是授权的QoS，>=0x80是拒绝。
type SUBACK struct {
	*FixedHeader

	// PacketID 对应SUBSCRIBE的报文标识符
	PacketID uint16 `json:"PacketID,omitempty"`

	// Props 确认属性
	Props *SubackProperties `json:"Properties,omitempty"`

	// ReasonCodes 每个订阅条目一个原因码
	// 参考章节: 3.9.3 SUBACK Payload
	ReasonCodes []uint8 `json:"ReasonCodes,omitempty"`
}

func (pkt *SUBACK) Kind() byte {
	return 0x9
}

func (pkt *SUBACK) String() string {
	return fmt.Sprintf("[0x9]SUBACK PacketID=%d Codes=%d", pkt.PacketID, len(pkt.ReasonCodes))
}

func (pkt *SUBACK) Pack(w io.Writer) error {
	if pkt.PacketID == 0 {
		return ErrMalformedPacketID
	}
	if len(pkt.ReasonCodes) == 0 {
		return ErrMalformedReasonCode
	}

	buf := GetBuffer()
	defer PutBuffer(buf)

	buf.Write(i2b(pkt.PacketID))

	if pkt.Props == nil {
		pkt.Props = &SubackProperties{}
	}
	if err := writeProps(buf, pkt.Props.Pack()); err != nil {
		return err
	}
	buf.Write(pkt.ReasonCodes)

	pkt.FixedHeader.RemainingLength = uint32(buf.Len())
	if err := pkt.FixedHeader.Pack(w); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

func (pkt *SUBACK) Unpack(buf *bytes.Buffer) error {
	var err error
	if pkt.PacketID, err = readUint16(buf); err != nil {
		return err
	}
	if pkt.PacketID == 0 {
		return ErrMalformedPacketID
	}

	pkt.Props = &SubackProperties{}
	if err := pkt.Props.Unpack(buf); err != nil {
		return err
	}

	// 剩下的每个字节是一个原因码
	codes := buf.Next(buf.Len())
	if len(codes) == 0 {
		return ErrMalformedReasonCode
	}
	pkt.ReasonCodes = append([]uint8(nil), codes...)
	return nil
}

// SubackProperties 订阅确认属性
// 参考章节: 3.9.2.1 SUBACK Properties
type SubackProperties struct {
	// ReasonString 原因字符串 (0x1F)
	ReasonString ReasonString

	// UserProperties 用户属性 (0x26)
	UserProperties UserProperties
}

func (props *SubackProperties) Pack() []byte {
	buf := GetBuffer()
	defer PutBuffer(buf)

	props.ReasonString.Pack(buf)
	props.UserProperties.Pack(buf)

	return append([]byte(nil), buf.Bytes()...)
}

func (props *SubackProperties) Unpack(buf *bytes.Buffer) error {
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
