package packet

import (
	"bytes"
	"fmt"
	"io"
)

// UNSUBACK 取消订阅确认报文
//
// 参考文档: MQTT v5.0 章节 3.11 UNSUBACK - Unsubscribe acknowledgement
//
// 结构与SUBACK同构: 报文标识符、属性、每个过滤器一个原因码
// [MQTT-3.11.3-1]。引擎把原因码留在应答记录里供调用方检查。
type UNSUBACK struct {
	*FixedHeader

	// PacketID 对应UNSUBSCRIBE的报文标识符
	PacketID uint16 `json:"PacketID,omitempty"`

	// Props 确认属性
	Props *SubackProperties `json:"Properties,omitempty"`

	// ReasonCodes 每个主题过滤器一个原因码
	// 参考章节: 3.11.3 UNSUBACK Payload
	ReasonCodes []uint8 `json:"ReasonCodes,omitempty"`
}

func (pkt *UNSUBACK) Kind() byte {
	return 0xB
}

func (pkt *UNSUBACK) String() string {
	return fmt.Sprintf("[0xB]UNSUBACK PacketID=%d Codes=%d", pkt.PacketID, len(pkt.ReasonCodes))
}

func (pkt *UNSUBACK) Pack(w io.Writer) error {
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

func (pkt *UNSUBACK) Unpack(buf *bytes.Buffer) error {
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

	codes := buf.Next(buf.Len())
	if len(codes) == 0 {
		return ErrMalformedReasonCode
	}
	pkt.ReasonCodes = append([]uint8(nil), codes...)
	return nil
}
