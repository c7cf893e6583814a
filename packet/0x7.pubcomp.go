package packet

import (
	"bytes"
	"fmt"
	"io"
)

// PUBCOMP 发布完成报文，QoS 2交换的终点
//
// 参考章节: 3.7 PUBCOMP - Publish complete (QoS 2 delivery part 3)
// 对PUBREL的应答。结构与PUBACK同构。
type PUBCOMP struct {
	*FixedHeader

	// PacketID 对应PUBREL的报文标识符
	PacketID uint16 `json:"PacketID,omitempty"`

	// ReasonCode 发布完成原因码
	// 参考章节: 3.7.2.1 PUBCOMP Reason Code
	ReasonCode uint8

	// Props 应答属性
	Props *AckProperties `json:"Properties,omitempty"`
}

func (pkt *PUBCOMP) Kind() byte {
	return 0x7
}

func (pkt *PUBCOMP) String() string {
	return fmt.Sprintf("[0x7]PUBCOMP PacketID=%d ReasonCode=0x%02X", pkt.PacketID, pkt.ReasonCode)
}

func (pkt *PUBCOMP) Pack(w io.Writer) error {
	return packAck(pkt.FixedHeader, pkt.PacketID, pkt.ReasonCode, pkt.Props, w)
}

func (pkt *PUBCOMP) Unpack(buf *bytes.Buffer) error {
	var err error
	pkt.PacketID, pkt.ReasonCode, pkt.Props, err = unpackAck(pkt.FixedHeader, buf)
	return err
}
