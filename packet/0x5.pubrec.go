package packet

import (
	"bytes"
	"fmt"
	"io"
)

// PUBREC 发布收到报文，QoS 2交换的第一段应答
//
// 参考章节: 3.5 PUBREC - Publish received (QoS 2 delivery part 1)
// 结构与PUBACK同构: 报文标识符、原因码、属性，长度压缩规则一致。
// 发送方收到PUBREC后用PUBREL应答; 原因码>=0x80时PUBLISH被拒绝，
// 该报文标识符的交换到此为止。
type PUBREC struct {
	*FixedHeader

	// PacketID 对应PUBLISH的报文标识符
	PacketID uint16 `json:"PacketID,omitempty"`

	// ReasonCode 发布收到原因码
	// 参考章节: 3.5.2.1 PUBREC Reason Code
	ReasonCode uint8

	// Props 应答属性
	Props *AckProperties `json:"Properties,omitempty"`
}

func (pkt *PUBREC) Kind() byte {
	return 0x5
}

func (pkt *PUBREC) String() string {
	return fmt.Sprintf("[0x5]PUBREC PacketID=%d ReasonCode=0x%02X", pkt.PacketID, pkt.ReasonCode)
}

func (pkt *PUBREC) Pack(w io.Writer) error {
	return packAck(pkt.FixedHeader, pkt.PacketID, pkt.ReasonCode, pkt.Props, w)
}

func (pkt *PUBREC) Unpack(buf *bytes.Buffer) error {
	var err error
	pkt.PacketID, pkt.ReasonCode, pkt.Props, err = unpackAck(pkt.FixedHeader, buf)
	return err
}
