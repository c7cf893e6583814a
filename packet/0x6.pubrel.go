package packet

import (
	"bytes"
	"fmt"
	"io"
)

// PUBREL 发布释放报文，QoS 2交换的第二段
//
// 参考章节: 3.6 PUBREL - Publish release (QoS 2 delivery part 2)
// 对PUBREC的应答。固定报头标志位必须是0b0010 (Dup=0, QoS=1,
// Retain=0) [MQTT-3.6.1-1]，Pack在这里强制设置。
// 其余结构与PUBACK同构。
type PUBREL struct {
	*FixedHeader

	// PacketID 对应PUBREC的报文标识符
	PacketID uint16 `json:"PacketID,omitempty"`

	// ReasonCode 发布释放原因码
	// 参考章节: 3.6.2.1 PUBREL Reason Code
	ReasonCode uint8

	// Props 应答属性
	Props *AckProperties `json:"Properties,omitempty"`
}

func (pkt *PUBREL) Kind() byte {
	return 0x6
}

func (pkt *PUBREL) String() string {
	return fmt.Sprintf("[0x6]PUBREL PacketID=%d ReasonCode=0x%02X", pkt.PacketID, pkt.ReasonCode)
}

func (pkt *PUBREL) Pack(w io.Writer) error {
	// 固定报头标志位 0b0010 [MQTT-3.6.1-1]
	pkt.FixedHeader.Dup, pkt.FixedHeader.QoS, pkt.FixedHeader.Retain = 0, 1, 0
	return packAck(pkt.FixedHeader, pkt.PacketID, pkt.ReasonCode, pkt.Props, w)
}

func (pkt *PUBREL) Unpack(buf *bytes.Buffer) error {
	var err error
	pkt.PacketID, pkt.ReasonCode, pkt.Props, err = unpackAck(pkt.FixedHeader, buf)
	return err
}
