package packet

import (
	"bytes"
	"io"
)

// PINGREQ 心跳请求报文
//
// 参考文档: MQTT v5.0 章节 3.12 PINGREQ - PING request
// 没有可变报头和载荷，剩余长度恒为0。通常由客户端在保活间隔内
// 发出; 个别代理也会反向发PINGREQ当健康探测，所以引擎的期望
// 掩码里PINGREQ永远置位。
type PINGREQ struct {
	*FixedHeader
}

func (pkt *PINGREQ) Kind() byte {
	return 0xC
}

func (pkt *PINGREQ) String() string {
	return "[0xC]PINGREQ"
}

func (pkt *PINGREQ) Pack(w io.Writer) error {
	pkt.FixedHeader.RemainingLength = 0
	return pkt.FixedHeader.Pack(w)
}

func (pkt *PINGREQ) Unpack(buf *bytes.Buffer) error {
	if buf.Len() != 0 {
		return ErrMalformedPacket
	}
	return nil
}
