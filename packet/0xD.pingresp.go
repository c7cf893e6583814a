package packet

import (
	"bytes"
	"io"
)

// PINGRESP 心跳响应报文
//
// 参考文档: MQTT v5.0 章节 3.13 PINGRESP - PING response
// 对PINGREQ的应答，同样没有可变报头和载荷。
type PINGRESP struct {
	*FixedHeader
}

func (pkt *PINGRESP) Kind() byte {
	return 0xD
}

func (pkt *PINGRESP) String() string {
	return "[0xD]PINGRESP"
}

func (pkt *PINGRESP) Pack(w io.Writer) error {
	pkt.FixedHeader.RemainingLength = 0
	return pkt.FixedHeader.Pack(w)
}

func (pkt *PINGRESP) Unpack(buf *bytes.Buffer) error {
	if buf.Len() != 0 {
		return ErrMalformedPacket
	}
	return nil
}
