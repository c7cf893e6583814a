package packet

import (
	"bytes"
	"io"
)

// Packet 定义了MQTT控制报文的通用接口
//
// MQTT v5.0 (OASIS Standard, 7 March 2019):
// - 参考章节: 2.1 Structure of an MQTT Control Packet
// - 每个控制报文都包含固定报头和可变报头，某些报文还包含载荷
// - v5.0的属性(Properties)系统允许在报文中携带额外的控制信息
type Packet interface {
	// Kind 返回报文的类型标识符
	// 位置: 固定报头第1字节的bits 7-4，范围 0x01-0x0F
	Kind() byte

	// Unpack 从缓冲区解析报文内容。缓冲区只含可变报头和载荷，
	// 固定报头已经由调用方解析并挂在报文结构上。
	// 解析顺序: 可变报头 -> 属性 -> 载荷(如果有)。
	Unpack(*bytes.Buffer) error

	// Pack 将整个报文(含固定报头)序列化到写入器。
	// 编码器先在池化缓冲区里拼出可变部分，再回填剩余长度，
	// 所以写出的字节数和剩余长度声明永远一致。
	Pack(io.Writer) error
}

// Unpack 从读取器解析一个MQTT 5.0控制报文
//
// 解析流程参考章节 2.1 Structure of an MQTT Control Packet:
// 1. 解析固定报头获取报文类型和剩余长度
// 2. 根据报文类型创建对应的报文结构
// 3. 解析可变报头和载荷内容
//
// 这是面向io.Reader流的入口。会话引擎对完整报文切片走
// UnpackBytes，载荷可以直接借用输入缓冲区。
func Unpack(r io.Reader) (Packet, error) {
	fixed := &FixedHeader{}
	if err := fixed.Unpack(r); err != nil {
		return nil, err
	}

	buf := GetBuffer()
	defer PutBuffer(buf)

	lr := io.LimitReader(r, int64(fixed.RemainingLength))
	if n, err := buf.ReadFrom(lr); err != nil {
		return nil, err
	} else if uint32(n) != fixed.RemainingLength {
		return nil, ErrMalformedPacket
	}

	pkt, err := newPacket(fixed)
	if err != nil {
		return nil, err
	}
	return pkt, pkt.Unpack(buf)
}

// UnpackBytes 解析一个完整的控制报文切片。PUBLISH载荷借用data的
// 底层数组，有效期到下一次对同一输入缓冲区的复用为止。
func UnpackBytes(data []byte) (Packet, error) {
	buf := bytes.NewBuffer(data)
	fixed := &FixedHeader{}
	if err := fixed.Unpack(buf); err != nil {
		return nil, err
	}
	if uint32(buf.Len()) != fixed.RemainingLength {
		return nil, ErrMalformedPacket
	}
	pkt, err := newPacket(fixed)
	if err != nil {
		return nil, err
	}
	return pkt, pkt.Unpack(buf)
}

// newPacket 根据固定报头的类型分配对应的报文结构。
// AUTH(0xF)不在客户端协议引擎的处理范围内，和0x0一样按畸形报文拒绝。
func newPacket(fixed *FixedHeader) (Packet, error) {
	switch fixed.Kind {
	case 0x1:
		return &CONNECT{FixedHeader: fixed}, nil
	case 0x2:
		return &CONNACK{FixedHeader: fixed}, nil
	case 0x3:
		return &PUBLISH{FixedHeader: fixed}, nil
	case 0x4:
		return &PUBACK{FixedHeader: fixed}, nil
	case 0x5:
		return &PUBREC{FixedHeader: fixed}, nil
	case 0x6:
		return &PUBREL{FixedHeader: fixed}, nil
	case 0x7:
		return &PUBCOMP{FixedHeader: fixed}, nil
	case 0x8:
		return &SUBSCRIBE{FixedHeader: fixed}, nil
	case 0x9:
		return &SUBACK{FixedHeader: fixed}, nil
	case 0xA:
		return &UNSUBSCRIBE{FixedHeader: fixed}, nil
	case 0xB:
		return &UNSUBACK{FixedHeader: fixed}, nil
	case 0xC:
		return &PINGREQ{FixedHeader: fixed}, nil
	case 0xD:
		return &PINGRESP{FixedHeader: fixed}, nil
	case 0xE:
		return &DISCONNECT{FixedHeader: fixed}, nil
	default:
		return nil, ErrMalformedPacket
	}
}
