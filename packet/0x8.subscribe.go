package packet

import (
	"bytes"
	"fmt"
	"io"
)

/*
================================================================================
MQTT SUBSCRIBE 包 - 订阅请求报文
================================================================================

参考文档:
- MQTT v5.0: 章节 3.8 SUBSCRIBE - Subscribe request

固定报头标志位必须是0b0010 (Dup=0, QoS=1, Retain=0) [MQTT-3.8.1-1]。
可变报头: 报文标识符、属性。
载荷: 至少一个 [主题过滤器][订阅选项字节] 对 [MQTT-3.8.3-2]。

订阅选项字节:
  bit 7-6: 保留，必须为0
  bit 5-4: Retain Handling (0/1/2)
  bit 3:   Retain As Published
  bit 2:   No Local
  bit 1-0: 最大QoS
================================================================================
*/

// SUBSCRIBE 订阅请求报文
// 参考章节: 3.8 SUBSCRIBE - Subscribe request
type SUBSCRIBE struct {
	*FixedHeader

	// PacketID 报文标识符，SUBACK用它对应答
	PacketID uint16 `json:"PacketID,omitempty"`

	// Props 订阅属性
	// 参考章节: 3.8.2.1 SUBSCRIBE Properties
	Props *SubscribeProperties `json:"Properties,omitempty"`

	// Subscriptions 订阅条目列表，至少一个 [MQTT-3.8.3-2]
	Subscriptions []Subscription `json:"Subscriptions,omitempty"`
}

// Subscription 单个订阅条目: 主题过滤器 + 订阅选项
// 参考章节: 3.8.3.1 Subscription Options
type Subscription struct {
	// TopicFilter 主题过滤器，可以包含 + 和 # 通配符
	TopicFilter string

	// QoS 服务端投递给本订阅的最大QoS (0/1/2)
	QoS uint8

	// NoLocal 不把本客户端自己发布的消息投回来
	NoLocal bool

	// RetainAsPublished 投递时保持消息原始的RETAIN标志
	RetainAsPublished bool

	// RetainHandling 订阅建立时保留消息的投递策略 (0/1/2)
	// 0=总是发, 1=只在新订阅时发, 2=不发
	RetainHandling uint8
}

// options 组装订阅选项字节。
func (s Subscription) options() byte {
	return s.RetainHandling<<4 | b2i(s.RetainAsPublished)<<3 | b2i(s.NoLocal)<<2 | s.QoS
}

func (pkt *SUBSCRIBE) Kind() byte {
	return 0x8
}

func (pkt *SUBSCRIBE) String() string {
	return fmt.Sprintf("[0x8]SUBSCRIBE PacketID=%d Entries=%d", pkt.PacketID, len(pkt.Subscriptions))
}

// Pack 将SUBSCRIBE报文序列化到写入器
// 参考章节: 3.8 SUBSCRIBE
func (pkt *SUBSCRIBE) Pack(w io.Writer) error {
	if pkt.PacketID == 0 {
		return ErrMalformedPacketID
	}
	if len(pkt.Subscriptions) == 0 {
		return ErrProtocolViolationNoFilters
	}
	for _, sub := range pkt.Subscriptions {
		if sub.TopicFilter == "" {
			return ErrMalformedTopic
		}
		if !ValidUTF8String(sub.TopicFilter) {
			return fmt.Errorf("%w: topic filter", ErrMalformedInvalidUTF8)
		}
		if sub.QoS > 2 {
			return ErrProtocolViolationQosOutOfRange
		}
		if sub.RetainHandling > 2 {
			return ErrProtocolViolationRetainHandling
		}
	}
	if pkt.Props != nil {
		if err := pkt.Props.UserProperties.validate(); err != nil {
			return err
		}
	}

	buf := GetBuffer()
	defer PutBuffer(buf)

	buf.Write(i2b(pkt.PacketID))

	if pkt.Props == nil {
		pkt.Props = &SubscribeProperties{}
	}
	if err := writeProps(buf, pkt.Props.Pack()); err != nil {
		return err
	}

	// 载荷: [主题过滤器][选项字节] ...
	for _, sub := range pkt.Subscriptions {
		buf.Write(s2b(sub.TopicFilter))
		buf.WriteByte(sub.options())
	}

	// 固定报头标志位 0b0010 [MQTT-3.8.1-1]
	pkt.FixedHeader.Dup, pkt.FixedHeader.QoS, pkt.FixedHeader.Retain = 0, 1, 0
	pkt.FixedHeader.RemainingLength = uint32(buf.Len())
	if err := pkt.FixedHeader.Pack(w); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

// Unpack 从缓冲区解析SUBSCRIBE报文
func (pkt *SUBSCRIBE) Unpack(buf *bytes.Buffer) error {
	var err error
	if pkt.PacketID, err = readUint16(buf); err != nil {
		return err
	}
	if pkt.PacketID == 0 {
		return ErrMalformedPacketID
	}

	pkt.Props = &SubscribeProperties{}
	if err := pkt.Props.Unpack(buf); err != nil {
		return err
	}

	for buf.Len() > 0 {
		filter, err := readString(buf)
		if err != nil {
			return err
		}
		opts, err := readByte(buf)
		if err != nil {
			return err
		}
		if opts&0xC0 != 0 {
			// 保留位必须为0 [MQTT-3.8.3-5]
			return ErrMalformedFlags
		}
		sub := Subscription{
			TopicFilter:       filter,
			QoS:               opts & 0x03,
			NoLocal:           opts&0x04 != 0,
			RetainAsPublished: opts&0x08 != 0,
			RetainHandling:    opts >> 4 & 0x03,
		}
		if sub.QoS > 2 || sub.RetainHandling > 2 {
			return ErrMalformedFlags
		}
		pkt.Subscriptions = append(pkt.Subscriptions, sub)
	}
	if len(pkt.Subscriptions) == 0 {
		return ErrProtocolViolationNoFilters
	}
	return nil
}

// SubscribeProperties 订阅属性
// 参考章节: 3.8.2.1 SUBSCRIBE Properties
type SubscribeProperties struct {
	// SubscriptionIdentifier 订阅标识符 (0x0B)
	SubscriptionIdentifier SubscriptionIdentifier

	// UserProperties 用户属性 (0x26)
	UserProperties UserProperties
}

func (props *SubscribeProperties) Pack() []byte {
	buf := GetBuffer()
	defer PutBuffer(buf)

	props.SubscriptionIdentifier.Pack(buf)
	props.UserProperties.Pack(buf)

	return append([]byte(nil), buf.Bytes()...)
}

func (props *SubscribeProperties) Unpack(buf *bytes.Buffer) error {
	return propReader(buf, func(id byte, buf *bytes.Buffer) (uint32, error) {
		switch id {
		case 0x0B:
			return props.SubscriptionIdentifier.Unpack(buf)
		case 0x26:
			return props.UserProperties.unpackOne(buf)
		default:
			return 0, ErrMalformedBadProperty
		}
	})
}
