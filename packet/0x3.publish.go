package packet

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

/*
================================================================================
MQTT PUBLISH 包 - 发布消息报文
================================================================================

参考文档:
- MQTT v5.0: 章节 3.3 PUBLISH - Publish message

PUBLISH在两个方向上都会出现: 客户端发布应用消息，服务端投递匹配
订阅的消息。

固定报头标志位:
1. DUP (bit 3): 重复投递标志。QoS 0消息必须为0 [MQTT-3.3.1-2]。
2. QoS (bits 2-1): 0/1/2。两个QoS位同时为1非法 [MQTT-3.3.1-4]。
3. RETAIN (bit 0): 要求服务端保留该消息。

可变报头: 主题名(必须第一个出现 [MQTT-3.3.2-1]，UTF-8，不能含通配
符 [MQTT-3.3.2-2])、报文标识符(仅QoS>0)、属性。

载荷: 应用消息本体，零长度合法。长度 = 剩余长度 - 可变报头长度，
没有自己的长度前缀。

接收方按QoS响应 [MQTT-3.3.4-1]:
QoS 0 无响应; QoS 1 PUBACK; QoS 2 PUBREC。

解码约定(面向会话引擎):
- Payload直接借用输入缓冲区的底层数组，不复制。有效期到下一次
  process为止，需要留存的调用方自行复制;
- 主题名解码后立即做UTF-8校验; PayloadFormatIndicator为1时载荷
  也做UTF-8校验;
- 属性里的CorrelationData同样是借用，引擎负责按上限复制进
  固定缓冲区。
================================================================================
*/

// PUBLISH 发布消息报文
// 参考章节: 3.3 PUBLISH - Publish message
// Dup/QoS/Retain在FixedHeader上，这里只有可变报头和载荷。
type PUBLISH struct {
	*FixedHeader `json:"FixedHeader,omitempty"`

	// TopicName 主题名
	// 参考章节: 3.3.2.1 Topic Name
	// UTF-8编码字符串，不能包含通配符 [MQTT-3.3.2-2]。
	TopicName string `json:"TopicName,omitempty"`

	// PacketID 报文标识符
	// 参考章节: 2.2.1 Packet Identifier
	// QoS=0不能包含 [MQTT-2.2.1-2]; QoS>0必须非零 [MQTT-2.2.1-3]。
	PacketID uint16 `json:"PacketID,omitempty"`

	// Props 发布属性
	// 参考章节: 3.3.2.3 PUBLISH Properties
	Props *PublishProperties `json:"Properties,omitempty"`

	// Payload 应用消息载荷。解码方向是对输入缓冲区的借用切片。
	// 参考章节: 3.3.3 PUBLISH Payload
	Payload []byte `json:"Payload,omitempty"`
}

func (pkt *PUBLISH) Kind() byte {
	return 0x3
}

func (pkt *PUBLISH) String() string {
	return fmt.Sprintf("[0x3]PUBLISH Topic=%s QoS=%d Len=%d", pkt.TopicName, pkt.QoS, len(pkt.Payload))
}

// Pack 将PUBLISH报文序列化到写入器
// 参考章节: 3.3 PUBLISH
//
// 校验在任何字节写出之前完成: QoS范围、主题非空且不含通配符、
// 所有用户字符串的UTF-8编码、QoS>0时报文标识符非零。
func (pkt *PUBLISH) Pack(w io.Writer) error {
	// 两个QoS位同时为1非法 [MQTT-3.3.1-4]
	if pkt.FixedHeader.QoS > 2 {
		return ErrProtocolViolationQosOutOfRange
	}
	if pkt.TopicName == "" {
		return ErrMalformedTopic
	}
	if !ValidUTF8String(pkt.TopicName) {
		return fmt.Errorf("%w: topic name", ErrMalformedInvalidUTF8)
	}
	// 主题名不能包含通配符 [MQTT-3.3.2-2]
	if strings.ContainsAny(pkt.TopicName, "+#") {
		return ErrProtocolViolationSurplusWildcard
	}
	if pkt.Props != nil {
		if rt := string(pkt.Props.ResponseTopic); rt != "" && !ValidUTF8String(rt) {
			return fmt.Errorf("%w: response topic", ErrMalformedInvalidUTF8)
		}
		if ct := string(pkt.Props.ContentType); ct != "" && !ValidUTF8String(ct) {
			return fmt.Errorf("%w: content type", ErrMalformedInvalidUTF8)
		}
		if err := pkt.Props.UserProperties.validate(); err != nil {
			return err
		}
	}

	buf := GetBuffer()
	defer PutBuffer(buf)

	buf.Write(s2b(pkt.TopicName))

	// QoS 0的PUBLISH不能包含报文标识符 [MQTT-2.2.1-2]
	if pkt.FixedHeader.QoS > 0 {
		if pkt.PacketID == 0 {
			return ErrProtocolViolationNoPacketID
		}
		buf.Write(i2b(pkt.PacketID))
	}

	if pkt.Props == nil {
		pkt.Props = &PublishProperties{}
	}
	if err := writeProps(buf, pkt.Props.Pack()); err != nil {
		return err
	}

	// 载荷无长度前缀，直接跟在属性后面
	// 参考章节: 3.3.3 PUBLISH Payload
	buf.Write(pkt.Payload)

	pkt.FixedHeader.RemainingLength = uint32(buf.Len())
	if err := pkt.FixedHeader.Pack(w); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

// Unpack 从缓冲区解析PUBLISH报文
// 解析顺序: 主题名、报文标识符(QoS>0)、属性、载荷。
// 载荷长度 = 缓冲区剩余字节数，借用不复制。
func (pkt *PUBLISH) Unpack(buf *bytes.Buffer) error {
	topic, err := readString(buf)
	if err != nil {
		return err
	}
	if !ValidUTF8String(topic) {
		return fmt.Errorf("%w: topic name", ErrMalformedInvalidUTF8)
	}
	pkt.TopicName = topic

	if pkt.FixedHeader.QoS > 0 {
		if pkt.PacketID, err = readUint16(buf); err != nil {
			return err
		}
		if pkt.PacketID == 0 {
			return ErrMalformedPacketID
		}
	}

	pkt.Props = &PublishProperties{}
	if err := pkt.Props.Unpack(buf); err != nil {
		return err
	}

	// 剩下的全部是载荷
	pkt.Payload = buf.Next(buf.Len())

	// 载荷格式指示为1时载荷必须是合法UTF-8 [MQTT-3.3.2-4]
	if pkt.Props.PayloadFormatIndicator == 1 && len(pkt.Payload) > 0 {
		if !ValidUTF8(pkt.Payload) {
			return fmt.Errorf("%w: publish payload", ErrPayloadFormatInvalid)
		}
	}
	return nil
}

// PublishProperties 发布属性
// 参考章节: 3.3.2.3 PUBLISH Properties
type PublishProperties struct {
	// PayloadFormatIndicator 载荷格式指示 (0x01)
	PayloadFormatIndicator PayloadFormatIndicator

	// MessageExpiryInterval 消息过期间隔 (0x02)
	MessageExpiryInterval MessageExpiryInterval

	// TopicAlias 主题别名 (0x23)
	TopicAlias TopicAlias

	// ResponseTopic 响应主题 (0x08)
	ResponseTopic ResponseTopic

	// CorrelationData 对比数据 (0x09)。解码方向是借用切片。
	CorrelationData CorrelationData

	// UserProperties 用户属性 (0x26)
	UserProperties UserProperties

	// SubscriptionIdentifier 订阅标识符 (0x0B)
	// 服务端投递时带上，关联消息和触发它的订阅。
	SubscriptionIdentifier SubscriptionIdentifier

	// ContentType 内容类型 (0x03)
	ContentType ContentType
}

func (props *PublishProperties) Pack() []byte {
	buf := GetBuffer()
	defer PutBuffer(buf)

	props.PayloadFormatIndicator.Pack(buf)
	props.MessageExpiryInterval.Pack(buf)
	props.TopicAlias.Pack(buf)
	props.ResponseTopic.Pack(buf)
	props.CorrelationData.Pack(buf)
	props.UserProperties.Pack(buf)
	props.SubscriptionIdentifier.Pack(buf)
	props.ContentType.Pack(buf)

	return append([]byte(nil), buf.Bytes()...)
}

func (props *PublishProperties) Unpack(buf *bytes.Buffer) error {
	return propReader(buf, func(id byte, buf *bytes.Buffer) (uint32, error) {
		switch id {
		case 0x01:
			return props.PayloadFormatIndicator.Unpack(buf)
		case 0x02:
			return props.MessageExpiryInterval.Unpack(buf)
		case 0x23:
			return props.TopicAlias.Unpack(buf)
		case 0x08:
			return props.ResponseTopic.Unpack(buf)
		case 0x09:
			return props.CorrelationData.Unpack(buf)
		case 0x26:
			return props.UserProperties.unpackOne(buf)
		case 0x0B:
			return props.SubscriptionIdentifier.Unpack(buf)
		case 0x03:
			return props.ContentType.Unpack(buf)
		default:
			return 0, ErrMalformedBadProperty
		}
	})
}
