package packet

import (
	"bytes"
	"fmt"
)

/*
================================================================================
MQTT 5.0 属性 (Properties)
================================================================================

参考文档:
- MQTT v5.0: 章节 2.2.2 Properties

属性表 = 变长整数长度前缀 + 若干 [属性标识符][按标识符定类型的值]。
每种属性的值类型由标识符唯一确定(字节/双字节/四字节/变长整数/UTF-8
字符串/二进制数据/字符串对)，属性标识符只在枚举过的报文类型里合法。

这里每个属性是一个独立的Go类型:
- Pack(buf): 值为零/空时不写任何字节，否则写 [id][value];
- Unpack(buf): 返回值部分消费的字节数(不含调用方已读的id字节)。
  各报文的属性表解码器用这个返回值对照声明长度做无符号核算，
  消费超过声明长度立即报 ErrMalformedProperties。
================================================================================
*/

// PayloadFormatIndicator 载荷格式指示 (0x01)
// 0=未指定的二进制数据, 1=UTF-8编码的字符数据。
type PayloadFormatIndicator uint8

func (s PayloadFormatIndicator) Pack(buf *bytes.Buffer) {
	if s == 0 {
		return
	}
	buf.WriteByte(0x01)
	buf.WriteByte(uint8(s))
}

func (s *PayloadFormatIndicator) Unpack(buf *bytes.Buffer) (uint32, error) {
	v, err := readByte(buf)
	if err != nil {
		return 0, err
	}
	if v > 1 {
		return 0, fmt.Errorf("%w: payload format indicator", ErrProtocolErr)
	}
	*s = PayloadFormatIndicator(v)
	return 1, nil
}

// MessageExpiryInterval 消息过期间隔 (0x02)，单位秒
type MessageExpiryInterval uint32

func (s MessageExpiryInterval) Pack(buf *bytes.Buffer) {
	if s == 0 {
		return
	}
	buf.WriteByte(0x02)
	buf.Write(i4b(uint32(s)))
}

func (s *MessageExpiryInterval) Unpack(buf *bytes.Buffer) (uint32, error) {
	v, err := readUint32(buf)
	if err != nil {
		return 0, err
	}
	*s = MessageExpiryInterval(v)
	return 4, nil
}

func (s MessageExpiryInterval) Uint32() uint32 { return uint32(s) }

// ContentType 内容类型 (0x03)
type ContentType string

func (s ContentType) Pack(buf *bytes.Buffer) {
	if s == "" {
		return
	}
	buf.WriteByte(0x03)
	buf.Write(encodeUTF8(s))
}

func (s *ContentType) Unpack(buf *bytes.Buffer) (uint32, error) {
	v, err := readString(buf)
	if err != nil {
		return 0, err
	}
	*s = ContentType(v)
	return uint32(len(v)) + 2, nil
}

func (s ContentType) String() string { return string(s) }

// ResponseTopic 响应主题 (0x08)
// 请求/响应模式里响应消息应该发布到的主题，不能包含通配符。
type ResponseTopic string

func (s ResponseTopic) Pack(buf *bytes.Buffer) {
	if s == "" {
		return
	}
	buf.WriteByte(0x08)
	buf.Write(encodeUTF8(s))
}

func (s *ResponseTopic) Unpack(buf *bytes.Buffer) (uint32, error) {
	v, err := readString(buf)
	if err != nil {
		return 0, err
	}
	*s = ResponseTopic(v)
	return uint32(len(v)) + 2, nil
}

func (s ResponseTopic) String() string { return string(s) }

// CorrelationData 对比数据 (0x09)
// 请求方用来关联响应和请求的不透明二进制数据。
type CorrelationData []byte

func (s CorrelationData) Pack(buf *bytes.Buffer) {
	if len(s) == 0 {
		return
	}
	buf.WriteByte(0x09)
	buf.Write(s2b([]byte(s)))
}

func (s *CorrelationData) Unpack(buf *bytes.Buffer) (uint32, error) {
	v, err := readBinary(buf)
	if err != nil {
		return 0, err
	}
	*s = CorrelationData(v)
	return uint32(len(v)) + 2, nil
}

func (s CorrelationData) Bytes() []byte { return []byte(s) }

// SubscriptionIdentifier 订阅标识符 (0x0B)，变长整数，1..268435455
type SubscriptionIdentifier uint32

func (s SubscriptionIdentifier) Pack(buf *bytes.Buffer) {
	if s == 0 {
		return
	}
	buf.WriteByte(0x0B)
	b, _ := encodeLength(uint32(s))
	buf.Write(b)
}

func (s *SubscriptionIdentifier) Unpack(buf *bytes.Buffer) (uint32, error) {
	v, err := decodeLength(buf)
	if err != nil {
		return 0, err
	}
	*s = SubscriptionIdentifier(v)
	return uint32(lengthSize(v)), nil
}

func (s SubscriptionIdentifier) Uint32() uint32 { return uint32(s) }

// SessionExpiryInterval 会话过期间隔 (0x11)，单位秒
// 0表示会话随网络连接结束，0xFFFFFFFF表示永不过期。
type SessionExpiryInterval uint32

func (s SessionExpiryInterval) Pack(buf *bytes.Buffer) {
	if s == 0 {
		return
	}
	buf.WriteByte(0x11)
	buf.Write(i4b(uint32(s)))
}

func (s *SessionExpiryInterval) Unpack(buf *bytes.Buffer) (uint32, error) {
	v, err := readUint32(buf)
	if err != nil {
		return 0, err
	}
	*s = SessionExpiryInterval(v)
	return 4, nil
}

func (s SessionExpiryInterval) Uint32() uint32 { return uint32(s) }

// AssignedClientIdentifier 分配的客户端标识符 (0x12)
// 客户端发空client id时由服务端指派。
type AssignedClientIdentifier string

func (s AssignedClientIdentifier) Pack(buf *bytes.Buffer) {
	if s == "" {
		return
	}
	buf.WriteByte(0x12)
	buf.Write(encodeUTF8(s))
}

func (s *AssignedClientIdentifier) Unpack(buf *bytes.Buffer) (uint32, error) {
	v, err := readString(buf)
	if err != nil {
		return 0, err
	}
	*s = AssignedClientIdentifier(v)
	return uint32(len(v)) + 2, nil
}

func (s AssignedClientIdentifier) String() string { return string(s) }

// ServerKeepAlive 服务端保活时间 (0x13)
// 存在时客户端必须用它替代自己请求的保活值 [MQTT-3.1.2-21]。
type ServerKeepAlive uint16

func (s ServerKeepAlive) Pack(buf *bytes.Buffer) {
	if s == 0 {
		return
	}
	buf.WriteByte(0x13)
	buf.Write(i2b(uint16(s)))
}

func (s *ServerKeepAlive) Unpack(buf *bytes.Buffer) (uint32, error) {
	v, err := readUint16(buf)
	if err != nil {
		return 0, err
	}
	*s = ServerKeepAlive(v)
	return 2, nil
}

func (s ServerKeepAlive) Uint16() uint16 { return uint16(s) }

// AuthenticationMethod 认证方法 (0x15)
type AuthenticationMethod string

func (s AuthenticationMethod) Pack(buf *bytes.Buffer) {
	if s == "" {
		return
	}
	buf.WriteByte(0x15)
	buf.Write(encodeUTF8(s))
}

func (s *AuthenticationMethod) Unpack(buf *bytes.Buffer) (uint32, error) {
	v, err := readString(buf)
	if err != nil {
		return 0, err
	}
	*s = AuthenticationMethod(v)
	return uint32(len(v)) + 2, nil
}

func (s AuthenticationMethod) String() string { return string(s) }

// AuthenticationData 认证数据 (0x16)
type AuthenticationData []byte

func (s AuthenticationData) Pack(buf *bytes.Buffer) {
	if len(s) == 0 {
		return
	}
	buf.WriteByte(0x16)
	buf.Write(s2b([]byte(s)))
}

func (s *AuthenticationData) Unpack(buf *bytes.Buffer) (uint32, error) {
	v, err := readBinary(buf)
	if err != nil {
		return 0, err
	}
	*s = AuthenticationData(v)
	return uint32(len(v)) + 2, nil
}

func (s AuthenticationData) Bytes() []byte { return []byte(s) }

// RequestProblemInformation 请求问题信息 (0x17)，只能是0或1
type RequestProblemInformation uint8

func (s RequestProblemInformation) Pack(buf *bytes.Buffer) {
	if s == 0 {
		return
	}
	buf.WriteByte(0x17)
	buf.WriteByte(uint8(s))
}

func (s *RequestProblemInformation) Unpack(buf *bytes.Buffer) (uint32, error) {
	v, err := readByte(buf)
	if err != nil {
		return 0, err
	}
	if v > 1 {
		return 0, fmt.Errorf("%w: invalid request problem information", ErrProtocolErr)
	}
	*s = RequestProblemInformation(v)
	return 1, nil
}

func (s RequestProblemInformation) Uint8() uint8 { return uint8(s) }

// WillDelayInterval 遗嘱延时间隔 (0x18)，单位秒
type WillDelayInterval uint32

func (s WillDelayInterval) Pack(buf *bytes.Buffer) {
	if s == 0 {
		return
	}
	buf.WriteByte(0x18)
	buf.Write(i4b(uint32(s)))
}

func (s *WillDelayInterval) Unpack(buf *bytes.Buffer) (uint32, error) {
	v, err := readUint32(buf)
	if err != nil {
		return 0, err
	}
	*s = WillDelayInterval(v)
	return 4, nil
}

func (s WillDelayInterval) Uint32() uint32 { return uint32(s) }

// RequestResponseInformation 请求响应信息 (0x19)，只能是0或1
type RequestResponseInformation uint8

func (s RequestResponseInformation) Pack(buf *bytes.Buffer) {
	if s == 0 {
		return
	}
	buf.WriteByte(0x19)
	buf.WriteByte(uint8(s))
}

func (s *RequestResponseInformation) Unpack(buf *bytes.Buffer) (uint32, error) {
	v, err := readByte(buf)
	if err != nil {
		return 0, err
	}
	if v > 1 {
		return 0, fmt.Errorf("%w: invalid request response information", ErrProtocolErr)
	}
	*s = RequestResponseInformation(v)
	return 1, nil
}

func (s RequestResponseInformation) Uint8() uint8 { return uint8(s) }

// ResponseInformation 响应信息 (0x1A)
type ResponseInformation string

func (s ResponseInformation) Pack(buf *bytes.Buffer) {
	if s == "" {
		return
	}
	buf.WriteByte(0x1A)
	buf.Write(encodeUTF8(s))
}

func (s *ResponseInformation) Unpack(buf *bytes.Buffer) (uint32, error) {
	v, err := readString(buf)
	if err != nil {
		return 0, err
	}
	*s = ResponseInformation(v)
	return uint32(len(v)) + 2, nil
}

func (s ResponseInformation) String() string { return string(s) }

// ServerReference 服务端参考 (0x1C)
// 配合0x9C/0x9D原因码告诉客户端换一台服务器。
type ServerReference string

func (s ServerReference) Pack(buf *bytes.Buffer) {
	if s == "" {
		return
	}
	buf.WriteByte(0x1C)
	buf.Write(encodeUTF8(s))
}

func (s *ServerReference) Unpack(buf *bytes.Buffer) (uint32, error) {
	v, err := readString(buf)
	if err != nil {
		return 0, err
	}
	*s = ServerReference(v)
	return uint32(len(v)) + 2, nil
}

func (s ServerReference) String() string { return string(s) }

// ReasonString 原因字符串 (0x1F)，给人看的诊断信息
type ReasonString string

func (s ReasonString) Pack(buf *bytes.Buffer) {
	if s == "" {
		return
	}
	buf.WriteByte(0x1F)
	buf.Write(encodeUTF8(s))
}

func (s *ReasonString) Unpack(buf *bytes.Buffer) (uint32, error) {
	v, err := readString(buf)
	if err != nil {
		return 0, err
	}
	*s = ReasonString(v)
	return uint32(len(v)) + 2, nil
}

func (s ReasonString) String() string { return string(s) }

// ReceiveMaximum 接收最大值 (0x21)
// 愿意同时处理的QoS 1/2发布消息最大数量，0是协议错误。
type ReceiveMaximum uint16

func (s ReceiveMaximum) Pack(buf *bytes.Buffer) {
	if s == 0 {
		return
	}
	buf.WriteByte(0x21)
	buf.Write(i2b(uint16(s)))
}

func (s *ReceiveMaximum) Unpack(buf *bytes.Buffer) (uint32, error) {
	v, err := readUint16(buf)
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return 0, fmt.Errorf("%w: receive maximum", ErrProtocolErr)
	}
	*s = ReceiveMaximum(v)
	return 2, nil
}

func (s ReceiveMaximum) Uint16() uint16 { return uint16(s) }

// TopicAliasMaximum 主题别名最大值 (0x22)
type TopicAliasMaximum uint16

func (s TopicAliasMaximum) Pack(buf *bytes.Buffer) {
	if s == 0 {
		return
	}
	buf.WriteByte(0x22)
	buf.Write(i2b(uint16(s)))
}

func (s *TopicAliasMaximum) Unpack(buf *bytes.Buffer) (uint32, error) {
	v, err := readUint16(buf)
	if err != nil {
		return 0, err
	}
	*s = TopicAliasMaximum(v)
	return 2, nil
}

func (s TopicAliasMaximum) Uint16() uint16 { return uint16(s) }

// TopicAlias 主题别名 (0x23)，PUBLISH专用，0是协议错误
type TopicAlias uint16

func (s TopicAlias) Pack(buf *bytes.Buffer) {
	if s == 0 {
		return
	}
	buf.WriteByte(0x23)
	buf.Write(i2b(uint16(s)))
}

func (s *TopicAlias) Unpack(buf *bytes.Buffer) (uint32, error) {
	v, err := readUint16(buf)
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return 0, fmt.Errorf("%w: topic alias", ErrTopicAliasInvalid)
	}
	*s = TopicAlias(v)
	return 2, nil
}

func (s TopicAlias) Uint16() uint16 { return uint16(s) }

// MaximumQoS 最大QoS (0x24)，CONNACK专用
// 缺省按2处理，出现时只能是0或1。用指针字段区分"缺省"和"显式0"。
type MaximumQoS uint8

func (s MaximumQoS) Pack(buf *bytes.Buffer) {
	buf.WriteByte(0x24)
	buf.WriteByte(uint8(s))
}

func (s *MaximumQoS) Unpack(buf *bytes.Buffer) (uint32, error) {
	v, err := readByte(buf)
	if err != nil {
		return 0, err
	}
	if v > 1 {
		return 0, fmt.Errorf("%w: maximum qos", ErrProtocolErr)
	}
	*s = MaximumQoS(v)
	return 1, nil
}

func (s MaximumQoS) Uint8() uint8 { return uint8(s) }

// RetainAvailable 保留消息可用 (0x25)，CONNACK专用
// 缺省按可用处理。用指针字段区分"缺省"和"显式0"。
type RetainAvailable uint8

func (s RetainAvailable) Pack(buf *bytes.Buffer) {
	buf.WriteByte(0x25)
	buf.WriteByte(uint8(s))
}

func (s *RetainAvailable) Unpack(buf *bytes.Buffer) (uint32, error) {
	v, err := readByte(buf)
	if err != nil {
		return 0, err
	}
	*s = RetainAvailable(v & 0x01)
	return 1, nil
}

func (s RetainAvailable) Uint8() uint8 { return uint8(s) }

// UserProperty 用户属性 (0x26)，字符串对，可重复出现且顺序保留
type UserProperty struct {
	Key   string
	Value string
}

// UserProperties 属性表里按出现顺序保存的用户属性序列。
type UserProperties []UserProperty

func (s UserProperties) Pack(buf *bytes.Buffer) {
	for _, p := range s {
		buf.WriteByte(0x26)
		buf.Write(encodeUTF8(p.Key))
		buf.Write(encodeUTF8(p.Value))
	}
}

// unpackOne 解出一对key/value并追加，返回值部分消费的字节数。
func (s *UserProperties) unpackOne(buf *bytes.Buffer) (uint32, error) {
	key, err := readString(buf)
	if err != nil {
		return 0, err
	}
	value, err := readString(buf)
	if err != nil {
		return 0, err
	}
	*s = append(*s, UserProperty{Key: key, Value: value})
	return uint32(len(key)+len(value)) + 4, nil
}

// MaximumPacketSize 最大报文长度 (0x27)，0是协议错误
type MaximumPacketSize uint32

func (s MaximumPacketSize) Pack(buf *bytes.Buffer) {
	if s == 0 {
		return
	}
	buf.WriteByte(0x27)
	buf.Write(i4b(uint32(s)))
}

func (s *MaximumPacketSize) Unpack(buf *bytes.Buffer) (uint32, error) {
	v, err := readUint32(buf)
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return 0, fmt.Errorf("%w: maximum packet size", ErrProtocolErr)
	}
	*s = MaximumPacketSize(v)
	return 4, nil
}

func (s MaximumPacketSize) Uint32() uint32 { return uint32(s) }

// WildcardSubscriptionAvailable 通配符订阅可用 (0x28)，缺省可用
type WildcardSubscriptionAvailable uint8

func (s WildcardSubscriptionAvailable) Pack(buf *bytes.Buffer) {
	buf.WriteByte(0x28)
	buf.WriteByte(uint8(s))
}

func (s *WildcardSubscriptionAvailable) Unpack(buf *bytes.Buffer) (uint32, error) {
	v, err := readByte(buf)
	if err != nil {
		return 0, err
	}
	*s = WildcardSubscriptionAvailable(v & 0x01)
	return 1, nil
}

func (s WildcardSubscriptionAvailable) Uint8() uint8 { return uint8(s) }

// SubscriptionIdentifiersAvailable 订阅标识符可用 (0x29)，缺省可用
type SubscriptionIdentifiersAvailable uint8

func (s SubscriptionIdentifiersAvailable) Pack(buf *bytes.Buffer) {
	buf.WriteByte(0x29)
	buf.WriteByte(uint8(s))
}

func (s *SubscriptionIdentifiersAvailable) Unpack(buf *bytes.Buffer) (uint32, error) {
	v, err := readByte(buf)
	if err != nil {
		return 0, err
	}
	*s = SubscriptionIdentifiersAvailable(v & 0x01)
	return 1, nil
}

func (s SubscriptionIdentifiersAvailable) Uint8() uint8 { return uint8(s) }

// SharedSubscriptionAvailable 共享订阅可用 (0x2A)，缺省可用
type SharedSubscriptionAvailable uint8

func (s SharedSubscriptionAvailable) Pack(buf *bytes.Buffer) {
	buf.WriteByte(0x2A)
	buf.WriteByte(uint8(s))
}

func (s *SharedSubscriptionAvailable) Unpack(buf *bytes.Buffer) (uint32, error) {
	v, err := readByte(buf)
	if err != nil {
		return 0, err
	}
	*s = SharedSubscriptionAvailable(v & 0x01)
	return 1, nil
}

func (s SharedSubscriptionAvailable) Uint8() uint8 { return uint8(s) }

// writeProps 把已经拼好的属性体加上变长长度前缀写入buf。
func writeProps(buf *bytes.Buffer, body []byte) error {
	n, err := encodeLength(len(body))
	if err != nil {
		return err
	}
	buf.Write(n)
	buf.Write(body)
	return nil
}

// propReader 属性表解码骨架。读出声明长度，然后循环 [id][value]，
// 由apply按id分发。apply返回值部分消费的字节数; 未知id返回
// ErrMalformedBadProperty。这里的核算是纯无符号的: 消费一旦超过
// 声明长度立即报 ErrMalformedProperties，不会回绕。
func propReader(buf *bytes.Buffer, apply func(id byte, buf *bytes.Buffer) (uint32, error)) error {
	propsLen, err := decodeLength(buf)
	if err != nil {
		return err
	}
	if propsLen > uint32(buf.Len()) {
		return ErrMalformedProperties
	}
	remaining := propsLen
	for remaining > 0 {
		id, err := readByte(buf)
		if err != nil {
			return ErrMalformedProperties
		}
		remaining-- // 标识符本身占1字节
		used, err := apply(id, buf)
		if err != nil {
			return err
		}
		if used > remaining {
			return ErrMalformedProperties
		}
		remaining -= used
	}
	return nil
}
