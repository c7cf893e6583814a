package packet

import (
	"bytes"
	"fmt"
	"io"
)

/*
================================================================================
MQTT CONNACK 包 - 连接确认报文
================================================================================

参考文档:
- MQTT v5.0: 章节 3.2 CONNACK - Connect acknowledgement

服务端对CONNECT的第一个响应。可变报头:
1. 连接确认标志: bit 0 是会话存在标志(Session Present)，其余保留必须为0
2. 连接原因码: <0x80成功，>=0x80拒绝连接
3. 属性

CONNACK没有载荷。

会话引擎的约定: 原因码>=0x80作为ServerDeclined传播并保持断开状态;
成功路径上先装协议缺省能力(max qos=2、retain可用、通配符/共享/订阅
标识符可用、保活和最大报文长度取客户端请求值)，再让出现的属性逐项
覆盖。MaximumQoS/RetainAvailable这类"缺省非零"的属性用指针字段区分
缺省和显式0。
================================================================================
*/

// CONNACK 连接确认报文
// 参考章节: 3.2 CONNACK - Connect acknowledgement
type CONNACK struct {
	*FixedHeader

	// SessionPresent 会话存在标志
	// 参考章节: 3.2.2.1.1 Session Present
	// 服务端找到并恢复了旧会话时为true。CleanStart=1时必须为false [MQTT-3.2.2-2]。
	SessionPresent bool

	// ReasonCode 连接原因码
	// 参考章节: 3.2.2.2 Connect Reason Code
	ReasonCode uint8

	// Props 连接确认属性
	// 参考章节: 3.2.2.3 CONNACK Properties
	Props *ConnackProperties `json:"Properties,omitempty"`
}

func (pkt *CONNACK) Kind() byte {
	return 0x2
}

func (pkt *CONNACK) String() string {
	return fmt.Sprintf("[0x2]CONNACK ReasonCode=0x%02X", pkt.ReasonCode)
}

// Pack 将CONNACK报文序列化到写入器。客户端引擎只解码CONNACK，
// 编码器用于编解码往返测试和搭建测试对端。
func (pkt *CONNACK) Pack(w io.Writer) error {
	buf := GetBuffer()
	defer PutBuffer(buf)

	// 会话存在标志 + 原因码
	// 参考章节: 3.2.2.1, 3.2.2.2
	buf.WriteByte(b2i(pkt.SessionPresent))
	buf.WriteByte(pkt.ReasonCode)

	if pkt.Props == nil {
		pkt.Props = &ConnackProperties{}
	}
	if err := writeProps(buf, pkt.Props.Pack()); err != nil {
		return err
	}

	pkt.FixedHeader.RemainingLength = uint32(buf.Len())
	if err := pkt.FixedHeader.Pack(w); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

// Unpack 从缓冲区解析CONNACK报文
// 解析顺序: 会话存在标志、原因码、属性。
func (pkt *CONNACK) Unpack(buf *bytes.Buffer) error {
	ack, err := readByte(buf)
	if err != nil {
		return err
	}
	pkt.SessionPresent = ack&0x01 != 0

	if pkt.ReasonCode, err = readByte(buf); err != nil {
		return err
	}

	pkt.Props = &ConnackProperties{}
	if buf.Len() == 0 {
		// 剩余长度2的短形式: 属性表连长度前缀都省掉，按空属性处理
		return nil
	}
	return pkt.Props.Unpack(buf)
}

// ConnackProperties 连接确认属性
// 参考章节: 3.2.2.3 CONNACK Properties
//
// 指针字段表示"属性缺省时语义不是零值": MaximumQoS缺省是2，
// RetainAvailable和三个可用性标志缺省是1，ServerKeepAlive缺省
// 取客户端请求的保活值。会话引擎据此套缺省再覆盖。
type ConnackProperties struct {
	// SessionExpiryInterval 会话过期间隔 (0x11)，服务端覆盖值
	SessionExpiryInterval SessionExpiryInterval

	// ReceiveMaximum 接收最大值 (0x21)，服务端方向的流控额度
	ReceiveMaximum ReceiveMaximum

	// MaximumQoS 最大QoS (0x24)
	// 服务端支持的最大发布QoS。缺省为2 [MQTT-3.2.2-10]。
	MaximumQoS *MaximumQoS

	// RetainAvailable 保留消息可用 (0x25)，缺省可用
	RetainAvailable *RetainAvailable

	// MaximumPacketSize 最大报文长度 (0x27)
	MaximumPacketSize MaximumPacketSize

	// AssignedClientIdentifier 分配的客户端标识符 (0x12)
	AssignedClientIdentifier AssignedClientIdentifier

	// TopicAliasMaximum 主题别名最大值 (0x22)
	TopicAliasMaximum TopicAliasMaximum

	// ReasonString 原因字符串 (0x1F)
	ReasonString ReasonString

	// UserProperties 用户属性 (0x26)
	UserProperties UserProperties

	// WildcardSubscriptionAvailable 通配符订阅可用 (0x28)，缺省可用
	WildcardSubscriptionAvailable *WildcardSubscriptionAvailable

	// SubscriptionIdentifiersAvailable 订阅标识符可用 (0x29)，缺省可用
	SubscriptionIdentifiersAvailable *SubscriptionIdentifiersAvailable

	// SharedSubscriptionAvailable 共享订阅可用 (0x2A)，缺省可用
	SharedSubscriptionAvailable *SharedSubscriptionAvailable

	// ServerKeepAlive 服务端保活时间 (0x13)
	// 出现时客户端必须用它替代请求的保活值 [MQTT-3.1.2-21]。
	ServerKeepAlive *ServerKeepAlive

	// ResponseInformation 响应信息 (0x1A)
	ResponseInformation ResponseInformation

	// ServerReference 服务端参考 (0x1C)
	ServerReference ServerReference

	// AuthenticationMethod/Data 扩展认证 (0x15/0x16)
	AuthenticationMethod AuthenticationMethod
	AuthenticationData   AuthenticationData
}

func (props *ConnackProperties) Pack() []byte {
	buf := GetBuffer()
	defer PutBuffer(buf)

	props.SessionExpiryInterval.Pack(buf)
	props.ReceiveMaximum.Pack(buf)
	if props.MaximumQoS != nil {
		props.MaximumQoS.Pack(buf)
	}
	if props.RetainAvailable != nil {
		props.RetainAvailable.Pack(buf)
	}
	props.MaximumPacketSize.Pack(buf)
	props.AssignedClientIdentifier.Pack(buf)
	props.TopicAliasMaximum.Pack(buf)
	props.ReasonString.Pack(buf)
	props.UserProperties.Pack(buf)
	if props.WildcardSubscriptionAvailable != nil {
		props.WildcardSubscriptionAvailable.Pack(buf)
	}
	if props.SubscriptionIdentifiersAvailable != nil {
		props.SubscriptionIdentifiersAvailable.Pack(buf)
	}
	if props.SharedSubscriptionAvailable != nil {
		props.SharedSubscriptionAvailable.Pack(buf)
	}
	if props.ServerKeepAlive != nil {
		props.ServerKeepAlive.Pack(buf)
	}
	props.ResponseInformation.Pack(buf)
	props.ServerReference.Pack(buf)
	props.AuthenticationMethod.Pack(buf)
	props.AuthenticationData.Pack(buf)

	return append([]byte(nil), buf.Bytes()...)
}

func (props *ConnackProperties) Unpack(buf *bytes.Buffer) error {
	return propReader(buf, func(id byte, buf *bytes.Buffer) (uint32, error) {
		switch id {
		case 0x11:
			return props.SessionExpiryInterval.Unpack(buf)
		case 0x21:
			return props.ReceiveMaximum.Unpack(buf)
		case 0x24:
			props.MaximumQoS = new(MaximumQoS)
			return props.MaximumQoS.Unpack(buf)
		case 0x25:
			props.RetainAvailable = new(RetainAvailable)
			return props.RetainAvailable.Unpack(buf)
		case 0x27:
			return props.MaximumPacketSize.Unpack(buf)
		case 0x12:
			return props.AssignedClientIdentifier.Unpack(buf)
		case 0x22:
			return props.TopicAliasMaximum.Unpack(buf)
		case 0x1F:
			return props.ReasonString.Unpack(buf)
		case 0x26:
			return props.UserProperties.unpackOne(buf)
		case 0x28:
			props.WildcardSubscriptionAvailable = new(WildcardSubscriptionAvailable)
			return props.WildcardSubscriptionAvailable.Unpack(buf)
		case 0x29:
			props.SubscriptionIdentifiersAvailable = new(SubscriptionIdentifiersAvailable)
			return props.SubscriptionIdentifiersAvailable.Unpack(buf)
		case 0x2A:
			props.SharedSubscriptionAvailable = new(SharedSubscriptionAvailable)
			return props.SharedSubscriptionAvailable.Unpack(buf)
		case 0x13:
			props.ServerKeepAlive = new(ServerKeepAlive)
			return props.ServerKeepAlive.Unpack(buf)
		case 0x1A:
			return props.ResponseInformation.Unpack(buf)
		case 0x1C:
			return props.ServerReference.Unpack(buf)
		case 0x15:
			return props.AuthenticationMethod.Unpack(buf)
		case 0x16:
			data, err := props.AuthenticationData.Unpack(buf)
			if err == nil {
				props.AuthenticationData = append(AuthenticationData(nil), props.AuthenticationData...)
			}
			return data, err
		default:
			return 0, ErrMalformedBadProperty
		}
	})
}
