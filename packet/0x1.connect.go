package packet

import (
	"bytes"
	"fmt"
	"io"
)

/*
================================================================================
MQTT CONNECT 包 - 连接请求报文
================================================================================

参考文档:
- MQTT v5.0: 章节 3.1 CONNECT - Connection Request

报文结构:
┌─────────────────┬─────────────────┬─────────────────┐
│   Fixed Header  │ Variable Header │     Payload     │
└─────────────────┴─────────────────┴─────────────────┘

可变报头按顺序包含:
1. 协议名:   0x00 0x04 'M' 'Q' 'T' 'T'
2. 协议级别: 5 (0x05)
3. 连接标志: 1字节
   - bit 7: UserNameFlag
   - bit 6: PasswordFlag
   - bit 5: WillRetain
   - bit 4-3: WillQoS
   - bit 2: WillFlag
   - bit 1: CleanStart
   - bit 0: Reserved, 必须为0 [MQTT-3.1.2-3]
4. 保持连接: 2字节, 单位秒
5. 连接属性

载荷按顺序包含: 客户端标识符(必需)、遗嘱属性/主题/载荷(WillFlag=1时)、
用户名(UserNameFlag=1时)、密码(PasswordFlag=1时)。

协议约束:
- 一个网络连接上只能发送一次CONNECT [MQTT-3.1.0-2]
- WillFlag=0时WillQoS和WillRetain必须为0 [MQTT-3.1.2-11]
- WillQoS只能是0、1或2 [MQTT-3.1.2-14]
- 本实现要求客户端标识符非空: 引擎的在途表以客户端会话为作用域，
  匿名标识符交给身份生成器而不是服务端指派
================================================================================
*/

// NAME 协议名，固定为"MQTT"
// 参考章节: 3.1.2.1 Protocol Name
var NAME = []byte{0x00, 0x04, 'M', 'Q', 'T', 'T'}

// CONNECT 客户端连接请求报文
//
// 参考章节: 3.1 CONNECT - Connection Request
// 连接标志字节不单独存字段，Pack的时候从下面的值字段推导:
// 有Username就置UserNameFlag，有WillTopic/WillPayload就置WillFlag，以此类推。
type CONNECT struct {
	*FixedHeader

	// CleanStart 清理会话标志
	// 参考章节: 3.1.2.4 Clean Start
	// true表示丢弃服务端保存的旧会话状态。false配合非零的
	// 会话过期间隔时服务端可以保留会话状态。
	CleanStart bool

	// KeepAlive 保持连接时间间隔
	// 参考章节: 3.1.2.10 Keep Alive
	// 单位秒，0表示禁用保持连接机制。引擎不做自动调度，
	// 什么时候发PINGREQ由调用方决定。
	KeepAlive uint16

	// Props 连接属性
	// 参考章节: 3.1.2.11 CONNECT Properties
	Props *ConnectProperties `json:"Properties,omitempty"`

	// ClientID 客户端标识符
	// 参考章节: 3.1.3.1 Client Identifier
	// UTF-8编码字符串，必须非空且通过UTF-8校验。
	ClientID string `json:"ClientID,omitempty"`

	// 遗嘱，WillTopic或WillPayload非空时生效
	// 参考章节: 3.1.3.2 - 3.1.3.4
	WillProps   *WillProperties `json:"Will,omitempty"`
	WillTopic   string
	WillPayload []byte
	WillQoS     uint8
	WillRetain  bool

	// Username 用户名
	// 参考章节: 3.1.3.5 User Name
	Username string `json:"Username,omitempty"`

	// Password 密码。协议允许承载任意二进制认证数据。
	// 参考章节: 3.1.3.6 Password
	Password []byte `json:"Password,omitempty"`
}

func (pkt *CONNECT) Kind() byte {
	return 0x1
}

func (pkt *CONNECT) String() string {
	return fmt.Sprintf("[0x1]CONNECT ClientID=%s", pkt.ClientID)
}

// validate 在任何字节写出之前检查所有用户提供的字符串。
// 参考章节: 1.5.4 UTF-8 Encoded String [MQTT-1.5.4-1]
func (pkt *CONNECT) validate() error {
	if pkt.ClientID == "" {
		return ErrProtocolViolationNoClientID
	}
	if !ValidUTF8String(pkt.ClientID) {
		return fmt.Errorf("%w: client identifier", ErrMalformedInvalidUTF8)
	}
	if pkt.Username != "" && !ValidUTF8String(pkt.Username) {
		return fmt.Errorf("%w: username", ErrMalformedInvalidUTF8)
	}
	if pkt.WillQoS > 2 {
		return ErrProtocolViolationQosOutOfRange
	}
	if pkt.WillTopic != "" && !ValidUTF8String(pkt.WillTopic) {
		return fmt.Errorf("%w: will topic", ErrMalformedInvalidUTF8)
	}
	if pkt.WillProps != nil {
		if ct := string(pkt.WillProps.ContentType); ct != "" && !ValidUTF8String(ct) {
			return fmt.Errorf("%w: will content type", ErrMalformedInvalidUTF8)
		}
		if rt := string(pkt.WillProps.ResponseTopic); rt != "" && !ValidUTF8String(rt) {
			return fmt.Errorf("%w: will response topic", ErrMalformedInvalidUTF8)
		}
		if err := pkt.WillProps.UserProperties.validate(); err != nil {
			return err
		}
	}
	if pkt.Props != nil {
		if am := string(pkt.Props.AuthenticationMethod); am != "" && !ValidUTF8String(am) {
			return fmt.Errorf("%w: authentication method", ErrMalformedInvalidUTF8)
		}
		if err := pkt.Props.UserProperties.validate(); err != nil {
			return err
		}
	}
	return nil
}

// Pack 将CONNECT报文序列化到写入器
// 参考章节: 3.1 CONNECT
//
// 序列化顺序: 协议名、协议级别、连接标志、保持连接、连接属性、
// 客户端ID、遗嘱属性/主题/载荷、用户名、密码。
func (pkt *CONNECT) Pack(w io.Writer) error {
	if err := pkt.validate(); err != nil {
		return err
	}

	buf := GetBuffer()
	defer PutBuffer(buf)

	// 协议名与协议级别
	// 参考章节: 3.1.2.1 Protocol Name, 3.1.2.2 Protocol Version
	buf.Write(NAME)
	buf.WriteByte(VERSION500)

	// 连接标志从字段值推导
	// 参考章节: 3.1.2.2 Connect Flags
	uf := b2i(pkt.Username != "")                          // UserNameFlag - bit 7
	pf := b2i(len(pkt.Password) != 0)                      // PasswordFlag - bit 6
	wf := b2i(pkt.WillTopic != "" || pkt.WillPayload != nil) // WillFlag - bit 2
	wr, wq := uint8(0), uint8(0)
	if wf == 1 {
		wr = b2i(pkt.WillRetain) // WillRetain - bit 5
		wq = pkt.WillQoS         // WillQoS - bits 4-3
	}
	cs := b2i(pkt.CleanStart) // CleanStart - bit 1
	buf.WriteByte(uf<<7 | pf<<6 | wr<<5 | wq<<3 | wf<<2 | cs<<1)

	// 保持连接
	// 参考章节: 3.1.2.10 Keep Alive
	buf.Write(i2b(pkt.KeepAlive))

	// 连接属性
	if pkt.Props == nil {
		pkt.Props = &ConnectProperties{}
	}
	if err := writeProps(buf, pkt.Props.Pack()); err != nil {
		return err
	}

	// 载荷: 客户端标识符
	// 参考章节: 3.1.3.1 Client Identifier
	buf.Write(s2b(pkt.ClientID))

	// 遗嘱属性、主题、载荷
	if wf == 1 {
		if pkt.WillProps == nil {
			pkt.WillProps = &WillProperties{}
		}
		if err := writeProps(buf, pkt.WillProps.Pack()); err != nil {
			return err
		}
		buf.Write(s2b(pkt.WillTopic))
		buf.Write(s2b(pkt.WillPayload))
	}

	// 用户名和密码
	if uf == 1 {
		buf.Write(s2b(pkt.Username))
	}
	if pf == 1 {
		buf.Write(s2b(pkt.Password))
	}

	pkt.FixedHeader.RemainingLength = uint32(buf.Len())
	if err := pkt.FixedHeader.Pack(w); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

// Unpack 从缓冲区解析CONNECT报文。客户端引擎不会收到CONNECT，
// 解码器用于编解码往返测试和与测试代理的互通。
func (pkt *CONNECT) Unpack(buf *bytes.Buffer) error {
	name := buf.Next(6)
	if !bytes.Equal(name, NAME) {
		return ErrMalformedProtocolName
	}
	version, err := readByte(buf)
	if err != nil {
		return err
	}
	if version != VERSION500 {
		return ErrMalformedProtocolVersion
	}
	flags, err := readByte(buf)
	if err != nil {
		return err
	}
	if flags&0x01 != 0 {
		// 保留位必须为0 [MQTT-3.1.2-3]
		return ErrMalformedFlags
	}
	uf := flags&0x80 != 0
	pf := flags&0x40 != 0
	wf := flags&0x04 != 0
	pkt.WillRetain = flags&0x20 != 0
	pkt.WillQoS = flags >> 3 & 0x03
	pkt.CleanStart = flags&0x02 != 0
	if !wf && (pkt.WillQoS != 0 || pkt.WillRetain) {
		return ErrMalformedFlags // [MQTT-3.1.2-11]
	}

	if pkt.KeepAlive, err = readUint16(buf); err != nil {
		return err
	}

	pkt.Props = &ConnectProperties{}
	if err := pkt.Props.Unpack(buf); err != nil {
		return err
	}

	if pkt.ClientID, err = readString(buf); err != nil {
		return err
	}

	if wf {
		pkt.WillProps = &WillProperties{}
		if err := pkt.WillProps.Unpack(buf); err != nil {
			return err
		}
		if pkt.WillTopic, err = readString(buf); err != nil {
			return err
		}
		will, err := readBinary(buf)
		if err != nil {
			return err
		}
		pkt.WillPayload = append([]byte(nil), will...)
	}
	if uf {
		if pkt.Username, err = readString(buf); err != nil {
			return err
		}
	}
	if pf {
		pass, err := readBinary(buf)
		if err != nil {
			return err
		}
		pkt.Password = append([]byte(nil), pass...)
	}
	return nil
}

// ConnectProperties 连接属性
// 参考章节: 3.1.2.11 CONNECT Properties
type ConnectProperties struct {
	// SessionExpiryInterval 会话过期间隔 (0x11)
	// 网络连接关闭后会话保持的秒数。0表示会话随连接结束，
	// 0xFFFFFFFF表示永不过期。间隔大于0时两端必须存储会话状态 [MQTT-3.1.2-23]。
	SessionExpiryInterval SessionExpiryInterval

	// ReceiveMaximum 接收最大值 (0x21)
	// 客户端愿意同时处理的QoS 1/2发布消息数量，也是引擎在途表的容量。
	ReceiveMaximum ReceiveMaximum

	// MaximumPacketSize 最大报文长度 (0x27)
	// 服务端不能发送超过该长度的报文 [MQTT-3.1.2-24]。
	MaximumPacketSize MaximumPacketSize

	// TopicAliasMaximum 主题别名最大值 (0x22)
	TopicAliasMaximum TopicAliasMaximum

	// RequestResponseInformation 请求响应信息 (0x19)
	RequestResponseInformation RequestResponseInformation

	// RequestProblemInformation 请求问题信息 (0x17)
	RequestProblemInformation RequestProblemInformation

	// UserProperties 用户属性 (0x26)，顺序保留
	UserProperties UserProperties

	// AuthenticationMethod/Data 扩展认证 (0x15/0x16)
	AuthenticationMethod AuthenticationMethod
	AuthenticationData   AuthenticationData
}

// Pack 返回属性体字节，不含长度前缀。
func (props *ConnectProperties) Pack() []byte {
	buf := GetBuffer()
	defer PutBuffer(buf)

	props.SessionExpiryInterval.Pack(buf)
	props.ReceiveMaximum.Pack(buf)
	props.MaximumPacketSize.Pack(buf)
	props.TopicAliasMaximum.Pack(buf)
	props.RequestResponseInformation.Pack(buf)
	props.RequestProblemInformation.Pack(buf)
	props.UserProperties.Pack(buf)
	props.AuthenticationMethod.Pack(buf)
	props.AuthenticationData.Pack(buf)

	return append([]byte(nil), buf.Bytes()...)
}

func (props *ConnectProperties) Unpack(buf *bytes.Buffer) error {
	return propReader(buf, func(id byte, buf *bytes.Buffer) (uint32, error) {
		switch id {
		case 0x11:
			return props.SessionExpiryInterval.Unpack(buf)
		case 0x21:
			return props.ReceiveMaximum.Unpack(buf)
		case 0x27:
			return props.MaximumPacketSize.Unpack(buf)
		case 0x22:
			return props.TopicAliasMaximum.Unpack(buf)
		case 0x19:
			return props.RequestResponseInformation.Unpack(buf)
		case 0x17:
			return props.RequestProblemInformation.Unpack(buf)
		case 0x26:
			return props.UserProperties.unpackOne(buf)
		case 0x15:
			return props.AuthenticationMethod.Unpack(buf)
		case 0x16:
			return props.AuthenticationData.Unpack(buf)
		default:
			return 0, ErrMalformedBadProperty
		}
	})
}

// WillProperties 遗嘱属性
// 参考章节: 3.1.3.2 Will Properties
// 注意遗嘱的QoS和Retain不在这里，它们在连接标志字节里。
type WillProperties struct {
	// WillDelayInterval 遗嘱延时间隔 (0x18)
	// 服务端收到遗嘱后延迟这么多秒再发布，期间会话恢复则取消。
	WillDelayInterval WillDelayInterval

	// PayloadFormatIndicator 载荷格式指示 (0x01)
	PayloadFormatIndicator PayloadFormatIndicator

	// MessageExpiryInterval 消息过期间隔 (0x02)
	MessageExpiryInterval MessageExpiryInterval

	// ContentType 内容类型 (0x03)
	ContentType ContentType

	// ResponseTopic 响应主题 (0x08)
	ResponseTopic ResponseTopic

	// CorrelationData 对比数据 (0x09)
	CorrelationData CorrelationData

	// UserProperties 用户属性 (0x26)
	UserProperties UserProperties
}

func (props *WillProperties) Pack() []byte {
	buf := GetBuffer()
	defer PutBuffer(buf)

	props.WillDelayInterval.Pack(buf)
	props.PayloadFormatIndicator.Pack(buf)
	props.MessageExpiryInterval.Pack(buf)
	props.ContentType.Pack(buf)
	props.ResponseTopic.Pack(buf)
	props.CorrelationData.Pack(buf)
	props.UserProperties.Pack(buf)

	return append([]byte(nil), buf.Bytes()...)
}

func (props *WillProperties) Unpack(buf *bytes.Buffer) error {
	return propReader(buf, func(id byte, buf *bytes.Buffer) (uint32, error) {
		switch id {
		case 0x18:
			return props.WillDelayInterval.Unpack(buf)
		case 0x01:
			return props.PayloadFormatIndicator.Unpack(buf)
		case 0x02:
			return props.MessageExpiryInterval.Unpack(buf)
		case 0x03:
			return props.ContentType.Unpack(buf)
		case 0x08:
			return props.ResponseTopic.Unpack(buf)
		case 0x09:
			data, err := props.CorrelationData.Unpack(buf)
			if err == nil {
				// 遗嘱属性存活期超出一次解码，不能借缓冲区
				props.CorrelationData = append(CorrelationData(nil), props.CorrelationData...)
			}
			return data, err
		case 0x26:
			return props.UserProperties.unpackOne(buf)
		default:
			return 0, ErrMalformedBadProperty
		}
	})
}

// validate 逐对校验用户属性的UTF-8编码。
func (s UserProperties) validate() error {
	for _, p := range s {
		if !ValidUTF8String(p.Key) || !ValidUTF8String(p.Value) {
			return fmt.Errorf("%w: user property", ErrMalformedInvalidUTF8)
		}
	}
	return nil
}
