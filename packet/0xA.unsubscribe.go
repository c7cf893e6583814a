package packet

import (
	"bytes"
	"fmt"
	"io"
)

// UNSUBSCRIBE 取消订阅报文
//
// 参考文档: MQTT v5.0 章节 3.10 UNSUBSCRIBE - Unsubscribe request
//
// 固定报头标志位必须是0b0010 [MQTT-3.10.1-1]。
// 载荷是主题过滤器列表，没有选项字节，至少一个 [MQTT-3.10.3-2]。
// 取消订阅的过滤器允许包含通配符，要和订阅时的过滤器逐字符匹配。
type UNSUBSCRIBE struct {
	*FixedHeader

	// PacketID 报文标识符，UNSUBACK用它对应答
	PacketID uint16 `json:"PacketID,omitempty"`

	// Props 取消订阅属性
	Props *UnsubscribeProperties `json:"Properties,omitempty"`

	// TopicFilters 要取消的主题过滤器列表
	TopicFilters []string `json:"TopicFilters,omitempty"`
}

func (pkt *UNSUBSCRIBE) Kind() byte {
	return 0xA
}

func (pkt *UNSUBSCRIBE) String() string {
	return fmt.Sprintf("[0xA]UNSUBSCRIBE PacketID=%d Filters=%d", pkt.PacketID, len(pkt.TopicFilters))
}

func (pkt *UNSUBSCRIBE) Pack(w io.Writer) error {
	if pkt.PacketID == 0 {
		return ErrMalformedPacketID
	}
	if len(pkt.TopicFilters) == 0 {
		return ErrProtocolViolationNoFilters
	}
	for _, filter := range pkt.TopicFilters {
		if filter == "" {
			return ErrMalformedTopic
		}
		if !ValidUTF8String(filter) {
			return fmt.Errorf("%w: topic filter", ErrMalformedInvalidUTF8)
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
		pkt.Props = &UnsubscribeProperties{}
	}
	if err := writeProps(buf, pkt.Props.Pack()); err != nil {
		return err
	}
	for _, filter := range pkt.TopicFilters {
		buf.Write(s2b(filter))
	}

	// 固定报头标志位 0b0010 [MQTT-3.10.1-1]
	pkt.FixedHeader.Dup, pkt.FixedHeader.QoS, pkt.FixedHeader.Retain = 0, 1, 0
	pkt.FixedHeader.RemainingLength = uint32(buf.Len())
	if err := pkt.FixedHeader.Pack(w); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

func (pkt *UNSUBSCRIBE) Unpack(buf *bytes.Buffer) error {
	var err error
	if pkt.PacketID, err = readUint16(buf); err != nil {
		return err
	}
	if pkt.PacketID == 0 {
		return ErrMalformedPacketID
	}

	pkt.Props = &UnsubscribeProperties{}
	if err := pkt.Props.Unpack(buf); err != nil {
		return err
	}

	for buf.Len() > 0 {
		filter, err := readString(buf)
		if err != nil {
			return err
		}
		pkt.TopicFilters = append(pkt.TopicFilters, filter)
	}
	if len(pkt.TopicFilters) == 0 {
		return ErrProtocolViolationNoFilters
	}
	return nil
}

// UnsubscribeProperties 取消订阅属性
// 参考章节: 3.10.2.1 UNSUBSCRIBE Properties
type UnsubscribeProperties struct {
	// UserProperties 用户属性 (0x26)
	UserProperties UserProperties
}

func (props *UnsubscribeProperties) Pack() []byte {
	buf := GetBuffer()
	defer PutBuffer(buf)

	props.UserProperties.Pack(buf)

	return append([]byte(nil), buf.Bytes()...)
}

func (props *UnsubscribeProperties) Unpack(buf *bytes.Buffer) error {
	return propReader(buf, func(id byte, buf *bytes.Buffer) (uint32, error) {
		switch id {
		case 0x26:
			return props.UserProperties.unpackOne(buf)
		default:
			return 0, ErrMalformedBadProperty
		}
	})
}
