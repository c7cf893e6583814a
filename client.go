package mqlite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/golang-io/mqlite/packet"
	"golang.org/x/sync/errgroup"
)

/*
================================================================================
会话引擎
================================================================================

客户端侧的MQTT 5.0协议状态机。职责:

1. 出向操作(Connect/Publish/Subscribe/...)——先校验后编码，
   编码完交给注入的传输;
2. 入向报文——ProcessPacket检查固定报头和期望掩码，分发到
   各类型的处理器，处理器改引擎状态并触发回调;
3. QoS 1/2交付状态机——在途表记录每个报文标识符等待的应答:

   发侧 QoS 1: idle → PUBLISH已发(等PUBACK) → PUBACK → idle
   发侧 QoS 2: idle → PUBLISH已发(等PUBREC) → PUBREC →
               PUBREL已发(等PUBCOMP) → PUBCOMP → idle
   收侧 QoS 2: idle → 收到PUBLISH → PUBREC已发(等PUBREL) →
               PUBREL → PUBCOMP已发 → idle

调度模型是单线程协作式: 所有状态变更都发生在驱动报文I/O的线程上，
公开操作不可重入，引擎内部没有锁也没有后台协程。需要多线程的
调用方自己在外面包一把锁。
================================================================================
*/

// Client 客户端协议状态。
// 生命周期: 创建时"断开、只期待PINGREQ"; Connect()后"连接中";
// CONNACK原因码<0x80后"已连接"; 任一方向的DISCONNECT或传输错误
// 回到"断开"。
type Client struct {
	// Callbacks 用户回调，零值全部no-op。
	Callbacks Callbacks

	options   Options
	transport Transport

	connected bool // MQTT层连接状态(CONNACK成功)，不是传输通道状态
	deferred  bool // CONNECT被传输挂起，等通道建立后冲出

	expected ptypeMask
	inflight *inFlight

	caps Capabilities

	// 最近一次收到的各类应答记录，字符串由解码器复制、
	// 赋值即释放前值，断开和Close时整体清零。
	connack  ConnackRecord
	puback   AckRecord
	pubrec   AckRecord
	pubrel   AckRecord
	pubcomp  AckRecord
	suback   SubackRecord
	unsuback SubackRecord
	disconn  DisconnectRecord

	pub              ReceivedPublish
	messageAvailable bool
}

// Capabilities 服务端通告的能力集。CONNACK处理前先装协议缺省值，
// 属性逐项覆盖。
type Capabilities struct {
	MaximumQoS        uint8
	RetainAvailable   bool
	WildcardSubAvail  bool
	SubIDAvail        bool
	SharedSubAvail    bool
	ServerKeepAlive   uint16
	MaximumPacketSize uint32
	ReceiveMaximum    uint16
	TopicAliasMaximum uint16
}

// ConnackRecord CONNACK的留存字段。
type ConnackRecord struct {
	SessionPresent   bool
	ReasonCode       uint8
	AssignedClientID string
	ReasonString     string
	ResponseInfo     string
	ServerReference  string
}

// AckRecord PUBACK/PUBREC/PUBREL/PUBCOMP的留存字段。
type AckRecord struct {
	PacketID     uint16
	ReasonCode   uint8
	ReasonString string
}

// SubackRecord SUBACK/UNSUBACK的留存字段，原因码逐条目对应。
type SubackRecord struct {
	PacketID     uint16
	ReasonCodes  []uint8
	ReasonString string
}

// DisconnectRecord 服务端DISCONNECT的留存字段。
type DisconnectRecord struct {
	ReasonCode            uint8
	ReasonString          string
	ServerReference       string
	SessionExpiryInterval uint32
}

// ReceivedPublish 最近一次收到的PUBLISH。
// Topic/ResponseTopic/ContentType是解码时复制出来的独立字符串;
// Payload借用传输的输入缓冲区，只在下一次ProcessPacket之前有效;
// CorrelationData存进固定内联缓冲区，超限的值被静默丢弃。
type ReceivedPublish struct {
	Topic         string
	ResponseTopic string
	ContentType   string

	Payload []byte // borrowed

	CorrelationData []byte
	correlation     [DefaultCorrelationDataMaximum]byte

	PacketID               uint16
	MessageExpiryInterval  uint32
	SubscriptionIdentifier uint32
	TopicAlias             uint16
	QoS                    uint8
	PayloadFormatIndicator uint8
	Dup                    bool
	Retain                 bool
}

// PubPacket 出向发布请求。
// QoS>0时PacketID由引擎占座分配并回填，调用方用它对账回调。
type PubPacket struct {
	Topic    string
	Payload  []byte
	QoS      uint8
	Retain   bool
	Dup      bool
	PacketID uint16

	// Props 可选的发布属性(内容类型、响应主题、对比数据等)。
	Props *packet.PublishProperties
}

// New 创建客户端。初始状态断开，期望掩码里只有PINGREQ。
func New(opts ...Option) *Client {
	options := newOptions(opts...)
	c := &Client{
		options:  options,
		inflight: newInFlight(options.ReceiveMaximum),
	}
	c.transport = options.Transport
	if c.transport == nil {
		c.transport = &NetTransport{PollTimeout: options.PollTimeout}
	}
	// 异步适配器要把入向报文推回引擎
	if b, ok := c.transport.(interface{ Bind(PacketHandler) }); ok {
		b.Bind(c)
	}
	c.expected.set(PINGREQ)

	log.Printf("[CLIENT_CREATED] mqlite client created - ClientID: %s, Server: %s",
		options.ClientID, options.URL)
	return c
}

// ID 返回客户端标识符。
func (c *Client) ID() string { return c.options.ClientID }

// Connected MQTT层是否已连接(CONNACK成功且未断开)。
func (c *Client) Connected() bool { return c.connected }

// Deferred CONNECT是否被异步传输挂起。
func (c *Client) Deferred() bool { return c.deferred }

// Capabilities 服务端通告的能力集，CONNACK之前是零值。
func (c *Client) Capabilities() Capabilities { return c.caps }

// Connack 最近一次CONNACK的留存字段。
func (c *Client) Connack() ConnackRecord { return c.connack }

// Received 最近一次收到的PUBLISH记录。
// 在下一个报文被处理之前有效，Payload是对输入缓冲区的借用。
func (c *Client) Received() *ReceivedPublish { return &c.pub }

// TakeMessage 取走"有新消息"标记，轮询风格的调用方用。
func (c *Client) TakeMessage() bool {
	available := c.messageAvailable
	c.messageAvailable = false
	return available
}

// Unsuback 最近一次UNSUBACK的留存字段，原因码供调用方检查。
func (c *Client) Unsuback() SubackRecord { return c.unsuback }

// send 统一的发送出口，顺带记账。
func (c *Client) send(p []byte) error {
	err := c.transport.Send(p)
	if err == nil || errors.Is(err, ErrPending) {
		stat.PacketSent.Inc()
		stat.ByteSent.Add(float64(len(p)))
	}
	return err
}

// encode 把报文编码进一次性缓冲。编码器先校验后写字节，
// 校验失败时一个字节也不会离开进程。
func encode(pkt packet.Packet) ([]byte, error) {
	buf := packet.GetBuffer()
	defer packet.PutBuffer(buf)
	if err := pkt.Pack(buf); err != nil {
		return nil, err
	}
	return append([]byte(nil), buf.Bytes()...), nil
}

// Connect 发起MQTT连接: 编码CONNECT，打开传输，发送，把CONNACK
// 加进期望掩码。传输是异步的且通道还没建立时，CONNECT被标记为
// deferred，由传输在通道建立后冲出。
func (c *Client) Connect(keepAlive uint16, sessionExpiry uint32, cleanStart bool) error {
	if c.transport == nil {
		return ErrNilReference
	}
	c.options.KeepAlive = keepAlive
	c.options.SessionExpiry = sessionExpiry
	c.options.CleanStart = cleanStart

	data, err := encode(c.makeConnect())
	if err != nil {
		return err
	}

	if err := c.transport.Open(c.options.URL); err != nil {
		return err
	}
	if !c.transport.Connected() {
		c.deferred = true
	}

	switch err := c.send(data); {
	case err == nil:
	case errors.Is(err, ErrPending):
		// deferred connect: 字节在传输里排队
	default:
		_ = c.transport.Close()
		return err
	}

	c.expected.set(CONNACK)
	return nil
}

// makeConnect 从配置组装CONNECT报文。
func (c *Client) makeConnect() *packet.CONNECT {
	props := &packet.ConnectProperties{
		SessionExpiryInterval:      packet.SessionExpiryInterval(c.options.SessionExpiry),
		ReceiveMaximum:             packet.ReceiveMaximum(c.options.ReceiveMaximum),
		MaximumPacketSize:          packet.MaximumPacketSize(c.options.MaximumPacketSize),
		TopicAliasMaximum:          packet.TopicAliasMaximum(c.options.TopicAliasMaximum),
		RequestResponseInformation: packet.RequestResponseInformation(b2i(c.options.RequestResponseInformation)),
		RequestProblemInformation:  packet.RequestProblemInformation(b2i(c.options.RequestProblemInformation)),
		UserProperties:             c.options.UserProperties,
		AuthenticationMethod:       packet.AuthenticationMethod(c.options.AuthMethod),
		AuthenticationData:         packet.AuthenticationData(c.options.AuthData),
	}
	return &packet.CONNECT{
		FixedHeader: &packet.FixedHeader{Kind: CONNECT},
		CleanStart:  c.options.CleanStart,
		KeepAlive:   c.options.KeepAlive,
		Props:       props,
		ClientID:    c.options.ClientID,
		WillProps:   c.options.WillProps,
		WillTopic:   c.options.WillTopic,
		WillPayload: c.options.WillPayload,
		WillQoS:     c.options.WillQoS,
		WillRetain:  c.options.WillRetain,
		Username:    c.options.Username,
		Password:    c.options.Password,
	}
}

// Disconnect 优雅断开: 发DISCONNECT，回到断开状态，关传输。
// 发送环节的错误不中止关闭，两处错误以发送为先上报。
func (c *Client) Disconnect(reasonCode uint8) error {
	if c.transport == nil {
		return ErrNilReference
	}
	data, err := encode(&packet.DISCONNECT{
		FixedHeader: &packet.FixedHeader{Kind: DISCONNECT},
		ReasonCode:  reasonCode,
	})
	if err != nil {
		return err
	}

	sendErr := c.send(data)

	c.connected = false
	c.deferred = false
	c.expected = 0
	c.expected.set(PINGREQ)
	c.releaseStrings()

	closeErr := c.transport.Close()
	if sendErr != nil && !errors.Is(sendErr, ErrPending) {
		return sendErr
	}
	return closeErr
}

// Publish 发布一条应用消息。
//
// 校验顺序和失败语义: UTF-8、QoS范围、服务端能力、通配符检查都在
// 占座和编码之前，任何校验失败都不会产生字节也不会占在途槽位。
// QoS>0时先在在途表占座(分配PacketID)再编码发送——槽位先于字节，
// 这是QoS状态机的根基。发送失败时槽位保留，结果按"未知"处理，
// 调用方可以带DUP重试或断开。
func (c *Client) Publish(msg *PubPacket) error {
	if msg == nil {
		return ErrNilReference
	}
	if !c.connected {
		return ErrNotConnected
	}
	if msg.QoS > 2 {
		return packet.ErrProtocolViolationQosOutOfRange
	}
	if msg.QoS > c.caps.MaximumQoS {
		return packet.ErrQosNotSupported
	}
	if msg.Retain && !c.caps.RetainAvailable {
		return packet.ErrRetainNotSupported
	}
	if msg.Topic == "" {
		return packet.ErrMalformedTopic
	}
	if !packet.ValidUTF8String(msg.Topic) {
		return fmt.Errorf("%w: topic name", packet.ErrMalformedInvalidUTF8)
	}
	if strings.ContainsAny(msg.Topic, "+#") {
		return packet.ErrProtocolViolationSurplusWildcard
	}

	if msg.QoS > 0 {
		await := PUBACK
		if msg.QoS == 2 {
			await = PUBREC
		}
		id, err := c.inflight.reserveForAnswer(await)
		if err != nil {
			return err
		}
		msg.PacketID = id
		// 掩码位和槽位同生同灭: 只要有槽位在等应答，位就置着
		c.expected.set(await)
		stat.InFlight.Set(float64(c.inflight.used()))
	}

	pkt := &packet.PUBLISH{
		FixedHeader: &packet.FixedHeader{
			Kind:   PUBLISH,
			Dup:    b2i(msg.Dup),
			QoS:    msg.QoS,
			Retain: b2i(msg.Retain),
		},
		TopicName: msg.Topic,
		PacketID:  msg.PacketID,
		Props:     msg.Props,
		Payload:   msg.Payload,
	}
	data, err := encode(pkt)
	if err != nil {
		// 校验已经做过，这里失败意味着没有字节离开，槽位退回
		if msg.QoS > 0 {
			c.unreserve(msg.PacketID)
		}
		return err
	}
	return c.send(data)
}

// unreserve 退回一个没有字节离开进程的占座，顺带维护掩码。
func (c *Client) unreserve(packetID uint16) {
	await := c.inflight.awaitFor(packetID)
	_ = c.inflight.free(packetID)
	if await != RESERVED && !c.inflight.expectsAny(await) {
		c.expected.clear(await)
	}
	stat.InFlight.Set(float64(c.inflight.used()))
}

// Subscribe 订阅一个或多个主题过滤器。
// 校验(UTF-8、QoS范围与能力、通配符/共享订阅可用性、retain
// handling范围)全部在占座和编码之前。
func (c *Client) Subscribe(subs ...packet.Subscription) error {
	if len(subs) == 0 {
		return ErrNilReference
	}
	if !c.connected {
		return ErrNotConnected
	}
	for _, sub := range subs {
		if sub.TopicFilter == "" {
			return packet.ErrMalformedTopic
		}
		if !packet.ValidUTF8String(sub.TopicFilter) {
			return fmt.Errorf("%w: topic filter", packet.ErrMalformedInvalidUTF8)
		}
		if sub.QoS > 2 {
			return packet.ErrProtocolViolationQosOutOfRange
		}
		if sub.QoS > c.caps.MaximumQoS {
			return packet.ErrQosNotSupported
		}
		if strings.ContainsAny(sub.TopicFilter, "+#") && !c.caps.WildcardSubAvail {
			return packet.ErrWildcardSubscriptionsNotSupported
		}
		if strings.HasPrefix(sub.TopicFilter, "$share/") && !c.caps.SharedSubAvail {
			return packet.ErrSharedSubscriptionsNotSupported
		}
		if sub.RetainHandling > 2 {
			return packet.ErrProtocolViolationRetainHandling
		}
	}

	id, err := c.inflight.reserveForAnswer(SUBACK)
	if err != nil {
		return err
	}
	c.expected.set(SUBACK)
	stat.InFlight.Set(float64(c.inflight.used()))

	data, err := encode(&packet.SUBSCRIBE{
		FixedHeader:   &packet.FixedHeader{Kind: SUBSCRIBE},
		PacketID:      id,
		Subscriptions: subs,
	})
	if err != nil {
		c.unreserve(id)
		return err
	}
	return c.send(data)
}

// Unsubscribe 取消订阅。过滤器允许包含通配符，要和订阅时逐字符一致。
func (c *Client) Unsubscribe(filters ...string) error {
	if len(filters) == 0 {
		return ErrNilReference
	}
	if !c.connected {
		return ErrNotConnected
	}
	for _, filter := range filters {
		if filter == "" {
			return packet.ErrMalformedTopic
		}
		if !packet.ValidUTF8String(filter) {
			return fmt.Errorf("%w: topic filter", packet.ErrMalformedInvalidUTF8)
		}
	}

	id, err := c.inflight.reserveForAnswer(UNSUBACK)
	if err != nil {
		return err
	}
	c.expected.set(UNSUBACK)
	stat.InFlight.Set(float64(c.inflight.used()))

	data, err := encode(&packet.UNSUBSCRIBE{
		FixedHeader:  &packet.FixedHeader{Kind: UNSUBSCRIBE},
		PacketID:     id,
		TopicFilters: filters,
	})
	if err != nil {
		c.unreserve(id)
		return err
	}
	return c.send(data)
}

// Ping 发送PINGREQ。引擎不做保活调度，什么时候调用由调用方决定。
func (c *Client) Ping() error {
	if !c.connected {
		return ErrNotConnected
	}
	data, err := encode(&packet.PINGREQ{FixedHeader: &packet.FixedHeader{Kind: PINGREQ}})
	if err != nil {
		return err
	}
	if err := c.send(data); err != nil {
		return err
	}
	c.expected.set(PINGRESP)
	return nil
}

// Puback 对收到的QoS 1 PUBLISH发确认。
// dup重投时对应槽位可能已经释放，重复发确认是安全且幂等的。
func (c *Client) Puback(packetID uint16) error {
	return c.sendAck(PUBACK, packetID)
}

// Pubrec 对收到的QoS 2 PUBLISH发第一段应答，
// 并占座等对方的PUBREL(收侧时间线)。
func (c *Client) Pubrec(packetID uint16) error {
	if !c.connected {
		return ErrNotConnected
	}
	if packetID == 0 {
		return ErrInvalidPacketID
	}
	if err := c.inflight.reserveForRequest(packetID, PUBREL); err != nil {
		return err
	}
	c.expected.set(PUBREL)
	stat.InFlight.Set(float64(c.inflight.used()))
	return c.sendAck(PUBREC, packetID)
}

// Pubrel 对收到的PUBREC发释放(发侧QoS 2第二段)，槽位改等PUBCOMP。
func (c *Client) Pubrel(packetID uint16) error {
	if !c.connected {
		return ErrNotConnected
	}
	if packetID == 0 {
		return ErrInvalidPacketID
	}
	// processPubrec已经做过跳变，这里重入是幂等的
	_ = c.inflight.transition(packetID, PUBCOMP)
	c.expected.set(PUBCOMP)
	return c.sendAck(PUBREL, packetID)
}

// Pubcomp 对收到的PUBREL发完成(收侧QoS 2终段)。
func (c *Client) Pubcomp(packetID uint16) error {
	return c.sendAck(PUBCOMP, packetID)
}

// sendAck 四种发布应答的公共发送路径，原因码一律0x00(成功)。
func (c *Client) sendAck(kind byte, packetID uint16) error {
	if !c.connected {
		return ErrNotConnected
	}
	if packetID == 0 {
		return ErrInvalidPacketID
	}
	fixed := &packet.FixedHeader{Kind: kind}
	var pkt packet.Packet
	switch kind {
	case PUBACK:
		pkt = &packet.PUBACK{FixedHeader: fixed, PacketID: packetID}
	case PUBREC:
		pkt = &packet.PUBREC{FixedHeader: fixed, PacketID: packetID}
	case PUBREL:
		pkt = &packet.PUBREL{FixedHeader: fixed, PacketID: packetID}
	case PUBCOMP:
		pkt = &packet.PUBCOMP{FixedHeader: fixed, PacketID: packetID}
	default:
		return ErrUnexpectedPacketType
	}
	data, err := encode(pkt)
	if err != nil {
		return err
	}
	return c.send(data)
}

// pingresp 回应代理的PINGREQ健康探测。
func (c *Client) pingresp() error {
	data, err := encode(&packet.PINGRESP{FixedHeader: &packet.FixedHeader{Kind: PINGRESP}})
	if err != nil {
		return err
	}
	return c.send(data)
}

/*
================================================================================
入向报文处理
================================================================================
*/

// ProcessPacket 处理一个完整的入向控制报文。
//
// 固定报头声明的剩余长度必须和收到的字节数一致，否则
// ErrInvalidPacketSize; 类型位不在期望掩码里返回
// ErrUnexpectedPacketType。解码错误原样上报并且不改期望掩码——
// 要不要断开由调用方决定，引擎状态对下一个报文保持一致。
func (c *Client) ProcessPacket(data []byte) error {
	if len(data) == 0 {
		return ErrNilReference
	}
	buf := bytes.NewBuffer(data)
	fixed := &packet.FixedHeader{}
	if err := fixed.Unpack(buf); err != nil {
		return err
	}
	if uint32(buf.Len()) != fixed.RemainingLength {
		return ErrInvalidPacketSize
	}
	if !c.expected.has(fixed.Kind) {
		return fmt.Errorf("%w: %s", ErrUnexpectedPacketType, packet.Kind[fixed.Kind])
	}

	stat.PacketReceived.Inc()
	stat.ByteReceived.Add(float64(len(data)))

	switch fixed.Kind {
	case CONNACK:
		return c.processConnack(fixed, buf)
	case PUBLISH:
		return c.processPublish(fixed, buf)
	case PUBACK:
		return c.processPuback(fixed, buf)
	case PUBREC:
		return c.processPubrec(fixed, buf)
	case PUBREL:
		return c.processPubrel(fixed, buf)
	case PUBCOMP:
		return c.processPubcomp(fixed, buf)
	case SUBACK:
		return c.processSuback(fixed, buf)
	case UNSUBACK:
		return c.processUnsuback(fixed, buf)
	case DISCONNECT:
		return c.processDisconnect(fixed, buf)
	case PINGREQ:
		pkt := &packet.PINGREQ{FixedHeader: fixed}
		if err := pkt.Unpack(buf); err != nil {
			return err
		}
		return c.pingresp()
	case PINGRESP:
		pkt := &packet.PINGRESP{FixedHeader: fixed}
		if err := pkt.Unpack(buf); err != nil {
			return err
		}
		c.expected.clear(PINGRESP)
		c.onPingReceived()
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnexpectedPacketType, packet.Kind[fixed.Kind])
	}
}

// processConnack CONNACK: 先装协议缺省能力再让属性覆盖。
// 原因码>=0x80按ServerDeclined上报并保持断开。
func (c *Client) processConnack(fixed *packet.FixedHeader, buf *bytes.Buffer) error {
	pkt := &packet.CONNACK{FixedHeader: fixed}
	if err := pkt.Unpack(buf); err != nil {
		return err
	}

	c.expected.clear(CONNACK)
	c.connack = ConnackRecord{
		SessionPresent:   pkt.SessionPresent,
		ReasonCode:       pkt.ReasonCode,
		AssignedClientID: string(pkt.Props.AssignedClientIdentifier),
		ReasonString:     string(pkt.Props.ReasonString),
		ResponseInfo:     string(pkt.Props.ResponseInformation),
		ServerReference:  string(pkt.Props.ServerReference),
	}

	if pkt.ReasonCode >= 0x80 {
		c.connected = false
		return fmt.Errorf("%w: reason 0x%02X", ErrServerDeclined, pkt.ReasonCode)
	}

	c.installCapabilities(pkt.Props)

	c.connected = true
	c.deferred = false
	c.expected.set(DISCONNECT)
	c.expected.set(PUBLISH)

	c.fireUserProperties(CONNACK, pkt.Props.UserProperties)
	c.onConnected()
	return nil
}

// installCapabilities 协议缺省能力 + CONNACK属性覆盖。
// 缺省: max qos=2、retain可用、通配符/共享/订阅标识符可用、
// 保活和最大报文长度取客户端请求值。
func (c *Client) installCapabilities(props *packet.ConnackProperties) {
	c.caps = Capabilities{
		MaximumQoS:        2,
		RetainAvailable:   true,
		WildcardSubAvail:  true,
		SubIDAvail:        true,
		SharedSubAvail:    true,
		ServerKeepAlive:   c.options.KeepAlive,
		MaximumPacketSize: c.options.MaximumPacketSize,
		ReceiveMaximum:    0xFFFF,
	}
	if props == nil {
		return
	}
	if props.MaximumQoS != nil {
		c.caps.MaximumQoS = props.MaximumQoS.Uint8()
	}
	if props.RetainAvailable != nil {
		c.caps.RetainAvailable = props.RetainAvailable.Uint8() == 1
	}
	if props.WildcardSubscriptionAvailable != nil {
		c.caps.WildcardSubAvail = props.WildcardSubscriptionAvailable.Uint8() == 1
	}
	if props.SubscriptionIdentifiersAvailable != nil {
		c.caps.SubIDAvail = props.SubscriptionIdentifiersAvailable.Uint8() == 1
	}
	if props.SharedSubscriptionAvailable != nil {
		c.caps.SharedSubAvail = props.SharedSubscriptionAvailable.Uint8() == 1
	}
	if props.ServerKeepAlive != nil {
		c.caps.ServerKeepAlive = props.ServerKeepAlive.Uint16()
	}
	if props.MaximumPacketSize != 0 {
		c.caps.MaximumPacketSize = props.MaximumPacketSize.Uint32()
	}
	if props.ReceiveMaximum != 0 {
		c.caps.ReceiveMaximum = props.ReceiveMaximum.Uint16()
	}
	if props.TopicAliasMaximum != 0 {
		c.caps.TopicAliasMaximum = props.TopicAliasMaximum.Uint16()
	}
}

// processPublish 收到PUBLISH: 旧记录先整体清零(上一条的字符串随之
// 释放)，解码，按QoS回应，触发回调。Payload借用输入缓冲区。
func (c *Client) processPublish(fixed *packet.FixedHeader, buf *bytes.Buffer) error {
	c.pub = ReceivedPublish{}
	c.messageAvailable = false

	pkt := &packet.PUBLISH{FixedHeader: fixed}
	if err := pkt.Unpack(buf); err != nil {
		return err
	}

	c.pub.Topic = pkt.TopicName
	c.pub.QoS = fixed.QoS
	c.pub.Dup = fixed.Dup == 1
	c.pub.Retain = fixed.Retain == 1
	c.pub.PacketID = pkt.PacketID
	c.pub.Payload = pkt.Payload

	props := pkt.Props
	c.pub.PayloadFormatIndicator = uint8(props.PayloadFormatIndicator)
	c.pub.MessageExpiryInterval = props.MessageExpiryInterval.Uint32()
	c.pub.TopicAlias = props.TopicAlias.Uint16()
	c.pub.SubscriptionIdentifier = props.SubscriptionIdentifier.Uint32()
	c.pub.ResponseTopic = string(props.ResponseTopic)
	c.pub.ContentType = string(props.ContentType)

	// 对比数据复制进内联缓冲区，超过配置上限的值静默丢弃，报文照常解析
	if n := len(props.CorrelationData); n > 0 && n <= c.options.CorrelationDataMaximum {
		copy(c.pub.correlation[:], props.CorrelationData)
		c.pub.CorrelationData = c.pub.correlation[:n]
	}

	// 按QoS应答。应答发送失败不吞掉已经解析成功的消息，只记日志，
	// 错误会在下一个操作上浮现。
	switch fixed.QoS {
	case 1:
		if err := c.Puback(pkt.PacketID); err != nil {
			log.Printf("mqlite: puback %d: %v", pkt.PacketID, err)
		}
	case 2:
		if err := c.Pubrec(pkt.PacketID); err != nil {
			log.Printf("mqlite: pubrec %d: %v", pkt.PacketID, err)
		}
	}

	c.messageAvailable = true
	c.fireUserProperties(PUBLISH, props.UserProperties)
	c.onReceivedPublish()
	return nil
}

// processPuback 发侧QoS 1终点。
func (c *Client) processPuback(fixed *packet.FixedHeader, buf *bytes.Buffer) error {
	pkt := &packet.PUBACK{FixedHeader: fixed}
	if err := pkt.Unpack(buf); err != nil {
		return err
	}
	if c.inflight.awaitFor(pkt.PacketID) != PUBACK {
		return fmt.Errorf("%w: puback id=%d", ErrUnexpectedPacketType, pkt.PacketID)
	}
	c.puback = AckRecord{PacketID: pkt.PacketID, ReasonCode: pkt.ReasonCode, ReasonString: string(pkt.Props.ReasonString)}

	_ = c.inflight.free(pkt.PacketID)
	stat.InFlight.Set(float64(c.inflight.used()))
	if !c.inflight.expectsAny(PUBACK) {
		c.expected.clear(PUBACK)
	}

	c.fireUserProperties(PUBACK, pkt.Props.UserProperties)
	c.onPublishAcknowledged(pkt.PacketID, pkt.ReasonCode)
	return nil
}

// processPubrec 发侧QoS 2第一跳: 槽位改等PUBCOMP，回PUBREL。
func (c *Client) processPubrec(fixed *packet.FixedHeader, buf *bytes.Buffer) error {
	pkt := &packet.PUBREC{FixedHeader: fixed}
	if err := pkt.Unpack(buf); err != nil {
		return err
	}
	if c.inflight.awaitFor(pkt.PacketID) != PUBREC {
		return fmt.Errorf("%w: pubrec id=%d", ErrUnexpectedPacketType, pkt.PacketID)
	}
	c.pubrec = AckRecord{PacketID: pkt.PacketID, ReasonCode: pkt.ReasonCode, ReasonString: string(pkt.Props.ReasonString)}

	_ = c.inflight.transition(pkt.PacketID, PUBCOMP)
	if !c.inflight.expectsAny(PUBREC) {
		c.expected.clear(PUBREC)
	}
	c.expected.set(PUBCOMP)

	c.fireUserProperties(PUBREC, pkt.Props.UserProperties)
	return c.Pubrel(pkt.PacketID)
}

// processPubrel 收侧QoS 2第二跳: 释放槽位，回PUBCOMP。
func (c *Client) processPubrel(fixed *packet.FixedHeader, buf *bytes.Buffer) error {
	pkt := &packet.PUBREL{FixedHeader: fixed}
	if err := pkt.Unpack(buf); err != nil {
		return err
	}
	if c.inflight.awaitFor(pkt.PacketID) != PUBREL {
		return fmt.Errorf("%w: pubrel id=%d", ErrUnexpectedPacketType, pkt.PacketID)
	}
	c.pubrel = AckRecord{PacketID: pkt.PacketID, ReasonCode: pkt.ReasonCode, ReasonString: string(pkt.Props.ReasonString)}

	_ = c.inflight.free(pkt.PacketID)
	stat.InFlight.Set(float64(c.inflight.used()))
	if !c.inflight.expectsAny(PUBREL) {
		c.expected.clear(PUBREL)
	}

	c.fireUserProperties(PUBREL, pkt.Props.UserProperties)
	return c.Pubcomp(pkt.PacketID)
}

// processPubcomp 发侧QoS 2终点。
func (c *Client) processPubcomp(fixed *packet.FixedHeader, buf *bytes.Buffer) error {
	pkt := &packet.PUBCOMP{FixedHeader: fixed}
	if err := pkt.Unpack(buf); err != nil {
		return err
	}
	if c.inflight.awaitFor(pkt.PacketID) != PUBCOMP {
		return fmt.Errorf("%w: pubcomp id=%d", ErrUnexpectedPacketType, pkt.PacketID)
	}
	c.pubcomp = AckRecord{PacketID: pkt.PacketID, ReasonCode: pkt.ReasonCode, ReasonString: string(pkt.Props.ReasonString)}

	_ = c.inflight.free(pkt.PacketID)
	stat.InFlight.Set(float64(c.inflight.used()))
	if !c.inflight.expectsAny(PUBCOMP) {
		c.expected.clear(PUBCOMP)
	}

	c.fireUserProperties(PUBCOMP, pkt.Props.UserProperties)
	c.onPublishCompleted(pkt.PacketID, pkt.ReasonCode)
	return nil
}

// processSuback 逐条目触发授权/拒绝回调，原因码<=2是授权的QoS。
func (c *Client) processSuback(fixed *packet.FixedHeader, buf *bytes.Buffer) error {
	pkt := &packet.SUBACK{FixedHeader: fixed}
	if err := pkt.Unpack(buf); err != nil {
		return err
	}
	if c.inflight.awaitFor(pkt.PacketID) != SUBACK {
		return fmt.Errorf("%w: suback id=%d", ErrUnexpectedPacketType, pkt.PacketID)
	}
	c.suback = SubackRecord{PacketID: pkt.PacketID, ReasonCodes: pkt.ReasonCodes, ReasonString: string(pkt.Props.ReasonString)}

	c.fireUserProperties(SUBACK, pkt.Props.UserProperties)
	for i, code := range pkt.ReasonCodes {
		switch {
		case code <= 2:
			c.onSubscriptionGranted(pkt.PacketID, i)
		case code >= 0x80:
			c.onSubscriptionDeclined(pkt.PacketID, i, code)
		}
	}

	_ = c.inflight.free(pkt.PacketID)
	stat.InFlight.Set(float64(c.inflight.used()))
	if !c.inflight.expectsAny(SUBACK) {
		c.expected.clear(SUBACK)
	}
	return nil
}

// processUnsuback 原因码留在记录里供调用方检查。
func (c *Client) processUnsuback(fixed *packet.FixedHeader, buf *bytes.Buffer) error {
	pkt := &packet.UNSUBACK{FixedHeader: fixed}
	if err := pkt.Unpack(buf); err != nil {
		return err
	}
	if c.inflight.awaitFor(pkt.PacketID) != UNSUBACK {
		return fmt.Errorf("%w: unsuback id=%d", ErrUnexpectedPacketType, pkt.PacketID)
	}
	c.unsuback = SubackRecord{PacketID: pkt.PacketID, ReasonCodes: pkt.ReasonCodes, ReasonString: string(pkt.Props.ReasonString)}

	_ = c.inflight.free(pkt.PacketID)
	stat.InFlight.Set(float64(c.inflight.used()))
	if !c.inflight.expectsAny(UNSUBACK) {
		c.expected.clear(UNSUBACK)
	}

	c.fireUserProperties(UNSUBACK, pkt.Props.UserProperties)
	return nil
}

// processDisconnect 服务端断开: 记录原因，回到断开状态，关传输。
func (c *Client) processDisconnect(fixed *packet.FixedHeader, buf *bytes.Buffer) error {
	pkt := &packet.DISCONNECT{FixedHeader: fixed}
	if err := pkt.Unpack(buf); err != nil {
		return err
	}
	c.disconn = DisconnectRecord{
		ReasonCode:            pkt.ReasonCode,
		ReasonString:          string(pkt.Props.ReasonString),
		ServerReference:       string(pkt.Props.ServerReference),
		SessionExpiryInterval: pkt.Props.SessionExpiryInterval.Uint32(),
	}

	c.connected = false
	c.deferred = false
	c.expected = 0
	c.expected.set(PINGREQ)

	c.fireUserProperties(DISCONNECT, pkt.Props.UserProperties)
	c.onReceivedDisconnect(pkt.ReasonCode)
	return c.transport.Close()
}

// Disconn 最近一次服务端DISCONNECT的留存字段。
func (c *Client) Disconn() DisconnectRecord { return c.disconn }

/*
================================================================================
轮询与生命周期
================================================================================
*/

// Poll 轮询一次传输，有完整报文就处理。没有数据返回nil。
func (c *Client) Poll() error {
	if c.transport == nil {
		return ErrNilReference
	}
	size := int(c.caps.MaximumPacketSize)
	if size == 0 {
		size = 4 * 1024
	}
	buf := make([]byte, size)
	n, err := c.transport.Recv(buf)
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	return c.ProcessPacket(buf[:n])
}

// Run 驱动轮询循环直到ctx取消或出错。ctx取消时顺手关掉传输，
// 把阻塞在Recv里的循环解出来。
func (c *Client) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		<-ctx.Done()
		_ = c.transport.Close()
		return ctx.Err()
	})
	group.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if err := c.Poll(); err != nil {
				return err
			}
		}
	})
	return group.Wait()
}

// releaseStrings 清掉所有持有的应答字符串和收到的PUBLISH记录。
// 断开时调用一次，Close时再调用一次。
func (c *Client) releaseStrings() {
	c.connack = ConnackRecord{}
	c.puback = AckRecord{}
	c.pubrec = AckRecord{}
	c.pubrel = AckRecord{}
	c.pubcomp = AckRecord{}
	c.suback = SubackRecord{}
	c.unsuback = SubackRecord{}
	c.disconn = DisconnectRecord{}
	c.pub = ReceivedPublish{}
	c.messageAvailable = false
}

// Close 释放客户端持有的资源并关闭传输。
// 在途槽位保留: 未应答的报文结果按"未知"处理，重连且
// clean_start=false时靠MQTT会话恢复接续。
func (c *Client) Close() error {
	c.connected = false
	c.releaseStrings()
	if c.transport == nil {
		return nil
	}
	return c.transport.Close()
}

func b2i(v bool) uint8 {
	if v {
		return 1
	}
	return 0
}
