package mqlite

import (
	"bytes"
	"errors"
	"testing"

	"github.com/golang-io/mqlite/packet"
)

// fakeTransport 脚本化的传输适配器。async=true时Open后通道保持
// 未建立，Send排队并返回ErrPending，establish()模拟通道建立通知。
type fakeTransport struct {
	async  bool
	opened bool
	up     bool
	sent   [][]byte
	queued [][]byte
	closed int
}

func (t *fakeTransport) Open(addr string) error {
	t.opened = true
	if !t.async {
		t.up = true
	}
	return nil
}

func (t *fakeTransport) Close() error {
	t.up = false
	t.closed++
	return nil
}

func (t *fakeTransport) Send(p []byte) error {
	if !t.up {
		t.queued = append(t.queued, append([]byte(nil), p...))
		return ErrPending
	}
	t.sent = append(t.sent, append([]byte(nil), p...))
	return nil
}

func (t *fakeTransport) Recv(p []byte) (int, error) { return 0, nil }

func (t *fakeTransport) Connected() bool { return t.up }

// establish 通道建立: 冲出排队的帧
func (t *fakeTransport) establish() {
	t.up = true
	t.sent = append(t.sent, t.queued...)
	t.queued = nil
}

func (t *fakeTransport) lastSent() []byte {
	if len(t.sent) == 0 {
		return nil
	}
	return t.sent[len(t.sent)-1]
}

// newConnected 建一个已完成CONNACK握手的客户端
func newConnected(t *testing.T, opts ...Option) (*Client, *fakeTransport) {
	t.Helper()
	ft := &fakeTransport{}
	opts = append([]Option{ClientID("test-client"), WithTransport(ft)}, opts...)
	c := New(opts...)
	if err := c.Connect(60, 0, true); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := c.ProcessPacket([]byte{0x20, 0x02, 0x00, 0x00}); err != nil {
		t.Fatalf("CONNACK failed: %v", err)
	}
	if !c.Connected() {
		t.Fatal("client should be connected")
	}
	return c, ft
}

// TestScenario_ConnectConnack S1: CONNECT/CONNACK往返
func TestScenario_ConnectConnack(t *testing.T) {
	ft := &fakeTransport{}
	c := New(ClientID("test-client"), WithTransport(ft))

	connected := false
	c.Callbacks.OnConnected = func(*Client) { connected = true }

	if err := c.Connect(60, 0, true); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if len(ft.sent) != 1 {
		t.Fatalf("sent %d frames, want 1", len(ft.sent))
	}
	data := ft.sent[0]
	if data[0] != 0x10 {
		t.Errorf("first byte = 0x%02X, want 0x10", data[0])
	}
	// 协议名"MQTT" 版本5 标志0x02(CleanStart) 保活0x003C
	want := []byte{0x00, 0x04, 0x4D, 0x51, 0x54, 0x54, 0x05, 0x02, 0x00, 0x3C}
	if !bytes.Equal(data[2:12], want) {
		t.Errorf("variable header = % X, want % X", data[2:12], want)
	}
	if !c.expected.has(CONNACK) {
		t.Error("CONNACK should be expected after CONNECT")
	}

	if err := c.ProcessPacket([]byte{0x20, 0x02, 0x00, 0x00}); err != nil {
		t.Fatalf("CONNACK failed: %v", err)
	}
	if !c.Connected() || !connected {
		t.Error("client should be connected and OnConnected fired")
	}
	if c.expected.has(CONNACK) {
		t.Error("CONNACK answered, bit should be cleared")
	}
	if !c.expected.has(PUBLISH) || !c.expected.has(DISCONNECT) {
		t.Error("PUBLISH and DISCONNECT should be expected after CONNACK")
	}

	// 协议缺省能力
	caps := c.Capabilities()
	if caps.MaximumQoS != 2 || !caps.RetainAvailable || !caps.WildcardSubAvail {
		t.Errorf("default capabilities wrong: %+v", caps)
	}
	if caps.ServerKeepAlive != 60 {
		t.Errorf("ServerKeepAlive = %d, want client keep-alive 60", caps.ServerKeepAlive)
	}
}

// TestScenario_PublishQoS0 S2: QoS 0发布，无占座无后续
func TestScenario_PublishQoS0(t *testing.T) {
	c, ft := newConnected(t)
	if err := c.Publish(&PubPacket{Topic: "temp", Payload: []byte("23")}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	expected := []byte{0x30, 0x09, 0x00, 0x04, 0x74, 0x65, 0x6D, 0x70, 0x00, 0x32, 0x33}
	if !bytes.Equal(ft.lastSent(), expected) {
		t.Errorf("emitted = % X, want % X", ft.lastSent(), expected)
	}
	if c.inflight.used() != 0 {
		t.Error("QoS 0 must not reserve a packet id")
	}
	if c.expected.has(PUBACK) || c.expected.has(PUBREC) {
		t.Error("QoS 0 must not expect an acknowledgement")
	}
}

// TestScenario_PublishQoS1 S3: QoS 1发布往返
func TestScenario_PublishQoS1(t *testing.T) {
	c, ft := newConnected(t)

	var ackID uint16
	var ackReason uint8 = 0xFF
	c.Callbacks.OnPublishAcknowledged = func(_ *Client, id uint16, reason uint8) {
		ackID, ackReason = id, reason
	}

	msg := &PubPacket{Topic: "t", Payload: []byte("x"), QoS: 1}
	if err := c.Publish(msg); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if msg.PacketID != 1 {
		t.Errorf("PacketID = %d, want 1", msg.PacketID)
	}
	expected := []byte{0x32, 0x07, 0x00, 0x01, 0x74, 0x00, 0x01, 0x00, 0x78}
	if !bytes.Equal(ft.lastSent(), expected) {
		t.Errorf("emitted = % X, want % X", ft.lastSent(), expected)
	}
	if !c.expected.has(PUBACK) {
		t.Error("PUBACK should be expected")
	}

	// PUBACK回来: 槽位释放、掩码清位、回调触发
	if err := c.ProcessPacket([]byte{0x40, 0x02, 0x00, 0x01}); err != nil {
		t.Fatalf("PUBACK failed: %v", err)
	}
	if c.inflight.used() != 0 {
		t.Error("slot should be freed")
	}
	if c.expected.has(PUBACK) {
		t.Error("PUBACK bit should be cleared")
	}
	if ackID != 1 || ackReason != 0 {
		t.Errorf("callback = (%d, 0x%02X), want (1, 0x00)", ackID, ackReason)
	}
}

// TestScenario_PublishQoS2 S4: QoS 2完整握手
func TestScenario_PublishQoS2(t *testing.T) {
	c, ft := newConnected(t)

	completed := false
	c.Callbacks.OnPublishCompleted = func(_ *Client, id uint16, reason uint8) {
		if id == 1 && reason == 0 {
			completed = true
		}
	}

	if err := c.Publish(&PubPacket{Topic: "t", Payload: []byte("y"), QoS: 2}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if c.inflight.awaitFor(1) != PUBREC {
		t.Fatal("slot should await PUBREC")
	}

	// PUBREC → 槽位转等PUBCOMP，PUBREL发出
	if err := c.ProcessPacket([]byte{0x50, 0x02, 0x00, 0x01}); err != nil {
		t.Fatalf("PUBREC failed: %v", err)
	}
	if c.inflight.awaitFor(1) != PUBCOMP {
		t.Error("slot should transition to await PUBCOMP")
	}
	if !bytes.Equal(ft.lastSent(), []byte{0x62, 0x02, 0x00, 0x01}) {
		t.Errorf("PUBREL = % X, want 62 02 00 01", ft.lastSent())
	}
	if !c.expected.has(PUBCOMP) {
		t.Error("PUBCOMP should be expected")
	}

	// PUBCOMP → 槽位释放，回调触发
	if err := c.ProcessPacket([]byte{0x70, 0x02, 0x00, 0x01}); err != nil {
		t.Fatalf("PUBCOMP failed: %v", err)
	}
	if c.inflight.used() != 0 {
		t.Error("slot should be freed")
	}
	if !completed {
		t.Error("OnPublishCompleted(1, 0) should fire")
	}
}

// TestScenario_Subscribe S5: SUBSCRIBE与SUBACK授权/拒绝
func TestScenario_Subscribe(t *testing.T) {
	c, ft := newConnected(t)

	var granted, declined []int
	var declinedReason uint8
	c.Callbacks.OnSubscriptionGranted = func(_ *Client, id uint16, index int) {
		granted = append(granted, index)
	}
	c.Callbacks.OnSubscriptionDeclined = func(_ *Client, id uint16, index int, reason uint8) {
		declined = append(declined, index)
		declinedReason = reason
	}

	if err := c.Subscribe(packet.Subscription{TopicFilter: "a/+", QoS: 1, RetainAsPublished: true}); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	expected := []byte{0x82, 0x09, 0x00, 0x01, 0x00, 0x00, 0x03, 0x61, 0x2F, 0x2B, 0x09}
	if !bytes.Equal(ft.lastSent(), expected) {
		t.Errorf("emitted = % X, want % X", ft.lastSent(), expected)
	}

	// 授权QoS1
	if err := c.ProcessPacket([]byte{0x90, 0x04, 0x00, 0x01, 0x00, 0x01}); err != nil {
		t.Fatalf("SUBACK failed: %v", err)
	}
	if len(granted) != 1 || granted[0] != 0 {
		t.Errorf("granted = %v, want [0]", granted)
	}
	if c.expected.has(SUBACK) {
		t.Error("SUBACK bit should be cleared")
	}

	// 第二次订阅被拒绝 0x87 not authorized
	if err := c.Subscribe(packet.Subscription{TopicFilter: "secret/#", QoS: 1}); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if err := c.ProcessPacket([]byte{0x90, 0x04, 0x00, 0x02, 0x00, 0x87}); err != nil {
		t.Fatalf("SUBACK failed: %v", err)
	}
	if len(declined) != 1 || declined[0] != 0 || declinedReason != 0x87 {
		t.Errorf("declined = %v reason 0x%02X, want [0] 0x87", declined, declinedReason)
	}
	if c.inflight.used() != 0 {
		t.Error("all slots should be freed")
	}
}

// TestScenario_InvalidUTF8Topic S6: 过长编码的主题，零字节写出
func TestScenario_InvalidUTF8Topic(t *testing.T) {
	c, ft := newConnected(t)
	before := len(ft.sent)

	err := c.Publish(&PubPacket{Topic: string([]byte{0xC0, 0x80})})
	if !errors.Is(err, packet.ErrMalformedInvalidUTF8) {
		t.Errorf("err = %v, want ErrMalformedInvalidUTF8", err)
	}
	if len(ft.sent) != before {
		t.Error("no bytes must leave on validation failure")
	}
	if c.inflight.used() != 0 {
		t.Error("no slot must be reserved on validation failure")
	}
}

// TestReceive_QoS1Publish 收到QoS 1 PUBLISH自动回PUBACK
func TestReceive_QoS1Publish(t *testing.T) {
	c, ft := newConnected(t)

	received := false
	c.Callbacks.OnReceivedPublish = func(c *Client) {
		pub := c.Received()
		if pub.Topic == "t" && string(pub.Payload) == "x" && pub.QoS == 1 && pub.PacketID == 5 {
			received = true
		}
	}

	if err := c.ProcessPacket([]byte{0x32, 0x07, 0x00, 0x01, 0x74, 0x00, 0x05, 0x00, 0x78}); err != nil {
		t.Fatalf("PUBLISH failed: %v", err)
	}
	if !received {
		t.Error("OnReceivedPublish should fire with decoded record")
	}
	if !bytes.Equal(ft.lastSent(), []byte{0x40, 0x02, 0x00, 0x05}) {
		t.Errorf("PUBACK = % X, want 40 02 00 05", ft.lastSent())
	}
	if !c.TakeMessage() {
		t.Error("message_available should be set")
	}
	if c.TakeMessage() {
		t.Error("TakeMessage should consume the flag")
	}
}

// TestReceive_QoS2Publish 收侧QoS 2状态机:
// PUBLISH → PUBREC已发(等PUBREL) → PUBREL → PUBCOMP已发
func TestReceive_QoS2Publish(t *testing.T) {
	c, ft := newConnected(t)

	// QoS2 PUBLISH id=9
	if err := c.ProcessPacket([]byte{0x34, 0x07, 0x00, 0x01, 0x74, 0x00, 0x09, 0x00, 0x78}); err != nil {
		t.Fatalf("PUBLISH failed: %v", err)
	}
	if !bytes.Equal(ft.lastSent(), []byte{0x50, 0x02, 0x00, 0x09}) {
		t.Errorf("PUBREC = % X, want 50 02 00 09", ft.lastSent())
	}
	if c.inflight.awaitFor(9) != PUBREL {
		t.Error("slot should await PUBREL")
	}
	if !c.expected.has(PUBREL) {
		t.Error("PUBREL should be expected")
	}

	// PUBREL → PUBCOMP发出，槽位释放
	if err := c.ProcessPacket([]byte{0x62, 0x02, 0x00, 0x09}); err != nil {
		t.Fatalf("PUBREL failed: %v", err)
	}
	if !bytes.Equal(ft.lastSent(), []byte{0x70, 0x02, 0x00, 0x09}) {
		t.Errorf("PUBCOMP = % X, want 70 02 00 09", ft.lastSent())
	}
	if c.inflight.used() != 0 {
		t.Error("slot should be freed")
	}
	if c.expected.has(PUBREL) {
		t.Error("PUBREL bit should be cleared")
	}
}

// TestReceive_DuplicateQoS2 dup重投在槽位已存在时依然幂等回PUBREC
func TestReceive_DuplicateQoS2(t *testing.T) {
	c, _ := newConnected(t)

	pub := []byte{0x34, 0x07, 0x00, 0x01, 0x74, 0x00, 0x09, 0x00, 0x78}
	if err := c.ProcessPacket(pub); err != nil {
		t.Fatal(err)
	}
	// dup=1重投
	dup := append([]byte(nil), pub...)
	dup[0] |= 0x08
	if err := c.ProcessPacket(dup); err != nil {
		t.Fatalf("duplicate delivery must be re-acknowledged: %v", err)
	}
	if c.inflight.used() != 1 {
		t.Errorf("used = %d, duplicate id must not occupy a second slot", c.inflight.used())
	}
}

// TestProcess_UnexpectedType 掩码位未置位的类型
func TestProcess_UnexpectedType(t *testing.T) {
	c, _ := newConnected(t)

	// 没有pending的SUBACK
	if err := c.ProcessPacket([]byte{0x90, 0x04, 0x00, 0x01, 0x00, 0x01}); !errors.Is(err, ErrUnexpectedPacketType) {
		t.Errorf("err = %v, want ErrUnexpectedPacketType", err)
	}

	// 掩码位在(发过QoS1)但id等待的是另一种应答
	if err := c.Publish(&PubPacket{Topic: "t", QoS: 1}); err != nil {
		t.Fatal(err)
	}
	if err := c.ProcessPacket([]byte{0x40, 0x02, 0x00, 0x63}); !errors.Is(err, ErrUnexpectedPacketType) {
		t.Errorf("unknown id err = %v, want ErrUnexpectedPacketType", err)
	}
	// 解码错误不改期望掩码
	if !c.expected.has(PUBACK) {
		t.Error("expected mask must stay intact after a decode error")
	}
}

// TestProcess_SizeMismatch 剩余长度与字节数不符
func TestProcess_SizeMismatch(t *testing.T) {
	c, _ := newConnected(t)
	if err := c.ProcessPacket([]byte{0x30, 0x09, 0x00, 0x01, 0x74}); !errors.Is(err, ErrInvalidPacketSize) {
		t.Errorf("err = %v, want ErrInvalidPacketSize", err)
	}
}

// TestPublish_TableExhaustion 在途表满后下一次发布返回OutOfResource
func TestPublish_TableExhaustion(t *testing.T) {
	c, _ := newConnected(t, ReceiveMaximum(2))
	for i := 0; i < 2; i++ {
		if err := c.Publish(&PubPacket{Topic: "t", QoS: 1}); err != nil {
			t.Fatalf("publish %d failed: %v", i, err)
		}
	}
	if err := c.Publish(&PubPacket{Topic: "t", QoS: 1}); !errors.Is(err, ErrOutOfResource) {
		t.Errorf("err = %v, want ErrOutOfResource", err)
	}
}

// TestPublish_CapabilityChecks 服务端通告的能力约束出向发布
func TestPublish_CapabilityChecks(t *testing.T) {
	c, _ := newConnected(t)
	// 服务端通告 max qos=1, retain不可用
	c.caps.MaximumQoS = 1
	c.caps.RetainAvailable = false

	if err := c.Publish(&PubPacket{Topic: "t", QoS: 2}); !errors.Is(err, packet.ErrQosNotSupported) {
		t.Errorf("qos err = %v, want ErrQosNotSupported", err)
	}
	if err := c.Publish(&PubPacket{Topic: "t", Retain: true}); !errors.Is(err, packet.ErrRetainNotSupported) {
		t.Errorf("retain err = %v, want ErrRetainNotSupported", err)
	}
	if err := c.Publish(&PubPacket{Topic: "t", QoS: 3}); !errors.Is(err, packet.ErrProtocolViolationQosOutOfRange) {
		t.Errorf("qos3 err = %v, want ErrProtocolViolationQosOutOfRange", err)
	}
}

// TestSubscribe_CapabilityChecks 通配符/共享订阅能力检查
func TestSubscribe_CapabilityChecks(t *testing.T) {
	c, _ := newConnected(t)
	c.caps.WildcardSubAvail = false
	c.caps.SharedSubAvail = false

	if err := c.Subscribe(packet.Subscription{TopicFilter: "a/+"}); !errors.Is(err, packet.ErrWildcardSubscriptionsNotSupported) {
		t.Errorf("wildcard err = %v", err)
	}
	if err := c.Subscribe(packet.Subscription{TopicFilter: "$share/g/t"}); !errors.Is(err, packet.ErrSharedSubscriptionsNotSupported) {
		t.Errorf("shared err = %v", err)
	}
	if c.inflight.used() != 0 {
		t.Error("validation failures must not reserve slots")
	}
}

// TestNotConnected 未完成CONNACK握手前的操作
func TestNotConnected(t *testing.T) {
	ft := &fakeTransport{}
	c := New(ClientID("x"), WithTransport(ft))

	if err := c.Publish(&PubPacket{Topic: "t"}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("publish err = %v, want ErrNotConnected", err)
	}
	if err := c.Subscribe(packet.Subscription{TopicFilter: "t"}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("subscribe err = %v, want ErrNotConnected", err)
	}
	if err := c.Ping(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("ping err = %v, want ErrNotConnected", err)
	}
}

// TestServerDeclined CONNACK原因码>=0x80
func TestServerDeclined(t *testing.T) {
	ft := &fakeTransport{}
	c := New(ClientID("x"), WithTransport(ft))
	if err := c.Connect(60, 0, true); err != nil {
		t.Fatal(err)
	}
	err := c.ProcessPacket([]byte{0x20, 0x02, 0x00, 0x87})
	if !errors.Is(err, ErrServerDeclined) {
		t.Errorf("err = %v, want ErrServerDeclined", err)
	}
	if c.Connected() {
		t.Error("client must stay disconnected")
	}
	if c.Connack().ReasonCode != 0x87 {
		t.Errorf("recorded reason = 0x%02X, want 0x87", c.Connack().ReasonCode)
	}
}

// TestDeferredConnect 异步传输: CONNECT挂起，通道建立后冲出
func TestDeferredConnect(t *testing.T) {
	ft := &fakeTransport{async: true}
	c := New(ClientID("x"), WithTransport(ft))

	if err := c.Connect(60, 0, true); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if !c.Deferred() {
		t.Error("connect should be marked deferred")
	}
	if len(ft.sent) != 0 || len(ft.queued) != 1 {
		t.Fatalf("sent=%d queued=%d, want 0/1", len(ft.sent), len(ft.queued))
	}
	if !c.expected.has(CONNACK) {
		t.Error("CONNACK expected even while deferred")
	}

	ft.establish()
	if len(ft.sent) != 1 || ft.sent[0][0] != 0x10 {
		t.Fatal("queued CONNECT should be flushed on establishment")
	}
	if err := c.ProcessPacket([]byte{0x20, 0x02, 0x00, 0x00}); err != nil {
		t.Fatal(err)
	}
	if !c.Connected() || c.Deferred() {
		t.Error("connected and deferred cleared after CONNACK")
	}
}

// TestDisconnect 客户端主动断开
func TestDisconnect(t *testing.T) {
	c, ft := newConnected(t)
	if err := c.Disconnect(0); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}
	if !bytes.Equal(ft.lastSent(), []byte{0xE0, 0x00}) {
		t.Errorf("DISCONNECT = % X, want E0 00", ft.lastSent())
	}
	if c.Connected() {
		t.Error("client should be disconnected")
	}
	if ft.closed == 0 {
		t.Error("transport should be closed")
	}
	// 期望掩码回到只有PINGREQ
	if !c.expected.has(PINGREQ) || c.expected.has(PUBLISH) || c.expected.has(DISCONNECT) {
		t.Errorf("expected mask = %016b, want PINGREQ only", c.expected)
	}
	if err := c.Publish(&PubPacket{Topic: "t"}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("post-disconnect publish err = %v, want ErrNotConnected", err)
	}
}

// TestReceivedDisconnect 服务端断开
func TestReceivedDisconnect(t *testing.T) {
	c, ft := newConnected(t)

	var reason uint8 = 0xFF
	c.Callbacks.OnReceivedDisconnect = func(_ *Client, r uint8) { reason = r }

	if err := c.ProcessPacket([]byte{0xE0, 0x01, 0x8B}); err != nil {
		t.Fatalf("DISCONNECT failed: %v", err)
	}
	if reason != 0x8B {
		t.Errorf("reason = 0x%02X, want 0x8B", reason)
	}
	if c.Connected() {
		t.Error("client should be disconnected")
	}
	if ft.closed == 0 {
		t.Error("transport should be closed")
	}
}

// TestPing PINGREQ/PINGRESP两个方向
func TestPing(t *testing.T) {
	c, ft := newConnected(t)

	pinged := false
	c.Callbacks.OnPingReceived = func(*Client) { pinged = true }

	if err := c.Ping(); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(ft.lastSent(), []byte{0xC0, 0x00}) {
		t.Errorf("PINGREQ = % X, want C0 00", ft.lastSent())
	}
	if err := c.ProcessPacket([]byte{0xD0, 0x00}); err != nil {
		t.Fatal(err)
	}
	if !pinged {
		t.Error("OnPingReceived should fire")
	}
	if c.expected.has(PINGRESP) {
		t.Error("PINGRESP bit should be cleared")
	}

	// 代理的健康探测: 收到PINGREQ回PINGRESP
	if err := c.ProcessPacket([]byte{0xC0, 0x00}); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(ft.lastSent(), []byte{0xD0, 0x00}) {
		t.Errorf("PINGRESP = % X, want D0 00", ft.lastSent())
	}
}

// TestReceive_CorrelationDataCap 对比数据超过上限被静默丢弃，报文照常解析
func TestReceive_CorrelationDataCap(t *testing.T) {
	c, _ := newConnected(t)

	// 长度都在127以内，变长整数恰好一个字节
	build := func(n int) []byte {
		corr := bytes.Repeat([]byte{0xAB}, n)
		var props bytes.Buffer
		props.WriteByte(0x09)
		props.Write([]byte{byte(n >> 8), byte(n)})
		props.Write(corr)

		var body bytes.Buffer
		body.Write([]byte{0x00, 0x01, 0x74}) // topic "t"
		body.WriteByte(byte(props.Len()))
		body.Write(props.Bytes())
		body.WriteString("payload")

		var full bytes.Buffer
		full.WriteByte(0x30)
		full.WriteByte(byte(body.Len()))
		full.Write(body.Bytes())
		return full.Bytes()
	}

	if err := c.ProcessPacket(build(8)); err != nil {
		t.Fatal(err)
	}
	if len(c.Received().CorrelationData) != 8 {
		t.Errorf("correlation = %d bytes, want 8", len(c.Received().CorrelationData))
	}

	if err := c.ProcessPacket(build(DefaultCorrelationDataMaximum + 1)); err != nil {
		t.Fatalf("oversized correlation data must still parse: %v", err)
	}
	if len(c.Received().CorrelationData) != 0 {
		t.Error("oversized correlation data should be dropped")
	}
	if string(c.Received().Payload) != "payload" {
		t.Errorf("payload = %q, want %q", c.Received().Payload, "payload")
	}
}

// TestReceive_PayloadBorrowsInputBuffer 载荷借用输入缓冲区
func TestReceive_PayloadBorrowsInputBuffer(t *testing.T) {
	c, _ := newConnected(t)
	data := []byte{0x30, 0x09, 0x00, 0x04, 0x74, 0x65, 0x6D, 0x70, 0x00, 0x32, 0x33}
	if err := c.ProcessPacket(data); err != nil {
		t.Fatal(err)
	}
	data[len(data)-1] = 0x39
	if string(c.Received().Payload) != "29" {
		t.Error("payload should borrow from the caller's buffer until the next packet")
	}
}
