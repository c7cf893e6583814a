package mqlite

import "github.com/golang-io/mqlite/packet"

// Callbacks 用户回调面。原始设计里这些是链接期可覆盖的弱符号，
// Go里重构成一组可选函数字段: nil就是no-op，调用方按需覆盖。
// 回调在驱动报文I/O的同一线程里同步执行，不要在回调里阻塞。
type Callbacks struct {
	// OnConnected CONNACK成功(原因码<0x80)后触发。
	OnConnected func(c *Client)

	// OnReceivedDisconnect 服务端发来DISCONNECT。触发时引擎已经
	// 回到断开状态，传输即将关闭。
	OnReceivedDisconnect func(c *Client, reasonCode uint8)

	// OnReceivedPublish 收到PUBLISH。c.Received()的记录在下一个
	// 报文被处理前有效，其中Payload借用传输的输入缓冲区。
	OnReceivedPublish func(c *Client)

	// OnSubscriptionGranted SUBACK里第index个条目被授权(原因码<=2，
	// 即授权的QoS)。
	OnSubscriptionGranted func(c *Client, packetID uint16, index int)

	// OnSubscriptionDeclined SUBACK里第index个条目被拒绝(原因码>=0x80)。
	OnSubscriptionDeclined func(c *Client, packetID uint16, index int, reasonCode uint8)

	// OnPublishAcknowledged QoS 1交换完成(收到PUBACK)。
	OnPublishAcknowledged func(c *Client, packetID uint16, reasonCode uint8)

	// OnPublishCompleted QoS 2交换完成(收到PUBCOMP)。
	OnPublishCompleted func(c *Client, packetID uint16, reasonCode uint8)

	// OnPingReceived 收到PINGRESP。
	OnPingReceived func(c *Client)

	// OnUserProperty 任何入向报文里出现用户属性时逐对触发，
	// origin是来源报文类型序号。
	OnUserProperty func(c *Client, origin byte, key, value string)
}

func (c *Client) onConnected() {
	if c.Callbacks.OnConnected != nil {
		c.Callbacks.OnConnected(c)
	}
}

func (c *Client) onReceivedDisconnect(reason uint8) {
	if c.Callbacks.OnReceivedDisconnect != nil {
		c.Callbacks.OnReceivedDisconnect(c, reason)
	}
}

func (c *Client) onReceivedPublish() {
	if c.Callbacks.OnReceivedPublish != nil {
		c.Callbacks.OnReceivedPublish(c)
	}
}

func (c *Client) onSubscriptionGranted(packetID uint16, index int) {
	if c.Callbacks.OnSubscriptionGranted != nil {
		c.Callbacks.OnSubscriptionGranted(c, packetID, index)
	}
}

func (c *Client) onSubscriptionDeclined(packetID uint16, index int, reason uint8) {
	if c.Callbacks.OnSubscriptionDeclined != nil {
		c.Callbacks.OnSubscriptionDeclined(c, packetID, index, reason)
	}
}

func (c *Client) onPublishAcknowledged(packetID uint16, reason uint8) {
	if c.Callbacks.OnPublishAcknowledged != nil {
		c.Callbacks.OnPublishAcknowledged(c, packetID, reason)
	}
}

func (c *Client) onPublishCompleted(packetID uint16, reason uint8) {
	if c.Callbacks.OnPublishCompleted != nil {
		c.Callbacks.OnPublishCompleted(c, packetID, reason)
	}
}

func (c *Client) onPingReceived() {
	if c.Callbacks.OnPingReceived != nil {
		c.Callbacks.OnPingReceived(c)
	}
}

// fireUserProperties 把解码出来的用户属性按顺序逐对交给回调。
func (c *Client) fireUserProperties(origin byte, props packet.UserProperties) {
	if c.Callbacks.OnUserProperty == nil {
		return
	}
	for _, p := range props {
		c.Callbacks.OnUserProperty(c, origin, p.Key, p.Value)
	}
}
