package mqlite

import (
	"time"

	"github.com/golang-io/mqlite/packet"
	"github.com/golang-io/requests"
)

// 编译期缺省值。和原始实现保持一致的旋钮:
// 在途表容量、对比数据上限、端口、轮询超时。
const (
	// DefaultReceiveMaximum 在途表容量，也是CONNECT里通告的
	// receive-maximum属性值。
	DefaultReceiveMaximum uint16 = 20

	// DefaultCorrelationDataMaximum 收到的PUBLISH里对比数据的
	// 内联缓冲区大小，超过的值被解码器静默丢弃。
	DefaultCorrelationDataMaximum = 64

	// DefaultPort MQTT明文端口。
	DefaultPort = 1883

	// DefaultPollTimeout 轮询适配器等数据的时长。
	DefaultPollTimeout = 100 * time.Millisecond
)

// Options 客户端配置。零值可用，缺省连本机代理。
type Options struct {
	URL      string // mqtt://host:port, mqtts://, ws://, wss://
	ClientID string

	// CONNECT参数。Connect()的实参会覆盖这三个。
	KeepAlive     uint16
	SessionExpiry uint32
	CleanStart    bool

	// ReceiveMaximum 在途表容量 = 同时在途的QoS 1/2交换数。
	ReceiveMaximum uint16

	// MaximumPacketSize 愿意接收的最大报文长度，0表示不通告。
	MaximumPacketSize uint32

	// TopicAliasMaximum 通告给服务端的主题别名上限，0表示不接受别名。
	TopicAliasMaximum uint16

	// CorrelationDataMaximum 收侧对比数据上限，不能超过编译期缓冲区。
	CorrelationDataMaximum int

	// PollTimeout 轮询适配器的等待时长。
	PollTimeout time.Duration

	// 认证
	Username string
	Password []byte

	// 遗嘱
	WillTopic   string
	WillPayload []byte
	WillQoS     uint8
	WillRetain  bool
	WillProps   *packet.WillProperties

	// UserProperties 附在CONNECT上的用户属性。
	UserProperties packet.UserProperties

	RequestResponseInformation bool
	RequestProblemInformation  bool

	// 扩展认证
	AuthMethod string
	AuthData   []byte

	// Transport 注入的传输适配器，nil时用阻塞式NetTransport。
	Transport Transport
}

type Option func(*Options)

func newOptions(opts ...Option) Options {
	options := Options{
		URL:                    "mqtt://127.0.0.1:1883",
		CleanStart:             true,
		ReceiveMaximum:         DefaultReceiveMaximum,
		CorrelationDataMaximum: DefaultCorrelationDataMaximum,
		PollTimeout:            DefaultPollTimeout,
	}
	for _, o := range opts {
		o(&options)
	}
	if options.ClientID == "" {
		if id, err := UniqueClientID(); err == nil {
			options.ClientID = id
		} else {
			options.ClientID = "mqlite-" + requests.GenId()
		}
	}
	if options.ReceiveMaximum == 0 {
		options.ReceiveMaximum = DefaultReceiveMaximum
	}
	if options.CorrelationDataMaximum <= 0 || options.CorrelationDataMaximum > DefaultCorrelationDataMaximum {
		options.CorrelationDataMaximum = DefaultCorrelationDataMaximum
	}
	return options
}

func URL(url string) Option {
	return func(o *Options) {
		o.URL = url
	}
}

func ClientID(id string) Option {
	return func(o *Options) {
		o.ClientID = id
	}
}

func KeepAlive(seconds uint16) Option {
	return func(o *Options) {
		o.KeepAlive = seconds
	}
}

func SessionExpiry(seconds uint32) Option {
	return func(o *Options) {
		o.SessionExpiry = seconds
	}
}

func CleanStart(clean bool) Option {
	return func(o *Options) {
		o.CleanStart = clean
	}
}

func ReceiveMaximum(n uint16) Option {
	return func(o *Options) {
		o.ReceiveMaximum = n
	}
}

func MaximumPacketSize(n uint32) Option {
	return func(o *Options) {
		o.MaximumPacketSize = n
	}
}

func PollTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.PollTimeout = d
	}
}

// BasicAuth 启用用户名/密码认证。
func BasicAuth(username string, password []byte) Option {
	return func(o *Options) {
		o.Username = username
		o.Password = password
	}
}

// Will 设置遗嘱消息，客户端异常断开时由服务端代为发布。
func Will(topic string, payload []byte, qos uint8, retain bool) Option {
	return func(o *Options) {
		o.WillTopic = topic
		o.WillPayload = payload
		o.WillQoS = qos
		o.WillRetain = retain
	}
}

// UserProperty 追加一对CONNECT用户属性，顺序保留。
func UserProperty(key, value string) Option {
	return func(o *Options) {
		o.UserProperties = append(o.UserProperties, packet.UserProperty{Key: key, Value: value})
	}
}

// WithTransport 注入传输适配器。
func WithTransport(t Transport) Option {
	return func(o *Options) {
		o.Transport = t
	}
}
