package packet

import "fmt"

/*
================================================================================
MQTT 5.0 原因码与错误定义
================================================================================

参考文档:
- MQTT v5.0: 章节 2.4 Reason Code, 章节 4.13 Handling errors

原因码是一个单字节无符号数。小于0x80表示成功(在不同上下文里含义不同)，
大于等于0x80表示失败。本文件同时承担两种角色:

1. 线上字节: CONNACK/PUBACK/SUBACK/DISCONNECT等报文里的原因码字段，
   用 ReasonCode.Code 进出编解码器;
2. Go错误值: ReasonCode实现error接口，编解码路径里的格式错误
   (0x81)和协议错误(0x82)直接作为错误返回并可以用errors.Is比较。
================================================================================
*/

// ReasonCode MQTT原因码。Code是线上的字节值，Reason是英文描述。
// 值类型，可比较，因此同一个变量既能当常量表用又能当sentinel error用。
type ReasonCode struct {
	Code   uint8  // 线上字节值
	Reason string // 英文原因描述
	zh     string // 中文原因描述
}

// Error 实现error接口，返回格式化的错误信息
func (rc ReasonCode) Error() string {
	return fmt.Sprintf("%d:%s", rc.Code, rc.Reason)
}

var (
	// 成功码 (0x00-0x02) - 在不同上下文中表示不同的成功状态

	// CodeSuccess 操作成功完成
	// 使用场景: CONNACK, PUBACK, PUBREC, PUBREL, PUBCOMP, UNSUBACK
	CodeSuccess = ReasonCode{Code: 0x00, Reason: "success", zh: "成功"}

	// CodeDisconnect 正常断开连接
	// 使用场景: DISCONNECT报文
	CodeDisconnect = ReasonCode{Code: 0x00, Reason: "normal disconnection", zh: "正常断开"}

	// QoS授权码 - SUBACK报文，每个订阅条目一个
	CodeGrantedQos0 = ReasonCode{Code: 0x00, Reason: "granted qos 0", zh: "授权的QoS 0"}
	CodeGrantedQos1 = ReasonCode{Code: 0x01, Reason: "granted qos 1"}
	CodeGrantedQos2 = ReasonCode{Code: 0x02, Reason: "granted qos 2"}

	// CodeDisconnectWillMessage 断开连接并要求发布遗嘱消息
	CodeDisconnectWillMessage = ReasonCode{Code: 0x04, Reason: "disconnect with will message"}

	// CodeNoMatchingSubscribers 没有订阅者匹配发布消息的主题
	// 使用场景: PUBACK, PUBREC
	CodeNoMatchingSubscribers = ReasonCode{Code: 0x10, Reason: "no matching subscribers"}

	// CodeNoSubscriptionExisted 尝试取消不存在的订阅
	// 使用场景: UNSUBACK
	CodeNoSubscriptionExisted = ReasonCode{Code: 0x11, Reason: "no subscription existed"}

	// ErrUnspecifiedError 未指定错误 (0x80)
	ErrUnspecifiedError = ReasonCode{Code: 0x80, Reason: "unspecified error"}

	// 格式错误码 (0x81) - 报文不符合规范，无法解析
	// ErrMalformedPacket 是族根，下面的变体描述具体出错的字段。
	ErrMalformedPacket                = ReasonCode{Code: 0x81, Reason: "malformed packet"}
	ErrMalformedProtocolName          = ReasonCode{Code: 0x81, Reason: "malformed packet: protocol name"}
	ErrMalformedProtocolVersion       = ReasonCode{Code: 0x81, Reason: "malformed packet: protocol version"}
	ErrMalformedFlags                 = ReasonCode{Code: 0x81, Reason: "malformed packet: flags"}
	ErrMalformedPacketID              = ReasonCode{Code: 0x81, Reason: "malformed packet: packet identifier"}
	ErrMalformedTopic                 = ReasonCode{Code: 0x81, Reason: "malformed packet: topic"}
	ErrMalformedQos                   = ReasonCode{Code: 0x81, Reason: "malformed packet: qos"}
	ErrMalformedOffsetUintOutOfRange  = ReasonCode{Code: 0x81, Reason: "malformed packet: offset uint out of range"}
	ErrMalformedOffsetBytesOutOfRange = ReasonCode{Code: 0x81, Reason: "malformed packet: offset bytes out of range"}
	ErrMalformedOffsetByteOutOfRange  = ReasonCode{Code: 0x81, Reason: "malformed packet: offset byte out of range"}
	ErrMalformedInvalidUTF8           = ReasonCode{Code: 0x81, Reason: "malformed packet: invalid utf-8 string"}
	ErrMalformedVariableByteInteger   = ReasonCode{Code: 0x81, Reason: "malformed packet: variable byte integer out of range"}
	ErrMalformedBadProperty           = ReasonCode{Code: 0x81, Reason: "malformed packet: unknown property"}
	ErrMalformedProperties            = ReasonCode{Code: 0x81, Reason: "malformed packet: properties"}
	ErrMalformedReasonCode            = ReasonCode{Code: 0x81, Reason: "malformed packet: reason code"}

	// 协议错误码 (0x82) - 报文本身合法但违反协议状态规则
	ErrProtocolErr                          = ReasonCode{Code: 0x82, Reason: "protocol error"}
	ErrProtocolViolationNoPacketID          = ReasonCode{Code: 0x82, Reason: "protocol violation: missing packet id"}
	ErrProtocolViolationQosOutOfRange       = ReasonCode{Code: 0x82, Reason: "protocol violation: qos out of range"}
	ErrProtocolViolationSurplusWildcard     = ReasonCode{Code: 0x82, Reason: "protocol violation: topic contains wildcards"}
	ErrProtocolViolationNoFilters           = ReasonCode{Code: 0x82, Reason: "protocol violation: must contain at least one filter"}
	ErrProtocolViolationInvalidTopic        = ReasonCode{Code: 0x82, Reason: "protocol violation: invalid topic"}
	ErrProtocolViolationRetainHandling      = ReasonCode{Code: 0x82, Reason: "protocol violation: invalid retain handling"}
	ErrProtocolViolationNoClientID          = ReasonCode{Code: 0x82, Reason: "protocol violation: empty client identifier"}
	ErrProtocolViolationUnsupportedProperty = ReasonCode{Code: 0x82, Reason: "protocol violation: unsupported property"}

	// ErrImplementationSpecificError 实现特定错误 (0x83)
	ErrImplementationSpecificError = ReasonCode{Code: 0x83, Reason: "implementation specific error"}

	// 连接拒绝码 (0x84-0x8F) - CONNACK报文
	ErrUnsupportedProtocolVersion = ReasonCode{Code: 0x84, Reason: "unsupported protocol version"}
	ErrClientIdentifierNotValid   = ReasonCode{Code: 0x85, Reason: "client identifier not valid"}
	ErrBadUsernameOrPassword      = ReasonCode{Code: 0x86, Reason: "bad username or password"}
	ErrNotAuthorized              = ReasonCode{Code: 0x87, Reason: "not authorized"}
	ErrServerUnavailable          = ReasonCode{Code: 0x88, Reason: "server unavailable"}
	ErrServerBusy                 = ReasonCode{Code: 0x89, Reason: "server busy"}
	ErrBanned                     = ReasonCode{Code: 0x8A, Reason: "banned"}
	ErrServerShuttingDown         = ReasonCode{Code: 0x8B, Reason: "server shutting down"}
	ErrBadAuthenticationMethod    = ReasonCode{Code: 0x8C, Reason: "bad authentication method"}
	ErrKeepAliveTimeout           = ReasonCode{Code: 0x8D, Reason: "keep alive timeout"}
	ErrSessionTakenOver           = ReasonCode{Code: 0x8E, Reason: "session takeover"}
	ErrTopicFilterInvalid         = ReasonCode{Code: 0x8F, Reason: "topic filter invalid"}

	// 运行时错误码 (0x90-0xA2) - 连接建立之后
	ErrTopicNameInvalid                    = ReasonCode{Code: 0x90, Reason: "topic name invalid"}
	ErrPacketIdentifierInUse               = ReasonCode{Code: 0x91, Reason: "packet identifier in use"}
	ErrPacketIdentifierNotFound            = ReasonCode{Code: 0x92, Reason: "packet identifier not found"}
	ErrReceiveMaximum                      = ReasonCode{Code: 0x93, Reason: "receive maximum exceeded"}
	ErrTopicAliasInvalid                   = ReasonCode{Code: 0x94, Reason: "topic alias invalid"}
	ErrPacketTooLarge                      = ReasonCode{Code: 0x95, Reason: "packet too large"}
	ErrMessageRateTooHigh                  = ReasonCode{Code: 0x96, Reason: "message rate too high"}
	ErrQuotaExceeded                       = ReasonCode{Code: 0x97, Reason: "quota exceeded"}
	ErrAdministrativeAction                = ReasonCode{Code: 0x98, Reason: "administrative action"}
	ErrPayloadFormatInvalid                = ReasonCode{Code: 0x99, Reason: "payload format invalid"}
	ErrRetainNotSupported                  = ReasonCode{Code: 0x9A, Reason: "retain not supported"}
	ErrQosNotSupported                     = ReasonCode{Code: 0x9B, Reason: "qos not supported"}
	ErrUseAnotherServer                    = ReasonCode{Code: 0x9C, Reason: "use another server"}
	ErrServerMoved                         = ReasonCode{Code: 0x9D, Reason: "server moved"}
	ErrSharedSubscriptionsNotSupported     = ReasonCode{Code: 0x9E, Reason: "shared subscriptions not supported"}
	ErrConnectionRateExceeded              = ReasonCode{Code: 0x9F, Reason: "connection rate exceeded"}
	ErrMaxConnectTime                      = ReasonCode{Code: 0xA0, Reason: "maximum connect time"}
	ErrSubscriptionIdentifiersNotSupported = ReasonCode{Code: 0xA1, Reason: "subscription identifiers not supported"}
	ErrWildcardSubscriptionsNotSupported   = ReasonCode{Code: 0xA2, Reason: "wildcard subscriptions not supported"}
)
