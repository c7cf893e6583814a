package mqlite

// Transport 是引擎和网络之间的缝。原始设计是一张挂在客户端上的
// 函数指针表，这里按接口表达，由调用方注入。引擎从不自己开socket、
// 不选并发模型，只通过这张接口收发字节缓冲。
//
// 缓冲区归属: Send的切片在调用返回后引擎不再持有(deferred路径里
// 传输要自己复制); Recv填入的缓冲由引擎提供，收到的PUBLISH载荷
// 会借用它直到下一次Recv/ProcessPacket。
//
// Connected反映的是传输通道(TCP/TLS/WebSocket)的状态，和客户端的
// MQTT连接状态(CONNACK成功与否)是两回事。
type Transport interface {
	// Open 发起或完成到代理的连接。可以同步成功(之后Connected
	// 返回true)，也可以异步开始(Connected暂时false，建立后自行
	// 冲出挂起的帧)。
	Open(addr string) error

	// Close 释放连接，幂等。
	Close() error

	// Send 发送p中的全部字节。异步适配器在通道还没建立时把字节
	// 排队并返回ErrPending，通道建立后负责冲出(deferred connect)。
	Send(p []byte) error

	// Recv 读一个完整的控制报文进p，返回实际字节数。
	// 等待超时没有数据时返回(0, nil)。异步适配器可以不支持
	// 轮询，固定返回(0, nil)。
	Recv(p []byte) (int, error)

	// Connected 传输通道是否已建立。
	Connected() bool
}

// PacketHandler 异步传输把收到的报文推给引擎的入口。
// WSTransport的读泵对每个二进制帧调用一次ProcessPacket。
type PacketHandler interface {
	ProcessPacket(data []byte) error
}
