package packet

import (
	"bytes"
	"sync"
)

// 编码器的工作缓冲区统一从这里借。先在缓冲区里拼出可变报头和载荷，
// 再用buf.Len()回填固定报头的剩余长度，这样"长度预估"和"实际写出"
// 永远逐字节一致。
var buffers = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

func GetBuffer() *bytes.Buffer {
	return buffers.Get().(*bytes.Buffer)
}

func PutBuffer(buf *bytes.Buffer) {
	buf.Reset()
	buffers.Put(buf)
}
