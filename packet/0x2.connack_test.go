package packet

import (
	"bytes"
	"testing"
)

// TestCONNACK_ShortForm 剩余长度2的短形式: 无属性长度前缀
func TestCONNACK_ShortForm(t *testing.T) {
	pkt, err := UnpackBytes([]byte{0x20, 0x02, 0x00, 0x00})
	if err != nil {
		t.Fatalf("UnpackBytes failed: %v", err)
	}
	ack := pkt.(*CONNACK)
	if ack.SessionPresent {
		t.Error("SessionPresent should be false")
	}
	if ack.ReasonCode != 0x00 {
		t.Errorf("ReasonCode = 0x%02X, want 0x00", ack.ReasonCode)
	}
	if ack.Props == nil {
		t.Fatal("Props should be non-nil empty")
	}
}

// TestCONNACK_SessionPresent 会话存在标志
func TestCONNACK_SessionPresent(t *testing.T) {
	pkt, err := UnpackBytes([]byte{0x20, 0x03, 0x01, 0x00, 0x00})
	if err != nil {
		t.Fatal(err)
	}
	if !pkt.(*CONNACK).SessionPresent {
		t.Error("SessionPresent should be true")
	}
}

// TestCONNACK_Declined 原因码>=0x80原样解出，由引擎决定传播
func TestCONNACK_Declined(t *testing.T) {
	pkt, err := UnpackBytes([]byte{0x20, 0x03, 0x00, 0x87, 0x00})
	if err != nil {
		t.Fatal(err)
	}
	if pkt.(*CONNACK).ReasonCode != 0x87 {
		t.Errorf("ReasonCode = 0x%02X, want 0x87 (not authorized)", pkt.(*CONNACK).ReasonCode)
	}
}

// TestCONNACK_CapabilityProperties 能力属性解码
func TestCONNACK_CapabilityProperties(t *testing.T) {
	var body bytes.Buffer
	body.Write([]byte{0x00, 0x00}) // ack flags + reason
	props := []byte{
		0x24, 0x01, // MaximumQoS = 1
		0x25, 0x00, // RetainAvailable = 0
		0x21, 0x00, 0x0A, // ReceiveMaximum = 10
		0x13, 0x00, 0x1E, // ServerKeepAlive = 30
		0x27, 0x00, 0x00, 0x10, 0x00, // MaximumPacketSize = 4096
	}
	if err := writeProps(&body, props); err != nil {
		t.Fatal(err)
	}
	var full bytes.Buffer
	full.WriteByte(0x20)
	enc, _ := encodeLength(body.Len())
	full.Write(enc)
	full.Write(body.Bytes())

	pkt, err := UnpackBytes(full.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	p := pkt.(*CONNACK).Props
	if p.MaximumQoS == nil || p.MaximumQoS.Uint8() != 1 {
		t.Errorf("MaximumQoS = %v, want 1", p.MaximumQoS)
	}
	if p.RetainAvailable == nil || p.RetainAvailable.Uint8() != 0 {
		t.Errorf("RetainAvailable = %v, want explicit 0", p.RetainAvailable)
	}
	if p.ReceiveMaximum != 10 {
		t.Errorf("ReceiveMaximum = %d, want 10", p.ReceiveMaximum)
	}
	if p.ServerKeepAlive == nil || p.ServerKeepAlive.Uint16() != 30 {
		t.Errorf("ServerKeepAlive = %v, want 30", p.ServerKeepAlive)
	}
	if p.MaximumPacketSize != 4096 {
		t.Errorf("MaximumPacketSize = %d, want 4096", p.MaximumPacketSize)
	}
}
