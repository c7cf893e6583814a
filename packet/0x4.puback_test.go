package packet

import (
	"bytes"
	"errors"
	"testing"
)

// TestAck_PackShortForm 成功且无属性时用2字节短形式
func TestAck_PackShortForm(t *testing.T) {
	testCases := []struct {
		name     string
		pkt      Packet
		expected []byte
	}{
		{"PUBACK", &PUBACK{FixedHeader: &FixedHeader{Kind: 0x4}, PacketID: 1}, []byte{0x40, 0x02, 0x00, 0x01}},
		{"PUBREC", &PUBREC{FixedHeader: &FixedHeader{Kind: 0x5}, PacketID: 1}, []byte{0x50, 0x02, 0x00, 0x01}},
		{"PUBREL", &PUBREL{FixedHeader: &FixedHeader{Kind: 0x6}, PacketID: 1}, []byte{0x62, 0x02, 0x00, 0x01}},
		{"PUBCOMP", &PUBCOMP{FixedHeader: &FixedHeader{Kind: 0x7}, PacketID: 1}, []byte{0x70, 0x02, 0x00, 0x01}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data := mustPack(t, tc.pkt)
			if !bytes.Equal(data, tc.expected) {
				t.Errorf("emitted = % X, want % X", data, tc.expected)
			}
		})
	}
}

// TestAck_UnpackForms 三种长度形式的解码
func TestAck_UnpackForms(t *testing.T) {
	testCases := []struct {
		name       string
		data       []byte
		packetID   uint16
		reasonCode uint8
		desc       string
	}{
		{"IDOnly", []byte{0x40, 0x02, 0x30, 0x39}, 12345, 0x00,
			"剩余长度2: 原因码按成功处理"},
		{"IDReason", []byte{0x40, 0x03, 0x30, 0x39, 0x10}, 12345, 0x10,
			"剩余长度3: 带原因码无属性"},
		{"IDReasonProps", []byte{0x40, 0x04, 0x30, 0x39, 0x10, 0x00}, 12345, 0x10,
			"带原因码和空属性表"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			pkt, err := UnpackBytes(tc.data)
			if err != nil {
				t.Fatalf("UnpackBytes failed: %v", err)
			}
			ack := pkt.(*PUBACK)
			if ack.PacketID != tc.packetID {
				t.Errorf("PacketID = %d, want %d", ack.PacketID, tc.packetID)
			}
			if ack.ReasonCode != tc.reasonCode {
				t.Errorf("ReasonCode = 0x%02X, want 0x%02X (%s)", ack.ReasonCode, tc.reasonCode, tc.desc)
			}
		})
	}
}

// TestAck_ZeroPacketID 报文标识符0非法
func TestAck_ZeroPacketID(t *testing.T) {
	var buf bytes.Buffer
	err := (&PUBACK{FixedHeader: &FixedHeader{Kind: 0x4}}).Pack(&buf)
	if !errors.Is(err, ErrMalformedPacketID) {
		t.Errorf("pack err = %v, want ErrMalformedPacketID", err)
	}
	if _, err := UnpackBytes([]byte{0x40, 0x02, 0x00, 0x00}); !errors.Is(err, ErrMalformedPacketID) {
		t.Errorf("unpack err = %v, want ErrMalformedPacketID", err)
	}
}

// TestAck_ReasonStringRoundTrip 原因字符串和用户属性往返
func TestAck_ReasonStringRoundTrip(t *testing.T) {
	orig := &PUBCOMP{
		FixedHeader: &FixedHeader{Kind: 0x7},
		PacketID:    9,
		ReasonCode:  0x92,
		Props: &AckProperties{
			ReasonString:   "packet identifier not found",
			UserProperties: UserProperties{{Key: "trace", Value: "abc"}},
		},
	}
	data := mustPack(t, orig)
	decoded, err := UnpackBytes(data)
	if err != nil {
		t.Fatal(err)
	}
	comp := decoded.(*PUBCOMP)
	if comp.ReasonCode != 0x92 {
		t.Errorf("ReasonCode = 0x%02X, want 0x92", comp.ReasonCode)
	}
	if string(comp.Props.ReasonString) != "packet identifier not found" {
		t.Errorf("ReasonString = %q", comp.Props.ReasonString)
	}
	if len(comp.Props.UserProperties) != 1 || comp.Props.UserProperties[0].Key != "trace" {
		t.Errorf("UserProperties = %+v", comp.Props.UserProperties)
	}
}
