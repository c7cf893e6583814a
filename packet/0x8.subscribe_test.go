package packet

import (
	"bytes"
	"errors"
	"testing"
)

// TestSUBSCRIBE_Golden 订阅报文的完整线上字节
// id=1, 空属性, "a/+" 选项字节0x09 (RetainAsPublished|QoS1):
// 82 09 00 01 00 00 03 61 2F 2B 09
func TestSUBSCRIBE_Golden(t *testing.T) {
	pkt := &SUBSCRIBE{
		FixedHeader:   &FixedHeader{Kind: 0x8},
		PacketID:      1,
		Subscriptions: []Subscription{{TopicFilter: "a/+", QoS: 1, RetainAsPublished: true}},
	}
	data := mustPack(t, pkt)
	expected := []byte{0x82, 0x09, 0x00, 0x01, 0x00, 0x00, 0x03, 0x61, 0x2F, 0x2B, 0x09}
	if !bytes.Equal(data, expected) {
		t.Errorf("emitted = % X, want % X", data, expected)
	}
}

// TestSubscription_Options 订阅选项字节组装
func TestSubscription_Options(t *testing.T) {
	testCases := []struct {
		sub      Subscription
		expected byte
	}{
		{Subscription{QoS: 0}, 0x00},
		{Subscription{QoS: 2}, 0x02},
		{Subscription{QoS: 1, NoLocal: true}, 0x05},
		{Subscription{QoS: 1, RetainAsPublished: true}, 0x09},
		{Subscription{QoS: 2, RetainHandling: 2}, 0x22},
		{Subscription{QoS: 1, NoLocal: true, RetainAsPublished: true, RetainHandling: 1}, 0x1D},
	}
	for _, tc := range testCases {
		if got := tc.sub.options(); got != tc.expected {
			t.Errorf("options(%+v) = 0x%02X, want 0x%02X", tc.sub, got, tc.expected)
		}
	}
}

// TestSUBSCRIBE_Validation 校验失败零字节写出
func TestSUBSCRIBE_Validation(t *testing.T) {
	testCases := []struct {
		name string
		pkt  *SUBSCRIBE
		want error
	}{
		{"NoFilters",
			&SUBSCRIBE{FixedHeader: &FixedHeader{Kind: 0x8}, PacketID: 1},
			ErrProtocolViolationNoFilters},
		{"ZeroPacketID",
			&SUBSCRIBE{FixedHeader: &FixedHeader{Kind: 0x8},
				Subscriptions: []Subscription{{TopicFilter: "a"}}},
			ErrMalformedPacketID},
		{"BadUTF8Filter",
			&SUBSCRIBE{FixedHeader: &FixedHeader{Kind: 0x8}, PacketID: 1,
				Subscriptions: []Subscription{{TopicFilter: string([]byte{0xED, 0xA0, 0x80})}}},
			ErrMalformedInvalidUTF8},
		{"QoS3",
			&SUBSCRIBE{FixedHeader: &FixedHeader{Kind: 0x8}, PacketID: 1,
				Subscriptions: []Subscription{{TopicFilter: "a", QoS: 3}}},
			ErrProtocolViolationQosOutOfRange},
		{"RetainHandling3",
			&SUBSCRIBE{FixedHeader: &FixedHeader{Kind: 0x8}, PacketID: 1,
				Subscriptions: []Subscription{{TopicFilter: "a", RetainHandling: 3}}},
			ErrProtocolViolationRetainHandling},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := tc.pkt.Pack(&buf)
			if !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
			if buf.Len() != 0 {
				t.Errorf("%d bytes emitted on validation failure", buf.Len())
			}
		})
	}
}

// TestSUBACK_Decode 每个条目一个原因码
func TestSUBACK_Decode(t *testing.T) {
	pkt, err := UnpackBytes([]byte{0x90, 0x05, 0x00, 0x01, 0x00, 0x01, 0x87})
	if err != nil {
		t.Fatal(err)
	}
	ack := pkt.(*SUBACK)
	if ack.PacketID != 1 {
		t.Errorf("PacketID = %d, want 1", ack.PacketID)
	}
	want := []uint8{0x01, 0x87}
	if !bytes.Equal(ack.ReasonCodes, want) {
		t.Errorf("ReasonCodes = % X, want % X", ack.ReasonCodes, want)
	}
}

// TestUNSUBSCRIBE_RoundTrip 取消订阅往返，通配符过滤器合法
func TestUNSUBSCRIBE_RoundTrip(t *testing.T) {
	orig := &UNSUBSCRIBE{
		FixedHeader:  &FixedHeader{Kind: 0xA},
		PacketID:     3,
		TopicFilters: []string{"a/+", "b/#", "plain"},
	}
	data := mustPack(t, orig)
	if data[0] != 0xA2 {
		t.Errorf("first byte = 0x%02X, want 0xA2 (flags 0b0010)", data[0])
	}
	decoded, err := UnpackBytes(data)
	if err != nil {
		t.Fatal(err)
	}
	uns := decoded.(*UNSUBSCRIBE)
	if len(uns.TopicFilters) != 3 || uns.TopicFilters[1] != "b/#" {
		t.Errorf("TopicFilters = %v", uns.TopicFilters)
	}
}
