package mqlite

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/golang-io/requests"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Stat struct {
	Uptime         prometheus.Counter
	PacketReceived prometheus.Counter
	ByteReceived   prometheus.Counter
	PacketSent     prometheus.Counter
	ByteSent       prometheus.Counter
	InFlight       prometheus.Gauge
}

var (
	stat = Stat{
		Uptime:         prometheus.NewCounter(prometheus.CounterOpts{Name: "mqlite_uptime_seconds", Help: "The uptime in seconds"}),
		PacketReceived: prometheus.NewCounter(prometheus.CounterOpts{Name: "mqlite_received_packets", Help: "The total number of received MQTT packets"}),
		ByteReceived:   prometheus.NewCounter(prometheus.CounterOpts{Name: "mqlite_received_bytes", Help: "The total number of received MQTT bytes"}),
		PacketSent:     prometheus.NewCounter(prometheus.CounterOpts{Name: "mqlite_send_packets", Help: "The total number of send MQTT packets"}),
		ByteSent:       prometheus.NewCounter(prometheus.CounterOpts{Name: "mqlite_send_bytes", Help: "The total number of send MQTT bytes"}),
		InFlight:       prometheus.NewGauge(prometheus.GaugeOpts{Name: "mqlite_inflight_exchanges", Help: "The number of in-flight QoS 1/2 exchanges"}),
	}
)

func ServerLog(ctx context.Context, s *requests.Stat) {
	log.Printf("%s", s.Print())
}

// Httpd 起一个/metrics端点暴露客户端指标。
func Httpd(addr string) error {
	stat.Register()
	stat.RefreshUptime()
	mux := requests.NewServeMux(requests.URL(addr), requests.Logf(ServerLog))
	mux.Route("/metrics", promhttp.Handler())
	mux.Pprof()
	s := requests.NewServer(context.Background(), mux, requests.OnStart(func(s *http.Server) {
		log.Printf("http serve: %s", s.Addr)
	}))
	return s.ListenAndServe()
}

func (s *Stat) RefreshUptime() {
	go func() {
		tick := time.NewTicker(time.Second)
		for range tick.C {
			s.Uptime.Inc()
		}
	}()
}

func (s *Stat) Register() {
	prometheus.MustRegister(s.Uptime)
	prometheus.MustRegister(s.PacketReceived)
	prometheus.MustRegister(s.ByteReceived)
	prometheus.MustRegister(s.PacketSent)
	prometheus.MustRegister(s.ByteSent)
	prometheus.MustRegister(s.InFlight)
}
