package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-io/mqlite"
	"github.com/golang-io/mqlite/packet"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	c := mqlite.New(mqlite.URL("mqtt://127.0.0.1:1883"))
	c.Callbacks = mqlite.Callbacks{
		OnConnected: func(c *mqlite.Client) {
			log.Printf("connected: id=%s", c.ID())
			if err := c.Subscribe(packet.Subscription{TopicFilter: "a/b/c", QoS: 1, RetainAsPublished: true}); err != nil {
				log.Printf("subscribe: %v", err)
			}
		},
		OnReceivedPublish: func(c *mqlite.Client) {
			pub := c.Received()
			log.Printf("on: topic=%s qos=%d payload=%s", pub.Topic, pub.QoS, pub.Payload)
		},
		OnPublishAcknowledged: func(c *mqlite.Client, id uint16, reason uint8) {
			log.Printf("acknowledged: id=%d reason=0x%02X", id, reason)
		},
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := c.Connect(60, 0, true); err != nil {
			return err
		}
		return c.Run(ctx)
	})

	group.Go(func() error {
		tick := time.NewTicker(time.Second)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick.C:
			}
			if !c.Connected() {
				continue
			}
			if err := c.Publish(&mqlite.PubPacket{
				Topic:   "a/b/c",
				Payload: []byte(time.Now().Format("2006-01-02 15:04:05")),
				QoS:     1,
			}); err != nil {
				log.Printf("%v", err)
			}
		}
	})

	group.Go(func() error {
		defer cancel()
		ignore := make(chan os.Signal, 1)
		sign := make(chan os.Signal, 1)

		signal.Notify(ignore, syscall.SIGHUP) // 终端挂起或者控制进程终止(hang up)
		signal.Notify(sign, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

		select {
		case <-ctx.Done():
			log.Printf("ctx done")
			return ctx.Err()
		case sig := <-sign:
			_ = c.Disconnect(0)
			return fmt.Errorf("got sign: %s", sig)
		}
	})
	if err := group.Wait(); err != nil {
		log.Fatal(err)
	}
}
