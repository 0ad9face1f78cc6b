package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"asciisfu/internal/adminapi"
	"asciisfu/internal/relay"
	"asciisfu/internal/signaling"
	"asciisfu/internal/wire"
)

func main() {
	if len(os.Args) > 1 {
		if RunCLI(os.Args[1:]) {
			return
		}
	}

	controlAddr := flag.String("control-addr", fmt.Sprintf(":%d", wire.DefaultControlPort), "reliable control listen address")
	mediaAddr := flag.String("media-addr", fmt.Sprintf(":%d", wire.DefaultMediaPort), "unreliable media listen address")
	adminAddr := flag.String("admin-addr", ":8082", "read-only admin status API listen address (empty to disable)")
	metricsInterval := flag.Duration("metrics-interval", 5*time.Second, "relay throughput log interval")
	flag.Parse()

	srv, err := signaling.NewServer(*controlAddr)
	if err != nil {
		log.Fatalf("[server] listen control: %v", err)
	}
	log.Printf("[server] control listening on %s", srv.Addr())

	r := relay.New(srv.Calls)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		log.Println("[server] shutting down...")
		cancel()
	}()

	go relay.RunMetrics(ctx, r, *metricsInterval)

	var admin *adminapi.Server
	if *adminAddr != "" {
		admin = adminapi.New(srv.Roster, srv.Calls, r)
		go func() {
			log.Printf("[admin] listening on %s", *adminAddr)
			if err := admin.ListenAndServe(*adminAddr); err != nil {
				log.Printf("[admin] %v", err)
			}
		}()
		go func() {
			<-ctx.Done()
			_ = admin.Shutdown()
		}()
	}

	go func() {
		log.Printf("[relay] media listening on %s", *mediaAddr)
		if err := r.Run(ctx, *mediaAddr); err != nil {
			log.Printf("[relay] %v", err)
		}
	}()

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("[server] %v", err)
	}
}
