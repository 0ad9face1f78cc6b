package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"asciisfu/internal/adapters"
	"asciisfu/internal/callclient"
	"asciisfu/internal/clientconfig"
)

func main() {
	cfg := clientconfig.Load()

	username := flag.String("username", cfg.Username, "username to log in with")
	serverAddr := flag.String("server-address", cfg.LastServerAddr, "SFU control address")
	autoAccept := flag.Bool("auto-accept-calls", cfg.AutoAcceptCalls, "automatically accept incoming calls")
	border := flag.Bool("border", cfg.Border, "draw a border around composed frames")
	flag.Parse()

	if *username == "" {
		fmt.Print("username: ")
		var u string
		fmt.Scanln(&u)
		*username = u
	}

	addr, err := normalizeServerAddr(*serverAddr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		cancel()
	}()

	transport, err := callclient.Dial(ctx, addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error: could not connect:", err)
		os.Exit(1)
	}
	defer transport.Close()

	taken, err := callclient.Login(transport, *username)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error: login failed:", err)
		os.Exit(1)
	}
	if taken {
		fmt.Fprintf(os.Stderr, "error: username %q is already taken\n", *username)
		os.Exit(1)
	}

	mediaAddr, err := normalizeMediaAddr(addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	runtimeCfg := clientconfig.Config{
		Username:        *username,
		LastServerAddr:  *serverAddr,
		AutoAcceptCalls: *autoAccept,
		Border:          *border,
	}
	_ = clientconfig.Save(runtimeCfg)

	term := adapters.NewStdio(os.Stdin, os.Stdout)
	consumer := newTerminalRenderer(os.Stdout, runtimeCfg.Border)
	producer := newIdleFrameProducer()

	repl := callclient.New(*username, mediaAddr, transport, term, producer, consumer, runtimeCfg)
	term.Printf("logged in as %s. type 'l' to list peers, 'c <user>' to call, 'q' to quit.\n", *username)
	if err := repl.Run(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
