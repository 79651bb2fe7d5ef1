package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/taogames/sioclient"
	"go.uber.org/zap"
)

// Talks to example/server: connects "/" and "/custom" with auth, sends a
// message on each, and prints what comes back.

func main() {
	configPath := flag.String("config", "", "YAML client config")
	url := flag.String("url", "http://localhost:3000", "server url, used without -config")
	flag.Parse()

	conf := zap.Config{
		Level:            zap.NewAtomicLevelAt(zap.InfoLevel),
		Development:      true,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	logger, err := conf.Build()
	if err != nil {
		panic(err)
	}

	cfg := sioclient.DefaultConfig()
	cfg.URL = *url
	cfg.Version = sioclient.V3
	if *configPath != "" {
		if cfg, err = sioclient.LoadConfig(*configPath); err != nil {
			panic(err)
		}
	}

	manager, err := sioclient.NewManagerWithConfig(cfg, sioclient.WithLogger(logger.Sugar()))
	if err != nil {
		panic(err)
	}

	for _, nsp := range []string{"/", "/custom"} {
		socket := manager.Socket(nsp)
		socket.SetAuth(map[string]any{"token": "123"})

		socket.OnClient(sioclient.EventConnect, func() {
			fmt.Printf("[%s] connected as %s\n", socket.Namespace(), socket.ID())

			if err := socket.Emit("message", 1, "2", map[string]any{"3": 4}); err != nil {
				fmt.Println(err)
			}
			err := socket.Emit("message", "with ack", func(args ...any) {
				fmt.Printf("[%s] ack: %v\n", socket.Namespace(), args)
			})
			if err != nil {
				fmt.Println(err)
			}
		})
		socket.On("auth", func(auth map[string]any) {
			fmt.Printf("[%s] server saw auth %v\n", socket.Namespace(), auth)
		})
		socket.On("message-back", func(args ...any) {
			fmt.Printf("[%s] message-back: %v\n", socket.Namespace(), args)
		})
		socket.OnClient(sioclient.EventDisconnect, func(reason string) {
			fmt.Printf("[%s] disconnected: %s\n", socket.Namespace(), reason)
		})
		socket.OnClient(sioclient.EventReconnectAttempt, func(remaining int) {
			fmt.Printf("[%s] reconnecting, %d attempts left\n", socket.Namespace(), remaining)
		})

		socket.Connect()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	manager.Close()
}
