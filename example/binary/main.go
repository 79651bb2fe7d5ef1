package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/taogames/sioclient"
	"go.uber.org/zap"
)

// Uploads a file to example/server and writes the echoed bytes next to it.

func main() {
	url := flag.String("url", "http://localhost:3000", "server url")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Println("usage: binary [-url URL] FILE")
		os.Exit(2)
	}
	name := flag.Arg(0)

	data, err := os.ReadFile(name)
	if err != nil {
		panic(err)
	}

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

	manager, err := sioclient.NewManager(*url,
		sioclient.WithVersion(sioclient.V3),
		sioclient.WithReconnects(false),
		sioclient.WithLogger(logger.Sugar()),
	)
	if err != nil {
		panic(err)
	}
	defer manager.Close()

	done := make(chan struct{})
	socket := manager.Socket("/")
	socket.OnClient(sioclient.EventConnect, func() {
		err := socket.Emit("upload", filepath.Base(name), data, func(back string, body []byte) {
			out := strings.TrimSuffix(name, filepath.Ext(name)) + "-back" + filepath.Ext(name)
			if err := os.WriteFile(out, body, 0644); err != nil {
				fmt.Println(err)
			}
			fmt.Printf("%s came back as %d bytes, wrote %s\n", back, len(body), out)
			close(done)
		})
		if err != nil {
			fmt.Println(err)
		}
	})
	socket.Connect()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		fmt.Println("timed out")
	}
}
