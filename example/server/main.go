package main

import (
	"flag"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	engineigo "github.com/taogames/engine.igo"
	"github.com/taogames/engine.igo/message"
	"github.com/taogames/sioclient"
	"go.uber.org/zap"
)

// An echo server for the client examples. It speaks just enough socket.io
// on top of engine.igo: namespace connects, events echoed back as
// "message-back", acks and binary attachments.

var namespaces = map[string]bool{"/": true, "/custom": true}

type connReply struct {
	Sid string `json:"sid"`
}

type errMsg struct {
	Message string `json:"message"`
}

type connection struct {
	session *engineigo.Session
	parser  sioclient.Parser
	pending *sioclient.Packet

	logger *zap.SugaredLogger
}

func (conn *connection) write(packet *sioclient.Packet) {
	msgs, err := conn.parser.Encode(packet)
	if err != nil {
		conn.logger.Error("conn.parser.Encode: ", err)
		return
	}
	for _, msg := range msgs {
		if err := conn.session.WriteMessage(msg); err != nil {
			conn.logger.Error("conn.session.WriteMessage: ", err)
			return
		}
	}
}

func (conn *connection) start() {
	defer conn.session.Close()

	for {
		mt, bs, err := conn.session.ReadMessage()
		if err != nil {
			conn.logger.Info("conn.session.ReadMessage: ", err)
			return
		}

		if mt == message.MTBinary {
			conn.onAttachment(bs)
			continue
		}

		packet, err := conn.parser.Decode(string(bs))
		if err != nil {
			conn.logger.Error("conn.parser.Decode: ", err)
			return
		}
		if packet.Type.IsBinary() && packet.Attachments > 0 {
			conn.pending = packet
			continue
		}
		conn.onPacket(packet)
	}
}

func (conn *connection) onAttachment(bs []byte) {
	if conn.pending == nil {
		conn.logger.Warn("unexpected binary attachment")
		return
	}
	conn.pending.Buffers = append(conn.pending.Buffers, bs)
	if len(conn.pending.Buffers) < conn.pending.Attachments {
		return
	}

	packet := conn.pending
	conn.pending = nil
	if err := conn.parser.Reconstruct(packet); err != nil {
		conn.logger.Error("conn.parser.Reconstruct: ", err)
		return
	}
	conn.onPacket(packet)
}

func (conn *connection) onPacket(packet *sioclient.Packet) {
	if !namespaces[packet.Namespace] {
		conn.write(&sioclient.Packet{
			Type:      sioclient.PacketConnectError,
			Namespace: packet.Namespace,
			Data:      []any{errMsg{Message: "Invalid namespace"}},
		})
		return
	}

	switch packet.Type {
	case sioclient.PacketConnect:
		conn.logger.Infof("%s joined %s", conn.session.ID(), packet.Namespace)
		conn.write(&sioclient.Packet{
			Type:      sioclient.PacketConnect,
			Namespace: packet.Namespace,
			Data:      []any{connReply{Sid: conn.session.ID()}},
		})
		auth := any(nil)
		if len(packet.Data) > 0 {
			auth = packet.Data[0]
		}
		conn.write(&sioclient.Packet{
			Type:      sioclient.PacketEvent,
			Namespace: packet.Namespace,
			Data:      []any{"auth", auth},
		})
	case sioclient.PacketDisconnect:
		conn.logger.Infof("%s left %s", conn.session.ID(), packet.Namespace)
	case sioclient.PacketEvent, sioclient.PacketBinaryEvent:
		if packet.ID != nil {
			conn.write(&sioclient.Packet{
				Type:      sioclient.PacketAck,
				Namespace: packet.Namespace,
				ID:        packet.ID,
				Data:      packet.Data[1:],
			})
			return
		}
		conn.write(&sioclient.Packet{
			Type:      sioclient.PacketEvent,
			Namespace: packet.Namespace,
			Data:      append([]any{"message-back"}, packet.Data[1:]...),
		})
	default:
		// Not supported
	}
}

func main() {
	addr := flag.String("addr", ":3000", "listen address")
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
	sugar := logger.Sugar()

	engine := engineigo.NewServer(
		engineigo.WithPingInterval(time.Millisecond*3000),
		engineigo.WithPingTimeout(time.Millisecond*2000),
		engineigo.WithMaxPayload(1000000),
		engineigo.WithLogger(sugar),
	)

	go func() {
		for {
			session := <-engine.Accept()
			sugar.Info("Engine.IO connection received")
			conn := &connection{
				session: session,
				parser:  sioclient.DefaultParser,
				logger:  sugar.With("Connection", session.ID()),
			}
			go conn.start()
		}
	}()

	router := http.NewServeMux()
	router.Handle("/socket.io/", engine)

	sugar.Infof("listening on %s", *addr)
	if err := http.ListenAndServe(*addr, handlers.CORS()(router)); err != nil {
		panic(err)
	}
}
