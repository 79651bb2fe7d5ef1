package sioclient

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/taogames/engine.igo/message"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Engine.IO packet types
const (
	engineOpen    = '0'
	engineClose   = '1'
	enginePing    = '2'
	enginePong    = '3'
	engineMessage = '4'
	engineUpgrade = '5'
	engineNoop    = '6'
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 10 * time.Second
	sendBufferSize   = 1024
)

var (
	errLocalClose  = errors.New("closed by client")
	errServerClose = errors.New("closed by server")
)

type handshakeResponse struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int      `json:"pingInterval"`
	PingTimeout  int      `json:"pingTimeout"`
}

// wsTransport speaks engine.io over a websocket connection. Every Connect
// starts a new session; callbacks of a superseded session are dropped.
type wsTransport struct {
	cfg    Config
	client TransportClient
	dialer *websocket.Dialer

	mu      sync.Mutex
	session *wsSession

	logger *zap.SugaredLogger
}

// NewWebsocketTransport is the default TransportFactory.
func NewWebsocketTransport(cfg Config, client TransportClient, logger *zap.SugaredLogger) Transport {
	return &wsTransport{
		cfg:    cfg,
		client: client,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		logger: logger.With("Transport", "websocket"),
	}
}

func (t *wsTransport) Connect() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s := t.session; s != nil && !s.isClosing() {
		t.logger.Debugf("session %s already running", s.id)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &wsSession{
		id:     uuid.NewString(),
		t:      t,
		send:   make(chan *message.Message, sendBufferSize),
		cancel: cancel,
	}
	s.logger = t.logger.With("Session", s.id)
	t.session = s

	go s.run(ctx)
}

func (t *wsTransport) Disconnect(reason string) {
	t.mu.Lock()
	s := t.session
	t.mu.Unlock()

	if s == nil {
		return
	}
	s.close(reason)
}

func (t *wsTransport) Send(msg string, attachments [][]byte) {
	s := t.current()
	if s == nil {
		t.logger.Debugf("dropping message, no session: %s", msg)
		return
	}

	s.write(&message.Message{Type: message.MTText, Data: append([]byte{engineMessage}, msg...)})
	for _, bs := range attachments {
		if t.cfg.Version == V2 {
			bs = append([]byte{engineMessage - '0'}, bs...)
		}
		s.write(&message.Message{Type: message.MTBinary, Data: bs})
	}
}

func (t *wsTransport) current() *wsSession {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session
}

// release clears s if it is still the current session.
func (t *wsTransport) release(s *wsSession) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.session != s {
		return false
	}
	t.session = nil
	return true
}

func (t *wsTransport) endpoint() (string, error) {
	u, err := url.Parse(t.cfg.URL)
	if err != nil {
		return "", errors.Wrap(ErrInvalidConfig, err.Error())
	}

	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	if t.cfg.Secure {
		u.Scheme = "wss"
	}

	u.Path = "/" + strings.Trim(t.cfg.Path, "/") + "/"

	q := u.Query()
	for k, v := range t.cfg.ConnectParams {
		q.Set(k, v)
	}
	q.Set("EIO", t.cfg.Version.engineVersion())
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func (t *wsTransport) header() http.Header {
	header := http.Header{}
	for k, v := range t.cfg.ExtraHeaders {
		header.Set(k, v)
	}
	return header
}

type wsSession struct {
	id   string
	t    *wsTransport
	conn *websocket.Conn

	send   chan *message.Message
	cancel context.CancelFunc
	opened atomic.Bool

	closeOnce   sync.Once
	closing     atomic.Bool
	closeReason string

	handshake handshakeResponse

	logger *zap.SugaredLogger
}

func (s *wsSession) isClosing() bool {
	return s.closing.Load()
}

func (s *wsSession) live() bool {
	return s.t.current() == s
}

// close asks the session to end with reason. An open session says goodbye
// to the server first.
func (s *wsSession) close(reason string) {
	s.closeOnce.Do(func() {
		s.closeReason = reason
		s.closing.Store(true)

		if !s.opened.Load() {
			s.cancel()
			return
		}
		select {
		case s.send <- closeFrame:
		default:
			s.cancel()
		}
	})
}

var closeFrame = &message.Message{Type: message.MTText, Data: []byte{engineClose}}

func (s *wsSession) write(msg *message.Message) {
	select {
	case s.send <- msg:
	default:
		s.logger.Warnf("send buffer full, dropping %d bytes", len(msg.Data))
	}
}

func (s *wsSession) run(ctx context.Context) {
	defer s.cancel()

	client := s.t.client
	err := s.open(ctx)
	if err != nil {
		if !s.release() {
			return
		}
		if !s.isClosing() {
			client.OnError(err.Error())
		}
		client.OnClose(s.reason(err))
		return
	}

	s.opened.Store(true)
	client.OnOpen("Connect")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.readLoop(gctx) })
	g.Go(func() error { return s.writeLoop(gctx) })
	if s.t.cfg.Version == V2 {
		g.Go(func() error { return s.pingLoop(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		return s.conn.Close()
	})
	err = g.Wait()

	if !s.release() {
		return
	}
	client.OnClose(s.reason(err))
}

func (s *wsSession) release() bool {
	return s.t.release(s)
}

func (s *wsSession) reason(err error) string {
	if s.isClosing() {
		return s.closeReason
	}
	switch {
	case errors.Is(err, errServerClose):
		return string(DRTransportClose)
	case err != nil:
		return err.Error()
	default:
		return string(DRTransportClose)
	}
}

func (s *wsSession) open(ctx context.Context) error {
	endpoint, err := s.t.endpoint()
	if err != nil {
		return err
	}

	conn, _, err := s.t.dialer.DialContext(ctx, endpoint, s.t.header())
	if err != nil {
		return errors.Wrapf(err, "dial %s", endpoint)
	}
	s.conn = conn

	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	mt, data, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return errors.Wrap(ErrHandshake, err.Error())
	}
	if mt != websocket.TextMessage || len(data) == 0 || data[0] != engineOpen {
		_ = conn.Close()
		return errors.Wrapf(ErrHandshake, "unexpected first frame %q", data)
	}
	if err := json.Unmarshal(data[1:], &s.handshake); err != nil {
		_ = conn.Close()
		return errors.Wrap(ErrHandshake, err.Error())
	}
	_ = conn.SetReadDeadline(time.Time{})

	s.logger.Debugf("handshake sid=%s pingInterval=%dms pingTimeout=%dms",
		s.handshake.SID, s.handshake.PingInterval, s.handshake.PingTimeout)
	return nil
}

func (s *wsSession) heartbeatWindow() time.Duration {
	return time.Duration(s.handshake.PingInterval+s.handshake.PingTimeout) * time.Millisecond
}

func (s *wsSession) readLoop(ctx context.Context) error {
	client := s.t.client
	for {
		if w := s.heartbeatWindow(); w > 0 {
			_ = s.conn.SetReadDeadline(time.Now().Add(w))
		}

		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return errors.New(string(DRPingTimeout))
			}
			return errors.Wrap(err, string(DRTransportError))
		}
		if !s.live() {
			continue
		}

		switch mt {
		case websocket.BinaryMessage:
			if s.t.cfg.Version == V2 && len(data) > 0 {
				data = data[1:]
			}
			client.OnBinaryMessage(data)
		case websocket.TextMessage:
			if len(data) == 0 {
				continue
			}
			switch data[0] {
			case engineMessage:
				client.OnTextMessage(string(data[1:]))
			case enginePing:
				s.write(&message.Message{Type: message.MTText, Data: append([]byte{enginePong}, data[1:]...)})
				client.OnPingSent()
				client.OnPongReceived()
			case enginePong:
				client.OnPongReceived()
			case engineClose:
				return errServerClose
			case engineNoop, engineUpgrade, engineOpen:
			default:
				s.logger.Debugf("unknown engine packet %q", data)
			}
		}
	}
}

func (s *wsSession) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))

			mt := websocket.TextMessage
			if msg.Type == message.MTBinary {
				mt = websocket.BinaryMessage
			}
			if err := s.conn.WriteMessage(mt, msg.Data); err != nil {
				return errors.Wrap(err, string(DRTransportError))
			}
			if msg == closeFrame {
				return errLocalClose
			}
		}
	}
}

// pingLoop drives the engine.io 3 heartbeat, where the client pings.
func (s *wsSession) pingLoop(ctx context.Context) error {
	interval := time.Duration(s.handshake.PingInterval) * time.Millisecond
	if interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.write(&message.Message{Type: message.MTText, Data: []byte{enginePing}})
			s.t.client.OnPingSent()
		}
	}
}
