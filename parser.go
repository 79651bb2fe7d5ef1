package sioclient

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strconv"

	"github.com/pkg/errors"
	"github.com/taogames/engine.igo/message"
)

type Parser interface {
	// Decode turns one text frame into a packet. Binary packets come back
	// with Attachments set and no Buffers; the caller collects them.
	Decode(data string) (*Packet, error)
	Encode(*Packet) ([]*message.Message, error)
	// Reconstruct replaces binary placeholders in a completed packet.
	Reconstruct(*Packet) error

	ParseEventName(*Packet) (string, error)
	ParseEventArgs([]any, []reflect.Type, bool) ([]reflect.Value, error)
}

var DefaultParser Parser = &defaultParser{}

type defaultParser struct{}

func (p *defaultParser) Decode(data string) (*Packet, error) {
	bs := []byte(data)
	i := 0
	packet := &Packet{}

	// Packet type
	if len(bs) == 0 {
		return nil, errors.Wrap(ErrInvalidPacket, "empty packet")
	}
	pt, err := ParsePacketType(bs[0])
	if err != nil {
		return nil, errors.Wrap(ErrInvalidPacket, err.Error())
	}
	packet.Type = pt
	i++

	// Num of attachments
	if pt.IsBinary() {
		begin := i
		for i < len(bs) && bs[i] != '-' {
			i++
		}
		if i == len(bs) {
			return nil, errors.Wrapf(ErrInvalidPacket, "binary packet without attachment count %q", data)
		}
		n, err := strconv.Atoi(string(bs[begin:i]))
		if err != nil || n < 0 {
			return nil, errors.Wrapf(ErrInvalidPacket, "attachment count %q", data)
		}
		packet.Attachments = n
		i++
	}

	// Namespace
	if i < len(bs) && bs[i] == '/' {
		begin := i
		for i < len(bs) && bs[i] != ',' {
			i++
		}
		packet.Namespace = string(bs[begin:i])
		if i < len(bs) {
			i++
		}
	} else {
		packet.Namespace = MainNamespace
	}

	// Id
	if i < len(bs) && isDigit(bs[i]) {
		begin := i
		for i < len(bs) && isDigit(bs[i]) {
			i++
		}
		id, err := strconv.Atoi(string(bs[begin:i]))
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidPacket, "packet id %q", data)
		}
		packet.ID = &id
	}

	// Data
	if len(bs[i:]) > 0 {
		var payload any
		dec := json.NewDecoder(bytes.NewReader(bs[i:]))
		dec.UseNumber()
		if err := dec.Decode(&payload); err != nil {
			return nil, errors.Wrapf(ErrInvalidPacket, "payload: %v", err)
		}
		if dec.More() {
			return nil, errors.Wrapf(ErrInvalidPacket, "trailing payload %q", data)
		}

		if !p.isPayloadValid(packet.Type, payload) {
			return nil, errors.Wrapf(ErrInvalidPacket, "payload %q", data)
		}
		if arr, ok := payload.([]any); ok {
			packet.Data = arr
		} else {
			packet.Data = []any{payload}
		}
	} else if !p.isEmptyPayloadValid(packet.Type) {
		return nil, errors.Wrapf(ErrInvalidPacket, "missing payload %q", data)
	}

	return packet, nil
}

func (p *defaultParser) isPayloadValid(pt PacketType, payload any) bool {
	switch pt {
	case PacketConnect:
		_, ok := payload.(map[string]any)
		return ok
	case PacketDisconnect:
		return false
	case PacketConnectError:
		switch payload.(type) {
		case map[string]any, string:
			return true
		}
		return false
	case PacketEvent, PacketBinaryEvent:
		arr, ok := payload.([]any)
		if !ok || len(arr) == 0 {
			return false
		}
		_, ok = arr[0].(string)
		return ok
	case PacketAck, PacketBinaryAck:
		_, ok := payload.([]any)
		return ok
	default:
		return false
	}
}

func (p *defaultParser) isEmptyPayloadValid(pt PacketType) bool {
	return pt == PacketConnect || pt == PacketDisconnect || pt == PacketConnectError
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

type binaryPlaceholder struct {
	Placeholder bool `json:"_placeholder"`
	Num         int  `json:"num"`
}

func (p *defaultParser) Encode(packet *Packet) ([]*message.Message, error) {
	msgs := make([]*message.Message, 1)

	var buffer bytes.Buffer

	pt := packet.Type
	data := packet.Data
	var buffers [][]byte

	// Type & Bin
	switch pt {
	case PacketEvent, PacketBinaryEvent:
		if len(data) == 0 {
			return nil, errors.Wrapf(ErrInvalidPacket, "event packet without name: %v", packet)
		}
		if _, ok := data[0].(string); !ok {
			return nil, errors.Wrapf(ErrInvalidPacket, "event packet name: %v", packet)
		}
		fallthrough
	case PacketAck, PacketBinaryAck:
		data, buffers = extractBinary(data)
		if len(buffers) > 0 {
			if pt == PacketEvent || pt == PacketBinaryEvent {
				pt = PacketBinaryEvent
			} else {
				pt = PacketBinaryAck
			}
		} else if pt == PacketBinaryEvent {
			pt = PacketEvent
		} else if pt == PacketBinaryAck {
			pt = PacketAck
		}
	}
	buffer.WriteByte(pt.Byte())
	if pt.IsBinary() {
		buffer.WriteString(strconv.Itoa(len(buffers)))
		buffer.WriteByte('-')
	}

	// Nsp
	if packet.Namespace != "" && packet.Namespace != MainNamespace {
		buffer.WriteString(packet.Namespace)
		buffer.WriteByte(',')
	}

	// Ack
	if packet.ID != nil {
		buffer.WriteString(strconv.Itoa(*packet.ID))
	}

	// Data
	switch pt {
	case PacketEvent, PacketBinaryEvent, PacketAck, PacketBinaryAck:
		if data == nil {
			data = []any{}
		}
		bs, err := json.Marshal(data)
		if err != nil {
			return nil, errors.Wrap(err, "marshal packet data")
		}
		buffer.Write(bs)
	case PacketConnect, PacketConnectError:
		if len(data) > 0 && data[0] != nil {
			bs, err := json.Marshal(data[0])
			if err != nil {
				return nil, errors.Wrap(err, "marshal packet data")
			}
			buffer.Write(bs)
		}
	}

	// Build
	msgs[0] = &message.Message{Type: message.MTText, Data: buffer.Bytes()}
	for _, bs := range buffers {
		msgs = append(msgs, &message.Message{Type: message.MTBinary, Data: bs})
	}

	return msgs, nil
}

// extractBinary copies data, swapping every []byte for a placeholder.
func extractBinary(data []any) ([]any, [][]byte) {
	var buffers [][]byte
	var walk func(v any) any
	walk = func(v any) any {
		switch t := v.(type) {
		case []byte:
			ph := &binaryPlaceholder{Placeholder: true, Num: len(buffers)}
			buffers = append(buffers, t)
			return ph
		case []any:
			out := make([]any, len(t))
			for i := range t {
				out[i] = walk(t[i])
			}
			return out
		case map[string]any:
			out := make(map[string]any, len(t))
			for k, e := range t {
				out[k] = walk(e)
			}
			return out
		default:
			return v
		}
	}

	out := make([]any, len(data))
	for i := range data {
		out[i] = walk(data[i])
	}
	return out, buffers
}

func (p *defaultParser) Reconstruct(packet *Packet) error {
	var err error
	var walk func(v any) any
	walk = func(v any) any {
		switch t := v.(type) {
		case []any:
			for i := range t {
				t[i] = walk(t[i])
			}
			return t
		case map[string]any:
			if isPlaceholder(t) {
				num, ok := placeholderNum(t["num"])
				if !ok || num < 0 || num >= len(packet.Buffers) {
					err = errors.Wrapf(ErrInvalidPacket, "placeholder %v out of %d buffers", t["num"], len(packet.Buffers))
					return t
				}
				return packet.Buffers[num]
			}
			for k, e := range t {
				t[k] = walk(e)
			}
			return t
		default:
			return v
		}
	}

	for i := range packet.Data {
		packet.Data[i] = walk(packet.Data[i])
	}
	return err
}

func isPlaceholder(m map[string]any) bool {
	b, ok := m["_placeholder"].(bool)
	return ok && b
}

func placeholderNum(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}

func (p *defaultParser) ParseEventName(packet *Packet) (string, error) {
	if len(packet.Data) > 0 {
		name, ok := packet.Data[0].(string)
		if ok {
			return name, nil
		}
	}
	return "", errors.Wrapf(ErrInvalidPacket, "no event name: %v", packet)
}

// ParseEventArgs converts decoded values into the handler's parameter types.
// Extra values are ignored, missing ones become zero values.
func (p *defaultParser) ParseEventArgs(values []any, types []reflect.Type, isVariadic bool) ([]reflect.Value, error) {
	args := make([]reflect.Value, 0, len(types))

	fixed := len(types)
	if isVariadic {
		fixed--
	}

	for i := 0; i < fixed; i++ {
		if i >= len(values) {
			args = append(args, reflect.Zero(types[i]))
			continue
		}
		v, err := convertArg(values[i], types[i])
		if err != nil {
			return nil, errors.Wrapf(err, "event arg %d", i)
		}
		args = append(args, v)
	}

	if isVariadic {
		elem := types[len(types)-1].Elem()
		for i := fixed; i < len(values); i++ {
			v, err := convertArg(values[i], elem)
			if err != nil {
				return nil, errors.Wrapf(err, "event arg %d", i)
			}
			args = append(args, v)
		}
	}

	return args, nil
}

var bytesType = reflect.TypeOf([]byte(nil))

func convertArg(value any, t reflect.Type) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(t) && (t.Kind() != reflect.Interface || rv.Type() != reflect.TypeOf(json.Number(""))) {
		return rv, nil
	}
	if t == bytesType {
		if bs, ok := value.([]byte); ok {
			return reflect.ValueOf(bs), nil
		}
	}

	data, err := json.Marshal(value)
	if err != nil {
		return reflect.Value{}, err
	}
	ptr := reflect.New(t)
	if err := json.Unmarshal(data, ptr.Interface()); err != nil {
		return reflect.Value{}, err
	}
	return ptr.Elem(), nil
}
