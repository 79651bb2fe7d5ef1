package sioclient

import (
	"fmt"
	"reflect"
	"sync"
)

// AckFunc answers an event that asked for an acknowledgement.
type AckFunc = func(...any)

var ackFuncType = reflect.TypeOf(AckFunc(nil))

type EventManager struct {
	mu sync.RWMutex
	m  map[string]*handler
}

func newEventManager() *EventManager {
	return &EventManager{m: make(map[string]*handler)}
}

type handler struct {
	f        reflect.Value
	types    []reflect.Type
	variadic bool
	// wantsAck is set when the last parameter is an AckFunc.
	wantsAck bool
}

func newHandler(h any) *handler {
	rv := reflect.ValueOf(h)
	if rv.Kind() != reflect.Func {
		panic(fmt.Sprintln("reflect kind is ", rv.Kind()))
	}

	rt := rv.Type()
	types := make([]reflect.Type, rt.NumIn())
	for i := 0; i < rt.NumIn(); i++ {
		types[i] = rt.In(i)
	}

	hd := &handler{
		f:        rv,
		types:    types,
		variadic: rt.IsVariadic(),
	}
	if n := len(types); n > 0 && !hd.variadic && types[n-1] == ackFuncType {
		hd.wantsAck = true
	}
	return hd
}

func (eh *EventManager) Register(eName string, h any) {
	hd := newHandler(h)

	eh.mu.Lock()
	eh.m[eName] = hd
	eh.mu.Unlock()
}

func (eh *EventManager) Remove(eName string) {
	eh.mu.Lock()
	delete(eh.m, eName)
	eh.mu.Unlock()
}

func (eh *EventManager) GetHandler(eName string) *handler {
	eh.mu.RLock()
	defer eh.mu.RUnlock()
	return eh.m[eName]
}

// call converts values to the handler's parameter types and invokes it.
// ack is passed as the last argument when the handler asks for one; a
// handler asking for an ack on an event without one gets a no-op.
func (h *handler) call(parser Parser, values []any, ack AckFunc) error {
	types := h.types
	if h.wantsAck {
		types = types[:len(types)-1]
	}

	args, err := parser.ParseEventArgs(values, types, h.variadic)
	if err != nil {
		return err
	}

	if h.wantsAck {
		if ack == nil {
			ack = func(...any) {}
		}
		args = append(args, reflect.ValueOf(ack))
	}

	h.f.Call(args)
	return nil
}
