package bus

import (
	"errors"
	"fmt"
	"reflect"
)

// InvocationOutcome is the explicit result of applying one consumer to one
// event. The source signaled "cancel me" by throwing a sentinel exception
// out of the consumer; this module's REDESIGN (per spec.md §9) makes that
// outcome a first-class return value instead, alongside Ok and Failed.
type InvocationOutcome int

const (
	Ok InvocationOutcome = iota
	CancelMe
	Failed
)

func (o InvocationOutcome) String() string {
	switch o {
	case Ok:
		return "ok"
	case CancelMe:
		return "cancel-me"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// ErrCancelConsumer is returned by a func(*Event) error consumer to request
// its own cancellation — the ergonomic equivalent of a consumer written as
// func(*Event) InvocationOutcome returning CancelMe directly.
var ErrCancelConsumer = errors.New("bus: consumer requests cancellation")

// Invocation is the result of one ConsumerInvoker.Invoke call.
type Invocation struct {
	Outcome InvocationOutcome
	Err     error
}

// ConsumerInvoker applies one registered consumer to one event, coercing
// the event's payload to whatever shape the consumer expects.
type ConsumerInvoker interface {
	Invoke(consumer any, ev *Event) Invocation
}

// ArgumentConvertingConsumerInvoker is the bus's default ConsumerInvoker.
// It recognizes four consumer shapes registered via Bus.On directly,
// func(*Event) InvocationOutcome, func(*Event) error, func(*Event), and
// func() — and falls back to reflection for a payload-only func(T), coercing
// the event's Data to T when assignable.
type ArgumentConvertingConsumerInvoker struct{}

// Invoke implements ConsumerInvoker. A panicking consumer is recovered and
// reported as Failed rather than propagating, so one misbehaving consumer
// never aborts routing to its siblings.
func (ArgumentConvertingConsumerInvoker) Invoke(consumer any, ev *Event) (result Invocation) {
	defer func() {
		if r := recover(); r != nil {
			result = Invocation{Outcome: Failed, Err: fmt.Errorf("bus: consumer panic: %v", r)}
		}
	}()

	switch c := consumer.(type) {
	case func(*Event) InvocationOutcome:
		return Invocation{Outcome: c(ev)}
	case func(*Event) error:
		if err := c(ev); err != nil {
			if errors.Is(err, ErrCancelConsumer) {
				return Invocation{Outcome: CancelMe}
			}
			return Invocation{Outcome: Failed, Err: err}
		}
		return Invocation{Outcome: Ok}
	case func(*Event):
		c(ev)
		return Invocation{Outcome: Ok}
	case func():
		c()
		return Invocation{Outcome: Ok}
	}

	return invokeReflective(consumer, ev)
}

func invokeReflective(consumer any, ev *Event) Invocation {
	v := reflect.ValueOf(consumer)
	if v.Kind() != reflect.Func {
		return Invocation{Outcome: Failed, Err: fmt.Errorf("bus: registered consumer is not callable: %T", consumer)}
	}

	t := v.Type()
	if t.NumIn() != 1 {
		return Invocation{Outcome: Failed, Err: fmt.Errorf("bus: unsupported consumer signature %T", consumer)}
	}

	argType := t.In(0)
	var arg reflect.Value
	if ev.Data == nil {
		arg = reflect.Zero(argType)
	} else {
		dataVal := reflect.ValueOf(ev.Data)
		if !dataVal.Type().AssignableTo(argType) {
			return Invocation{Outcome: Failed, Err: fmt.Errorf("bus: cannot coerce payload %T to consumer argument %s", ev.Data, argType)}
		}
		arg = dataVal
	}

	out := v.Call([]reflect.Value{arg})
	if len(out) == 1 {
		if errVal, ok := out[0].Interface().(error); ok && errVal != nil {
			if errors.Is(errVal, ErrCancelConsumer) {
				return Invocation{Outcome: CancelMe}
			}
			return Invocation{Outcome: Failed, Err: errVal}
		}
	}
	return Invocation{Outcome: Ok}
}
