// Package dispatch routes incoming OPC UA method calls to mixer state
// transitions through a static table built at registration time.
package dispatch

import (
	"github.com/awcullen/opcua/server"
	"github.com/awcullen/opcua/ua"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Handler performs the state transition behind a mixer method. Handlers are
// argument-less and cannot fail; idempotent transitions are no-ops.
type Handler func()

// Dispatcher validates incoming calls against the owning object and the
// registered method table. Binding is checked when a method is registered,
// not resolved per call.
type Dispatcher struct {
	owner    ua.NodeID
	handlers map[ua.NodeID]Handler
	logger   *logrus.Logger
}

func New(owner ua.NodeID, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		owner:    owner,
		handlers: make(map[ua.NodeID]Handler),
		logger:   logger,
	}
}

// Register records the handler in the method table and attaches the
// dispatcher to the method node. Registering a nil handler or the same
// method twice is an error.
func (d *Dispatcher) Register(node *server.MethodNode, h Handler) error {
	if node == nil {
		return errors.New("dispatch: nil method node")
	}
	if h == nil {
		return errors.Errorf("dispatch: nil handler for method %s", node.NodeID())
	}
	if _, ok := d.handlers[node.NodeID()]; ok {
		return errors.Errorf("dispatch: method %s already registered", node.NodeID())
	}
	d.handlers[node.NodeID()] = h
	node.SetCallMethodHandler(d.Call)
	return nil
}

// Call validates the request and runs the registered handler. The methods
// carry no input or output arguments; a call that targets an object other
// than the owning mixer is rejected.
func (d *Dispatcher) Call(session *server.Session, req ua.CallMethodRequest) ua.CallMethodResult {
	if len(req.InputArguments) > 0 {
		return ua.CallMethodResult{StatusCode: ua.BadTooManyArguments}
	}
	if req.ObjectID != d.owner {
		d.logger.WithFields(logrus.Fields{
			"object": req.ObjectID,
			"method": req.MethodID,
		}).Warn("Method call with mismatched parent object")
		return ua.CallMethodResult{StatusCode: ua.BadMethodInvalid}
	}
	h, ok := d.handlers[req.MethodID]
	if !ok {
		return ua.CallMethodResult{StatusCode: ua.BadMethodInvalid}
	}
	h()
	return ua.CallMethodResult{}
}
