package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// Global bindings every script sees regardless of capabilities
const (
	requestBinding     = "request"
	environmentBinding = "environment"
)

// prelude adds the request.body alias and the Map-style helpers on the
// environment object. Helpers are non-enumerable so readback skips them.
const preludeSource = `(function (request, environment) {
	Object.defineProperty(request, "body", {
		get: function () { return this.data; },
		set: function (value) { this.data = value; },
		enumerable: false,
		configurable: true
	});
	var helpers = {
		get: function (key) { return this[String(key)]; },
		set: function (key, value) { this[String(key)] = value; return this; },
		has: function (key) { return Object.prototype.hasOwnProperty.call(this, String(key)); },
		delete: function (key) {
			key = String(key);
			if (!Object.prototype.hasOwnProperty.call(this, key)) { return false; }
			return delete this[key];
		},
		clear: function () {
			Object.keys(this).forEach(function (key) { delete this[key]; }, this);
		}
	};
	Object.keys(helpers).forEach(function (name) {
		Object.defineProperty(environment, name, { value: helpers[name], enumerable: false });
	});
})`

var preludeProgram = goja.MustCompile("prelude.js", preludeSource, true)

// scriptContext is the per-call evaluation context. Nothing in it outlives
// a single Execute call.
type scriptContext struct {
	vm     *goja.Runtime
	logger *zap.Logger
	config *Config

	// captured before user code runs so a script reassigning JSON cannot
	// break readback
	stringify goja.Callable
	parse     goja.Callable

	// JSON text of the seeded body, used to detect an untouched body
	seededBody string

	timers *timerQueue

	mu      sync.Mutex
	console []ConsoleLine
}

func newScriptContext(logger *zap.Logger, config *Config) *scriptContext {
	vm := goja.New()
	if config.MaxCallStackSize > 0 {
		vm.SetMaxCallStackSize(config.MaxCallStackSize)
	}

	return &scriptContext{
		vm:     vm,
		logger: logger,
		config: config,
		timers: newTimerQueue(),
	}
}

// install seeds request and environment and binds the capability allow-list
func (sc *scriptContext) install(caps []Capability, initial RequestSpec) error {
	jsonObj := sc.vm.Get("JSON").ToObject(sc.vm)
	stringify, ok := goja.AssertFunction(jsonObj.Get("stringify"))
	if !ok {
		return errors.New("JSON.stringify is not available")
	}
	parse, ok := goja.AssertFunction(jsonObj.Get("parse"))
	if !ok {
		return errors.New("JSON.parse is not available")
	}
	sc.stringify = stringify
	sc.parse = parse

	request, err := sc.newRequestObject(initial)
	if err != nil {
		return err
	}
	environment := sc.vm.NewObject()

	preludeValue, err := sc.vm.RunProgram(preludeProgram)
	if err != nil {
		return fmt.Errorf("prelude: %w", err)
	}
	prelude, ok := goja.AssertFunction(preludeValue)
	if !ok {
		return errors.New("prelude did not evaluate to a function")
	}
	if _, err := prelude(goja.Undefined(), request, environment); err != nil {
		return fmt.Errorf("prelude: %w", err)
	}

	if err := sc.vm.Set(requestBinding, request); err != nil {
		return fmt.Errorf("bind %s: %w", requestBinding, err)
	}
	if err := sc.vm.Set(environmentBinding, environment); err != nil {
		return fmt.Errorf("bind %s: %w", environmentBinding, err)
	}

	for _, c := range caps {
		if c.install == nil {
			return fmt.Errorf("capability %q is not part of the allow-list", c.Name)
		}
		if err := c.install(sc); err != nil {
			return fmt.Errorf("install capability %s: %w", c.Name, err)
		}
	}

	return nil
}

func (sc *scriptContext) newRequestObject(initial RequestSpec) (*goja.Object, error) {
	request := sc.vm.NewObject()
	if err := request.Set("method", initial.Method); err != nil {
		return nil, err
	}
	if err := request.Set("url", initial.URL); err != nil {
		return nil, err
	}

	headers := sc.vm.NewObject()
	for name, value := range initial.Headers {
		if err := headers.Set(name, value); err != nil {
			return nil, err
		}
	}
	if err := request.Set("headers", headers); err != nil {
		return nil, err
	}

	// The body is rebuilt inside the runtime from its JSON form so the
	// script never holds a reference to caller-owned Go values.
	body := goja.Null()
	if initial.Body != nil {
		raw, err := json.Marshal(initial.Body)
		if err != nil {
			return nil, fmt.Errorf("request body is not JSON-serializable: %w", err)
		}
		body, err = sc.parse(goja.Undefined(), sc.vm.ToValue(string(raw)))
		if err != nil {
			return nil, fmt.Errorf("decode request body: %w", err)
		}
		seeded, ok, err := sc.jsonString(body)
		if err != nil {
			return nil, err
		}
		if ok {
			sc.seededBody = seeded
		}
	}
	if err := request.Set("data", body); err != nil {
		return nil, err
	}

	return request, nil
}

// run evaluates the program, drains pending timers and reads back the
// request and environment. Everything here happens under the budget.
func (sc *scriptContext) run(ctx context.Context, program *goja.Program, initial RequestSpec) (req RequestSpec, env Environment, err error) {
	err = catch(func() error {
		if _, err := sc.vm.RunProgram(program); err != nil {
			return err
		}

		if err := sc.timers.drain(ctx, sc.fireTimer); err != nil {
			return err
		}

		// a capped regexp match can return after the deadline without
		// another instruction left to observe the interrupt
		if err := ctx.Err(); err != nil {
			return err
		}

		var readErr error
		req, readErr = sc.readRequest(initial)
		if readErr != nil {
			return readErr
		}

		env = sc.readEnvironment()
		return nil
	})
	return req, env, err
}

func (sc *scriptContext) fireTimer(t *timer) error {
	_, err := t.fn(goja.Undefined(), t.args...)
	return err
}

func (sc *scriptContext) readRequest(initial RequestSpec) (RequestSpec, error) {
	out := RequestSpec{
		Method:  DefaultMethod,
		Headers: map[string]string{},
	}

	obj, ok := sc.vm.Get(requestBinding).(*goja.Object)
	if !ok {
		sc.logger.Warn("request binding is not an object; using an empty request")
		return out, nil
	}

	if method := obj.Get("method"); !isMissing(method) {
		if s := method.String(); s != "" {
			out.Method = s
		}
	}

	if url := obj.Get("url"); !isMissing(url) {
		out.URL = url.String()
	}

	out.Headers = sc.readHeaders(obj.Get("headers"))

	body := obj.Get("data")
	if isMissing(body) {
		body = obj.Get("body")
	}
	if !isMissing(body) {
		raw, ok, err := sc.jsonString(body)
		if err != nil {
			return RequestSpec{}, &bodyError{err: err}
		}
		switch {
		case !ok:
			// functions and symbols have no JSON form
		case raw == sc.seededBody:
			out.Body = initial.Body
		default:
			var decoded any
			if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
				return RequestSpec{}, &bodyError{err: err}
			}
			out.Body = decoded
		}
	}

	return out, nil
}

// readHeaders coerces the headers value to a string map. A non-object
// value becomes an empty map.
func (sc *scriptContext) readHeaders(value goja.Value) map[string]string {
	headers := map[string]string{}

	obj, ok := value.(*goja.Object)
	if !ok || obj.ClassName() == "Array" || isFunction(obj) {
		if !isMissing(value) {
			sc.logger.Warn("request.headers is not an object; coercing to empty headers",
				zap.String("type", typeName(value)))
		}
		return headers
	}

	for _, name := range obj.Keys() {
		if s, ok := sc.coerceString(obj.Get(name)); ok {
			headers[name] = s
		}
	}

	return headers
}

func (sc *scriptContext) readEnvironment() Environment {
	env := Environment{}

	obj, ok := sc.vm.Get(environmentBinding).(*goja.Object)
	if !ok {
		return env
	}

	if obj.ClassName() == "Map" {
		if entries, ok := obj.Export().([][2]any); ok {
			for _, entry := range entries {
				key, ok := sc.coerceString(sc.vm.ToValue(entry[0]))
				if !ok {
					continue
				}
				if value, ok := sc.coerceString(sc.vm.ToValue(entry[1])); ok {
					env[key] = value
				}
			}
		}
		return env
	}

	for _, key := range obj.Keys() {
		if value, ok := sc.coerceString(obj.Get(key)); ok {
			env[key] = value
		}
	}

	return env
}

// coerceString converts a value crossing the boundary into a string.
// undefined, null and functions are dropped.
func (sc *scriptContext) coerceString(value goja.Value) (string, bool) {
	if isMissing(value) {
		return "", false
	}

	obj, ok := value.(*goja.Object)
	if !ok {
		return value.String(), true
	}
	if isFunction(obj) {
		return "", false
	}

	raw, ok, err := sc.jsonString(obj)
	if err != nil || !ok {
		return obj.String(), true
	}
	return raw, true
}

// jsonString runs the captured JSON.stringify. ok is false when the value
// has no JSON representation.
func (sc *scriptContext) jsonString(value goja.Value) (string, bool, error) {
	out, err := sc.stringify(goja.Undefined(), value)
	if err != nil {
		return "", false, err
	}
	if isMissing(out) {
		return "", false, nil
	}
	return out.String(), true, nil
}

// describe renders an evaluation error as "Name: message"
func (sc *scriptContext) describe(err error) (msg string) {
	fallback := "Uncaught exception"
	defer func() {
		if r := recover(); r != nil {
			msg = fallback
		}
	}()

	var bodyErr *bodyError
	if errors.As(err, &bodyErr) {
		return bodyErr.Error()
	}

	var exception *goja.Exception
	if !errors.As(err, &exception) {
		return err.Error()
	}

	value := exception.Value()
	if obj, ok := value.(*goja.Object); ok {
		message := obj.Get("message")
		if !isMissing(message) {
			name := obj.Get("name")
			if !isMissing(name) && name.String() != "" {
				return name.String() + ": " + message.String()
			}
			return message.String()
		}
	}
	if isMissing(value) {
		return strings.TrimSpace(exception.Error())
	}
	return "Uncaught " + value.String()
}

func (sc *scriptContext) appendConsole(level, message string) bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.config.MaxConsoleLines > 0 && len(sc.console) >= sc.config.MaxConsoleLines {
		return false
	}
	sc.console = append(sc.console, ConsoleLine{Level: level, Message: message})
	return true
}

func (sc *scriptContext) consoleLines() []ConsoleLine {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if len(sc.console) == 0 {
		return nil
	}
	lines := make([]ConsoleLine, len(sc.console))
	copy(lines, sc.console)
	return lines
}

// bodyError reports a request body that cannot cross the boundary
type bodyError struct {
	err error
}

func (e *bodyError) Error() string {
	return fmt.Sprintf("request body is not JSON-serializable: %v", e.err)
}

func (e *bodyError) Unwrap() error {
	return e.err
}

// catch converts panics raised through goja's Go API into errors
func catch(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			err = fmt.Errorf("%v", r)
		}
	}()
	return fn()
}

func isMissing(v goja.Value) bool {
	return v == nil || goja.IsUndefined(v) || goja.IsNull(v)
}

func isFunction(obj *goja.Object) bool {
	_, ok := goja.AssertFunction(obj)
	return ok
}

func typeName(v goja.Value) string {
	if v == nil {
		return "undefined"
	}
	if obj, ok := v.(*goja.Object); ok {
		return obj.ClassName()
	}
	if t := v.ExportType(); t != nil {
		return t.String()
	}
	return "unknown"
}
