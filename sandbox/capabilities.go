package sandbox

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// Capability names
const (
	CapabilityConsole = "console"
	CapabilityTimers  = "timers"
	CapabilityBuffer  = "buffer"
)

// Capability is one entry of the allow-list of host bindings installed into
// a script context. The set is closed: callers choose among the built-in
// capabilities but cannot supply their own install functions.
//
// Date, Math and JSON are ECMAScript built-ins and are always present.
type Capability struct {
	Name    string
	Globals []string
	install func(sc *scriptContext) error
}

var builtinCapabilities = []Capability{
	{
		Name:    CapabilityConsole,
		Globals: []string{"console"},
		install: installConsole,
	},
	{
		Name:    CapabilityTimers,
		Globals: []string{"setTimeout", "clearTimeout"},
		install: installTimers,
	},
	{
		Name:    CapabilityBuffer,
		Globals: []string{"Buffer"},
		install: installBuffer,
	},
}

// DefaultCapabilities returns the full allow-list
func DefaultCapabilities() []Capability {
	caps := make([]Capability, len(builtinCapabilities))
	copy(caps, builtinCapabilities)
	return caps
}

// CapabilitiesByName selects capabilities from the allow-list. Unknown names
// are an error.
func CapabilitiesByName(names []string) ([]Capability, error) {
	caps := make([]Capability, 0, len(names))
	seen := make(map[string]bool, len(names))

	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if seen[name] {
			continue
		}

		found := false
		for _, c := range builtinCapabilities {
			if c.Name == name {
				caps = append(caps, c)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown sandbox capability: %q", name)
		}
		seen[name] = true
	}

	return caps, nil
}

// maxTimerDelayMs is the largest delay setTimeout honors
const maxTimerDelayMs = math.MaxInt32

// consoleLevels maps console methods onto zap levels
var consoleLevels = map[string]func(*zap.Logger, string, ...zap.Field){
	"log":   (*zap.Logger).Info,
	"info":  (*zap.Logger).Info,
	"debug": (*zap.Logger).Debug,
	"warn":  (*zap.Logger).Warn,
	"error": (*zap.Logger).Error,
}

func installConsole(sc *scriptContext) error {
	console := sc.vm.NewObject()
	logger := sc.logger.Named("console")

	for method, logFn := range consoleLevels {
		err := console.Set(method, func(call goja.FunctionCall) goja.Value {
			message := sc.formatConsoleArgs(call.Arguments)
			if sc.appendConsole(method, message) {
				logFn(logger, "script console", zap.String("method", method), zap.String("console", message))
			}
			return goja.Undefined()
		})
		if err != nil {
			return err
		}
	}

	return sc.vm.Set("console", console)
}

func (sc *scriptContext) formatConsoleArgs(args []goja.Value) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		if obj, ok := arg.(*goja.Object); ok && !isFunction(obj) && obj.ClassName() != "Error" {
			if raw, ok, err := sc.jsonString(obj); err == nil && ok {
				parts = append(parts, raw)
				continue
			}
		}
		if arg == nil {
			parts = append(parts, "undefined")
			continue
		}
		parts = append(parts, arg.String())
	}
	return strings.Join(parts, " ")
}

func installTimers(sc *scriptContext) error {
	setTimeout := func(call goja.FunctionCall) goja.Value {
		fn, ok := goja.AssertFunction(call.Argument(0))
		if !ok {
			panic(sc.vm.NewTypeError("setTimeout: callback must be a function"))
		}

		delay := call.Argument(1).ToFloat()
		switch {
		case math.IsNaN(delay) || delay < 0:
			delay = 0
		case delay > maxTimerDelayMs:
			// same as Node: out-of-range delays fire almost immediately
			delay = 1
		}

		var args []goja.Value
		if len(call.Arguments) > 2 {
			args = append(args, call.Arguments[2:]...)
		}

		id, ok := sc.timers.add(time.Duration(delay*float64(time.Millisecond)), fn, args)
		if !ok {
			panic(sc.vm.NewGoError(fmt.Errorf("setTimeout: more than %d pending timers", maxPendingTimers)))
		}
		return sc.vm.ToValue(id)
	}

	clearTimeout := func(call goja.FunctionCall) goja.Value {
		if id := call.Argument(0); !isMissing(id) {
			sc.timers.remove(id.ToInteger())
		}
		return goja.Undefined()
	}

	if err := sc.vm.Set("setTimeout", setTimeout); err != nil {
		return err
	}
	return sc.vm.Set("clearTimeout", clearTimeout)
}
