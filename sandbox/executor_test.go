package sandbox

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func sampleRequest() RequestSpec {
	return RequestSpec{
		Method: "POST",
		URL:    "https://api.example.com/users",
		Headers: map[string]string{
			"Accept":       "application/json",
			"Content-Type": "application/json",
		},
		Body: map[string]any{
			"name":   "alice",
			"age":    float64(30),
			"tags":   []any{"a", "b"},
			"active": true,
		},
	}
}

func newTestExecutor(t *testing.T, opts ...GojaExecutorOption) *GojaExecutor {
	t.Helper()
	return NewGojaExecutor(zaptest.NewLogger(t), DefaultConfig(), opts...)
}

func newShortExecutor(t *testing.T, timeout time.Duration) *GojaExecutor {
	t.Helper()
	cfg := DefaultConfig()
	cfg.TimeoutMs = int(timeout / time.Millisecond)
	return NewGojaExecutor(zaptest.NewLogger(t), cfg)
}

func requireSuccess(t *testing.T, result ExecutionResult) *Success {
	t.Helper()
	require.Nil(t, result.Failure, "unexpected failure: %+v", result.Failure)
	require.NotNil(t, result.Success)
	require.True(t, result.Succeeded())
	require.NoError(t, result.Err())
	return result.Success
}

func requireFailure(t *testing.T, result ExecutionResult, kind ErrorKind) *Failure {
	t.Helper()
	require.Nil(t, result.Success, "expected failure, got success: %+v", result.Success)
	require.NotNil(t, result.Failure)
	require.False(t, result.Succeeded())
	require.Error(t, result.Err())
	assert.Equal(t, kind, result.Failure.Kind)
	assert.NotEmpty(t, result.Failure.Message)
	return result.Failure
}

func TestExecuteEmptyScript(t *testing.T) {
	executor := newTestExecutor(t)

	for _, script := range []string{"", "   ", "\n\t"} {
		t.Run(fmt.Sprintf("%q", script), func(t *testing.T) {
			success := requireSuccess(t, executor.Execute(context.Background(), script, sampleRequest()))
			assert.Equal(t, sampleRequest(), success.Request)
			assert.Equal(t, Environment{}, success.Environment)
		})
	}

	t.Run("DefaultsMethod", func(t *testing.T) {
		req := RequestSpec{URL: "https://example.com"}
		success := requireSuccess(t, executor.Execute(context.Background(), "", req))
		assert.Equal(t, DefaultMethod, success.Request.Method)
		assert.NotNil(t, success.Request.Headers)
	})
}

func TestExecuteReadOnlyScript(t *testing.T) {
	executor := newTestExecutor(t)
	script := `
		var method = request.method;
		var accept = request.headers["Accept"];
		var name = request.data.name;
		var alias = request.body.tags.length;
		if (method !== "POST" || accept !== "application/json" || name !== "alice" || alias !== 2) {
			throw new Error("unexpected request view");
		}
	`

	success := requireSuccess(t, executor.Execute(context.Background(), script, sampleRequest()))
	assert.Equal(t, sampleRequest(), success.Request)
	assert.Empty(t, success.Environment)
}

func TestExecuteMutations(t *testing.T) {
	executor := newTestExecutor(t)

	t.Run("URL", func(t *testing.T) {
		success := requireSuccess(t, executor.Execute(context.Background(), `request.url = "X"`, sampleRequest()))

		want := sampleRequest()
		want.URL = "X"
		assert.Equal(t, want, success.Request)
	})

	t.Run("MethodVerbatim", func(t *testing.T) {
		success := requireSuccess(t, executor.Execute(context.Background(), `request.method = "patch"`, sampleRequest()))
		assert.Equal(t, "patch", success.Request.Method)
	})

	t.Run("EmptyMethodFallsBackToGET", func(t *testing.T) {
		success := requireSuccess(t, executor.Execute(context.Background(), `request.method = ""`, sampleRequest()))
		assert.Equal(t, DefaultMethod, success.Request.Method)
	})

	t.Run("Headers", func(t *testing.T) {
		script := `
			request.headers["Authorization"] = "Bearer " + "abc";
			request.headers["X-Retry"] = 3;
			request.headers["X-Flags"] = { debug: true };
			request.headers["X-Dropped"] = undefined;
			delete request.headers["Accept"];
		`
		success := requireSuccess(t, executor.Execute(context.Background(), script, sampleRequest()))
		assert.Equal(t, map[string]string{
			"Content-Type":  "application/json",
			"Authorization": "Bearer abc",
			"X-Retry":       "3",
			"X-Flags":       `{"debug":true}`,
		}, success.Request.Headers)
	})

	t.Run("BodyThroughData", func(t *testing.T) {
		success := requireSuccess(t, executor.Execute(context.Background(), `request.data.age = 31; request.data.extra = [1, "two"]`, sampleRequest()))
		assert.Equal(t, map[string]any{
			"name":   "alice",
			"age":    float64(31),
			"tags":   []any{"a", "b"},
			"active": true,
			"extra":  []any{float64(1), "two"},
		}, success.Request.Body)
	})

	t.Run("BodyThroughAlias", func(t *testing.T) {
		success := requireSuccess(t, executor.Execute(context.Background(), `request.body = { replaced: true }`, sampleRequest()))
		assert.Equal(t, map[string]any{"replaced": true}, success.Request.Body)
	})

	t.Run("BodyRemoved", func(t *testing.T) {
		success := requireSuccess(t, executor.Execute(context.Background(), `request.data = null`, sampleRequest()))
		assert.Nil(t, success.Request.Body)
	})

	t.Run("StringBody", func(t *testing.T) {
		success := requireSuccess(t, executor.Execute(context.Background(), `request.data = "raw=1&b=2"`, sampleRequest()))
		assert.Equal(t, "raw=1&b=2", success.Request.Body)
	})

	t.Run("RequestReplaced", func(t *testing.T) {
		success := requireSuccess(t, executor.Execute(context.Background(), `request = { url: "https://other.example.com" }`, sampleRequest()))
		assert.Equal(t, RequestSpec{
			Method:  DefaultMethod,
			URL:     "https://other.example.com",
			Headers: map[string]string{},
		}, success.Request)
	})

	t.Run("CallerRequestUntouched", func(t *testing.T) {
		req := sampleRequest()
		requireSuccess(t, executor.Execute(context.Background(), `request.headers["X-New"] = "1"; request.data.name = "bob"`, req))
		assert.Equal(t, sampleRequest(), req)
	})
}

func TestExecuteHeadersCoercion(t *testing.T) {
	executor := newTestExecutor(t)

	for name, script := range map[string]string{
		"String":   `request.headers = "not headers"`,
		"Number":   `request.headers = 42`,
		"Array":    `request.headers = ["a", "b"]`,
		"Function": `request.headers = function () {}`,
		"Null":     `request.headers = null`,
		"Deleted":  `delete request.headers`,
	} {
		t.Run(name, func(t *testing.T) {
			success := requireSuccess(t, executor.Execute(context.Background(), script, sampleRequest()))
			require.NotNil(t, success.Request.Headers)
			assert.Empty(t, success.Request.Headers)
		})
	}
}

func TestExecuteEnvironment(t *testing.T) {
	executor := newTestExecutor(t)

	t.Run("PropertyAssignment", func(t *testing.T) {
		success := requireSuccess(t, executor.Execute(context.Background(), `environment.token = "abc"`, sampleRequest()))
		assert.Equal(t, Environment{"token": "abc"}, success.Environment)
	})

	t.Run("MapHelpers", func(t *testing.T) {
		script := `
			environment.set("count", 2);
			environment.set("user", { id: 7 });
			environment.set("temp", "x");
			environment.delete("temp");
			if (!environment.has("count") || environment.get("count") !== 2) {
				throw new Error("helpers broken");
			}
		`
		success := requireSuccess(t, executor.Execute(context.Background(), script, sampleRequest()))
		assert.Equal(t, Environment{"count": "2", "user": `{"id":7}`}, success.Environment)
	})

	t.Run("DropsNullAndFunctions", func(t *testing.T) {
		script := `environment.a = null; environment.b = undefined; environment.c = function () {}; environment.d = false`
		success := requireSuccess(t, executor.Execute(context.Background(), script, sampleRequest()))
		assert.Equal(t, Environment{"d": "false"}, success.Environment)
	})

	t.Run("ReplacedWithMap", func(t *testing.T) {
		success := requireSuccess(t, executor.Execute(context.Background(), `environment = new Map([["k", "v"], ["n", 1]])`, sampleRequest()))
		assert.Equal(t, Environment{"k": "v", "n": "1"}, success.Environment)
	})

	t.Run("Clear", func(t *testing.T) {
		success := requireSuccess(t, executor.Execute(context.Background(), `environment.a = "1"; environment.clear()`, sampleRequest()))
		assert.Empty(t, success.Environment)
	})

	t.Run("NotSharedBetweenCalls", func(t *testing.T) {
		requireSuccess(t, executor.Execute(context.Background(), `environment.leak = "yes"`, sampleRequest()))
		success := requireSuccess(t, executor.Execute(context.Background(), `if (environment.leak) { throw new Error("leaked") }`, sampleRequest()))
		assert.Empty(t, success.Environment)
	})
}

func TestExecuteFailures(t *testing.T) {
	executor := newTestExecutor(t)

	t.Run("SyntaxError", func(t *testing.T) {
		failure := requireFailure(t, executor.Execute(context.Background(), `request.url = ;`, sampleRequest()), ErrorKindSyntax)
		assert.Contains(t, failure.Message, "SyntaxError")
	})

	t.Run("UndefinedVariable", func(t *testing.T) {
		failure := requireFailure(t, executor.Execute(context.Background(), `undefinedVariable.foo = 1`, sampleRequest()), ErrorKindRuntime)
		assert.Contains(t, failure.Message, "undefinedVariable is not defined")
		assert.True(t, strings.HasPrefix(failure.Message, "ReferenceError"))
	})

	t.Run("PartialMutationDiscarded", func(t *testing.T) {
		result := executor.Execute(context.Background(), `request.url = "changed"; environment.x = "1"; throw new Error("boom")`, sampleRequest())
		failure := requireFailure(t, result, ErrorKindRuntime)
		assert.Equal(t, "Error: boom", failure.Message)
		assert.Nil(t, result.Success)
	})

	t.Run("ThrownPrimitive", func(t *testing.T) {
		failure := requireFailure(t, executor.Execute(context.Background(), `throw "plain"`, sampleRequest()), ErrorKindRuntime)
		assert.Equal(t, "Uncaught plain", failure.Message)
	})

	t.Run("CyclicBody", func(t *testing.T) {
		failure := requireFailure(t, executor.Execute(context.Background(), `var o = {}; o.self = o; request.data = o`, sampleRequest()), ErrorKindRuntime)
		assert.Contains(t, failure.Message, "not JSON-serializable")
	})

	t.Run("StackOverflow", func(t *testing.T) {
		result := executor.Execute(context.Background(), `function f() { return f() + 1 } f()`, sampleRequest())
		require.NotNil(t, result.Failure)
		assert.NotEmpty(t, result.Failure.Message)
	})

	t.Run("ScriptTooLarge", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.MaxScriptSizeKB = 1
		small := NewGojaExecutor(zaptest.NewLogger(t), cfg)

		script := "// " + strings.Repeat("x", 2*BytesPerKB)
		failure := requireFailure(t, small.Execute(context.Background(), script, sampleRequest()), ErrorKindInvalid)
		assert.Contains(t, failure.Message, "exceeds limit")
	})
}

func TestExecuteCapabilitiesAbsent(t *testing.T) {
	executor := newTestExecutor(t)

	tests := map[string]string{
		"require":        `require("fs").readFileSync("/etc/passwd")`,
		"process":        `process.exit(1)`,
		"fetch":          `fetch("http://127.0.0.1/")`,
		"XMLHttpRequest": `new XMLHttpRequest()`,
		"setInterval":    `setInterval(function () {}, 10)`,
	}

	for name, script := range tests {
		t.Run(name, func(t *testing.T) {
			failure := requireFailure(t, executor.Execute(context.Background(), script, sampleRequest()), ErrorKindRuntime)
			assert.Contains(t, failure.Message, name+" is not defined")
		})
	}
}

func TestExecuteTimeout(t *testing.T) {
	executor := newShortExecutor(t, 100*time.Millisecond)

	t.Run("InfiniteLoop", func(t *testing.T) {
		started := time.Now()
		result := executor.Execute(context.Background(), `while (true) { request.url = "spinning" }`, sampleRequest())
		elapsed := time.Since(started)

		failure := requireFailure(t, result, ErrorKindTimeout)
		assert.Equal(t, "Script execution timed out after 100ms", failure.Message)
		assert.Less(t, elapsed, 2*time.Second)
	})

	t.Run("PendingTimerBeyondBudget", func(t *testing.T) {
		result := executor.Execute(context.Background(), `setTimeout(function () { request.url = "late" }, 10000)`, sampleRequest())
		requireFailure(t, result, ErrorKindTimeout)
	})

	t.Run("LoopInGetterDuringReadback", func(t *testing.T) {
		script := `Object.defineProperty(request, "url", { get: function () { while (true) {} } })`
		requireFailure(t, executor.Execute(context.Background(), script, sampleRequest()), ErrorKindTimeout)
	})

	t.Run("BacktrackingRegexp", func(t *testing.T) {
		started := time.Now()
		result := executor.Execute(context.Background(), `/^(?=(a+)+b)/.test("a".repeat(30) + "c")`, sampleRequest())
		elapsed := time.Since(started)

		failure := requireFailure(t, result, ErrorKindTimeout)
		assert.Equal(t, "Script execution timed out after 100ms", failure.Message)
		assert.Less(t, elapsed, 2*time.Second)
	})

	t.Run("BacktrackingRegexpInLoop", func(t *testing.T) {
		started := time.Now()
		script := `for (;;) { /^(?=(a+)+b)/.test("a".repeat(30) + "c") }`
		result := executor.Execute(context.Background(), script, sampleRequest())

		requireFailure(t, result, ErrorKindTimeout)
		assert.Less(t, time.Since(started), 2*time.Second)
	})

	t.Run("DefaultBudget", func(t *testing.T) {
		assert.Equal(t, 5*time.Second, newTestExecutor(t).Timeout())
	})
}

func TestExecuteRegexpMatchCap(t *testing.T) {
	executor := newTestExecutor(t)

	t.Run("RunawayMatchReportsNoMatch", func(t *testing.T) {
		started := time.Now()
		script := `environment.matched = /^(?=(a+)+b)/.test("a".repeat(30) + "c")`
		success := requireSuccess(t, executor.Execute(context.Background(), script, sampleRequest()))

		assert.Equal(t, "false", success.Environment["matched"])
		assert.Less(t, time.Since(started), executor.Timeout())
	})

	t.Run("OrdinaryLookaheadStillMatches", func(t *testing.T) {
		script := `environment.matched = /^(?=.*\d)(\w+)-\1$/.test("ab1-ab1")`
		success := requireSuccess(t, executor.Execute(context.Background(), script, sampleRequest()))
		assert.Equal(t, "true", success.Environment["matched"])
	})
}

func TestExecuteContextCanceled(t *testing.T) {
	executor := newTestExecutor(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	started := time.Now()
	failure := requireFailure(t, executor.Execute(ctx, `for (;;) {}`, sampleRequest()), ErrorKindCanceled)
	assert.Contains(t, failure.Message, "canceled")
	assert.Less(t, time.Since(started), 2*time.Second)
}

func TestExecuteTimers(t *testing.T) {
	executor := newTestExecutor(t)

	t.Run("FireInDueOrder", func(t *testing.T) {
		script := `
			var order = [];
			setTimeout(function () { order.push("b"); environment.order = order.join(","); }, 20);
			setTimeout(function (tag) { order.push(tag); }, 5, "a");
		`
		success := requireSuccess(t, executor.Execute(context.Background(), script, sampleRequest()))
		assert.Equal(t, Environment{"order": "a,b"}, success.Environment)
	})

	t.Run("ClearTimeout", func(t *testing.T) {
		script := `var id = setTimeout(function () { environment.fired = "yes" }, 10); clearTimeout(id);`
		success := requireSuccess(t, executor.Execute(context.Background(), script, sampleRequest()))
		assert.Empty(t, success.Environment)
	})

	t.Run("MutationInCallbackIsReadBack", func(t *testing.T) {
		script := `setTimeout(function () { request.headers["X-Later"] = "1" }, 0)`
		success := requireSuccess(t, executor.Execute(context.Background(), script, sampleRequest()))
		assert.Equal(t, "1", success.Request.Headers["X-Later"])
	})

	t.Run("ThrowingCallback", func(t *testing.T) {
		failure := requireFailure(t, executor.Execute(context.Background(), `setTimeout(function () { throw new TypeError("late") }, 0)`, sampleRequest()), ErrorKindRuntime)
		assert.Equal(t, "TypeError: late", failure.Message)
	})

	t.Run("NonFunctionCallback", func(t *testing.T) {
		failure := requireFailure(t, executor.Execute(context.Background(), `setTimeout("code", 0)`, sampleRequest()), ErrorKindRuntime)
		assert.Contains(t, failure.Message, "callback must be a function")
	})
}

func TestExecuteBuffer(t *testing.T) {
	executor := newTestExecutor(t)

	script := `
		var basic = Buffer.from("user:pass").toString("base64");
		environment.basic = basic;
		environment.decoded = Buffer.from(basic, "base64").toString();
		environment.hex = Buffer.from("hi").toString("hex");
		environment.fromHex = Buffer.from("6869", "hex").toString("utf8");
		environment.bytes = Buffer.from([104, 105]).toString();
		environment.length = Buffer.byteLength("héllo");
		environment.isBuffer = Buffer.isBuffer(Buffer.from("x")) && !Buffer.isBuffer("x");
		environment.concat = Buffer.concat([Buffer.from("a"), Buffer.from("b")]).toString();
		environment.json = JSON.stringify(Buffer.from("hi"));
		request.headers.Authorization = "Basic " + basic;
	`
	success := requireSuccess(t, executor.Execute(context.Background(), script, sampleRequest()))

	assert.Equal(t, Environment{
		"basic":    "dXNlcjpwYXNz",
		"decoded":  "user:pass",
		"hex":      "6869",
		"fromHex":  "hi",
		"bytes":    "hi",
		"length":   "6",
		"isBuffer": "true",
		"concat":   "ab",
		"json":     `{"type":"Buffer","data":[104,105]}`,
	}, success.Environment)
	assert.Equal(t, "Basic dXNlcjpwYXNz", success.Request.Headers["Authorization"])

	t.Run("LenientDecoding", func(t *testing.T) {
		script := `
			environment.wrapped = Buffer.from("dXNl\ncjpw\r\nYXNz", "base64").toString();
			environment.junk = Buffer.from(" dXNlcjpwYXNz!!", "base64").toString();
			environment.padded = Buffer.from("aGk=trailing", "base64").toString();
			environment.urlSafe = Buffer.from("-_8", "base64").toString("hex");
			environment.loneChar = Buffer.from("aGkx0", "base64").toString();
			environment.badHex = Buffer.from("6869zz6a", "hex").toString();
			environment.oddHex = Buffer.from("686", "hex").toString();
		`
		success := requireSuccess(t, executor.Execute(context.Background(), script, sampleRequest()))

		assert.Equal(t, Environment{
			"wrapped":  "user:pass",
			"junk":     "user:pass",
			"padded":   "hi",
			"urlSafe":  "fbff",
			"loneChar": "hi1",
			"badHex":   "hi",
			"oddHex":   "h",
		}, success.Environment)
	})

	t.Run("UnknownEncoding", func(t *testing.T) {
		failure := requireFailure(t, executor.Execute(context.Background(), `Buffer.from("x", "utf32")`, sampleRequest()), ErrorKindRuntime)
		assert.Contains(t, failure.Message, "unknown encoding")
	})
}

func TestExecuteBuiltins(t *testing.T) {
	executor := newTestExecutor(t)

	script := `
		environment.now = String(Date.now() > 0);
		environment.max = Math.max(1, 5, 3);
		environment.parsed = JSON.parse('{"a":1}').a;
	`
	success := requireSuccess(t, executor.Execute(context.Background(), script, sampleRequest()))
	assert.Equal(t, Environment{"now": "true", "max": "5", "parsed": "1"}, success.Environment)
}

func TestExecuteConsole(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	executor := NewGojaExecutor(zap.New(core), DefaultConfig())

	script := `
		console.log("hello", { a: 1 }, 2);
		console.warn("careful");
		console.error(new Error("bad"));
	`
	result := executor.Execute(context.Background(), script, sampleRequest())
	requireSuccess(t, result)

	assert.Equal(t, []ConsoleLine{
		{Level: "log", Message: `hello {"a":1} 2`},
		{Level: "warn", Message: "careful"},
		{Level: "error", Message: "Error: bad"},
	}, result.Console)

	entries := logs.FilterMessage("script console").All()
	require.Len(t, entries, 3)
	assert.Equal(t, `hello {"a":1} 2`, entries[0].ContextMap()["console"])
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, "console", entries[0].LoggerName)

	t.Run("ReturnedOnFailure", func(t *testing.T) {
		result := executor.Execute(context.Background(), `console.log("before"); throw new Error("x")`, sampleRequest())
		require.NotNil(t, result.Failure)
		assert.Equal(t, []ConsoleLine{{Level: "log", Message: "before"}}, result.Console)
	})

	t.Run("Bounded", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.MaxConsoleLines = 2
		bounded := NewGojaExecutor(zaptest.NewLogger(t), cfg)

		result := bounded.Execute(context.Background(), `for (var i = 0; i < 5; i++) { console.log(i) }`, sampleRequest())
		requireSuccess(t, result)
		assert.Len(t, result.Console, 2)
	})
}

func TestExecuteRestrictedCapabilities(t *testing.T) {
	caps, err := CapabilitiesByName([]string{"console"})
	require.NoError(t, err)
	executor := newTestExecutor(t, WithCapabilities(caps...))

	requireSuccess(t, executor.Execute(context.Background(), `console.log("ok")`, sampleRequest()))

	failure := requireFailure(t, executor.Execute(context.Background(), `setTimeout(function () {}, 0)`, sampleRequest()), ErrorKindRuntime)
	assert.Contains(t, failure.Message, "setTimeout is not defined")

	t.Run("ForeignCapabilityRejected", func(t *testing.T) {
		foreign := newTestExecutor(t, WithCapabilities(Capability{Name: "fs"}))
		failure := requireFailure(t, foreign.Execute(context.Background(), `1`, sampleRequest()), ErrorKindRuntime)
		assert.Contains(t, failure.Message, "not part of the allow-list")
	})
}

func TestCapabilitiesByName(t *testing.T) {
	t.Run("All", func(t *testing.T) {
		caps, err := CapabilitiesByName([]string{"console", "TIMERS", " buffer ", "console"})
		require.NoError(t, err)
		require.Len(t, caps, 3)
		assert.Equal(t, CapabilityConsole, caps[0].Name)
		assert.Equal(t, []string{"setTimeout", "clearTimeout"}, caps[1].Globals)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := CapabilitiesByName([]string{"console", "fs"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown sandbox capability: "fs"`)
	})

	t.Run("DefaultIsCopy", func(t *testing.T) {
		caps := DefaultCapabilities()
		caps[0].Name = "mutated"
		assert.Equal(t, CapabilityConsole, DefaultCapabilities()[0].Name)
	})
}

func TestExecuteConcurrent(t *testing.T) {
	executor := newTestExecutor(t)

	const workers = 16
	var wg sync.WaitGroup
	results := make([]ExecutionResult, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			script := fmt.Sprintf(`request.url = "https://example.com/%d"; environment.worker = "%d"`, i, i)
			results[i] = executor.Execute(context.Background(), script, sampleRequest())
		}(i)
	}
	wg.Wait()

	for i, result := range results {
		success := requireSuccess(t, result)
		assert.Equal(t, fmt.Sprintf("https://example.com/%d", i), success.Request.URL)
		assert.Equal(t, Environment{"worker": fmt.Sprint(i)}, success.Environment)
	}
}

func TestNewGojaExecutorDefaults(t *testing.T) {
	executor := NewGojaExecutor(nil, nil)
	require.NotNil(t, executor)
	assert.NotNil(t, executor.logger)
	assert.Equal(t, DefaultConfig(), executor.config)
	assert.Len(t, executor.capabilities, 3)

	success := requireSuccess(t, executor.Execute(context.Background(), `request.url += "?x=1"`, RequestSpec{URL: "https://example.com"}))
	assert.Equal(t, "https://example.com?x=1", success.Request.URL)
}
