package sandbox

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dop251/goja"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/startterm/startsh/core/logger"
)

// ErrPending is reported when a script returns a promise that never settles.
var ErrPending = errors.New("script returned a promise that never settled")

// Runner executes scripts, each in a fresh runtime.
type Runner struct {
	config Config
	policy *bluemonday.Policy
	log    *zap.Logger
}

// NewRunner creates a runner. A nil logger is replaced with a no-op logger.
func NewRunner(config Config, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultConfig()
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxCallStackSize <= 0 {
		config.MaxCallStackSize = defaults.MaxCallStackSize
	}
	if config.MessageBuffer <= 0 {
		config.MessageBuffer = defaults.MessageBuffer
	}

	return &Runner{
		config: config,
		policy: MarkupPolicy(),
		log:    logger,
	}
}

// MarkupPolicy allows only the markup the screen understands: styled spans
// and emphasis.
func MarkupPolicy() *bluemonday.Policy {
	policy := bluemonday.NewPolicy()
	policy.AllowElements("span", "b", "strong", "br")
	policy.AllowAttrs("class").Matching(regexp.MustCompile(`^term-[a-z]+$`)).OnElements("span")
	return policy
}

// Sanitize strips everything MarkupPolicy doesn't allow.
func (r *Runner) Sanitize(markup string) string {
	return r.policy.Sanitize(markup)
}

func wrapSource(source string) string {
	return "(function(st_api, args, pipedInput) {\n" + source + "\n})"
}

// Compile checks a script for syntax errors without running it.
func Compile(name, source string) error {
	_, err := goja.Compile(name, wrapSource(source), false)
	return err
}

// Run starts source with args and the piped input (nil when nothing was
// piped). Syntax errors are returned directly; everything else arrives on
// the channel, which ends with exactly one MessageResult or MessageError
// and is then closed.
func (r *Runner) Run(ctx context.Context, name, source string, args, piped []string) (<-chan Message, error) {
	prog, err := goja.Compile(name, wrapSource(source), false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	out := make(chan Message, r.config.MessageBuffer)
	go func() {
		defer close(out)

		lines, err := r.execute(ctx, prog, out, args, piped)
		if err != nil {
			r.log.Info(logger.MsgScriptFailed, zap.String("package", name), zap.Error(err))
			out <- Message{Kind: MessageError, Text: errorText(err)}
			return
		}
		out <- Message{Kind: MessageResult, Lines: lines}
	}()
	return out, nil
}

func (r *Runner) execute(ctx context.Context, prog *goja.Program, out chan<- Message, args, piped []string) ([]string, error) {
	vm := goja.New()
	vm.SetMaxCallStackSize(r.config.MaxCallStackSize)

	// A reader that went away must not wedge the script.
	emit := func(m Message) {
		select {
		case out <- m:
		case <-ctx.Done():
		}
	}
	r.setupGlobals(vm, emit)

	timer := time.NewTimer(r.config.Timeout)
	defer timer.Stop()
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-timer.C:
			vm.Interrupt("execution timeout exceeded")
		case <-ctx.Done():
			vm.Interrupt("context cancelled")
		case <-done:
		}
	}()

	fnValue, err := vm.RunProgram(prog)
	if err != nil {
		return nil, err
	}
	fn, ok := goja.AssertFunction(fnValue)
	if !ok {
		return nil, errors.New("script did not compile to a function")
	}

	var pipedValue goja.Value = goja.Null()
	if piped != nil {
		pipedValue = vm.ToValue(toInterfaces(piped))
	}
	result, err := fn(goja.Undefined(), r.api(vm, emit), vm.ToValue(toInterfaces(args)), pipedValue)
	if err != nil {
		return nil, err
	}

	// Promise jobs have already run by the time the call returns.
	if promise, ok := result.Export().(*goja.Promise); ok {
		switch promise.State() {
		case goja.PromiseStatePending:
			return nil, ErrPending
		case goja.PromiseStateRejected:
			return nil, errors.New(valueText(promise.Result()))
		}
		result = promise.Result()
	}
	return exportLines(result), nil
}

// setupGlobals removes host escape hatches and installs a console that
// writes lines.
func (r *Runner) setupGlobals(vm *goja.Runtime, emit func(Message)) {
	vm.Set("require", goja.Undefined())
	vm.Set("process", goja.Undefined())
	vm.Set("module", goja.Undefined())
	vm.Set("exports", goja.Undefined())

	noop := func(call goja.FunctionCall) goja.Value {
		return goja.Undefined()
	}
	vm.Set("setTimeout", noop)
	vm.Set("setInterval", noop)

	console := vm.NewObject()
	log := func(call goja.FunctionCall) goja.Value {
		parts := make([]string, 0, len(call.Arguments))
		for _, arg := range call.Arguments {
			parts = append(parts, arg.String())
		}
		emit(Message{Kind: MessageLine, Text: strings.Join(parts, " ")})
		return goja.Undefined()
	}
	console.Set("log", log)
	console.Set("info", log)
	console.Set("warn", log)
	console.Set("error", log)
	vm.Set("console", console)
}

// api builds the st_api bridge object.
func (r *Runner) api(vm *goja.Runtime, emit func(Message)) *goja.Object {
	api := vm.NewObject()
	api.Set("writeLine", func(call goja.FunctionCall) goja.Value {
		emit(Message{Kind: MessageLine, Text: call.Argument(0).String()})
		return goja.Undefined()
	})
	api.Set("writeHtml", func(call goja.FunctionCall) goja.Value {
		emit(Message{Kind: MessageMarkup, Text: r.Sanitize(call.Argument(0).String())})
		return goja.Undefined()
	})
	return api
}

func toInterfaces(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

// exportLines converts a script's return value into output lines. Arrays
// give one line per element, anything else is split on newlines.
func exportLines(v goja.Value) []string {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}

	switch exported := v.Export().(type) {
	case []interface{}:
		lines := make([]string, 0, len(exported))
		for _, item := range exported {
			lines = append(lines, fmt.Sprint(item))
		}
		return lines
	default:
		return strings.Split(v.String(), "\n")
	}
}

func valueText(v goja.Value) string {
	if obj, ok := v.(*goja.Object); ok {
		if msg := obj.Get("message"); msg != nil && !goja.IsUndefined(msg) {
			return msg.String()
		}
	}
	if v == nil {
		return "undefined"
	}
	return v.String()
}

func errorText(err error) string {
	var exc *goja.Exception
	if errors.As(err, &exc) {
		return valueText(exc.Value())
	}
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return fmt.Sprint(interrupted.Value())
	}
	return err.Error()
}
