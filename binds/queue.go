package binds

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/reusee/slots/slotvm"
)

type eventKind uint8

const (
	eventCompile eventKind = iota + 1
	eventRuntime
	eventStackFrame
	eventForeignFrame
	eventForeign
)

type errorEvent struct {
	kind    eventKind
	module  string
	line    int
	message string
	err     error
}

// errorQueue collects VM error callbacks and foreign failures of the current run.
// It is only touched from the goroutine driving the VM.
type errorQueue struct {
	events []errorEvent
}

func (q *errorQueue) push(event errorEvent) {
	q.events = append(q.events, event)
}

func (q *errorQueue) pushVM(kind slotvm.ErrorType, module string, line int, message string) {
	event := errorEvent{
		module:  module,
		line:    line,
		message: message,
	}
	switch kind {
	case slotvm.ErrorCompile:
		event.kind = eventCompile
	case slotvm.ErrorRuntime:
		event.kind = eventRuntime
	case slotvm.ErrorStackTrace:
		event.kind = eventStackFrame
	default:
		panic(fmt.Errorf("unknown error type: %v", kind))
	}
	q.push(event)
}

func (q *errorQueue) take() []errorEvent {
	events := q.events
	q.events = nil
	return events
}

// collectErrors drains the queue and builds the error matching result.
func collectErrors(queue *errorQueue, result slotvm.InterpretResult, logger *slog.Logger) error {
	events := queue.take()

	if result == slotvm.ResultSuccess {
		if len(events) > 0 {
			logger.Warn("errors reported by a successful run",
				"count", len(events),
			)
			return ErrResultQueueMismatch
		}
		return nil
	}

	if len(events) == 0 {
		return &ErrorAbsentError{
			Result: result,
		}
	}

	switch result {

	case slotvm.ResultCompileError:
		compileErr := new(CompileError)
		for _, event := range events {
			if event.kind != eventCompile {
				logger.Warn("unexpected event after compile error",
					"message", event.message,
				)
				continue
			}
			compileErr.Diagnostics = append(compileErr.Diagnostics, Diagnostic{
				Module:  event.module,
				Line:    event.line,
				Message: event.message,
			})
		}
		if len(compileErr.Diagnostics) == 0 {
			return ErrResultQueueMismatch
		}
		return compileErr

	case slotvm.ResultRuntimeError:
		runtimeErr := new(RuntimeError)
		var messages []string
		for _, event := range events {
			switch event.kind {
			case eventCompile:
				runtimeErr.Imports = append(runtimeErr.Imports, Diagnostic{
					Module:  event.module,
					Line:    event.line,
					Message: event.message,
				})
			case eventRuntime:
				messages = append(messages, event.message)
			case eventStackFrame, eventForeignFrame:
				runtimeErr.Stack = append(runtimeErr.Stack, StackFrame{
					Module:    event.module,
					Line:      event.line,
					Function:  event.message,
					IsForeign: event.kind == eventForeignFrame,
				})
			case eventForeign:
				if runtimeErr.Foreign != nil {
					// an outer trampoline failed after an inner one
					logger.Debug("dropping nested foreign error",
						"error", event.err,
					)
					continue
				}
				runtimeErr.Foreign = event.err
			}
		}
		runtimeErr.Message = strings.Join(messages, "\n")
		if runtimeErr.Message == "" && runtimeErr.Foreign != nil {
			runtimeErr.Message = runtimeErr.Foreign.Error()
		}
		return runtimeErr

	}

	return fmt.Errorf("unknown interpret result: %v", result)
}
