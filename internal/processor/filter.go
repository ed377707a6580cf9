package processor

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/dop251/goja"
	"github.com/sirupsen/logrus"

	"json-decoding/internal/config"
	"json-decoding/internal/models"
)

// ErrEventRejected is returned when a change is filtered out, either by the
// table rules or by the JavaScript predicate returning a falsy value
var ErrEventRejected = errors.New("event rejected by filter")

// Filter decides which changes are handed to the encoder.
// It is not safe for concurrent use (goja.Runtime is not thread-safe).
type Filter struct {
	include []string
	exclude []string
	logger  *logrus.Logger
	vm      *goja.Runtime
	fn      goja.Callable
}

// NewFilter creates a filter from configuration
func NewFilter(cfg config.FilterConfig, logger *logrus.Logger) (*Filter, error) {
	f := &Filter{
		include: lowerAll(cfg.IncludeTables),
		exclude: lowerAll(cfg.ExcludeTables),
		logger:  logger,
	}

	for _, pattern := range append(append([]string{}, f.include...), f.exclude...) {
		if _, err := path.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("invalid table pattern %q: %w", pattern, err)
		}
	}

	if cfg.Script != "" {
		scriptContent, err := os.ReadFile(cfg.Script)
		if err != nil {
			return nil, fmt.Errorf("failed to read JavaScript script file: %w", err)
		}
		if err := f.loadScript(string(scriptContent)); err != nil {
			return nil, fmt.Errorf("invalid JavaScript script: %w", err)
		}
		logger.Infof("Loaded JavaScript filter script: %s", cfg.Script)
	}

	return f, nil
}

// loadScript runs the script once and keeps the predicate it exports: either the
// function the script evaluates to or a function named 'filter'.
func (f *Filter) loadScript(scriptContent string) error {
	vm := goja.New()
	if err := f.setupConsoleBindings(vm); err != nil {
		return fmt.Errorf("failed to setup console bindings: %w", err)
	}

	result, err := vm.RunString(scriptContent)
	if err != nil {
		return fmt.Errorf("failed to execute script: %w", err)
	}

	if result != nil && !goja.IsUndefined(result) && !goja.IsNull(result) {
		if fn, ok := goja.AssertFunction(result); ok {
			f.vm, f.fn = vm, fn
			return nil
		}
	}

	filterVar := vm.Get("filter")
	if filterVar != nil && !goja.IsUndefined(filterVar) && !goja.IsNull(filterVar) {
		if fn, ok := goja.AssertFunction(filterVar); ok {
			f.vm, f.fn = vm, fn
			return nil
		}
	}

	return fmt.Errorf("script must export a function (either anonymous function or named 'filter' function)")
}

// Allow returns nil when the change should be encoded and ErrEventRejected when
// it should be skipped. Other errors come from the script.
func (f *Filter) Allow(event *models.ChangeEvent) error {
	if event == nil || event.Relation == nil {
		return nil
	}
	name := strings.ToLower(event.Relation.Namespace + "." + event.Relation.Name)

	if len(f.include) > 0 && !matchAny(f.include, name) {
		return ErrEventRejected
	}
	if matchAny(f.exclude, name) {
		return ErrEventRejected
	}

	if f.fn == nil {
		return nil
	}

	result, err := f.fn(goja.Undefined(), f.vm.ToValue(changeObject(event)))
	if err != nil {
		return fmt.Errorf("JavaScript filter function error: %w", err)
	}
	if result == nil || goja.IsUndefined(result) || goja.IsNull(result) || !result.ToBoolean() {
		f.logger.Debugf("Change rejected by JavaScript filter: %s (type: %s)", name, event.Kind)
		return ErrEventRejected
	}
	return nil
}

// changeObject is the value handed to the JavaScript predicate
func changeObject(event *models.ChangeEvent) map[string]interface{} {
	columns := map[string]interface{}{}
	if row, ok := event.Row(); ok && len(row) == len(event.Relation.Columns) {
		for i, col := range event.Relation.Columns {
			if col.Dropped || col.Ordinal < 0 || row[i].Unavailable {
				continue
			}
			if row[i].Null {
				columns[col.Name] = nil
				continue
			}
			columns[col.Name] = row[i].Text
		}
	}

	return map[string]interface{}{
		"kind":      event.Kind.String(),
		"namespace": event.Relation.Namespace,
		"table":     event.Relation.Name,
		"columns":   columns,
	}
}

func matchAny(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if ok, _ := path.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

func lowerAll(ss []string) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		out = append(out, strings.ToLower(s))
	}
	return out
}

// setupConsoleBindings routes console.* in scripts to the logger
func (f *Filter) setupConsoleBindings(vm *goja.Runtime) error {
	consoleObj := vm.NewObject()

	formatArgs := func(call goja.FunctionCall) string {
		args := make([]interface{}, len(call.Arguments))
		for i, arg := range call.Arguments {
			args[i] = arg.Export()
		}
		return strings.TrimSuffix(fmt.Sprintln(args...), "\n")
	}

	bind := func(name string, log func(args ...interface{})) error {
		fn := func(call goja.FunctionCall) goja.Value {
			log(formatArgs(call))
			return goja.Undefined()
		}
		if err := consoleObj.Set(name, fn); err != nil {
			return fmt.Errorf("failed to set console.%s: %w", name, err)
		}
		return nil
	}

	for name, log := range map[string]func(args ...interface{}){
		"log":   f.logger.Info,
		"info":  f.logger.Info,
		"warn":  f.logger.Warn,
		"error": f.logger.Error,
		"debug": f.logger.Debug,
	} {
		if err := bind(name, log); err != nil {
			return err
		}
	}

	if err := vm.Set("console", consoleObj); err != nil {
		return fmt.Errorf("failed to set console object: %w", err)
	}
	return nil
}
