// Package hits compiles single-file components into browser modules.
//
// A component is one document of HTML markup with an optional <script>
// block, {expression} interpolations in text and @event attributes on
// elements:
//
//	<script>
//	  let $state = { count: 0 };
//	  function inc() { $state.count++; }
//	</script>
//	<p>Count: {$state.count}</p>
//	<button @click="inc">+</button>
//
// Compile turns it into an ES module whose default export is a factory
// function($target, $props) that renders the markup into $target and
// returns { mount() }. Assigning to a $state key updates every text node
// that interpolates it; mount() registers the event listeners.
package hits

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/livefir/hits/internal/emit"
	"github.com/livefir/hits/internal/fragment"
	"github.com/livefir/hits/internal/jsgen"
	"github.com/livefir/hits/internal/script"
	"github.com/livefir/hits/internal/transform"
	"go.uber.org/zap"
)

// Extension is the file extension of component sources.
const Extension = ".hits"

// Result is a compiled component.
type Result struct {
	// Name of the exported factory function. Minified code exports the
	// factory anonymously, so Name appears in Code only when minification is
	// off.
	Name string
	// Code is the JavaScript module.
	Code string
	// Markup is the rendered template with ${expr} placeholders, before
	// template-literal escaping.
	Markup string
	// Cells lists the reactive state keys in declaration order.
	Cells []string
	// Bindings is the number of event listeners the module registers.
	Bindings int
	// Warnings are non-fatal findings, such as extra script elements.
	Warnings []string
}

// Compile compiles a component document.
func Compile(src string, opts ...Option) (*Result, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	name := cfg.Name
	if name == "" {
		name = emit.DefaultName
	}
	log := cfg.Logger.With(zap.String("component", name))

	tree, err := fragment.Parse(src)
	if err != nil {
		return nil, ErrMarkupParse{Err: err}
	}

	ext, err := script.Extract(tree)
	if err != nil {
		return nil, scriptError(src, err)
	}
	var warnings []string
	for range ext.Ignored {
		msg := "additional <script> element left in the markup"
		log.Warn(msg)
		warnings = append(warnings, msg)
	}

	prog, err := script.Classify(ext.AST)
	if err != nil {
		return nil, stateError(err)
	}
	table, err := script.BuildStateTable(prog.State)
	if err != nil {
		return nil, stateError(err)
	}
	log.Debug("classified script",
		zap.Int("cells", table.Len()),
		zap.Int("hoisted", len(prog.Hoisted)),
		zap.Int("imports", len(prog.Imports)),
		zap.Int("residual", len(prog.Residual)))

	tr, err := transform.Transform(tree, table, transform.Options{
		Prefix: cfg.TokenPrefix,
		Logger: log,
	})
	if err != nil {
		return nil, directiveError(err)
	}

	code, err := emit.Module(emit.Parts{
		Name:      name,
		Tree:      tree,
		Imports:   prog.Imports,
		Cells:     table.Cells(),
		Hoisted:   prog.Hoisted,
		Residual:  prog.Residual,
		Fragments: tr.Fragments,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to emit module: %w", err)
	}
	if _, err := script.Parse(code); err != nil {
		return nil, fmt.Errorf("emitted module is not valid JavaScript: %w", err)
	}
	if cfg.Minify {
		if code, err = minifyModule(code, log); err != nil {
			return nil, err
		}
	}

	markup, err := tree.Markup(func(s string) string { return s }, func(expr string) string {
		return "${" + expr + "}"
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render markup: %w", err)
	}

	log.Debug("compiled component",
		zap.Int("tokens", tr.Tokens),
		zap.Int("bindings", len(tr.Bindings)),
		zap.Int("subscribers", tr.Subscribers),
		zap.Int("bytes", len(code)))

	return &Result{
		Name:     name,
		Code:     code,
		Markup:   markup,
		Cells:    table.Keys(),
		Bindings: len(tr.Bindings),
		Warnings: warnings,
	}, nil
}

// CompileFile reads and compiles the component at path. The factory is
// named after the file ("todo-list.hits" becomes TodoList) unless WithName
// is given.
func CompileFile(path string, opts ...Option) (*Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read component: %w", err)
	}

	opts = append([]Option{WithName(ComponentName(path))}, opts...)
	res, err := Compile(string(src), opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}

// ComponentName derives the factory name from a source path.
func ComponentName(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return jsgen.PascalCase(stem, emit.DefaultName)
}
