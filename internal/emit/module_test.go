package emit

import (
	"strings"
	"testing"

	"github.com/livefir/hits/internal/fragment"
	"github.com/livefir/hits/internal/script"
	"github.com/livefir/hits/internal/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const counter = `<script>
import { log } from './log.js';
let $state = { count: 0 };
function inc() { $state.count++; }
log('ready');
</script>
<p>Count: {$state.count}</p>
<button @click="inc">+</button>
<pre>` + "`raw` a\\b" + `</pre>`

func parts(t *testing.T, src string) Parts {
	t.Helper()
	tree, err := fragment.Parse(src)
	require.NoError(t, err)
	ext, err := script.Extract(tree)
	require.NoError(t, err)
	prog, err := script.Classify(ext.AST)
	require.NoError(t, err)
	table, err := script.BuildStateTable(prog.State)
	require.NoError(t, err)
	res, err := transform.Transform(tree, table, transform.Options{})
	require.NoError(t, err)

	return Parts{
		Name:      "Counter",
		Tree:      tree,
		Imports:   prog.Imports,
		Cells:     table.Cells(),
		Hoisted:   prog.Hoisted,
		Residual:  prog.Residual,
		Fragments: res.Fragments,
	}
}

func TestModuleLayout(t *testing.T) {
	code, err := Module(parts(t, counter))
	require.NoError(t, err)

	order := []string{
		"import",
		"export default function Counter($target, $props = {}) {",
		"const $$cells = {",
		"'count': {",
		"value: 0,",
		"$target.querySelector('p.hits_0')",
		"const $state = new Proxy($$cells, {",
		"function inc()",
		"function $$render() {",
		"$target.innerHTML = $$render();",
		"mount() {",
		"log('ready')",
		"const _hits_1 = $target.querySelector('button.hits_1');",
		"_hits_1.addEventListener('click', click_hits_1);",
	}
	last := -1
	for _, want := range order {
		i := strings.Index(code, want)
		if i < 0 {
			t.Fatalf("module lacks %q:\n%s", want, code)
		}
		if i < last {
			t.Errorf("%q appears out of order:\n%s", want, code)
		}
		last = i
	}

	assert.Equal(t, 1, strings.Count(code, "export default"))
	assert.Contains(t, code, "<p class=\"hits_0\">Count: ${$state.count}</p>")
	assert.Contains(t, code, "<pre>\\`raw\\` a\\\\b</pre>")
	assert.NotContains(t, code, "@click")
	assert.NotContains(t, code, "<script")
}

func TestModuleWithoutScript(t *testing.T) {
	p := parts(t, `<p>Hello {name}</p>`)
	p.Name = ""
	code, err := Module(p)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(code, "export default function Component($target, $props = {}) {"))
	assert.Contains(t, code, "return `<p>Hello ${name}</p>`;")
	assert.Contains(t, code, "const $$cells = {\n\t};")
}

func TestModuleRejectsBadName(t *testing.T) {
	p := parts(t, `<p>x</p>`)
	p.Name = "my-component"
	if _, err := Module(p); err == nil {
		t.Error("Module accepted a name that is not an identifier")
	}
}

func TestMarkupNilTree(t *testing.T) {
	out, err := Markup(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}
