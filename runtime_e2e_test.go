package hits

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
)

const counterComponent = `<script>
let $state = { count: 0, label: 'clicks', note: '' };
function inc() {
	$state.count++;
}
document.body.dataset.mounted = 'yes';
</script>
<p>Count: {$state.count} {$state.label}</p>
<div>Total <b>now</b> {$state.count}</div>
<p id="note"><b>note:</b>{$state.note}</p>
<button id="inc" @click="inc">+</button>
<button id="rename" @click="() => { $state.label = 'taps'; }">rename</button>
<button id="annotate" @click="() => { $state.note = 'set'; $state.note = 'set twice'; }">annotate</button>
`

const counterShell = `<!DOCTYPE html>
<html>
<body>
<div id="app"></div>
<script type="module">
import Counter from '/counter.js';
Counter(document.getElementById('app')).mount();
</script>
</body>
</html>`

// findChrome returns a browser binary, or "" when none is installed.
func findChrome() string {
	if path := os.Getenv("CHROME_BIN"); path != "" {
		return path
	}
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}

func TestRuntimeCounterInBrowser(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping e2e browser test in short mode")
	}
	chrome := findChrome()
	if chrome == "" {
		t.Skip("No Chrome binary found, set CHROME_BIN to run browser tests")
	}

	res, err := Compile(counterComponent, WithName("Counter"), WithMinify(false))
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/counter.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		fmt.Fprint(w, res.Code)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, counterShell)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(chrome),
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	defer cancel()

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var initial, mounted string
	err = chromedp.Run(ctx,
		chromedp.Navigate(server.URL),
		chromedp.WaitVisible(`#app button`, chromedp.ByQuery),
		chromedp.Text(`#app p`, &initial, chromedp.ByQuery),
		chromedp.Evaluate(`document.body.dataset.mounted || ''`, &mounted),
	)
	if err != nil {
		t.Fatalf("Initial render failed: %v", err)
	}
	if initial != "Count: 0 clicks" {
		t.Errorf("initial text = %q, want %q", initial, "Count: 0 clicks")
	}
	if mounted != "yes" {
		t.Errorf("mount-time statement did not run, dataset.mounted = %q", mounted)
	}

	t.Run("ClickUpdatesEverySubscriber", func(t *testing.T) {
		var p, div string
		err := chromedp.Run(ctx,
			chromedp.Click(`#inc`, chromedp.ByQuery),
			chromedp.Click(`#inc`, chromedp.ByQuery),
			chromedp.Text(`#app p`, &p, chromedp.ByQuery),
			chromedp.Text(`#app div`, &div, chromedp.ByQuery),
		)
		if err != nil {
			t.Fatalf("Click failed: %v", err)
		}
		if p != "Count: 2 clicks" {
			t.Errorf("paragraph = %q, want %q", p, "Count: 2 clicks")
		}
		if div != "Total now 2" {
			t.Errorf("div = %q, want %q", div, "Total now 2")
		}
	})

	t.Run("OtherInterpolationsKeepTheirValue", func(t *testing.T) {
		var p string
		err := chromedp.Run(ctx,
			chromedp.Click(`#rename`, chromedp.ByQuery),
			chromedp.Text(`#app p`, &p, chromedp.ByQuery),
		)
		if err != nil {
			t.Fatalf("Click failed: %v", err)
		}
		if p != "Count: 2 taps" {
			t.Errorf("paragraph = %q, want %q", p, "Count: 2 taps")
		}
	})

	t.Run("EmptyTextNodeIsCreated", func(t *testing.T) {
		var note string
		err := chromedp.Run(ctx,
			chromedp.Click(`#annotate`, chromedp.ByQuery),
			chromedp.Text(`#note`, &note, chromedp.ByQuery),
		)
		if err != nil {
			t.Fatalf("Click failed: %v", err)
		}
		if note != "note:set twice" {
			t.Errorf("note = %q, want %q", note, "note:set twice")
		}
	})
}
