package hits

import (
	"fmt"
	"sync"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/js"
	"go.uber.org/zap"
)

const mimeJS = "application/javascript"

var (
	minifier *minify.M
	once     sync.Once
)

// getMinifier returns the shared JavaScript minifier (singleton).
// Variable names are kept so user code keeps its identifiers. The name of
// the default-exported factory is not a variable and is dropped.
func getMinifier() *minify.M {
	once.Do(func() {
		minifier = minify.New()
		minifier.Add(mimeJS, &js.Minifier{KeepVarNames: true})
	})
	return minifier
}

// minifyModule compacts whitespace in the emitted module.
func minifyModule(code string, log *zap.Logger) (string, error) {
	minified, err := getMinifier().String(mimeJS, code)
	if err != nil {
		return "", fmt.Errorf("failed to minify module: %w", err)
	}
	log.Debug("minified module", zap.Int("before", len(code)), zap.Int("after", len(minified)))
	return minified, nil
}
