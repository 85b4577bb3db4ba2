// internal/browser/allocator_test.go
package browser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/scenario-cli/internal/config"
)

// hasOption checks for an option by inspecting its string representation,
// which lets the flags be tested without a browser.
func hasOption(opts []chromedp.ExecAllocatorOption, substring string) bool {
	for _, opt := range opts {
		if strings.Contains(fmt.Sprintf("%#v", opt), substring) {
			return true
		}
	}
	return false
}

func TestDefaultAllocatorOptions(t *testing.T) {
	t.Run("base flags", func(t *testing.T) {
		opts := DefaultAllocatorOptions(config.BrowserConfig{Headless: true})
		assert.NotEmpty(t, opts)
		baseline := len(DefaultAllocatorOptions(config.BrowserConfig{}))
		assert.Equal(t, baseline+1, len(opts), "headless adds exactly one option")
	})

	t.Run("window size and paths", func(t *testing.T) {
		opts := DefaultAllocatorOptions(config.BrowserConfig{
			WindowWidth:  1280,
			WindowHeight: 800,
			ExecPath:     "/usr/bin/chromium",
			UserDataDir:  "/tmp/profile",
		})
		baseline := len(DefaultAllocatorOptions(config.BrowserConfig{}))
		assert.Equal(t, baseline+3, len(opts))
	})

	t.Run("custom args", func(t *testing.T) {
		cfg := config.BrowserConfig{Args: []string{"--lang=en-US", "disable-extensions", "  ", "--"}}
		opts := DefaultAllocatorOptions(cfg)
		baseline := len(DefaultAllocatorOptions(config.BrowserConfig{}))
		assert.Equal(t, baseline+2, len(opts), "blank args are skipped")
	})
}
