// internal/engine/fake_site_test.go
package engine_test

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/xkilldash9x/scenario-cli/api/schemas"
)

const baseURL = "https://shop.test/"

// fakeSite is a tiny in-memory storefront: a login page and an inventory
// page with a cart badge. Elements listed in delays only appear after the
// given number of lookups, to exercise the polling policy.
type fakeSite struct {
	mu sync.Mutex

	url      string
	fields   map[string]string
	cart     int
	sort     string
	delays   map[string]int
	calls    []string
	closed   int
	closeErr error
}

func newFakeSite() *fakeSite {
	return &fakeSite{fields: map[string]string{}, delays: map[string]int{}}
}

func (f *fakeSite) record(op string) {
	f.calls = append(f.calls, op)
}

// present reports whether selector exists on the current page.
func (f *fakeSite) present(selector string) bool {
	if n := f.delays[selector]; n > 0 {
		f.delays[selector] = n - 1
		return false
	}
	switch f.url {
	case baseURL:
		switch selector {
		case "#user-name", "#password", "#login-button", "h3[data-test=error]":
			return selector != "h3[data-test=error]" || f.fields["error"] != ""
		}
	case baseURL + "inventory.html":
		switch selector {
		case "#add-to-cart", ".product_sort_container", ".inventory_item_price", "#logout":
			return true
		case ".shopping_cart_badge":
			return f.cart > 0
		}
	}
	return false
}

func (f *fakeSite) Open(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("open " + url)
	if url != baseURL {
		return fmt.Errorf("%w: net::ERR_NAME_NOT_RESOLVED at %s", schemas.ErrNavigation, url)
	}
	f.url = url
	return nil
}

func (f *fakeSite) Fill(_ context.Context, selector, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("fill " + selector)
	if !f.present(selector) {
		return fmt.Errorf("%w: %s", schemas.ErrElementNotFound, selector)
	}
	f.fields[selector] = text
	return nil
}

func (f *fakeSite) Click(_ context.Context, selector string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("click " + selector)
	if !f.present(selector) {
		return fmt.Errorf("%w: %s", schemas.ErrElementNotFound, selector)
	}
	switch selector {
	case "#login-button":
		if f.fields["#user-name"] == "standard_user" && f.fields["#password"] == "secret_sauce" {
			f.url = baseURL + "inventory.html"
			f.fields["error"] = ""
		} else {
			f.fields["error"] = "Epic sadface: Username and password do not match any user in this service"
		}
	case "#add-to-cart":
		f.cart++
	case "#logout":
		f.url = baseURL
	}
	return nil
}

func (f *fakeSite) SelectOption(_ context.Context, selector, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("select " + selector)
	if !f.present(selector) {
		return fmt.Errorf("%w: %s", schemas.ErrElementNotFound, selector)
	}
	f.sort = value
	return nil
}

func (f *fakeSite) GetText(_ context.Context, selector string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("text " + selector)
	if !f.present(selector) {
		return "", fmt.Errorf("%w: %s", schemas.ErrElementNotFound, selector)
	}
	switch selector {
	case ".shopping_cart_badge":
		return strconv.Itoa(f.cart), nil
	case "h3[data-test=error]":
		return f.fields["error"], nil
	case ".inventory_item_price":
		if f.sort == "lohi" {
			return "$7.99", nil
		}
		return "$29.99", nil
	}
	return "", nil
}

func (f *fakeSite) GetAttribute(_ context.Context, selector, name string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("attr " + selector)
	if !f.present(selector) {
		return "", false, fmt.Errorf("%w: %s", schemas.ErrElementNotFound, selector)
	}
	if selector == "#user-name" && name == "placeholder" {
		return "Username", true, nil
	}
	return "", false, nil
}

func (f *fakeSite) Count(_ context.Context, selector string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("count " + selector)
	// Count never waits, so delays do not apply.
	delay := f.delays[selector]
	defer func() { f.delays[selector] = delay }()
	delete(f.delays, selector)
	if f.present(selector) {
		return 1, nil
	}
	return 0, nil
}

func (f *fakeSite) CurrentURL(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("url")
	return f.url, nil
}

func (f *fakeSite) Title(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("title")
	if f.url == "" {
		return "", nil
	}
	return "Swag Labs", nil
}

func (f *fakeSite) Close(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return f.closeErr
}

func (f *fakeSite) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeSite) Closed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
