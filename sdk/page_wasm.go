//go:build wasm

package sdk

import "syscall/js"

// BrowserPage reads window.location.href and document.referrer at the
// moment each event is tracked.
type BrowserPage struct{}

// Current returns the live page, or an empty Page outside a window.
func (BrowserPage) Current() Page {
	var page Page
	if location := js.Global().Get("location"); location.Truthy() {
		page.URL = location.Get("href").String()
	}
	if document := js.Global().Get("document"); document.Truthy() {
		page.Referrer = document.Get("referrer").String()
	}
	return page
}

func defaultPage() PageContext {
	return BrowserPage{}
}
