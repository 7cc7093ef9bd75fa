//go:build !wasm

package sdk

// defaultPage is empty outside the browser; callers set Config.Page.
func defaultPage() PageContext {
	return Page{}
}
