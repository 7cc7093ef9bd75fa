//go:build wasm

package sdk

import (
	"context"
	"fmt"
	"syscall/js"
	"time"
)

// fetchRoundTripper uses the browser Fetch API. Requests are sent with
// credentials: "include" so the WordPress login cookie is carried.
type fetchRoundTripper struct {
	timeout time.Duration
}

func newRoundTripper(config *Config) (roundTripper, error) {
	if !js.Global().Get("fetch").Truthy() {
		return nil, fmt.Errorf("fetch API not available")
	}
	return &fetchRoundTripper{timeout: config.Timeout}, nil
}

func (f *fetchRoundTripper) roundTrip(ctx context.Context, method, url string, headers map[string]string, body []byte) (*rawResponse, error) {
	jsHeaders := make(map[string]interface{}, len(headers))
	for key, value := range headers {
		jsHeaders[key] = value
	}
	opts := map[string]interface{}{
		"method":      method,
		"headers":     jsHeaders,
		"mode":        "cors",
		"credentials": "include",
	}
	if body != nil {
		opts["body"] = string(body)
	}

	var abort js.Value
	if ctor := js.Global().Get("AbortController"); ctor.Truthy() {
		abort = ctor.New()
	}
	jsOpts := js.ValueOf(opts)
	if abort.Truthy() {
		jsOpts.Set("signal", abort.Get("signal"))
	}

	resultChan := make(chan *rawResponse, 1)
	errChan := make(chan error, 1)

	// Callbacks are released only once the promise has settled; a
	// cancelled fetch may still call them later.
	var onResponse, onText, onError js.Func
	release := func() {
		onResponse.Release()
		onError.Release()
		if onText.Truthy() {
			onText.Release()
		}
	}

	onError = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		msg := "network error"
		if len(args) > 0 && args[0].Get("message").Truthy() {
			msg = args[0].Get("message").String()
		}
		errChan <- fmt.Errorf("%s", msg)
		return nil
	})

	onResponse = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		response := args[0]
		status := response.Get("status").Int()
		onText = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
			resultChan <- &rawResponse{status: status, body: []byte(args[0].String())}
			return nil
		})
		response.Call("text").Call("then", onText).Call("catch", onError)
		return nil
	})

	js.Global().Call("fetch", url, jsOpts).Call("then", onResponse).Call("catch", onError)

	timer := time.NewTimer(f.timeout)
	defer timer.Stop()

	select {
	case resp := <-resultChan:
		release()
		return resp, nil
	case err := <-errChan:
		release()
		return nil, err
	case <-ctx.Done():
		if abort.Truthy() {
			abort.Call("abort")
		}
		return nil, ctx.Err()
	case <-timer.C:
		if abort.Truthy() {
			abort.Call("abort")
		}
		return nil, fmt.Errorf("fetch %s: timed out after %s", url, f.timeout)
	}
}

func (f *fetchRoundTripper) close() error {
	return nil
}
