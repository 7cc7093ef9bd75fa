//go:build wasm

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"syscall/js"

	"github.com/birbparty/groundhogg-go/sdk"
)

// sdkWrapper exposes an SDK instance to JavaScript
type sdkWrapper struct {
	sdk *sdk.SDK
}

func main() {
	groundhogg := map[string]any{
		"init": js.FuncOf(initSDK),
	}
	js.Global().Set("groundhogg", groundhogg)

	fmt.Println("Groundhogg SDK WASM loaded")

	select {}
}

// initSDK builds an SDK from a JavaScript config object:
// {endpoint, apiVersion, trackingEndpoint, storageKey, debug}.
func initSDK(this js.Value, args []js.Value) any {
	if len(args) != 1 || args[0].Type() != js.TypeObject {
		return jsError("init requires a config object")
	}
	cfg := args[0]
	config := sdk.DefaultConfig()

	if v := cfg.Get("endpoint"); v.Type() == js.TypeString {
		config.WithEndpoint(v.String())
	}
	if v := cfg.Get("apiVersion"); v.Type() == js.TypeString {
		config.WithAPIVersion(v.String())
	}
	if v := cfg.Get("trackingEndpoint"); v.Type() == js.TypeString {
		config.WithTrackingEndpoint(v.String())
	}
	if v := cfg.Get("storageKey"); v.Type() == js.TypeString {
		config.WithStorageKey(v.String())
	}
	if v := cfg.Get("debug"); v.Type() == js.TypeBoolean {
		config.WithDebug(v.Bool())
	}

	groundhogg, err := sdk.New(config)
	if err != nil {
		return jsError(fmt.Sprintf("failed to create SDK: %v", err))
	}
	w := &sdkWrapper{sdk: groundhogg}

	return map[string]any{
		"createContact": js.FuncOf(w.createContact),
		"setContact":    js.FuncOf(w.setContact),
		"addTags":       js.FuncOf(w.addTags),
		"track":         js.FuncOf(w.track),
		"pageView":      js.FuncOf(w.pageView),
		"close":         js.FuncOf(w.close),
	}
}

func (w *sdkWrapper) createContact(this js.Value, args []js.Value) any {
	return jsPromise(func() (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("createContact requires a contact object")
		}
		var contact sdk.Contact
		if err := json.Unmarshal([]byte(jsonString(args[0])), &contact); err != nil {
			return nil, err
		}
		resp, err := w.sdk.CreateContact(context.Background(), contact)
		if err != nil {
			return nil, err
		}
		return goValueToJS(resp.Data), nil
	})
}

func (w *sdkWrapper) setContact(this js.Value, args []js.Value) any {
	return jsPromise(func() (any, error) {
		if len(args) != 1 || args[0].Type() != js.TypeNumber {
			return nil, fmt.Errorf("setContact requires a numeric contact ID")
		}
		return js.Undefined(), w.sdk.SetContact(context.Background(), sdk.ContactID(args[0].Int()))
	})
}

func (w *sdkWrapper) addTags(this js.Value, args []js.Value) any {
	return jsPromise(func() (any, error) {
		ids := make([]int64, 0, len(args))
		for _, arg := range args {
			ids = append(ids, int64(arg.Int()))
		}
		resp, err := w.sdk.Client.AddTags(context.Background(), ids...)
		if err != nil {
			return nil, err
		}
		return goValueToJS(resp.Data), nil
	})
}

// track(event, data)
func (w *sdkWrapper) track(this js.Value, args []js.Value) any {
	return jsPromise(func() (any, error) {
		if len(args) < 1 || args[0].Type() != js.TypeString {
			return nil, fmt.Errorf("track requires an event name")
		}
		resp, err := w.sdk.Tracker.Track(context.Background(), args[0].String(), dataArg(args, 1))
		if err != nil {
			return nil, err
		}
		return goValueToJS(resp), nil
	})
}

func (w *sdkWrapper) pageView(this js.Value, args []js.Value) any {
	return jsPromise(func() (any, error) {
		resp, err := w.sdk.Tracker.PageView(context.Background(), dataArg(args, 0))
		if err != nil {
			return nil, err
		}
		return goValueToJS(resp), nil
	})
}

func (w *sdkWrapper) close(this js.Value, args []js.Value) any {
	if err := w.sdk.Close(); err != nil {
		return jsError(err.Error())
	}
	return js.Undefined()
}

func dataArg(args []js.Value, i int) map[string]any {
	if len(args) <= i || args[i].Type() != js.TypeObject {
		return nil
	}
	var data map[string]any
	_ = json.Unmarshal([]byte(jsonString(args[i])), &data)
	return data
}

// jsPromise creates a JavaScript promise from a Go function
func jsPromise(fn func() (any, error)) js.Value {
	var executor js.Func
	executor = js.FuncOf(func(this js.Value, args []js.Value) any {
		resolve, reject := args[0], args[1]
		go func() {
			defer executor.Release()
			result, err := fn()
			if err != nil {
				reject.Invoke(jsError(err.Error()))
				return
			}
			resolve.Invoke(result)
		}()
		return nil
	})
	return js.Global().Get("Promise").New(executor)
}

// jsError creates a JavaScript Error object
func jsError(message string) js.Value {
	return js.Global().Get("Error").New(message)
}

func jsonString(val js.Value) string {
	return js.Global().Get("JSON").Call("stringify", val).String()
}

// goValueToJS converts a Go value to a JavaScript value via JSON
func goValueToJS(val any) js.Value {
	if val == nil {
		return js.Null()
	}
	data, err := json.Marshal(val)
	if err != nil {
		return js.Null()
	}
	return js.Global().Get("JSON").Call("parse", string(data))
}
