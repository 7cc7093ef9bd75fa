package sdk

// Page is the browsing context attached to tracked events.
type Page struct {
	URL      string
	Referrer string
}

// PageContext supplies the current page for each tracked event.
type PageContext interface {
	Current() Page
}

// Current returns p, so a fixed Page can be used as a PageContext.
func (p Page) Current() Page {
	return p
}

// PageFunc adapts a function to PageContext.
type PageFunc func() Page

// Current calls f.
func (f PageFunc) Current() Page {
	return f()
}
