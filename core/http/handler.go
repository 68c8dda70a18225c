package http

// Handler responds to one request. The returned error reports transport or
// handler failure to the server loop; application-level failures should be
// expressed as response status codes instead.
type Handler interface {
	ServeHTTP(w ResponseWriter, m *Message) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(w ResponseWriter, m *Message) error

// ServeHTTP calls f(w, m).
func (f HandlerFunc) ServeHTTP(w ResponseWriter, m *Message) error {
	return f(w, m)
}

// RedirectHandler answers every request with a redirect to url.
func RedirectHandler(url string, code int) Handler {
	return HandlerFunc(func(w ResponseWriter, m *Message) error {
		w.Header().Set("Location", url)
		w.WriteHeader(code)
		return w.FinalRequest()
	})
}

// NotFoundHandler answers every request with a plain 404.
func NotFoundHandler() Handler {
	return HandlerFunc(func(w ResponseWriter, m *Message) error {
		return Error(w, StatusNotFound)
	})
}
