package http

import (
	"encoding/json"
	"fmt"
)

// Error replies with the canonical reason phrase of code as a plain-text
// body.
func Error(w ResponseWriter, code int) error {
	return ErrorText(w, code, StatusText(code))
}

// ErrorText replies with code and the given plain-text body.
func ErrorText(w ResponseWriter, code int, text string) error {
	w.Header().SetContentType("text/plain; charset=utf-8")
	w.Header().SetContentLength(int64(len(text)))
	w.WriteHeader(code)
	if _, err := w.Write([]byte(text)); err != nil {
		return err
	}
	return w.FinalRequest()
}

// WriteJSON replies 200 with v encoded as JSON. Requests carrying a callback
// query parameter get the JSONP form instead, with the payload wrapped in a
// call to the named function.
func WriteJSON(w ResponseWriter, m *Message, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	if m != nil && m.IsJSONP() {
		callback := m.QueryGet("callback")
		body := make([]byte, 0, len(callback)+len(data)+2)
		body = append(body, callback...)
		body = append(body, '(')
		body = append(body, data...)
		body = append(body, ')')

		w.Header().SetContentType("text/javascript")
		w.Header().SetContentLength(int64(len(body)))
		if _, err := w.Write(body); err != nil {
			return err
		}
		return w.FinalRequest()
	}

	w.Header().SetContentType("application/json")
	w.Header().SetContentLength(int64(len(data)))
	if _, err := w.Write(data); err != nil {
		return err
	}
	return w.FinalRequest()
}
