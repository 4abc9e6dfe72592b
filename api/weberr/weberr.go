// Package weberr decorates errors with the HTTP response and log fields
// the Errors middleware should use for them.
package weberr

import "errors"

type Opt func(error) error

func Wrap(err error, opts ...Opt) error {
	for _, opt := range opts {
		err = opt(err)
	}
	return err
}

func WithResponse(body interface{}, status int) Opt {
	return func(err error) error {
		return &responseError{error: err, body: body, status: status}
	}
}

func WithFields(fields map[string]interface{}) Opt {
	return func(err error) error {
		return &fieldsError{error: err, fields: fields}
	}
}

type responder interface {
	Response() (body interface{}, status int)
}

// Response finds the outermost response attached anywhere in err's chain.
func Response(err error) (body interface{}, status int, ok bool) {
	var re responder
	if errors.As(err, &re) {
		body, code := re.Response()
		return body, code, true
	}
	return nil, 0, false
}

type responseError struct {
	error
	body   interface{}
	status int
}

func (e *responseError) Response() (interface{}, int) { return e.body, e.status }

func (e *responseError) Unwrap() error { return e.error }

type fielder interface {
	Fields() map[string]interface{}
}

// Fields collects log fields from every layer of err's chain. Outer
// layers win on key conflicts.
func Fields(err error) (fields map[string]interface{}, ok bool) {
	for err != nil {
		if fe, isFielder := err.(fielder); isFielder {
			if fields == nil {
				fields = make(map[string]interface{})
			}
			for k, v := range fe.Fields() {
				if _, seen := fields[k]; !seen {
					fields[k] = v
				}
			}
		}
		err = errors.Unwrap(err)
	}
	return fields, fields != nil
}

type fieldsError struct {
	error
	fields map[string]interface{}
}

func (e *fieldsError) Fields() map[string]interface{} { return e.fields }

func (e *fieldsError) Unwrap() error { return e.error }
