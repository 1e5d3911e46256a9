package client

import "net/http"

// RoundTripperFunc adapts a function to the http.RoundTripper interface.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (fn RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return fn(req)
}

// Decorator wraps an http.RoundTripper with extra behaviour.
type Decorator func(http.RoundTripper) http.RoundTripper

// Decorate composes base with the given decorators. The first decorator is
// the outermost one, so it sees the request first. Composition happens once,
// at client construction, instead of patching a global.
func Decorate(base http.RoundTripper, decorators ...Decorator) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	wrapped := base
	for i := len(decorators) - 1; i >= 0; i-- {
		wrapped = decorators[i](wrapped)
	}
	return wrapped
}

// AuthHeaders injects the stored token into every outgoing request, so call
// sites never repeat that logic. The token travels both as
// `Authorization: Bearer <token>` and as the raw `X-Auth-Token` value; some
// server middleware reads the custom header instead of the standard one, so
// both are kept deliberately.
//
// A request whose caller already set Authorization passes through untouched,
// and so does every request when no token is stored.
func AuthHeaders(store Store) Decorator {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			cred, ok := store.Get()
			if !ok || req.Header.Get("Authorization") != "" {
				return next.RoundTrip(req)
			}

			// RoundTrippers must not mutate the original request
			clone := req.Clone(req.Context())
			clone.Header.Set("Authorization", "Bearer "+cred.Token)
			clone.Header.Set("X-Auth-Token", cred.Token)
			return next.RoundTrip(clone)
		})
	}
}
