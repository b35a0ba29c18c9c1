package capture

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"strings"

	"xybclock/internal/common/logger"
	"xybclock/internal/common/metrics"
)

// targetMarker identifies the login bootstrap request inside the proxied
// stream. Matching on the path fragment survives host or query changes.
const targetMarker = "getOpenId.action"

// shortCircuitBody is the synthetic reply served instead of forwarding the
// bootstrap request. The mini-program treats it as a failed login and stays
// on its login screen, which keeps the code unredeemed for us.
const shortCircuitBody = `{"msg": ""}`

// Interceptor applies the capture rule to proxied requests.
type Interceptor struct {
	store *Store
	log   logger.Logger
}

func NewInterceptor(store *Store, log logger.Logger) *Interceptor {
	return &Interceptor{store: store, log: log}
}

// Handle inspects one proxied request. For the bootstrap call carrying a
// code it persists the code and returns the short-circuit response; for
// everything else it returns nil and the proxy forwards as usual.
//
// The request body is restored after reading so a pass-through still works.
func (i *Interceptor) Handle(req *http.Request) *http.Response {
	if !strings.Contains(req.URL.String(), targetMarker) {
		return nil
	}
	if req.Body == nil {
		return nil
	}

	body, err := io.ReadAll(req.Body)
	req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	form, err := url.ParseQuery(string(body))
	if err != nil {
		return nil
	}
	code := strings.TrimSpace(form.Get("code"))
	if code == "" {
		return nil
	}

	// The response is served even when persisting fails: forwarding the
	// request would let the server redeem the code before we can.
	if err := i.store.Put(code); err != nil {
		i.log.Error("persisting captured code failed", map[string]interface{}{"error": err.Error()})
	} else {
		metrics.CodesCaptured.Inc()
		i.log.Info("captured one-time code", map[string]interface{}{"code": code})
	}
	return shortCircuit(req)
}

func shortCircuit(req *http.Request) *http.Response {
	return &http.Response{
		Status:        "200 OK",
		StatusCode:    http.StatusOK,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Request:       req,
		Header:        http.Header{"Content-Type": []string{"application/json"}},
		Body:          io.NopCloser(strings.NewReader(shortCircuitBody)),
		ContentLength: int64(len(shortCircuitBody)),
	}
}
