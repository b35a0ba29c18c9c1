package capture

import (
	"context"
	"net/http"
	"time"

	"github.com/elazarl/goproxy"

	"xybclock/internal/common/logger"
)

// Proxy is the in-process MITM listener. TLS traffic is unwrapped with
// goproxy's generated certificate, so its CA must be trusted by the machine
// running the mini-program.
type Proxy struct {
	addr        string
	interceptor *Interceptor
	log         logger.Logger
	srv         *http.Server
}

func NewProxy(addr string, interceptor *Interceptor, log logger.Logger) *Proxy {
	handler := goproxy.NewProxyHttpServer()
	handler.OnRequest().HandleConnect(goproxy.AlwaysMitm)
	handler.OnRequest().DoFunc(func(req *http.Request, ctx *goproxy.ProxyCtx) (*http.Request, *http.Response) {
		if resp := interceptor.Handle(req); resp != nil {
			return req, resp
		}
		return req, nil
	})

	return &Proxy{
		addr:        addr,
		interceptor: interceptor,
		log:         log,
		srv:         &http.Server{Addr: addr, Handler: handler},
	}
}

func (p *Proxy) Addr() string {
	return p.addr
}

// Run serves until ctx is cancelled, then shuts the listener down. The
// returned error is nil on a clean shutdown.
func (p *Proxy) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		p.log.Info("capture proxy listening", map[string]interface{}{"addr": p.addr})
		errc <- p.srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = p.srv.Shutdown(shutdownCtx)
		<-errc
		return nil
	case err := <-errc:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
