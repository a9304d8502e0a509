package openmask

import (
	"context"
	"net"
	"net/http"
	"time"

	"go.viam.com/utils"

	"github.com/AlexLike/OpenMaskXR/logging"
)

const shutdownTimeout = 5 * time.Second

// Serve serves h on addr until ctx is done.
func Serve(ctx context.Context, addr string, h http.Handler, logger logging.Logger) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return ServeListener(ctx, listener, h, logger)
}

// ServeListener is like Serve but accepts connections on an existing listener.
func ServeListener(ctx context.Context, listener net.Listener, h http.Handler, logger logging.Logger) error {
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	utils.PanicCapturingGo(func() {
		errCh <- srv.Serve(listener)
	})
	logger.Infow("serving", "address", listener.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
