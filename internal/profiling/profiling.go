// SPDX-License-Identifier: Apache-2.0

package profiling

import (
	"errors"
	"net/http"
	_ "net/http/pprof"
	"time"

	loglib "github.com/xataio/eventpipe/pkg/log"
)

// StartProfilingServer exposes the /debug/pprof endpoints on the address on
// input. The server runs in the background for the lifetime of the process.
func StartProfilingServer(address string, logger loglib.Logger) {
	// net/http/pprof registers its handlers on the default serve mux
	server := &http.Server{
		Addr:              address,
		Handler:           http.DefaultServeMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("profiling server listening", loglib.Fields{"address": address})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(err, "profiling server stopped", loglib.Fields{"address": address})
		}
	}()
}
