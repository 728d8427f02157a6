// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/tidwall/gjson"
	"github.com/xataio/eventpipe/internal/log/zerolog"
	"github.com/xataio/eventpipe/pkg/handler/webhook"
	loglib "github.com/xataio/eventpipe/pkg/log"
)

// maximum accepted payload size
const maxPayloadBytes = 10 << 20

var logger loglib.Logger

func main() {
	address := flag.String("address", ":9910", "Webhook server address")
	logLevel := flag.String("log-level", "debug", "Webhook server log level")
	flag.Parse()

	logger = zerolog.NewStdLogger(zerolog.NewLogger(&zerolog.Config{
		LogLevel: *logLevel,
	}))

	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", processWebhook)

	server := &http.Server{
		Handler:      mux,
		Addr:         *address,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	logger.Info(fmt.Sprintf("listening on %s...", *address))
	if err := server.ListenAndServe(); err != nil {
		logger.Error(err, "listening on http server", loglib.Fields{"address": *address})
		os.Exit(1)
	}
}

func processWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	fields := loglib.Fields{
		"delivery_id":  r.Header.Get(webhook.DeliveryIDHeader),
		"partition_id": r.Header.Get(webhook.PartitionIDHeader),
		"offset":       r.Header.Get(webhook.OffsetHeader),
		"payload_size": len(payload),
	}
	if gjson.ValidBytes(payload) {
		fields["payload"] = gjson.ParseBytes(payload).Raw
	}

	logger.Debug("webhook delivery received", fields)
	w.WriteHeader(http.StatusOK)
}
