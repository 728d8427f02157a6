// SPDX-License-Identifier: Apache-2.0

package nats

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	loglib "github.com/xataio/eventpipe/pkg/log"
	tlslib "github.com/xataio/eventpipe/pkg/tls"
)

const (
	connectionName = "eventpipe"
	reconnectWait  = time.Second
)

func buildConnOptions(cfg *ConnConfig, logger loglib.Logger) ([]nats.Option, error) {
	opts := []nats.Option{
		nats.Name(connectionName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn(err, "nats connection lost", loglib.Fields{"nats_url": cfg.URL})
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats connection restored", loglib.Fields{"nats_url": nc.ConnectedUrlRedacted()})
		}),
	}

	tlsConfig, err := tlslib.NewConfig(&cfg.TLS)
	if err != nil {
		return nil, fmt.Errorf("building TLS config: %w", err)
	}
	if tlsConfig != nil {
		opts = append(opts, nats.Secure(tlsConfig))
	}

	if cfg.CredentialsFile != "" {
		opts = append(opts, nats.UserCredentials(cfg.CredentialsFile))
	}

	return opts, nil
}
