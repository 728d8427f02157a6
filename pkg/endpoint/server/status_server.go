// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	httplib "github.com/xataio/eventpipe/internal/http"
	"github.com/xataio/eventpipe/internal/json"
	"github.com/xataio/eventpipe/pkg/endpoint"
	loglib "github.com/xataio/eventpipe/pkg/log"
	"github.com/xataio/eventpipe/pkg/supervisor"
)

// StatusProvider returns the current status of a receive endpoint.
type StatusProvider interface {
	Status() *endpoint.Status
}

// Server exposes the receive endpoint status over HTTP.
type Server struct {
	server   httplib.Server
	logger   loglib.Logger
	provider StatusProvider
	address  string
}

type Option func(*Server)

func New(cfg *Config, provider StatusProvider, opts ...Option) *Server {
	s := &Server{
		address:  cfg.address(),
		provider: provider,
		logger:   loglib.NewNoopLogger(),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = &jsonSerializer{}
	e.Server.ReadTimeout = cfg.readTimeout()
	e.Server.WriteTimeout = cfg.writeTimeout()

	e.Use(middleware.Recover())

	e.GET("/status", s.status)
	e.GET("/health", s.health)

	s.server = e

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func WithLogger(l loglib.Logger) Option {
	return func(s *Server) {
		s.logger = loglib.NewLogger(l).WithFields(loglib.Fields{
			loglib.ModuleField: "status_server",
		})
	}
}

// Start will start the status server. This call is blocking until the server
// is shut down.
func (s *Server) Start() error {
	s.logger.Info(fmt.Sprintf("status server listening on: %s...", s.address))
	if err := s.server.Start(s.address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) status(c echo.Context) error {
	s.logger.Trace("request received on /status endpoint")
	return c.JSON(http.StatusOK, s.provider.Status())
}

// health reports whether the endpoint is consuming events. Transient faults
// are reported as healthy, since the supervisor restarts the consumer.
func (s *Server) health(c echo.Context) error {
	status := s.provider.Status()
	switch status.State {
	case supervisor.StateStopping.String(), supervisor.StateStopped.String():
		return c.JSON(http.StatusServiceUnavailable, status)
	default:
		return c.JSON(http.StatusOK, status)
	}
}

type jsonSerializer struct{}

func (s *jsonSerializer) Serialize(c echo.Context, i any, indent string) error {
	b, err := json.Marshal(i)
	if err != nil {
		return err
	}
	_, err = c.Response().Write(b)
	return err
}

func (s *jsonSerializer) Deserialize(c echo.Context, i any) error {
	return json.NewDecoder(c.Request().Body).Decode(i)
}
