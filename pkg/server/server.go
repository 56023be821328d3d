// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// shutdownGracePeriod bounds how long in-flight requests may run after the
// server is asked to stop.
const shutdownGracePeriod = 10 * time.Second

// Server is the HTTP server hosting the REST API.
type Server struct {
	log     *logrus.Logger
	addr    string
	handler http.Handler
}

// New creates a server listening on addr and serving the given handler.
func New(log *logrus.Logger, addr string, handler http.Handler) *Server {
	return &Server{
		log:     log,
		addr:    addr,
		handler: handler,
	}
}

// Start starts the server and blocks until ctx is cancelled, then shuts the
// server down gracefully.
func (s *Server) Start(ctx context.Context) {
	server := &http.Server{Addr: s.addr, Handler: s.handler}

	// Server startup logic.
	go func() {
		s.log.Infof("Starting HTTP server on %s", s.addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			s.log.Errorf("Could not start HTTP server: %v", err)
		}
	}()

	// Server shutdown logic. The parent context is already cancelled here, so
	// the drain deadline runs on a fresh context.
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		s.log.Errorf("Error when shutting down server: %v", err)
	}
	s.log.Info("Server stopped.")
}
