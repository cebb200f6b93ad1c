package api

import (
	"github.com/xiaoyuanzhu-com/flowtrack/log"
	"github.com/xiaoyuanzhu-com/flowtrack/server"
)

var apiLogger = log.GetLogger("Api")

// Handlers holds references to server components
type Handlers struct {
	server *server.Server
}

// NewHandlers creates a new Handlers instance with server reference
func NewHandlers(srv *server.Server) *Handlers {
	return &Handlers{server: srv}
}
