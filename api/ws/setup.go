package ws

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/BaoTrinh25/Job-BE/pkg/logger"
	"github.com/BaoTrinh25/Job-BE/service"
)

type WSConfig struct {
	ChatService service.ChatService
	RootCtx     context.Context
}

// SetupWebSocketRoutes mounts the chat endpoint. The room segment cannot
// be empty: an empty segment simply does not match the route.
func SetupWebSocketRoutes(cfg WSConfig) http.Handler {
	r := mux.NewRouter()
	log := logger.FromContext(cfg.RootCtx).WithModule("websocket")
	r.HandleFunc("/ws/chat/{room_name}/", HandleChat(cfg.ChatService, log))
	r.HandleFunc("/ws/chat/{room_name}", HandleChat(cfg.ChatService, log))
	return r
}
