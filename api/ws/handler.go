package ws

import (
	"net/http"

	"github.com/gorilla/mux"
	gws "github.com/gorilla/websocket"

	"github.com/BaoTrinh25/Job-BE/internal/websocket"
	"github.com/BaoTrinh25/Job-BE/pkg/logger"
	"github.com/BaoTrinh25/Job-BE/service"
)

var upgrader = gws.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// groupName derives the fanout group from the room path segment. The
// segment is opaque to the server; clients commonly build it from a
// composite key of their own.
func groupName(roomName string) string {
	return "chat_" + roomName
}

// HandleChat upgrades `/ws/chat/{room_name}/` and binds the socket to the
// room's fanout group for the life of the connection.
func HandleChat(chatService service.ChatService, logg logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomName := mux.Vars(r)["room_name"]
		if roomName == "" {
			logg.Errorf("[WS HANDLER] rejecting handshake: missing room path")
			http.Error(w, "room name required", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already replied to the client.
			logg.Errorf("[WS HANDLER] upgrade error: %v", err)
			return
		}

		client := websocket.NewConnection(conn, groupName(roomName), chatService, logg)

		if err := chatService.JoinRoom(r.Context(), client.Group(), client.ID(), client.Deliver); err != nil {
			logg.Errorf("[WS HANDLER] failed to join group %s: %v", client.Group(), err)
			conn.Close()
			return
		}

		logg.Infof("[WS HANDLER] new connection from %s (room=%s)", conn.RemoteAddr(), roomName)

		go client.ReadPump()
		go client.WritePump()
	}
}
