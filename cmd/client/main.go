package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"

	"github.com/BaoTrinh25/Job-BE/internal/domain"
)

var (
	addr       = flag.String("addr", "localhost:8080", "http service address")
	room       = flag.String("room", "lobby", "room path segment")
	senderID   = flag.Uint("sender", 0, "sender user id")
	receiverID = flag.Uint("receiver", 0, "receiver user id")
	jobID      = flag.Uint("job", 0, "job id the conversation is about")
)

func main() {
	flag.Parse()

	if *senderID == 0 || *receiverID == 0 {
		log.Fatal("both -sender and -receiver are required")
	}

	username := getUsername()

	conn := connectWebSocket()
	defer conn.Close()

	// OS interrupt signals
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	// Start goroutine to listen for incoming messages
	done := make(chan struct{})
	go readMessages(conn, done)

	// Catch up on the stored conversation before typing anything.
	fetchHistory(conn)

	fmt.Println("Write Messages (Press Enter to Send):")
	writeMessages(conn, username, interrupt, done)
}

func getUsername() string {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("Enter your username: ")
	scanner.Scan()
	return scanner.Text()
}

func connectWebSocket() *websocket.Conn {
	u := url.URL{Scheme: "ws", Host: *addr, Path: fmt.Sprintf("/ws/chat/%s/", *room)}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Failed to connect to WebSocket server: %v", err)
	}
	log.Println("Connected to WebSocket server.")
	return conn
}

func fetchHistory(conn *websocket.Conn) {
	req := struct {
		Type domain.EventType `json:"type"`
		domain.HistoryRequest
	}{
		Type: domain.EventPreviousMessages,
		HistoryRequest: domain.HistoryRequest{
			SenderID:   *senderID,
			ReceiverID: *receiverID,
			JobID:      *jobID,
		},
	}
	if err := conn.WriteJSON(req); err != nil {
		log.Printf("Error requesting history: %v", err)
	}
}

func readMessages(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Printf("Error reading message: %v", err)
			return
		}

		var env domain.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Printf("Error parsing message: %v", err)
			continue
		}

		if env.Type == domain.EventPreviousMessages {
			var resp domain.HistoryResponse
			if err := json.Unmarshal(data, &resp); err != nil {
				log.Printf("Error parsing history: %v", err)
				continue
			}
			for _, entry := range resp.Messages {
				fmt.Printf("\n[history] %s: %s\n", entry.Sender.Username, entry.Message)
			}
			continue
		}

		var msg domain.ChatBroadcast
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Error parsing message: %v", err)
			continue
		}
		fmt.Printf("\n[job %d] %s: %s\n", msg.JobID, msg.Sender, msg.Message)
	}
}

func writeMessages(conn *websocket.Conn, username string, interrupt chan os.Signal, done chan struct{}) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection...")
			err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Printf("Error during close: %v", err)
			}
			return
		default:
			if scanner.Scan() {
				content := scanner.Text()
				if content == "" {
					continue
				}

				event := struct {
					Type domain.EventType `json:"type"`
					domain.ChatEvent
				}{
					Type: domain.EventChat,
					ChatEvent: domain.ChatEvent{
						Message:    content,
						JobID:      *jobID,
						SenderID:   *senderID,
						ReceiverID: *receiverID,
						Sender:     username,
					},
				}

				if err := conn.WriteJSON(event); err != nil {
					log.Printf("Error sending message: %v", err)
					return
				}

				fmt.Printf("[Sent] %s\n", content)
			}
		}
	}
}
