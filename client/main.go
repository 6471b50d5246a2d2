// Terminal chat client for manual testing: joins one room and relays
// stdin lines as chat messages. Get a token from scripts/mktoken.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mahaj/baithak/pkg/model"
)

func main() {
	serverAddr := flag.String("addr", "localhost:8080", "gateway address")
	token := flag.String("token", "", "signed auth token (see scripts/mktoken)")
	username := flag.String("user", "alice", "username to send as")
	roomSlug := flag.String("room", "general", "room slug")
	roomID := flag.Int64("room-id", 7, "room id")
	roomName := flag.String("room-name", "general", "room display name")
	flag.Parse()

	if *token == "" {
		log.Fatal("missing -token")
	}

	u := url.URL{Scheme: "ws", Host: *serverAddr, Path: "/ws/" + *roomSlug}
	log.Printf("connecting to %s", u.String())

	header := http.Header{}
	header.Add("Authorization", "Bearer "+*token)

	c, _, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer c.Close()

	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				log.Println("read:", err)
				return
			}

			var notice model.OutboundNotice
			if err := json.Unmarshal(raw, &notice); err == nil && notice.Type != "" {
				fmt.Printf("\r* %s %s\n> ", notice.Username, notice.Message)
				continue
			}

			var msg model.OutboundMessage
			if err := json.Unmarshal(raw, &msg); err != nil {
				log.Printf("Received raw: %s", raw)
				continue
			}
			if msg.Image != nil {
				fmt.Printf("\r%s: %s [image: %s]\n> ", msg.Username, msg.Message, *msg.Image)
			} else {
				fmt.Printf("\r%s: %s\n> ", msg.Username, msg.Message)
			}
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		fmt.Print("> ")
		for scanner.Scan() {
			text := scanner.Text()
			if text == "" {
				fmt.Print("> ")
				continue
			}
			if text == "/quit" {
				close(interrupt)
				break
			}

			evt := model.InboundEvent{
				Message:  text,
				Username: *username,
				RoomID:   *roomID,
				RoomName: *roomName,
			}
			if err := c.WriteJSON(evt); err != nil {
				log.Println("write:", err)
				break
			}
			fmt.Print("> ")
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("interrupt")

			// Cleanly close the connection by sending a close message and then
			// waiting (with timeout) for the server to close the connection.
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("write close:", err)
				return
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		}
	}
}
