// Command client is a terminal chat client for the hub.
// Lines typed on stdin are sent to the conversation, incoming messages are printed.
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"listing-chat/domain"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Addr  string `envconfig:"CHAT_ADDR" default:"ws://localhost:8080/ws"`
	Token string `envconfig:"CHAT_TOKEN" required:"true"`
	// CHAT_COLOURS colours our own messages apart from the other party's
	Colours bool `envconfig:"CHAT_COLOURS" default:"true"`
}

func main() {
	conversationID := flag.String("conversation", "", "Conversation to join")
	flag.Parse()
	if *conversationID == "" {
		log.Fatal("-conversation is required")
	}

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		log.Fatalf("Config error: %v", err)
	}
	color.Enable = config.Colours

	conn, _, err := websocket.DefaultDialer.Dial(config.Addr, nil)
	if err != nil {
		log.Fatalf("Failed to connect to %s: %v", config.Addr, err)
	}
	defer conn.Close()

	auth := map[string]string{
		"kind":           string(domain.KindAuth),
		"credential":     config.Token,
		"conversationId": *conversationID,
	}
	if err := conn.WriteJSON(auth); err != nil {
		log.Fatalf("Failed to authenticate: %v", err)
	}
	color.Gray.Printf("Joined %s, type a message and press enter\n", *conversationID)

	done := make(chan struct{})
	go func() {
		defer close(done)
		read(conn)
	}()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-done:
			color.Red.Println("Connection closed by the hub")
			return
		case <-interrupt:
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			frame := map[string]string{
				"kind":           string(domain.KindMessage),
				"conversationId": *conversationID,
				"content":        line,
			}
			if err := conn.WriteJSON(frame); err != nil {
				color.Red.Printf("Send failed: %v\n", err)
				return
			}
			color.Green.Printf("me: %s\n", line)
		}
	}
}

func read(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) && ce.Text != "" {
				color.Yellow.Printf("Closed: %s\n", ce.Text)
			}
			return
		}
		var frame domain.NewMessageFrame
		if err := json.Unmarshal(data, &frame); err != nil || frame.Kind != domain.KindNewMessage {
			continue
		}
		m := frame.Message
		fmt.Printf("%s %s: %s\n",
			color.Gray.Sprint(m.CreatedAt.Local().Format("15:04:05")),
			color.Cyan.Sprint(m.SenderID),
			m.Content)
	}
}
