package main

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	MsgTypeJoinGame        = 101
	MsgTypeStartGame       = 102
	MsgTypeCreateGame      = 103
	MsgTypeWerewolfAction  = 201
	MsgTypeSeerAction      = 202
	MsgTypeDoctorAction    = 203
	MsgTypeBodyguardAction = 204
	MsgTypeWitchAction     = 205
	MsgTypeVoteAction      = 206
	MsgTypeHunterAction    = 207
	MsgTypeSendMessage     = 210
)

// send formats and sends a message to the WebSocket server.
func send(c *websocket.Conn, msgID uint16, data []byte) error {
	packet := make([]byte, 4+len(data))
	binary.BigEndian.PutUint16(packet[0:2], msgID)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(data)))
	copy(packet[4:], data)

	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func sendJSON(c *websocket.Conn, msgID uint16, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return send(c, msgID, data)
}

func main() {
	addr := flag.String("addr", "localhost:8080", "server address")
	user := flag.String("user", "", "user id for reconnects")
	name := flag.String("name", "tester", "display name")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			if len(message) < 4 {
				log.Printf("Received invalid packet of size %d", len(message))
				continue
			}
			msgID := binary.BigEndian.Uint16(message[0:2])
			data := message[4:]
			log.Printf("<- RECV (ID: %d): %s", msgID, string(data))
		}
	}()

	log.Println("Commands: create [n_ai] | join <game_id> | start | wolf <id> | seer <id> | doctor <id> | guard <id> | heal <id> | poison <id> | vote <id|abstain> | shoot <id> | say <text> | whisper <id> <text>")

	// Write loop
	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		default:
			text, _ := reader.ReadString('\n')
			fields := strings.Fields(strings.TrimSpace(text))
			if len(fields) == 0 {
				continue
			}

			var err error
			switch fields[0] {
			case "create":
				req := map[string]interface{}{}
				if len(fields) > 1 {
					req["ai_players"] = atoi(fields[1])
				}
				err = sendJSON(c, MsgTypeCreateGame, req)
			case "join":
				if len(fields) < 2 {
					continue
				}
				err = sendJSON(c, MsgTypeJoinGame, map[string]string{
					"game_id": fields[1],
					"user_id": *user,
					"name":    *name,
				})
			case "start":
				err = send(c, MsgTypeStartGame, []byte("{}"))
			case "wolf":
				err = target(c, MsgTypeWerewolfAction, fields)
			case "seer":
				err = target(c, MsgTypeSeerAction, fields)
			case "doctor":
				err = target(c, MsgTypeDoctorAction, fields)
			case "guard":
				err = target(c, MsgTypeBodyguardAction, fields)
			case "heal":
				if len(fields) < 2 {
					continue
				}
				err = sendJSON(c, MsgTypeWitchAction, map[string]string{"action": "heal", "target_id": fields[1]})
			case "poison":
				if len(fields) < 2 {
					continue
				}
				err = sendJSON(c, MsgTypeWitchAction, map[string]string{"action": "kill", "target_id": fields[1]})
			case "vote":
				err = target(c, MsgTypeVoteAction, fields)
			case "shoot":
				err = target(c, MsgTypeHunterAction, fields)
			case "say":
				if len(fields) < 2 {
					continue
				}
				err = sendJSON(c, MsgTypeSendMessage, map[string]string{
					"message": strings.Join(fields[1:], " "),
				})
			case "whisper":
				if len(fields) < 3 {
					continue
				}
				err = sendJSON(c, MsgTypeSendMessage, map[string]string{
					"whisper_target": fields[1],
					"message":        strings.Join(fields[2:], " "),
				})
			default:
				log.Printf("Unknown command: %s", fields[0])
				continue
			}
			if err != nil {
				log.Println("Write error:", err)
				return
			}
		}
	}
}

func target(c *websocket.Conn, msgID uint16, fields []string) error {
	if len(fields) < 2 {
		return nil
	}
	return sendJSON(c, msgID, map[string]string{"target_id": fields[1]})
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
