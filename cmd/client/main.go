package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/avlasov/Parley/internal/client"
	"github.com/avlasov/Parley/internal/protocol"
)

func main() {
	addr := flag.String("addr", "localhost:8080", "server address")
	room := flag.String("room", "", "room id (5 alphanumeric characters)")
	username := flag.String("username", "", "username")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *room == "" || *username == "" {
		fmt.Fprintln(os.Stderr, "usage: client -room ABC12 -username alice [-addr host:port]")
		os.Exit(1)
	}

	c := client.New(client.Config{
		Addr:     *addr,
		Room:     *room,
		Username: *username,
		Events: client.Events{
			OnState: func(s client.State) {
				fmt.Printf("* connection %s\n", s)
			},
			OnWelcome: func(greeting string, users []string) {
				fmt.Printf("* %s (online: %s)\n", greeting, strings.Join(users, ", "))
			},
			OnMessage: func(m protocol.Message) {
				fmt.Printf("[%s] %s: %s\n", m.Timestamp.Format("15:04:05"), m.Username, m.Content)
			},
			OnPresence: func(kind, username string, _ time.Time) {
				if kind == protocol.TypeUserJoined {
					fmt.Printf("* %s joined\n", username)
				} else {
					fmt.Printf("* %s left\n", username)
				}
			},
			OnTyping: func(users []string) {
				if len(users) > 0 {
					fmt.Printf("* typing: %s\n", strings.Join(users, ", "))
				}
			},
			OnRateLimit: func(remaining int, restored string) {
				fmt.Printf("* slow down: wait %ds (kept: %q)\n", remaining, restored)
			},
		},
	})

	if err := c.Connect(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "connect failed: %v (retrying in background)\n", err)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			break
		}
		c.NotifyTyping()
		if err := c.Send(line); err != nil {
			fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
		}
	}

	c.Disconnect()
}
