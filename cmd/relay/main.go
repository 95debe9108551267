// Command relay is a thin interactive terminal client for the chat
// relay. It speaks the line-delimited wire protocol and nothing more:
// every state decision is the server's.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/hubline/relay/src/wire"
)

const help = `Commands:
  /help                     Show this help message
  /join <channel>           Join a channel (created on first use)
  /create <channel>         Create a new channel
  /msg <nickname> <text>    Send a private message
  /users [channel]          List users in a channel (default: current)
  /quit                     Disconnect and quit
Anything else is sent to your current channel.`

func main() {
	addr := flag.String("addr", "127.0.0.1:9090", "relay server address")
	nick := flag.String("nick", "", "nickname to register")
	flag.Parse()

	nickname := *nick
	if nickname == "" {
		fmt.Print("Enter your nickname: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			fmt.Fprintln(os.Stderr, "no nickname given")
			os.Exit(1)
		}
		nickname = strings.TrimSpace(line)
	}

	tcp, err := net.Dial("tcp", *addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect %s: %v\n", *addr, err)
		os.Exit(1)
	}
	conn := wire.Wrap(tcp)

	if err := conn.WriteMessage(wire.Message{Type: wire.TypeRegister, Content: nickname}); err != nil {
		fmt.Fprintf(os.Stderr, "register: %v\n", err)
		os.Exit(1)
	}

	done := make(chan struct{})
	go receive(conn, done)

	fmt.Println(help)

	stdin := bufio.NewScanner(os.Stdin)
	for stdin.Scan() {
		line := strings.TrimSpace(stdin.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := command(conn, line); quit {
				break
			}
			continue
		}
		// Plain input goes to the current channel; echo shows our own
		// message back in the stream.
		conn.WriteMessage(wire.Message{Type: wire.TypeChat, Content: line, Echo: true})
	}

	conn.Close()
	<-done
}

// command handles one slash command and reports whether to quit.
func command(conn wire.Conn, line string) bool {
	parts := strings.Fields(line)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "/help":
		fmt.Println(help)
	case "/quit", "/exit":
		return true
	case "/join":
		if len(args) < 1 {
			fmt.Println("Usage: /join <channel>")
			return false
		}
		conn.WriteMessage(wire.Message{Type: wire.TypeJoinChannel, Content: args[0]})
	case "/create":
		if len(args) < 1 {
			fmt.Println("Usage: /create <channel>")
			return false
		}
		conn.WriteMessage(wire.Message{Type: wire.TypeCreateChannel, Content: args[0]})
	case "/msg", "/pm":
		if len(args) < 2 {
			fmt.Println("Usage: /msg <nickname> <text>")
			return false
		}
		conn.WriteMessage(wire.Message{
			Type:      wire.TypePrivate,
			Recipient: args[0],
			Content:   strings.Join(args[1:], " "),
			Echo:      true,
		})
	case "/users", "/list":
		msg := wire.Message{Type: wire.TypeListUsers}
		if len(args) > 0 {
			msg.Content = args[0]
		}
		conn.WriteMessage(msg)
	default:
		fmt.Printf("Unknown command: %s\n", cmd)
	}
	return false
}

// receive prints server frames until the stream ends.
func receive(conn wire.Conn, done chan<- struct{}) {
	defer close(done)

	for {
		msg, err := conn.ReadMessage()
		if err != nil {
			fmt.Println("Disconnected from server.")
			return
		}
		switch msg.Type {
		case wire.TypeChat:
			fmt.Printf("[%s] [%s] %s: %s\n", msg.Timestamp, msg.Recipient, msg.Sender, msg.Text())
		case wire.TypePrivate:
			fmt.Printf("[%s] [PM] %s -> %s: %s\n", msg.Timestamp, msg.Sender, msg.Recipient, msg.Text())
		case wire.TypeInfo:
			fmt.Printf("[%s] [INFO] %s\n", msg.Timestamp, msg.Text())
		case wire.TypeError:
			fmt.Printf("[%s] [ERROR] %s\n", msg.Timestamp, msg.Text())
		case wire.TypeChannelsList:
			fmt.Printf("[%s] Available channels: %s\n", msg.Timestamp, strings.Join(msg.List(), ", "))
		case wire.TypeUsersList:
			fmt.Printf("[%s] Users in channel: %s\n", msg.Timestamp, strings.Join(msg.List(), ", "))
		case wire.TypeServerShutdown:
			fmt.Printf("[%s] [SERVER] %s\n", msg.Timestamp, msg.Text())
			return
		}
	}
}
