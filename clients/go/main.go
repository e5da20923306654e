// buzon CLI - command line client for the buzon mailbox
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/eldtechnologies/buzon/clients/go/buzon"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	device := os.Getenv("BUZON_DEVICE")
	client := buzon.NewClient(os.Getenv("BUZON_URL"), device)
	cmd := os.Args[1]

	switch cmd {
	case "health":
		resp, err := client.Health()
		exitOnError(err)
		printJSON(resp)

	case "send":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: buzon send <message>")
			os.Exit(1)
		}
		requireDevice(device)
		resp, err := client.Send(strings.Join(os.Args[2:], " "))
		exitOnError(err)
		fmt.Printf("Enviado a %s (#%d)\n", resp.To, resp.Message.ID)

	case "status":
		requireDevice(device)
		resp, err := client.Status()
		exitOnError(err)
		printJSON(resp)

	case "seen":
		requireDevice(device)
		resp, err := client.Status()
		exitOnError(err)
		if resp.Message == nil {
			fmt.Println("No hay mensajes")
			return
		}
		seen, err := client.MarkSeen(resp.Message.ID)
		exitOnError(err)
		fmt.Printf("Visto hasta #%d\n", seen.LastSeenMessageID)

	case "latest":
		msg, err := client.Latest()
		exitOnError(err)
		if msg == nil {
			fmt.Println("No hay mensajes")
			return
		}
		printMessage(msg)

	case "watch":
		requireDevice(device)
		interval := 3 * time.Second
		if len(os.Args) > 2 {
			d, err := time.ParseDuration(os.Args[2])
			exitOnError(err)
			interval = d
		}
		watch(client, interval)

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

// watch polls like a device does, printing and acknowledging each new message.
func watch(client *buzon.Client, interval time.Duration) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	online := false
	for {
		st, err := client.Status()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
		} else {
			if st.OtherOnline != online {
				online = st.OtherOnline
				fmt.Printf("%s %s\n", st.OtherDevice, map[bool]string{true: "en línea", false: "desconectado"}[online])
			}
			if st.HasUnread && st.Message != nil {
				printMessage(st.Message)
				if _, err := client.MarkSeen(st.Message.ID); err != nil {
					fmt.Fprintln(os.Stderr, "Error:", err)
				}
			}
		}

		select {
		case <-quit:
			return
		case <-ticker.C:
		}
	}
}

func requireDevice(device string) {
	if device == "" {
		fmt.Fprintln(os.Stderr, "BUZON_DEVICE must be set")
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`buzon CLI - two-person mailbox

Usage: buzon <command> [options]

Commands:
  send <message>      Send a message to the other participant
  status              Poll once and show this device's slot
  seen                Acknowledge the message in this device's slot
  latest              Show the newest message in either slot
  watch [interval]    Poll continuously (default 3s)
  health              Check server health

Environment:
  BUZON_URL      Server URL (default: http://localhost:5000)
  BUZON_DEVICE   Participant this client acts as`)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func printMessage(msg *buzon.Message) {
	fmt.Printf("[%s] %s: %s\n", msg.Timestamp.Local().Format("2006-01-02 15:04:05"), msg.From, msg.Text)
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}
