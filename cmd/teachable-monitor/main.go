// Command teachable-monitor tails the status of a running teachable from
// another terminal or machine.
//
// Usage:
//
//	go run ./cmd/teachable-monitor/ -addr raspberrypi.local:8080
//
// Flags:
//
//	-addr      Dashboard host:port (default: localhost:8080)
//	-retry     Delay between reconnect attempts (default: 2s)
//	-system    Also print host CPU and memory
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/teslashibe/go-teachable/pkg/teachable"
	"github.com/teslashibe/go-teachable/pkg/web"
	"golang.org/x/term"
)

var (
	addr   = flag.String("addr", "localhost:8080", "Dashboard host:port")
	retry  = flag.Duration("retry", 2*time.Second, "Delay between reconnect attempts")
	system = flag.Bool("system", false, "Also print host CPU and memory")
)

func main() {
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws/status"}
	m := &monitor{
		printer: teachable.NewPrinter(os.Stdout, term.IsTerminal(int(os.Stdout.Fd()))),
		out:     os.Stdout,
		system:  *system,
	}

	fmt.Printf("📡 Following %s (Ctrl+C to exit)\n", u.String())
	for {
		err := m.follow(ctx, u.String())
		if ctx.Err() != nil {
			return
		}
		fmt.Fprintf(os.Stderr, "⚠️  %v, reconnecting in %v\n", err, *retry)
		select {
		case <-ctx.Done():
			return
		case <-time.After(*retry):
		}
	}
}

type monitor struct {
	printer *teachable.Printer
	out     io.Writer
	system  bool
}

// follow prints status updates from one connection until it drops or ctx is
// done.
func (m *monitor) follow(ctx context.Context, target string) error {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.DialContext(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	conn.SetPingHandler(func(appData string) error {
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	go func() {
		<-ctx.Done()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return errors.New("dashboard closed the connection")
			}
			return err
		}
		var v web.StatusView
		if err := json.Unmarshal(data, &v); err != nil {
			continue
		}
		m.print(v)
	}
}

func (m *monitor) print(v web.StatusView) {
	m.printer.Print(v.Status)
	if m.system && !v.System.SampledAt.IsZero() {
		fmt.Fprintf(m.out, "   cpu %.0f%%  mem %.0f%% (%d MB)\n", v.System.CPUPercent, v.System.MemPercent, v.System.MemUsedMB)
	}
}
