package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-teachable/pkg/labels"
	"github.com/teslashibe/go-teachable/pkg/teachable"
	"github.com/teslashibe/go-teachable/pkg/web"
)

func TestMonitor_Follow(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteJSON(web.StatusView{
			Status: teachable.Status{FPS: 30, Examples: 5, Class: labels.Class(3), ClassName: "Three"},
			System: web.SystemStats{CPUPercent: 42, MemPercent: 50, MemUsedMB: 512, SampledAt: time.Now()},
		})
		conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}))
	defer srv.Close()

	var out bytes.Buffer
	m := &monitor{printer: teachable.NewPrinter(&out, false), out: &out, system: true}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := m.follow(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"))
	require.Error(t, err)

	assert.Contains(t, out.String(), "fps 30.0; #examples: 5; Class Three")
	assert.Contains(t, out.String(), "cpu 42%")
}

func TestMonitor_DialFailure(t *testing.T) {
	m := &monitor{printer: teachable.NewPrinter(&bytes.Buffer{}, false), out: &bytes.Buffer{}}
	err := m.follow(context.Background(), "ws://127.0.0.1:1/ws/status")
	assert.ErrorContains(t, err, "dial")
}
