package http

import (
	"live-quiz-service/internal/engine"
	"live-quiz-service/internal/logger"

	"github.com/gorilla/websocket"
)

// wsPump owns all writes to one websocket connection. A single writer
// goroutine drains the send channel so engine broadcasts and read-loop
// replies never write concurrently; a relay goroutine forwards session
// events into the same channel.
type wsPump struct {
	send         chan outboundMessage
	closeSignals chan struct{}
	writerDone   chan struct{}
	relayDone    chan struct{}
}

func startPump(conn *websocket.Conn, events <-chan engine.Event) *wsPump {
	p := &wsPump{
		send:         make(chan outboundMessage, 16),
		closeSignals: make(chan struct{}),
		writerDone:   make(chan struct{}),
		relayDone:    make(chan struct{}),
	}

	go func() {
		defer close(p.writerDone)
		for msg := range p.send {
			if err := conn.WriteJSON(msg); err != nil {
				logger.Debug("ws write failed", "error", err)
				return
			}
		}
	}()

	go func() {
		defer close(p.relayDone)
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				select {
				case p.send <- outboundMessage{Type: string(event.Type), Payload: event.Payload}:
				case <-p.closeSignals:
					return
				}
			case <-p.closeSignals:
				return
			}
		}
	}()

	return p
}

// push queues a reply for the connection. Only the read loop may call it,
// and only before shutdown.
func (p *wsPump) push(msg outboundMessage) {
	select {
	case p.send <- msg:
	case <-p.writerDone:
	}
}

// shutdown stops the relay, drains the writer and waits for both.
func (p *wsPump) shutdown() {
	close(p.closeSignals)
	<-p.relayDone
	close(p.send)
	<-p.writerDone
}
