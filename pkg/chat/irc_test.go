package chat

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

// scriptedServer is a minimal IRC server: it registers the client, confirms
// the join, and records everything the client writes.
type scriptedServer struct {
	ln net.Listener

	mu    sync.Mutex
	lines []string

	conn   net.Conn
	connCh chan net.Conn
}

func newScriptedServer(t *testing.T) *scriptedServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s := &scriptedServer{ln: ln, connCh: make(chan net.Conn, 1)}
	go s.serve()
	t.Cleanup(func() {
		ln.Close()
		s.mu.Lock()
		if s.conn != nil {
			s.conn.Close()
		}
		s.mu.Unlock()
	})
	return s
}

func (s *scriptedServer) serve() {
	conn, err := s.ln.Accept()
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.connCh <- conn

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		s.mu.Lock()
		s.lines = append(s.lines, line)
		s.mu.Unlock()

		switch {
		case strings.HasPrefix(line, "USER "):
			conn.Write([]byte(":test.server 001 scribe :welcome\r\n"))
		case strings.HasPrefix(line, "JOIN "):
			conn.Write([]byte(":scribe!scribe@host JOIN #standup\r\n"))
		}
	}
}

func (s *scriptedServer) send(line string) {
	conn := <-s.connCh
	s.connCh <- conn
	conn.Write([]byte(line + "\r\n"))
}

func (s *scriptedServer) sawLine(substr string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

func waitCond(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestIRCJoinSayAndInbound(t *testing.T) {
	srv := newScriptedServer(t)

	c := NewIRC(IRCOptions{
		Addr:    srv.ln.Addr().String(),
		Nick:    "scribe",
		Channel: "#standup",
	})

	var mu sync.Mutex
	var joined []string
	var inbound []Message
	c.SetHandlers(Handlers{
		OnJoined: func(ch string) {
			mu.Lock()
			joined = append(joined, ch)
			mu.Unlock()
		},
		OnMessage: func(m Message) {
			mu.Lock()
			inbound = append(inbound, m)
			mu.Unlock()
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Run(ctx)
	}()
	defer func() {
		cancel()
		srv.ln.Close()
		select {
		case <-done:
		case <-time.After(3 * time.Second):
			t.Error("Run did not return after cancel")
		}
	}()

	waitCond(t, "join callback", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(joined) == 1 && joined[0] == "#standup"
	})

	c.Say("#standup", "hello meeting")
	waitCond(t, "privmsg on wire", func() bool {
		return srv.sawLine("PRIVMSG #standup :hello meeting")
	})

	srv.send(":alice!alice@host PRIVMSG #standup :!pause")
	waitCond(t, "inbound message", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(inbound) == 1
	})
	mu.Lock()
	got := inbound[0]
	mu.Unlock()
	if got.Nick != "alice" || got.Channel != "#standup" || got.Text != "!pause" {
		t.Fatalf("inbound = %+v", got)
	}
}

func TestSayDroppedWhenDisconnected(t *testing.T) {
	c := NewIRC(IRCOptions{Addr: "127.0.0.1:1", Nick: "scribe"})
	// Must not panic or block.
	c.Say("#standup", "void")
	c.Quit("bye")
}

func TestRunDialFailure(t *testing.T) {
	c := NewIRC(IRCOptions{Addr: "127.0.0.1:1", Nick: "scribe"})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Run(ctx); err == nil {
		t.Fatal("expected dial error")
	}
}
