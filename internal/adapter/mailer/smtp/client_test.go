package smtp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/webstore4eto/messaging/internal/port"
)

// fakeServer speaks just enough SMTP for one delivery. rcptReply lets a
// test force a server-side rejection; the DATA body lands on bodies.
func fakeServer(t *testing.T, rcptReply string) (host, portNum string, bodies <-chan string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	ch := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		br := bufio.NewReader(conn)
		reply := func(s string) { fmt.Fprintf(conn, "%s\r\n", s) }
		reply("220 mock ESMTP")

		var data strings.Builder
		inData := false
		for {
			line, err := br.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimRight(line, "\r\n")
			if inData {
				if line == "." {
					inData = false
					ch <- data.String()
					reply("250 2.0.0 queued")
					continue
				}
				data.WriteString(line + "\r\n")
				continue
			}
			switch cmd := strings.ToUpper(line); {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				reply("250 mock")
			case strings.HasPrefix(cmd, "MAIL"):
				reply("250 2.1.0 sender ok")
			case strings.HasPrefix(cmd, "RCPT"):
				reply(rcptReply)
			case cmd == "DATA":
				inData = true
				reply("354 go ahead")
			case cmd == "QUIT":
				reply("221 bye")
				return
			default:
				reply("250 ok")
			}
		}
	}()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		t.Fatalf("split addr: %v", err)
	}
	return host, portStr, ch
}

func TestSend_DeliversHeadersAndBody(t *testing.T) {
	t.Parallel()

	host, portStr, bodies := fakeServer(t, "250 2.1.5 recipient ok")
	c := &Client{Host: host, Port: portStr, From: "shop@example.com"}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := c.Send(ctx, port.EmailMessage{
		To:      "buyer@example.com",
		Subject: "Order confirmed",
		Text:    "Thanks for your order.",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	var data string
	select {
	case data = <-bodies:
	case <-time.After(time.Second):
		t.Fatal("server never saw the message body")
	}
	for _, want := range []string{
		"From: shop@example.com",
		"To: buyer@example.com",
		"Subject: Order confirmed",
		"Message-ID: <",
		"Content-Type: text/plain; charset=UTF-8",
		"Thanks for your order.",
	} {
		if !strings.Contains(data, want) {
			t.Errorf("message missing %q:\n%s", want, data)
		}
	}
}

func TestSend_RecipientRejectionKeepsSMTPCode(t *testing.T) {
	t.Parallel()

	host, portStr, _ := fakeServer(t, "550 5.1.1 no such user")
	c := &Client{Host: host, Port: portStr, From: "shop@example.com"}

	err := c.Send(context.Background(), port.EmailMessage{To: "ghost@example.com", Subject: "hi", Text: "hi"})
	var tpErr *textproto.Error
	if !errors.As(err, &tpErr) || tpErr.Code != 550 {
		t.Fatalf("want *textproto.Error code 550, got %v", err)
	}
}

func TestSend_CanceledContextFailsDial(t *testing.T) {
	t.Parallel()

	host, portStr, _ := fakeServer(t, "250 ok")
	c := &Client{Host: host, Port: portStr, From: "shop@example.com"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Send(ctx, port.EmailMessage{To: "buyer@example.com", Subject: "hi", Text: "hi"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestBuildMessage_PrefersHTML(t *testing.T) {
	t.Parallel()

	data := string(buildMessage("shop@example.com", "mail.example.com", port.EmailMessage{
		To:      "buyer@example.com",
		Subject: "Sale",
		Text:    "plain",
		HTML:    "<b>rich</b>",
	}))
	if !strings.Contains(data, "Content-Type: text/html; charset=UTF-8") {
		t.Error("html message must carry the html content type")
	}
	if !strings.HasSuffix(data, "\r\n\r\n<b>rich</b>") {
		t.Errorf("body: %q", data)
	}
}

func TestSend_MissingConfig(t *testing.T) {
	t.Parallel()

	if err := (&Client{}).Send(context.Background(), port.EmailMessage{To: "a@b.c"}); err == nil {
		t.Error("empty host must error")
	}
	if err := (&Client{Host: "mail.example.com"}).Send(context.Background(), port.EmailMessage{To: "a@b.c"}); err == nil {
		t.Error("empty sender must error")
	}
}
