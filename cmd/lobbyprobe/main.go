// Command lobbyprobe is a wire-level diagnostic client: it logs into a
// running lobby server, prints the roster the server reports, and can
// stay connected to watch notifications arrive.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/udisondev/c3go/internal/protocol"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:31523", "lobby server address")
	name := flag.String("name", "probe", "nickname to log in with")
	watch := flag.Duration("watch", 0, "keep reading notifications for this long after login")
	flag.Parse()

	if err := run(*addr, *name, *watch); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(addr, name string, watch time.Duration) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer conn.Close()
	fmt.Println("connected to", addr)

	buf := make([]byte, protocol.MaxPacketSize)

	// login form; the game-key field carries the nickname
	p := protocol.Parse(buf, 0)
	p.SeekToStart()
	p.WriteString("1.0.0.7")
	p.WriteString("2.0.7")
	p.WriteString("") // email
	p.WriteString("") // password
	p.WriteString(name)
	if err := p.WriteHeader(protocol.CmdLoginForm, 0, 0); err != nil {
		return fmt.Errorf("composing login: %w", err)
	}
	if _, err := conn.Write(p.Bytes()); err != nil {
		return fmt.Errorf("sending login: %w", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	if watch > 0 {
		deadline = time.Now().Add(watch)
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return err
	}

	for {
		if _, err := protocol.ReadFrame(conn, buf); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrDeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("reading frame: %w", err)
		}
		p := protocol.Parse(buf, 0)

		switch p.Cmd() {
		case protocol.RspLoginRoster:
			printRoster(p)
			if watch == 0 {
				return nil
			}
		default:
			fmt.Printf("<- cmd=%#x id1=%d id2=%d size=%d\n", p.Cmd(), p.ID1(), p.ID2(), p.Size())
		}
		if err := p.Err(); err != nil {
			return fmt.Errorf("parsing frame %#x: %w", p.Cmd(), err)
		}
	}
}

func printRoster(p *protocol.Packet) {
	p.ReadByte()
	self := p.ReadString()
	p.ReadString() // score string
	for n := 0; n < 5; n++ {
		p.ReadInt()
	}
	props := p.ReadString()
	fmt.Printf("logged in as %q (id %d, props %s)\n", self, p.ID1(), props)

	fmt.Println("players:")
	for {
		id := p.ReadInt()
		if id == 0 || p.Err() != nil {
			break
		}
		status := p.ReadByte()
		name := p.ReadString()
		p.ReadString() // score string
		p.ReadString() // props
		fmt.Printf("  %4d  %-16s status=%#02x\n", id, name, status)
	}

	fmt.Println("rooms:")
	for {
		host := p.ReadInt()
		if host == 0 || p.Err() != nil {
			break
		}
		p.ReadInt() // constant 8
		desc := p.ReadString()
		info := p.ReadString()
		p.ReadInt()
		p.ReadShort()
		n := p.ReadInt()
		members := make([]uint32, 0, n)
		for j := uint32(0); j < n; j++ {
			members = append(members, p.ReadInt())
		}
		fmt.Printf("  host=%d desc=%q info=%q members=%v\n", host, desc, info, members)
	}
}
