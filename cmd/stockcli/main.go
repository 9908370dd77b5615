// stockcli is a line-mode client for stockd: type a command, see the
// response. Responses are framed by the "." sentinel line, which is consumed
// and not printed.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"
)

func main() {
	addr := flag.String("addr", "localhost:4080", "server address")
	flag.Parse()

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect %s: %v\n", *addr, err)
		os.Exit(1)
	}
	defer conn.Close()

	stdin := bufio.NewScanner(os.Stdin)
	in := bufio.NewScanner(conn)
	out := bufio.NewWriter(conn)

	fmt.Print("> ")
	for stdin.Scan() {
		line := strings.TrimSpace(stdin.Text())
		if line == "" {
			fmt.Print("> ")
			continue
		}

		if _, err := out.WriteString(line + "\n"); err != nil {
			fmt.Fprintln(os.Stderr, "connection to server lost")
			return
		}
		if err := out.Flush(); err != nil {
			fmt.Fprintln(os.Stderr, "connection to server lost")
			return
		}

		if !printResponse(in) {
			fmt.Fprintln(os.Stderr, "connection to server lost")
			return
		}

		keyword := strings.ToUpper(strings.Fields(line)[0])
		if keyword == "QUIT" || keyword == "SHUTDOWN" {
			fmt.Println("disconnected")
			return
		}
		fmt.Print("> ")
	}
}

// printResponse reads lines up to the sentinel. Returns false when the server
// went away mid-response.
func printResponse(in *bufio.Scanner) bool {
	for in.Scan() {
		line := in.Text()
		if line == "." {
			return true
		}
		fmt.Println(line)
	}
	return false
}
