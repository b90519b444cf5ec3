package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// PasswordPrompt prints label and returns what the operator typed.
type PasswordPrompt func(label string) ([]byte, error)

// TerminalPrompt reads without echo when stdin is a terminal and falls back
// to plain lines for piped input.
func TerminalPrompt(stdin *os.File, stdout io.Writer) PasswordPrompt {
	var piped *bufio.Reader
	return func(label string) ([]byte, error) {
		if stdin == nil {
			return nil, errors.New("stdin unavailable")
		}
		fmt.Fprint(stdout, label)

		fd := int(stdin.Fd())
		if term.IsTerminal(fd) {
			password, err := term.ReadPassword(fd)
			fmt.Fprintln(stdout)
			return password, err
		}

		if piped == nil {
			piped = bufio.NewReader(stdin)
		}
		line, err := piped.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		fmt.Fprintln(stdout)
		return []byte(strings.TrimRight(line, "\r\n")), nil
	}
}
