package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// promptAPIKey reads a key from in without echo. It returns an empty key
// when in is not a terminal.
func promptAPIKey(in *os.File, out io.Writer, provider string) (string, error) {
	if in == nil || !term.IsTerminal(int(in.Fd())) {
		return "", nil
	}
	fmt.Fprintf(out, "Enter %s API key: ", provider)
	key, err := term.ReadPassword(int(in.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("reading api key: %w", err)
	}
	return strings.TrimSpace(string(key)), nil
}
