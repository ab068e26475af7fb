package credstore

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// PromptLogin asks for the portal username and password on the terminal. The
// password is read without echo.
func PromptLogin() (Credentials, error) {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("User: ")
	line, err := reader.ReadString('\n')
	if err != nil {
		return Credentials{}, err
	}
	user := strings.TrimSpace(line)

	password, err := PromptSecret("Password: ")
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{User: user, Password: password}, nil
}

// PromptSecret reads a secret from the terminal without echoing it.
func PromptSecret(prompt string) ([]byte, error) {
	fmt.Print(prompt)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return nil, err
	}
	return secret, nil
}

// Interactive reports whether stdin is a terminal, i.e. whether prompting is
// possible at all.
func Interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
