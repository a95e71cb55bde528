package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"AccessDeck/internal/i18n"

	"golang.org/x/term"
)

var ErrPasswordMismatch = errors.New("passwords do not match")

// stdin is shared so buffered input is not lost between questions.
var stdin = bufio.NewReader(os.Stdin)

// IsInteractive reports whether stdin and stdout are both terminals.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func AskString(label, defaultValue string) (string, error) {
	if defaultValue != "" {
		fmt.Printf("%s [%s]: ", label, defaultValue)
	} else {
		fmt.Printf("%s: ", label)
	}
	return readAnswer(stdin, defaultValue)
}

func readAnswer(r *bufio.Reader, defaultValue string) (string, error) {
	text, err := r.ReadString('\n')
	if err != nil && (err != io.EOF || text == "") {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return defaultValue, nil
	}
	return text, nil
}

func AskBool(label string, defaultValue bool) (bool, error) {
	defaultText := i18n.T(i18n.MsgPromptDefaultNo)
	if defaultValue {
		defaultText = i18n.T(i18n.MsgPromptDefaultYes)
	}
	fmt.Print(i18n.T(i18n.MsgPromptDefaultLabel, map[string]interface{}{"Label": label, "Default": defaultText}))

	text, err := readAnswer(stdin, "")
	if err != nil {
		return false, err
	}
	return parseBool(text, defaultValue), nil
}

func parseBool(text string, defaultValue bool) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	switch text {
	case "":
		return defaultValue
	case "y", "yes", "true", i18n.T(i18n.MsgPromptDefaultYes):
		return true
	case "n", "no", "false", i18n.T(i18n.MsgPromptDefaultNo):
		return false
	}
	return defaultValue
}

// AskPassword reads a password without echo, asking twice to confirm.
func AskPassword() (string, error) {
	first, err := readSecret(i18n.T(i18n.MsgPromptNewPassword))
	if err != nil {
		return "", err
	}
	second, err := readSecret(i18n.T(i18n.MsgPromptConfirmPassword))
	if err != nil {
		return "", err
	}
	if first != second {
		return "", ErrPasswordMismatch
	}
	return first, nil
}

func readSecret(label string) (string, error) {
	fmt.Printf("%s: ", label)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
