// Command password_tool sets or clears the gallery viewer password in the
// configuration file without starting the server.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gallery/internal/config"

	"golang.org/x/term"
)

func main() {
	configPath := flag.String("config", config.DefaultFile, "Path to the gallery configuration file")
	password := flag.String("password", "", "New password (leave blank to type securely)")
	clearPwd := flag.Bool("clear", false, "Remove the password and disable protection")
	flag.Parse()

	if err := run(*configPath, *password, *clearPwd, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "password_tool: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, password string, clearPwd bool, in *os.File, out io.Writer) error {
	store, err := config.NewStore(strings.TrimSpace(configPath))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	pwd := ""
	if !clearPwd {
		pwd, err = resolvePassword(password, in)
		if err != nil {
			return err
		}
	}
	if err := setPassword(store, pwd); err != nil {
		return err
	}
	if pwd == "" {
		fmt.Fprintf(out, "Password protection disabled in %s.\n", store.Path())
	} else {
		fmt.Fprintf(out, "Updated viewer password in %s.\n", store.Path())
	}
	return nil
}

func setPassword(store *config.Store, pwd string) error {
	raw, err := json.Marshal(map[string]interface{}{
		"python_config": map[string]string{"SESSION_PASSWORD": pwd},
	})
	if err != nil {
		return err
	}
	if _, err := store.Save(raw); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

func resolvePassword(input string, in *os.File) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed != "" {
		return trimmed, nil
	}

	reader := bufio.NewReader(in)
	first, err := promptPassword("Enter new password: ", in, reader)
	if err != nil {
		return "", err
	}
	second, err := promptPassword("Confirm password: ", in, reader)
	if err != nil {
		return "", err
	}
	if first != second {
		return "", fmt.Errorf("passwords do not match")
	}
	if first == "" {
		return "", fmt.Errorf("password cannot be empty; use -clear to disable protection")
	}
	return first, nil
}

func promptPassword(prompt string, in *os.File, reader *bufio.Reader) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		bytes, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(bytes)), nil
	}

	text, err := reader.ReadString('\n')
	if err != nil && !(err == io.EOF && text != "") {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
