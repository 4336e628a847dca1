package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/nerimity/nerimity-go/internal/config"
	"github.com/nerimity/nerimity-go/internal/lock"
	"github.com/nerimity/nerimity-go/internal/rest"
	"github.com/nerimity/nerimity-go/internal/session"
)

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	flag.Parse()

	sessionName := session.Resolve(*sessionFlag)
	if err := session.ValidateName(sessionName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	if err := session.EnsureDir(sessionName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	creds, err := session.OpenCredentials(
		session.CredentialsDBPath(sessionName),
		session.KeyPath(sessionName),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = creds.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch args[0] {
	case "login":
		cmdLogin(ctx, creds)
	case "logout":
		cmdLogout(sessionName, creds)
	case "status":
		cmdStatus(sessionName, creds)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: nerimityctl [--session <name>] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  login     Log in with email (or username:tag) and password")
	fmt.Fprintln(os.Stderr, "  logout    Remove stored credentials (stop nerimityd first to drop its connection)")
	fmt.Fprintln(os.Stderr, "  status    Show stored session identity")
}

func cmdLogin(ctx context.Context, creds *session.Credentials) {
	cfg, err := config.Load(session.ConfigPath())
	if os.IsNotExist(err) {
		cfg = config.Default()
	} else if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Email or username:tag: ")
	account, err := reader.ReadString('\n')
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	account = strings.TrimSpace(account)

	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	client := rest.New(cfg.ServerURL, nil)
	resp, err := client.Login(ctx, account, string(password))
	if err != nil {
		fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
		os.Exit(1)
	}
	if err := creds.SetToken(resp.Token); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Logged in. Start nerimityd to connect.")
}

func cmdLogout(sessionName string, creds *session.Credentials) {
	if pid, held := lock.Holder(session.Dir(sessionName)); held {
		fmt.Fprintf(os.Stderr, "warning: nerimityd (pid %d) is running; it keeps its current connection until restarted\n", pid)
	}
	if err := creds.Wipe(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Logged out.")
}

func cmdStatus(sessionName string, creds *session.Credentials) {
	token, err := creds.Token()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Session: %s\n", sessionName)
	if token == "" {
		fmt.Println("Status:  logged out")
		return
	}
	fmt.Println("Status:  logged in")
	if userID, err := creds.UserID(); err == nil && userID != "" {
		fmt.Printf("User:    %s\n", userID)
	}
}
