package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"reelgrab/pkg/auth"
	"reelgrab/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored credentials",
	Long: `Manage the secrets reelgrab needs: the Groq API key for remote
transcription and the Instagram session cookies for the native engine.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read-only fallback)

Never share your credentials or config files!`,
}

// setKeyCmd represents the auth set-key command
var setKeyCmd = &cobra.Command{
	Use:   "set-key [api-key]",
	Short: "Store the Groq API key",
	Long: `Store the Groq API key used for Whisper transcription and the LLM
cleanup pass. When no key is given on the command line you will be
prompted for it without echo.

Get a key at https://console.groq.com/keys.`,
	Example: `  # Interactive prompt (recommended, keeps the key out of shell history)
  reelgrab auth set-key

  # Non-interactive
  reelgrab auth set-key gsk_abc123...`,
	Args: cobra.MaximumNArgs(1),
	Run:  runSetKey,
}

// setSessionCmd represents the auth set-session command
var setSessionCmd = &cobra.Command{
	Use:   "set-session",
	Short: "Store Instagram session cookies",
	Long: `Store the Instagram session cookies the native engine uses.

You will be prompted for:
  - Session ID (from the sessionid cookie)
  - CSRF Token (from the csrftoken cookie)
  - User Agent (optional, press Enter for default)

To get these values:
1. Log into Instagram in your browser
2. Open Developer Tools (F12)
3. Go to Application/Storage > Cookies
4. Find and copy the sessionid and csrftoken values`,
	Args: cobra.NoArgs,
	Run:  runSetSession,
}

// showCmd represents the auth show command
var showAuthCmd = &cobra.Command{
	Use:   "show",
	Short: "Show stored credentials",
	Long:  `Show all stored credential profiles with sensitive values masked.`,
	Args:  cobra.NoArgs,
	Run:   runAuthShow,
}

// deleteCmd represents the auth delete command
var deleteAuthCmd = &cobra.Command{
	Use:   "delete [profile]",
	Short: "Remove stored credentials",
	Long: `Remove a stored credential profile ("groq" or "instagram"), or all
profiles with --all.`,
	Example: `  # Remove the Groq key
  reelgrab auth delete groq

  # Remove everything
  reelgrab auth delete --all`,
	Args: cobra.MaximumNArgs(1),
	Run:  runAuthDelete,
}

var deleteAllCreds bool

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(setKeyCmd)
	authCmd.AddCommand(setSessionCmd)
	authCmd.AddCommand(showAuthCmd)
	authCmd.AddCommand(deleteAuthCmd)

	deleteAuthCmd.Flags().BoolVar(&deleteAllCreds, "all", false, "remove all stored credentials")
}

func newAuthManager() *auth.Manager {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}
	return manager
}

func runSetKey(cmd *cobra.Command, args []string) {
	manager := newAuthManager()

	var key string
	if len(args) > 0 {
		key = args[0]
	} else {
		auth.ShowGroqKeyGuide()
		fmt.Print("Groq API key: ")
		input, err := readSecret()
		if err != nil {
			ui.PrintError("Failed to read API key", err.Error())
			os.Exit(1)
		}
		key = input
	}

	key = strings.TrimSpace(key)
	if key == "" {
		ui.PrintError("API key is required")
		os.Exit(1)
	}
	if !strings.HasPrefix(key, "gsk_") {
		ui.PrintWarning("Key does not look like a Groq key (expected gsk_ prefix), storing anyway")
	}

	creds := &auth.Credentials{
		Name:   auth.ProfileGroq,
		APIKey: key,
	}
	if err := manager.Store(creds); err != nil {
		ui.PrintError("Failed to store API key", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Groq API key stored")
	fmt.Println("\nTranscribe a reel with:")
	fmt.Println("  reelgrab fetch --transcript <url>")
}

func runSetSession(cmd *cobra.Command, args []string) {
	manager := newAuthManager()
	reader := bufio.NewReader(os.Stdin)

	auth.ShowCookieExtractionGuide()

	fmt.Println("🔐 Enter your cookie values (they will be hidden as you type):")
	fmt.Println()

	fmt.Print("sessionid cookie value: ")
	sessionValue, err := readSecret()
	if err != nil {
		ui.PrintError("Failed to read session ID", err.Error())
		os.Exit(1)
	}
	if len(sessionValue) < 20 {
		ui.PrintWarning("That looks short for a sessionid, storing anyway")
	}

	fmt.Print("\ncsrftoken cookie value: ")
	csrfToken, err := readSecret()
	if err != nil {
		ui.PrintError("Failed to read CSRF token", err.Error())
		os.Exit(1)
	}

	fmt.Print("\nUser Agent (press Enter to use default): ")
	userAgent, _ := reader.ReadString('\n')
	userAgent = strings.TrimSpace(userAgent)

	creds := &auth.Credentials{
		Name:      auth.ProfileInstagram,
		SessionID: sessionValue,
		CSRFToken: csrfToken,
		UserAgent: userAgent,
	}
	if err := manager.Store(creds); err != nil {
		ui.PrintError("Failed to store session", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Instagram session stored")
}

func runAuthShow(cmd *cobra.Command, args []string) {
	manager := newAuthManager()

	bundles, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list credentials", err.Error())
		os.Exit(1)
	}

	if len(bundles) == 0 {
		ui.PrintInfo("No stored credentials", "Use 'reelgrab auth set-key' or 'reelgrab auth set-session'")
		return
	}

	for _, creds := range bundles {
		s := auth.Sanitize(creds)
		fmt.Println(ui.Cyan(s.Name))
		if s.APIKey != "" {
			fmt.Printf("  API key:       %s\n", s.APIKey)
		}
		if s.SessionID != "" {
			fmt.Printf("  Session ID:    %s\n", s.SessionID)
		}
		if s.CSRFToken != "" {
			fmt.Printf("  CSRF token:    %s\n", s.CSRFToken)
		}
		if s.UserAgent != "" {
			fmt.Printf("  User agent:    %s\n", s.UserAgent)
		}
		fmt.Printf("  Last modified: %s\n", s.LastModified.Format("2006-01-02 15:04:05"))
		fmt.Println()
	}
}

func runAuthDelete(cmd *cobra.Command, args []string) {
	manager := newAuthManager()

	if deleteAllCreds {
		fmt.Print("Remove ALL stored credentials? This cannot be undone! (yes/N): ")
		reader := bufio.NewReader(os.Stdin)
		confirm, _ := reader.ReadString('\n')
		if strings.TrimSpace(confirm) != "yes" {
			return
		}
		if err := manager.DeleteAll(); err != nil {
			ui.PrintError("Failed to remove credentials", err.Error())
			os.Exit(1)
		}
		ui.PrintSuccess("All credentials removed")
		return
	}

	if len(args) == 0 {
		ui.PrintError("Profile name required", "use 'groq', 'instagram', or --all")
		os.Exit(1)
	}

	if err := manager.Delete(args[0]); err != nil {
		ui.PrintError("Failed to remove credentials", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Credentials removed: " + args[0])
}

// readSecret reads a value from stdin without echoing
func readSecret() (string, error) {
	// Try to read without echo
	if term.IsTerminal(int(syscall.Stdin)) {
		secret, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println() // New line after hidden input
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
