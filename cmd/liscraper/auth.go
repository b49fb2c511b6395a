package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"liscraper/pkg/auth"
	"liscraper/pkg/config"
	apperrors "liscraper/pkg/errors"
	"liscraper/pkg/linkedin"
	"liscraper/pkg/logger"
	"liscraper/pkg/report"
	"liscraper/pkg/scraper"
	"liscraper/pkg/session"
	"liscraper/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage LinkedIn credentials and sessions",
	Long: `Manage stored LinkedIn credentials securely.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (LISCRAPER_EMAIL / LISCRAPER_PASSWORD)

Never share your credentials or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [email]",
	Short: "Store credentials and establish a session",
	Long: `Store LinkedIn credentials securely and perform an initial login to warm
up the session cookie file.

You will be prompted for the email (if not provided) and password. The
password is read without echo. After storing, a login is attempted so any
verification challenge can be dealt with immediately; run with
--headless=false if you expect one.`,
	Example: `  # Interactive login
  liscraper auth login

  # Login with email, visible browser for challenge resolution
  liscraper auth login me@example.com --headless=false

  # Store credentials without attempting a login
  liscraper auth login me@example.com --store-only`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [email]",
	Short: "Remove stored credentials and the saved session",
	Args:  cobra.MaximumNArgs(1),
	Run:   runLogout,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	Long:  `List all stored LinkedIn accounts with passwords masked.`,
	Run:   runList,
}

// statusCmd represents the auth status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether the saved session is still valid",
	Long: `Check the saved session cookies against LinkedIn over plain HTTP,
without starting a browser. A cheap pre-flight before a batch run.`,
	Run: runStatus,
}

var storeOnly bool

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)
	authCmd.AddCommand(statusCmd)

	loginCmd.Flags().BoolVar(&storeOnly, "store-only", false, "store credentials without logging in")
}

func runLogin(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	var email string
	if len(args) > 0 {
		email = strings.TrimSpace(args[0])
	}
	if email == "" {
		email = promptLine("LinkedIn email: ")
	}
	if email == "" {
		ui.PrintError("Email is required")
		os.Exit(1)
	}

	fmt.Print("Password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		ui.PrintError("Failed to read password", err.Error())
		os.Exit(1)
	}
	password := strings.TrimSpace(string(passwordBytes))
	if password == "" {
		ui.PrintError("Password is required")
		os.Exit(1)
	}

	account := &auth.Account{Email: email, Password: password}
	if err := manager.Store(account); err != nil {
		ui.PrintError("Failed to store credentials", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Credentials stored securely")

	if storeOnly {
		return
	}

	cfg := loadConfigOrExit(cmd)
	cfg.LinkedIn.Email = email
	cfg.LinkedIn.Password = password

	rep := report.New(report.Config{
		Dir:            cfg.ErrorLog.Dir,
		MaxSizeBytes:   cfg.ErrorLog.MaxSizeBytes,
		MaxGenerations: cfg.ErrorLog.MaxGenerations,
	}, logger.GetLogger())
	defer rep.Close()

	s := scraper.New(cfg, rep, logger.GetLogger())
	defer s.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if err := s.Login(ctx, email, password); err != nil {
		ui.PrintError("Login failed", err.Error())
		printAnalysis(rep)
		os.Exit(1)
	}

	ui.PrintSuccess("Logged in, session saved to " + cfg.Browser.CookieFile)
}

func runLogout(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	var email string
	if len(args) > 0 {
		email = strings.TrimSpace(args[0])
	}

	if email == "" {
		accounts, err := manager.List()
		if err != nil || len(accounts) == 0 {
			ui.PrintWarning("No stored accounts found")
		} else {
			for _, account := range accounts {
				if err := manager.Delete(account.Email); err == nil {
					ui.PrintSuccess("Removed credentials for " + account.Email)
				}
			}
		}
	} else {
		if err := manager.Delete(email); err != nil {
			ui.PrintError("Failed to remove credentials", err.Error())
			os.Exit(1)
		}
		ui.PrintSuccess("Removed credentials for " + email)
	}

	// Drop the saved browser session too
	cfg, err := config.Load(configFile, nil)
	if err == nil {
		if err := os.Remove(cfg.Browser.CookieFile); err == nil {
			ui.PrintSuccess("Removed saved session " + cfg.Browser.CookieFile)
		}
	}
}

func runList(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	accounts, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list accounts", err.Error())
		os.Exit(1)
	}
	if len(accounts) == 0 {
		ui.PrintWarning("No stored accounts")
		return
	}

	for _, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		ui.PrintInfo(sanitized.Email, fmt.Sprintf("password %s, updated %s",
			sanitized.Password, sanitized.LastModified.Format("2006-01-02 15:04")))
	}
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := loadConfigOrExit(cmd)

	store := session.NewFileStore(cfg.Browser.CookieFile, logger.GetLogger())
	cookies, err := store.Load()
	if err != nil {
		ui.PrintError("Failed to read cookie file", err.Error())
		os.Exit(1)
	}
	if cookies == nil || !cookies.HasAuthCookie() {
		ui.PrintWarning("No saved session; run 'liscraper auth login' first")
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()

	probe := linkedin.NewProbe(cfg.LinkedIn.UserAgent, logger.GetLogger())
	if err := probe.ValidateSession(ctx, cookies); err != nil {
		ui.PrintError("Saved session is not usable", err.Error())
		ui.PrintInfo("Next step", apperrors.Instruction(apperrors.ClassifyError(err)))
		os.Exit(1)
	}

	ui.PrintSuccess(fmt.Sprintf("Session is valid (%d cookies, saved %s)",
		len(cookies.Cookies), cookies.SavedAt.Format("2006-01-02 15:04")))
}

func promptLine(prompt string) string {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}
