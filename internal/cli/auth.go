package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/securescan/securescan-cli/internal/api"
	"github.com/securescan/securescan-cli/internal/session"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate against the SecureScan backend and store the session",
	RunE:  runLogin,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new SecureScan account",
	RunE:  runRegister,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Destroy the stored session",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the account that owns the current session",
	RunE:  runWhoami,
}

func init() {
	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)

	loginCmd.Flags().String("email", "", "Account email (prompted when omitted)")
	loginCmd.Flags().String("password", "", "Account password (prompted when omitted)")

	registerCmd.Flags().String("email", "", "Account email (prompted when omitted)")
	registerCmd.Flags().String("username", "", "Username, 3-100 characters (prompted when omitted)")
	registerCmd.Flags().String("password", "", "Password, minimum 8 characters (prompted when omitted)")
	registerCmd.Flags().String("full-name", "", "Display name (optional)")
}

func runLogin(cmd *cobra.Command, args []string) error {
	email, password, err := credentials(cmd)
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := cmdContext(cmd)
	defer cancel()

	if _, err := a.client.Login(ctx, email, password); err != nil {
		return printAPIError(err)
	}

	// Fetch the account snapshot so whoami works offline.
	user, err := a.client.Me(ctx)
	if err != nil {
		return printAPIError(err)
	}
	if err := a.tokens.SetUser(user.Email, user.Username); err != nil {
		return err
	}

	fmt.Printf("Logged in as %s (%s)\n", user.Username, user.Email)
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	username, _ := cmd.Flags().GetString("username")
	password, _ := cmd.Flags().GetString("password")
	fullName, _ := cmd.Flags().GetString("full-name")

	var err error
	if email == "" {
		if email, err = promptLine("Email: "); err != nil {
			return err
		}
	}
	if username == "" {
		if username, err = promptLine("Username: "); err != nil {
			return err
		}
	}
	if password == "" {
		if password, err = promptPassword("Password: "); err != nil {
			return err
		}
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := cmdContext(cmd)
	defer cancel()

	user, err := a.client.Register(ctx, api.RegisterRequest{
		Email:    email,
		Username: username,
		Password: password,
		FullName: fullName,
	})
	if err != nil {
		return printAPIError(err)
	}

	fmt.Printf("Account created: %s (%s). Run 'securescan login' to sign in.\n",
		user.Username, user.Email)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.tokens.Session() == nil {
		fmt.Println("No active session.")
		return nil
	}
	if err := a.client.Logout(); err != nil {
		return err
	}
	fmt.Println("Logged out.")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	sess := a.tokens.Session()
	if sess == nil {
		return fmt.Errorf("not logged in (run 'securescan login')")
	}

	ctx, cancel := cmdContext(cmd)
	defer cancel()

	user, err := a.client.Me(ctx)
	if err != nil {
		return printAPIError(err)
	}

	fmt.Printf("User:     %s\n", user.Username)
	fmt.Printf("Email:    %s\n", user.Email)
	if user.FullName != "" {
		fmt.Printf("Name:     %s\n", user.FullName)
	}
	fmt.Printf("Active:   %t\n", user.IsActive)

	// Expiry comes from the freshest token pair: Me may have rotated it.
	if access, _ := a.tokens.Tokens(); access != "" {
		if expiry, err := session.TokenExpiry(access); err == nil {
			fmt.Printf("Token:    expires %s (%s)\n",
				expiry.Format(time.RFC3339), time.Until(expiry).Round(time.Second))
		}
	}
	return nil
}

// credentials resolves login credentials from flags, prompting for
// whichever is missing.
func credentials(cmd *cobra.Command) (email, password string, err error) {
	email, _ = cmd.Flags().GetString("email")
	password, _ = cmd.Flags().GetString("password")

	if email == "" {
		if email, err = promptLine("Email: "); err != nil {
			return "", "", err
		}
	}
	if password == "" {
		if password, err = promptPassword("Password: "); err != nil {
			return "", "", err
		}
	}
	return email, password, nil
}

func promptLine(prompt string) (string, error) {
	line, err := readline.Line(prompt)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("empty input")
	}
	return line, nil
}

func promptPassword(prompt string) (string, error) {
	pw, err := readline.Password(prompt)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if len(pw) == 0 {
		return "", fmt.Errorf("empty password")
	}
	return string(pw), nil
}
