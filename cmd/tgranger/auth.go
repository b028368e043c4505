package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tgranger/pkg/auth"
)

var authName string

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored Telegram API credentials",
}

var authSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store API credentials",
	Long: `Prompts for the Telegram API id and hash and stores them in the system
keychain, falling back to an encrypted file under the config directory.`,
	RunE: runAuthSet,
}

var authCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify that API credentials are available",
	RunE:  runAuthCheck,
}

var authRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Delete stored API credentials",
	RunE:  runAuthRemove,
}

func init() {
	authCmd.PersistentFlags().StringVar(&authName, "name", "default", "credential set name")
	authCmd.AddCommand(authSetCmd, authCheckCmd, authRemoveCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthSet(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Telegram API id: ")
	apiID, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read api id: %w", err)
	}
	apiID = strings.TrimSpace(apiID)
	if apiID == "" {
		return fmt.Errorf("api id must not be empty")
	}

	// The hash is secret material, so read it without echo.
	fmt.Print("Telegram API hash: ")
	hashBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read api hash: %w", err)
	}
	apiHash := strings.TrimSpace(string(hashBytes))
	if apiHash == "" {
		return fmt.Errorf("api hash must not be empty")
	}

	manager, err := auth.NewManager()
	if err != nil {
		return err
	}
	if err := manager.Store(&auth.Credentials{
		Name:    authName,
		APIID:   apiID,
		APIHash: apiHash,
	}); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	fmt.Printf("Credentials %q stored.\n", authName)
	return nil
}

func runAuthCheck(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return err
	}

	creds, err := manager.Retrieve(authName)
	if err != nil {
		return fmt.Errorf("no credentials found for %q", authName)
	}

	fmt.Printf("Credentials %q found (api id %s, modified %s).\n",
		creds.Name, creds.APIID, creds.LastModified.Format("2006-01-02 15:04"))
	return nil
}

func runAuthRemove(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return err
	}
	if err := manager.Delete(authName); err != nil {
		return fmt.Errorf("failed to delete credentials %q: %w", authName, err)
	}
	fmt.Printf("Credentials %q removed.\n", authName)
	return nil
}
