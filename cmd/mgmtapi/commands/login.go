package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/appliance-io/mgmtapi/pkg/applianceclient"
	"github.com/appliance-io/mgmtapi/pkg/mgmtapi"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// NewLoginCommand creates the login command.
func NewLoginCommand() *cobra.Command {
	var (
		endpoint string
		username string
		password string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login to an appliance",
		Long:  "Verify credentials against an appliance API endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			if endpoint == "" {
				endpoint = viper.GetString("endpoint")
			}

			if endpoint == "" {
				reader := bufio.NewReader(os.Stdin)
				fmt.Print("API endpoint: ")
				endpoint, _ = reader.ReadString('\n')
				endpoint = strings.TrimSpace(endpoint)
			}

			if endpoint == "" {
				return ErrEndpointRequired
			}

			if username == "" {
				username = viper.GetString("username")
			}

			if username == "" {
				reader := bufio.NewReader(os.Stdin)
				fmt.Print("Username: ")
				username, _ = reader.ReadString('\n')
				username = strings.TrimSpace(username)
			}

			if password == "" {
				password = viper.GetString("password")
			}

			if password == "" {
				fmt.Print("Password: ")

				bytePassword, err := term.ReadPassword(int(syscall.Stdin))
				if err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}

				password = string(bytePassword)

				fmt.Println()
			}

			config := &mgmtapi.Config{
				Endpoint:  endpoint,
				Username:  username,
				Password:  password,
				VerifyTLS: viper.GetBool("verify-tls"),
			}

			// Creating the client fetches the root document, which is the
			// credential check.
			client, err := applianceclient.New(cmd.Context(), config)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			fmt.Printf("Logged in to %s (API version %s)\n",
				applianceclient.NormalizeEndpoint(endpoint), client.Version())

			return nil
		},
	}

	cmd.Flags().StringVarP(&endpoint, "endpoint", "e", "", "appliance API endpoint URL")
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")

	return cmd
}
