// Package main implements the arca-cli command-line tool.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lauto554/arca-soap/pkg/client"
	"github.com/lauto554/arca-soap/pkg/models"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getClient creates an API client from the command flags.
func getClient(cmd *cobra.Command) *client.Client {
	apiURL, _ := cmd.Root().PersistentFlags().GetString("api-url")

	return client.New(client.Config{
		BaseURL: apiURL,
		Timeout: 30 * time.Second,
	})
}

var rootCmd = &cobra.Command{
	Use:     "arca-cli",
	Short:   "ARCA access ticket client",
	Long:    `arca-cli acquires ARCA/AFIP web service access tickets through the access ticket service.`,
	Version: version,
}

func init() {
	rootCmd.AddCommand(acquireCmd)
	rootCmd.AddCommand(healthCmd)

	rootCmd.PersistentFlags().String("api-url", "http://localhost:8080", "Access ticket service URL")
	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format")

	acquireCmd.Flags().String("env", "homologation", "WSAA environment (homologation or production)")
	acquireCmd.Flags().String("service", "", "Target service identifier (server default when empty)")
}

var acquireCmd = &cobra.Command{
	Use:   "acquire <tenant>",
	Short: "Acquire an access ticket for a tenant",
	Args:  cobra.ExactArgs(1),
	RunE:  runAcquire,
}

func runAcquire(cmd *cobra.Command, args []string) error {
	envName, _ := cmd.Flags().GetString("env")
	service, _ := cmd.Flags().GetString("service")
	jsonOut, _ := cmd.Root().PersistentFlags().GetBool("json")

	env, err := models.ParseEnvironment(envName)
	if err != nil {
		return err
	}

	result, err := getClient(cmd).Access(cmd.Context(), args[0], env, service)
	if err != nil {
		return err
	}

	if jsonOut {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	if result.AlreadyAuthenticated {
		fmt.Println("remote service reports a valid ticket already exists")
		if result.Message != "" {
			fmt.Println(result.Message)
		}
		return nil
	}

	fmt.Printf("token:      %s\n", result.Ticket.Token)
	fmt.Printf("sign:       %s\n", result.Ticket.Sign)
	fmt.Printf("expiration: %s\n", result.Ticket.ExpirationTime)
	if result.Reused {
		fmt.Println("(reused from cache)")
	}
	return nil
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the access ticket service health",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := getClient(cmd).Health(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("healthy")
		return nil
	},
}
