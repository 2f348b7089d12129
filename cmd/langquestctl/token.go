package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/langquest/langquest-core/internal/domain/shared"
	"github.com/langquest/langquest-core/internal/interface/http/handlers"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for local testing",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		name, _ := cmd.Flags().GetString("name")
		picture, _ := cmd.Flags().GetString("picture")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		secret, _ := cmd.Flags().GetString("secret")

		if secret == "" {
			secret = os.Getenv("AUTH_JWT_SECRET")
		}
		if secret == "" {
			return errors.New("no signing secret: pass --secret or set AUTH_JWT_SECRET")
		}

		identity := shared.Identity{UserID: shared.UserID(userID), FirstName: name, ImageURL: picture}
		if !identity.UserID.IsValid() {
			return errors.New("--user is required")
		}

		token, err := handlers.IssueToken(secret, identity, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().String("user", "", "User id (token subject)")
	tokenCmd.Flags().String("name", "", "Display name")
	tokenCmd.Flags().String("picture", "", "Avatar URL")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	tokenCmd.Flags().String("secret", "", "HS256 secret (defaults to AUTH_JWT_SECRET)")
}
