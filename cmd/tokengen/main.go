package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/spiderlily190/cad/internal/core/domain"
	"github.com/spiderlily190/cad/internal/infra/config"
	"github.com/spiderlily190/cad/internal/infra/security"
)

var (
	userID      string
	username    string
	permissions []string
	roles       []string
	ttl         time.Duration
	tokenBytes  int
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "tokengen",
		Short: "Mint credentials for a local CAD API",
	}

	accessCmd := &cobra.Command{
		Use:   "access",
		Short: "Sign an access token with the configured auth.jwt_secret",
		RunE:  runAccess,
	}
	accessCmd.Flags().StringVar(&userID, "user", "", "user id placed in the subject claim")
	accessCmd.Flags().StringVar(&username, "username", "", "display name")
	accessCmd.Flags().StringSliceVar(&permissions, "permissions", nil, "granted permissions, e.g. leo,dispatch")
	accessCmd.Flags().StringSliceVar(&roles, "roles", nil, "role flags: leo, ems-fd, dispatch, supervisor, admin")
	accessCmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime, defaults to auth.token_ttl")
	_ = accessCmd.MarkFlagRequired("user")

	apiTokenCmd := &cobra.Command{
		Use:   "api-token",
		Short: "Generate a random value for auth.api_token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := security.GenerateSecureToken(tokenBytes)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	apiTokenCmd.Flags().IntVar(&tokenBytes, "bytes", 32, "number of random bytes")

	rootCmd.AddCommand(accessCmd, apiTokenCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runAccess(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	for _, p := range permissions {
		if !domain.KnownPermission(domain.Permission(p)) {
			return fmt.Errorf("unknown permission %q", p)
		}
	}

	flags, err := parseRoles(roles)
	if err != nil {
		return err
	}

	manager, err := security.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}
	claims, err := manager.NewAccessTokenClaims(security.AccessTokenOptions{
		UserID:      userID,
		Username:    username,
		Permissions: permissions,
		Roles:       flags,
		TTL:         ttl,
	})
	if err != nil {
		return err
	}
	token, err := manager.Sign(claims)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func parseRoles(values []string) (security.RoleFlags, error) {
	var flags security.RoleFlags
	for _, v := range values {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "leo":
			flags.Leo = true
		case "ems-fd", "emsfd":
			flags.EmsFd = true
		case "dispatch":
			flags.Dispatch = true
		case "supervisor":
			flags.Supervisor = true
		case "admin":
			flags.Admin = true
		default:
			return flags, fmt.Errorf("unknown role %q", v)
		}
	}
	return flags, nil
}
