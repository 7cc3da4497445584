package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meddx/meddx/internal/platform/auth"
)

func accountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts in the configured credential store",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			name, _ := cmd.Flags().GetString("name")
			admin, _ := cmd.Flags().GetBool("admin")
			if username == "" {
				return errors.New("--username is required")
			}

			password := os.Getenv("MEDDX_PASSWORD")
			if password == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, newLogger(cmd.ErrOrStderr(), cfg.IsDev()))
			if err != nil {
				return err
			}
			defer a.Close()

			roles := []string{auth.RoleUser}
			if admin {
				roles = []string{auth.RoleAdmin}
			}
			acct, err := a.accounts.CreateWithRoles(cmd.Context(), username, password, name, roles)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created account %s (%s) with roles %s\n",
				acct.Username, acct.ID, strings.Join(acct.Roles, ","))
			return nil
		},
	}
	createCmd.Flags().String("username", "", "Account username")
	createCmd.Flags().String("name", "", "Display name")
	createCmd.Flags().Bool("admin", false, "Grant the admin role")
	cmd.AddCommand(createCmd)

	return cmd
}
