package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mariotejeda2001/Glazeepink/pkg/api"
)

func registerCmd(e *env) *cobra.Command {
	var req api.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := e.client()
			if err != nil {
				return err
			}
			resp, err := c.Register(cmd.Context(), &req)
			if err != nil {
				return err
			}
			if err := e.saveSession(resp.Token); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s! Logged in until %s.\n", resp.User.Name, resp.ExpiresAt.Local().Format("2006-01-02 15:04"))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Name, "name", "", "your name")
	f.StringVar(&req.Email, "email", "", "email address")
	f.StringVar(&req.Password, "password", "", "password, at least 6 characters")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func loginCmd(e *env) *cobra.Command {
	var req api.LoginRequest
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := e.client()
			if err != nil {
				return err
			}
			resp, err := c.Login(cmd.Context(), &req)
			if err != nil {
				return err
			}
			if err := e.saveSession(resp.Token); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Hello again, %s.\n", resp.User.Name)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Email, "email", "", "email address")
	f.StringVar(&req.Password, "password", "", "password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func logoutCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.clearSession(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}
