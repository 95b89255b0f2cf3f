package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kass/go-pinmap/pkg/controller"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Log in and remember the user",
	Args:  cobra.ExactArgs(1),
	RunE:  runWithApp(false, runLogin),
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the logged-in user",
	Args:  cobra.NoArgs,
	RunE:  runWithApp(false, runLogout),
}

var registerCmd = &cobra.Command{
	Use:   "register <username>",
	Short: "Create an account",
	Args:  cobra.ExactArgs(1),
	RunE:  runWithApp(false, runRegister),
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	Args:  cobra.NoArgs,
	RunE:  runWithApp(false, runWhoami),
}

var (
	password string
	email    string
)

func init() {
	loginCmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when empty)")
	registerCmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when empty)")
	registerCmd.Flags().StringVarP(&email, "email", "e", "", "Email address")
	_ = registerCmd.MarkFlagRequired("email")
}

// promptPassword reads one line from in
func promptPassword(in io.Reader) (string, error) {
	fmt.Print("Password: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("empty password")
	}
	return line, nil
}

func resolvePassword() (string, error) {
	if password != "" {
		return password, nil
	}
	return promptPassword(os.Stdin)
}

func runLogin(a *app, cmd *cobra.Command, args []string) error {
	pw, err := resolvePassword()
	if err != nil {
		return err
	}

	ctrl, err := a.controller()
	if err != nil {
		return err
	}
	ctrl.Dispatch(controller.LoginMsg{Username: args[0], Password: pw})

	st := ctrl.State()
	if st.Login.Err != nil {
		return fmt.Errorf("login failed: %w", st.Login.Err)
	}
	printSuccess(st.Notice.Text)
	return nil
}

func runLogout(a *app, cmd *cobra.Command, args []string) error {
	ctrl, err := a.controller()
	if err != nil {
		return err
	}
	if ctrl.State().Session == nil {
		printInfo("Not logged in")
		return nil
	}

	ctrl.Dispatch(controller.LogoutMsg{})
	printSuccess(ctrl.State().Notice.Text)
	return nil
}

func runRegister(a *app, cmd *cobra.Command, args []string) error {
	pw, err := resolvePassword()
	if err != nil {
		return err
	}

	ctrl, err := a.controller()
	if err != nil {
		return err
	}
	ctrl.Dispatch(controller.RegisterMsg{Username: args[0], Email: email, Password: pw})

	st := ctrl.State()
	if st.Register.Err != nil {
		return fmt.Errorf("registration failed: %w", st.Register.Err)
	}
	printSuccess(st.Notice.Text)
	return nil
}

func runWhoami(a *app, cmd *cobra.Command, args []string) error {
	s, err := a.sessions.Restore()
	if err != nil {
		return err
	}
	if s == nil {
		printInfo("Not logged in")
		return nil
	}
	printStat("User", s.Username)
	printStat("Service", a.cfg.API.BaseURL)
	return nil
}
