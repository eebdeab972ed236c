package main

import (
	"fmt"

	"mind-scribe/internal/services/auth"
	"mind-scribe/internal/session"

	"github.com/spf13/cobra"
)

var (
	authName     string
	authEmail    string
	authPassword string
	newPassword  string
	avatarURL    string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		err := api.Register(cmd.Context(), auth.RegisterRequest{
			Fullname: authName,
			Email:    authEmail,
			Password: authPassword,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Registered %s. Run `scribe login` to sign in.\n", authEmail)
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		token, err := api.Login(ctx, auth.LoginRequest{Email: authEmail, Password: authPassword})
		if err != nil {
			return err
		}

		userID, err := api.Verify(ctx, token)
		if err != nil {
			return fmt.Errorf("server rejected the new token: %w", err)
		}

		if err := store.Save(&session.Session{
			Token:  token,
			UserID: userID,
			Email:  authEmail,
			APIURL: api.BaseURL(),
		}); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", authEmail)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := requireSession()
		if err != nil {
			return err
		}

		user, err := api.Me(cmd.Context(), sess.Token)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\nid: %s\nnotes: %d\n", user.Fullname, user.Email, user.ID.Hex(), len(user.Notes))
		return nil
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Update full name, email and avatar",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := requireSession()
		if err != nil {
			return err
		}

		user, err := api.UpdateProfile(cmd.Context(), sess.Token, auth.UpdateProfileRequest{
			Fullname: authName,
			Email:    authEmail,
			Avatar:   avatarURL,
		})
		if err != nil {
			return err
		}

		// The token still names the old email; keep the local copy current.
		sess.Email = user.Email
		if err := store.Save(sess); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Profile updated: %s <%s>\n", user.Fullname, user.Email)
		return nil
	},
}

var passwordCmd = &cobra.Command{
	Use:   "password",
	Short: "Change the account password",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := requireSession()
		if err != nil {
			return err
		}

		if err := api.ChangePassword(cmd.Context(), sess.Token, auth.ChangePasswordRequest{
			OldPassword: authPassword,
			NewPassword: newPassword,
		}); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Password updated")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(registerCmd, loginCmd, logoutCmd, whoamiCmd, profileCmd, passwordCmd)

	registerCmd.Flags().StringVar(&authName, "name", "", "Full name")
	registerCmd.Flags().StringVar(&authEmail, "email", "", "Email address")
	registerCmd.Flags().StringVar(&authPassword, "password", "", "Password (6+ chars, letters and digits)")
	for _, f := range []string{"name", "email", "password"} {
		_ = registerCmd.MarkFlagRequired(f)
	}

	loginCmd.Flags().StringVar(&authEmail, "email", "", "Email address")
	loginCmd.Flags().StringVar(&authPassword, "password", "", "Password")
	_ = loginCmd.MarkFlagRequired("email")
	_ = loginCmd.MarkFlagRequired("password")

	profileCmd.Flags().StringVar(&authName, "name", "", "Full name")
	profileCmd.Flags().StringVar(&authEmail, "email", "", "Email address")
	profileCmd.Flags().StringVar(&avatarURL, "avatar", "", "Avatar URL")
	_ = profileCmd.MarkFlagRequired("name")
	_ = profileCmd.MarkFlagRequired("email")

	passwordCmd.Flags().StringVar(&authPassword, "old", "", "Current password")
	passwordCmd.Flags().StringVar(&newPassword, "new", "", "New password")
	_ = passwordCmd.MarkFlagRequired("old")
	_ = passwordCmd.MarkFlagRequired("new")
}
