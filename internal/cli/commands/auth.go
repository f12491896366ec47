package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/coinvest-dev/coinvest/internal/cli/app"
	"github.com/coinvest-dev/coinvest/internal/cli/client"
	"github.com/coinvest-dev/coinvest/internal/cli/forms"
	"github.com/coinvest-dev/coinvest/internal/cli/routes"
	"github.com/coinvest-dev/coinvest/internal/cli/session"
)

// NewLoginCmd creates the login command
func NewLoginCmd(rt *Runtime) *cobra.Command {
	var email, password, from string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to your Coinvest account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, routes.Login, func(ctx context.Context, a *app.App) error {
				return runLogin(ctx, a, email, password, from)
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set COINVEST_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set COINVEST_PASSWORD, will prompt if not provided)")
	cmd.Flags().StringVar(&from, "from", "", "Path to return to after login")

	return cmd
}

func runLogin(ctx context.Context, a *app.App, email, password, from string) error {
	if email == "" {
		email = os.Getenv("COINVEST_EMAIL")
	}
	email, err := ask(a, email, "Email")
	if err != nil {
		return err
	}
	password, err = askSecret(a, password, "COINVEST_PASSWORD", "Password")
	if err != nil {
		return err
	}

	form := forms.Login{Email: email, Password: password}
	if err := validate(a, form); err != nil {
		return err
	}

	if from == "" {
		from = a.ReturnTo()
	}
	user, err := a.Session.Login(ctx, form.Email, form.Password, session.WithReturnTo(from))
	if err != nil {
		return formError(a, err)
	}
	a.ForgetReturnTo()

	a.Console.Success("Logged in as %s (%s)", user.Email, user.Role)
	a.Console.Hint("Continue with: %s", commandFor(a.Nav.Current()))
	return nil
}

// NewLogoutCmd creates the logout command
func NewLogoutCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and forget the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, "", func(ctx context.Context, a *app.App) error {
				if !a.Session.State().IsAuthenticated {
					a.Console.Println("Not logged in.")
					return nil
				}
				ctx, cancel := a.Context(ctx)
				defer cancel()
				a.Session.Logout(ctx, true)
				a.Console.Success("Logged out")
				return nil
			})
		},
	}
}

// NewRegisterCmd creates the register command
func NewRegisterCmd(rt *Runtime) *cobra.Command {
	var name, email string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an investor account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, routes.Register, func(ctx context.Context, a *app.App) error {
				var form forms.Register
				var err error
				if form.FullName, err = ask(a, name, "Full name"); err != nil {
					return err
				}
				if form.Email, err = ask(a, email, "Email"); err != nil {
					return err
				}
				if form.Password, err = askSecret(a, "", "", "Password"); err != nil {
					return err
				}
				if form.ConfirmPassword, err = askSecret(a, "", "", "Confirm password"); err != nil {
					return err
				}
				if err := validate(a, form); err != nil {
					return err
				}

				res, err := a.Session.Register(ctx, client.RegisterRequest{
					FullName: form.FullName,
					Email:    form.Email,
					Password: form.Password,
				})
				if err != nil {
					return formError(a, err)
				}

				a.Nav.Navigate(routes.VerifyEmail)
				a.Console.Success("%s", registerMessage(res))
				a.Console.Hint("Verify your email with: coinvest verify-email --email %s", form.Email)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Full name")
	cmd.Flags().StringVar(&email, "email", "", "Email address")

	return cmd
}

func registerMessage(res *client.RegisterResult) string {
	if res.Message != "" {
		return res.Message
	}
	return "Registration successful"
}

// NewVerifyEmailCmd creates the verify-email command
func NewVerifyEmailCmd(rt *Runtime) *cobra.Command {
	var email, code string
	var resend bool

	cmd := &cobra.Command{
		Use:   "verify-email",
		Short: "Confirm your email address with the emailed code",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, routes.VerifyEmail, func(ctx context.Context, a *app.App) error {
				email, err := ask(a, email, "Email")
				if err != nil {
					return err
				}

				if resend {
					if err := validate(a, forms.ForgotPassword{Email: email}); err != nil {
						return err
					}
					msg, err := call(ctx, a, func(ctx context.Context) (string, error) {
						return a.Client.SendOTP(ctx, email)
					})
					if err != nil {
						return err
					}
					a.Console.Success("%s", msg)
					return nil
				}

				if code, err = ask(a, code, "Verification code"); err != nil {
					return err
				}
				if err := validate(a, forms.VerifyEmail{Email: email, Code: code}); err != nil {
					return err
				}
				msg, err := call(ctx, a, func(ctx context.Context) (string, error) {
					return a.Client.VerifyOTP(ctx, email, code)
				})
				if err != nil {
					return err
				}
				a.Nav.Navigate(routes.Login)
				a.Console.Success("%s", msg)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&code, "code", "", "6-digit verification code")
	cmd.Flags().BoolVar(&resend, "resend", false, "Send a new code instead of verifying")

	return cmd
}

// NewForgotPasswordCmd creates the forgot-password command
func NewForgotPasswordCmd(rt *Runtime) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Request a password reset",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, routes.ForgotPassword, func(ctx context.Context, a *app.App) error {
				email, err := ask(a, email, "Email")
				if err != nil {
					return err
				}
				if err := validate(a, forms.ForgotPassword{Email: email}); err != nil {
					return err
				}
				msg, err := call(ctx, a, func(ctx context.Context) (string, error) {
					return a.Client.ForgotPassword(ctx, email)
				})
				if err != nil {
					return err
				}
				a.Console.Success("%s", msg)
				a.Console.Hint("Then run: coinvest reset-password --token <token>")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address")

	return cmd
}

// NewResetPasswordCmd creates the reset-password command
func NewResetPasswordCmd(rt *Runtime) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password with a reset token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, routes.ResetPassword, func(ctx context.Context, a *app.App) error {
				var form forms.ResetPassword
				var err error
				if form.Token, err = ask(a, token, "Reset token"); err != nil {
					return err
				}
				if form.Password, err = askSecret(a, "", "", "New password"); err != nil {
					return err
				}
				if form.ConfirmPassword, err = askSecret(a, "", "", "Confirm password"); err != nil {
					return err
				}
				if err := validate(a, form); err != nil {
					return err
				}
				msg, err := call(ctx, a, func(ctx context.Context) (string, error) {
					return a.Client.ResetPassword(ctx, form.Token, form.Password)
				})
				if err != nil {
					return err
				}
				a.Nav.Navigate(routes.Login)
				a.Console.Success("%s", msg)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Reset token from the email")

	return cmd
}
