// Package commands is the client's view layer: one cobra command per
// page, each entering its route through the guard before rendering.
package commands

import "github.com/spf13/cobra"

// AddAll registers every command on root
func AddAll(root *cobra.Command, rt *Runtime) {
	root.AddCommand(
		NewLoginCmd(rt),
		NewLogoutCmd(rt),
		NewRegisterCmd(rt),
		NewVerifyEmailCmd(rt),
		NewForgotPasswordCmd(rt),
		NewResetPasswordCmd(rt),
		NewWhoamiCmd(rt),
		NewDashboardCmd(rt),
		NewProfileCmd(rt),
		NewPlansCmd(rt),
		NewPricesCmd(rt),
		NewThemeCmd(rt),
		NewInvestCmd(rt),
		NewInvestmentsCmd(rt),
		NewWithdrawCmd(rt),
		NewWithdrawalsCmd(rt),
		NewNotificationsCmd(rt),
		NewAnnouncementsCmd(rt),
		NewActivityCmd(rt),
		NewWatchCmd(rt),
		NewAdminCmd(rt),
	)
}
