package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"parking-locator/internal/live"
	"parking-locator/internal/mapscreen"
	"parking-locator/internal/status"
	"parking-locator/internal/subscriptions"
)

// errFailureShown marks a command whose outcome was a failure banner.
var errFailureShown = errors.New("operation failed")

func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, arg)
	}
	return id, nil
}

// outcome turns a visible failure banner into errFailureShown.
func (a *app) outcome() error {
	if msg, visible := a.banner.Current(); visible && msg.Kind == status.KindFailure {
		return errFailureShown
	}
	return nil
}

func (a *app) showMap(ctrl *mapscreen.Controller) error {
	if err := a.renderer.Map(a.out, ctrl.State()); err != nil {
		return err
	}
	return a.outcome()
}

func (a *app) showNotifications(ctrl *subscriptions.Controller) error {
	if err := a.renderer.Notifications(a.out, ctrl.State()); err != nil {
		return err
	}
	return a.outcome()
}

// mapCommand builds a command that focuses the map screen, runs action and
// prints the screen.
func mapCommand(a *app, use, short string, args cobra.PositionalArgs, action func(ctx context.Context, ctrl *mapscreen.Controller, args []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := a.mapController()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			ctrl.Focus(ctx)
			if action != nil {
				if err := action(ctx, ctrl, args); err != nil {
					return err
				}
			}
			return a.showMap(ctrl)
		},
	}
}

func newSpotsCmd(a *app) *cobra.Command {
	return mapCommand(a, "spots", "List every spot with its occupancy", cobra.NoArgs, nil)
}

func newClosestCmd(a *app) *cobra.Command {
	return mapCommand(a, "closest", "Locate the free spot closest to you", cobra.NoArgs,
		func(ctx context.Context, ctrl *mapscreen.Controller, _ []string) error {
			ctrl.LocateClosestFreeSpot(ctx)
			return nil
		})
}

func newClosestFavouriteCmd(a *app) *cobra.Command {
	return mapCommand(a, "closest-fav", "Locate the free spot closest to your favourite spot", cobra.NoArgs,
		func(ctx context.Context, ctrl *mapscreen.Controller, _ []string) error {
			ctrl.LocateClosestFreeSpotNearFavourite(ctx)
			return nil
		})
}

func newDetailCmd(a *app) *cobra.Command {
	return mapCommand(a, "detail SPOT_ID", "Show the detail sheet of a spot", cobra.ExactArgs(1),
		func(ctx context.Context, ctrl *mapscreen.Controller, args []string) error {
			spotID, err := parseID(args[0], "spot id")
			if err != nil {
				return err
			}
			ctrl.OpenSpotDetail(ctx, spotID)
			return nil
		})
}

func newHistoryCmd(a *app) *cobra.Command {
	return mapCommand(a, "history SPOT_ID", "Show the occupancy history of a spot", cobra.ExactArgs(1),
		func(ctx context.Context, ctrl *mapscreen.Controller, args []string) error {
			spotID, err := parseID(args[0], "spot id")
			if err != nil {
				return err
			}
			ctrl.OpenSpotHistory(ctx, spotID)
			return nil
		})
}

// toggleCmd opens the detail sheet so the toggle starts from the backend's
// current flags, then flips one of them.
func toggleCmd(a *app, use, short string, toggle func(ctrl *mapscreen.Controller) func(ctx context.Context, userID, spotID int64)) *cobra.Command {
	return mapCommand(a, use, short, cobra.ExactArgs(1),
		func(ctx context.Context, ctrl *mapscreen.Controller, args []string) error {
			spotID, err := parseID(args[0], "spot id")
			if err != nil {
				return err
			}
			userID, err := a.requireUser()
			if err != nil {
				return err
			}
			ctrl.OpenSpotDetail(ctx, spotID)
			if !ctrl.State().SheetOpen {
				return nil
			}
			toggle(ctrl)(ctx, userID, spotID)
			return nil
		})
}

func newNotifyCmd(a *app) *cobra.Command {
	return toggleCmd(a, "notify SPOT_ID", "Toggle the \"spot is free\" notification for a spot",
		func(ctrl *mapscreen.Controller) func(context.Context, int64, int64) { return ctrl.ToggleNotification })
}

func newFavouriteCmd(a *app) *cobra.Command {
	return toggleCmd(a, "favourite SPOT_ID", "Toggle a spot as your favourite",
		func(ctrl *mapscreen.Controller) func(context.Context, int64, int64) { return ctrl.ToggleFavourite })
}

func newNotificationsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "notifications",
		Short: "List the spots you get notifications for",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl := a.subscriptionsController()
			ctrl.Load(cmd.Context())
			return a.showNotifications(ctrl)
		},
	}
}

func newUnsubscribeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unsubscribe NOTIFICATION_ID",
		Short: "Stop a notification subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "notification id")
			if err != nil {
				return err
			}
			if _, err := a.requireUser(); err != nil {
				return err
			}
			ctx := cmd.Context()
			ctrl := a.subscriptionsController()
			ctrl.Load(ctx)
			ctrl.RequestUnsubscribe(id)
			ctrl.Confirm(ctx)
			return a.showNotifications(ctrl)
		},
	}
}

func newResendPasswordCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resend-password EMAIL",
		Short: "Mail a new password to EMAIL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.passwordResend().ResendPassword(cmd.Context(), args[0])
			if msg, visible := a.banner.Current(); visible {
				fmt.Fprintln(a.out, msg.Text)
			}
			if err != nil {
				return errFailureShown
			}
			return nil
		},
	}
}

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Request a bearer token for the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := a.requireUser()
			if err != nil {
				return err
			}
			token, err := a.client.RequestToken(cmd.Context(), userID)
			if err != nil {
				return err
			}
			if token == "" {
				fmt.Fprintln(a.out, "backend does not require a token")
				return nil
			}
			fmt.Fprintln(a.out, token)
			return nil
		},
	}
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep the map on screen and redraw it on every occupancy change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := a.mapController()
			if err != nil {
				return err
			}
			endpoint, err := live.EndpointFor(a.cfg.Client.BaseURL)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ctrl.Focus(ctx)
			if err := a.renderer.Map(a.out, ctrl.State()); err != nil {
				return err
			}

			err = live.NewWatcher(endpoint, a.log).Watch(ctx, func(ev live.Event) {
				a.log.Debug("occupancy changed", map[string]interface{}{"changed": len(ev.Changed)})
				ctrl.HandleLiveUpdate(ctx)
				if err := a.renderer.Map(a.out, ctrl.State()); err != nil {
					a.log.Warn("failed to render map", map[string]interface{}{"error": err.Error()})
				}
			})
			ctrl.Blur()
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
