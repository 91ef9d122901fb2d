package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"droneFleetManagement/internal/db"
	"droneFleetManagement/internal/fleet"
	grpcserver "droneFleetManagement/internal/grpc"
	"droneFleetManagement/internal/lifecycle"
	"droneFleetManagement/repository"
)

func newStatusCmd(opts *options) *cobra.Command {
	var addr, token string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show every drone with its effective status",
		Long: `Show every drone with its effective status.

Without --addr the local database is read directly. This is a read like any
other: missions found past their end are persisted as finished.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			var views []fleet.DroneView
			if addr != "" {
				conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
				if err != nil {
					return err
				}
				defer conn.Close()
				views, err = grpcserver.NewClient(conn, token).ListDrones(ctx)
				if err != nil {
					return err
				}
			} else {
				cfg, err := opts.loadLocal()
				if err != nil {
					return err
				}
				d, err := db.Open(cfg.Database.Path)
				if err != nil {
					return err
				}
				defer d.Close()
				store := repository.NewStore(d)
				views, err = newEngine(cfg, store, quietLogger()).ListDrones(ctx)
				if err != nil {
					return err
				}
			}
			renderStatus(cmd.OutOrStdout(), views, time.Now())
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "query a running fleetd over gRPC instead of the local database")
	cmd.Flags().StringVar(&token, "token", "", "Bearer token for --addr")
	return cmd
}

func stateLabel(st lifecycle.Status) string {
	switch st.State {
	case lifecycle.Idle:
		if st.ReservedBy != nil {
			return color.CyanString("reserved #%d", *st.ReservedBy)
		}
		return color.GreenString("idle")
	case lifecycle.InMission:
		return color.YellowString("in mission")
	case lifecycle.InMaintenance:
		return color.RedString("maintenance")
	default:
		return color.HiBlackString(string(st.State))
	}
}

func renderStatus(out io.Writer, views []fleet.DroneView, now time.Time) {
	if len(views) == 0 {
		fmt.Fprintln(out, "no drones registered")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tCAPABILITY\tPAYLOAD\tAUTONOMY\tSTATE\tREMAINING")
	for _, v := range views {
		remaining := "-"
		if v.Status.State == lifecycle.InMission {
			remaining = v.Status.Remaining(now).Round(time.Second).String()
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%.1f kg\t%d min\t%s\t%s\n",
			v.Drone.ID, v.Drone.Model, v.Drone.Capability, v.Drone.PayloadCapacityKg, v.Drone.AutonomyMin, stateLabel(v.Status), remaining)
	}
	_ = w.Flush()
}
