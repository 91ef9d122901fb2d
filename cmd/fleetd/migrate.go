package main

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"droneFleetManagement/internal/db"
)

func newMigrateCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadLocal()
			if err != nil {
				return err
			}
			d, err := db.Open(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer d.Close()
			return printVersions(cmd, d)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadLocal()
			if err != nil {
				return err
			}
			d, err := db.OpenNoMigrate(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer d.Close()
			v, err := db.RollbackLast(d)
			if err != nil {
				return err
			}
			if v == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to roll back")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %04d\n", color.YellowString("reverted"), v)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List applied migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadLocal()
			if err != nil {
				return err
			}
			d, err := db.OpenNoMigrate(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer d.Close()
			return printVersions(cmd, d)
		},
	})
	return cmd
}

func printVersions(cmd *cobra.Command, d *sql.DB) error {
	applied, err := db.AppliedVersions(d)
	if err != nil {
		return err
	}
	versions := make([]int, 0, len(applied))
	for v := range applied {
		versions = append(versions, v)
	}
	sort.Ints(versions)
	for _, v := range versions {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %04d\n", color.GreenString("applied"), v)
	}
	return nil
}
