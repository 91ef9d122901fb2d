package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"droneFleetManagement/internal/db"
	"droneFleetManagement/internal/fleet"
	"droneFleetManagement/models"
	"droneFleetManagement/repository"
)

// Roster is the seed file layout.
type Roster struct {
	Users  []SeedUser  `yaml:"users"`
	Drones []SeedDrone `yaml:"drones"`
}

type SeedUser struct {
	Username string      `yaml:"username"`
	Role     models.Role `yaml:"role"`
}

type SeedDrone struct {
	Model       string            `yaml:"model"`
	Capability  models.Capability `yaml:"capability"`
	PayloadKg   float64           `yaml:"payload_kg"`
	AutonomyMin int               `yaml:"autonomy_min"`
}

func parseRoster(r io.Reader) (*Roster, error) {
	var roster Roster
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&roster); err != nil {
		return nil, fmt.Errorf("decode roster: %w", err)
	}
	for i, u := range roster.Users {
		if u.Username == "" || !u.Role.Valid() {
			return nil, fmt.Errorf("user %d: username and a valid role are required", i)
		}
	}
	return &roster, nil
}

// seedRoster creates users that do not exist yet and adds every drone.
func seedRoster(ctx context.Context, store *repository.Store, engine *fleet.Engine, roster *Roster, out io.Writer) error {
	for _, u := range roster.Users {
		existing, err := store.Users.GetByUsername(ctx, u.Username)
		if err != nil {
			return err
		}
		if existing != nil {
			fmt.Fprintf(out, "user %s exists, skipped\n", u.Username)
			continue
		}
		if _, err := store.Users.Create(ctx, u.Username, u.Role); err != nil {
			return fmt.Errorf("create user %s: %w", u.Username, err)
		}
		fmt.Fprintf(out, "user %s (%s)\n", u.Username, u.Role)
	}
	for _, sd := range roster.Drones {
		d, err := engine.AddDrone(ctx, models.Drone{
			Model:             sd.Model,
			Capability:        sd.Capability,
			PayloadCapacityKg: sd.PayloadKg,
			AutonomyMin:       sd.AutonomyMin,
		})
		if err != nil {
			return fmt.Errorf("add drone %s: %w", sd.Model, err)
		}
		fmt.Fprintf(out, "drone %d %s (%s, %.1f kg, %d min)\n", d.ID, d.Model, d.Capability, d.PayloadCapacityKg, d.AutonomyMin)
	}
	return nil
}

func newSeedCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <roster.yaml>",
		Short: "Load users and drones from a YAML roster",
		Long: `Load users and drones from a YAML roster.

Example roster:
  users:
    - username: dispatch
      role: admin
  drones:
    - model: Matrice 350
      capability: transport
      payload_kg: 2.7
      autonomy_min: 55`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			roster, err := parseRoster(f)
			if err != nil {
				return err
			}
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
			return seedRoster(cmd.Context(), store, newEngine(cfg, store, quietLogger()), roster, cmd.OutOrStdout())
		},
	}
}
