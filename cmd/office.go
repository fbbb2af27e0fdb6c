package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/geo-attendance/internal/config"
	"github.com/kozaktomas/geo-attendance/internal/database"
	"github.com/kozaktomas/geo-attendance/internal/geofence"
	"github.com/spf13/cobra"
)

var officeCmd = &cobra.Command{
	Use:   "office",
	Short: "Manage the office zone used for check-in",
}

var officeSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Replace the office location",
	Long: `Replace the single active office location.
Check-ins are accepted only within --radius meters of the given coordinates.`,
	RunE: runOfficeSet,
}

var officeShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current office location",
	RunE:  runOfficeShow,
}

func init() {
	rootCmd.AddCommand(officeCmd)
	officeCmd.AddCommand(officeSetCmd)
	officeCmd.AddCommand(officeShowCmd)

	officeSetCmd.Flags().String("name", "", "Office name (required)")
	officeSetCmd.Flags().Float64("lat", 0, "Latitude in degrees (required)")
	officeSetCmd.Flags().Float64("lon", 0, "Longitude in degrees (required)")
	officeSetCmd.Flags().Float64("radius", 0, "Allowed radius in meters (defaults to policy)")
	_ = officeSetCmd.MarkFlagRequired("name")
	_ = officeSetCmd.MarkFlagRequired("lat")
	_ = officeSetCmd.MarkFlagRequired("lon")
}

func runOfficeSet(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	radius := mustGetFloat64(cmd, "radius")
	if !cmd.Flags().Changed("radius") {
		radius = cfg.Policy.Office.DefaultRadiusMeters
	}
	zone := geofence.Zone{
		Center: geofence.Point{
			Latitude:  mustGetFloat64(cmd, "lat"),
			Longitude: mustGetFloat64(cmd, "lon"),
		},
		RadiusMeters: radius,
	}
	if err := zone.Validate(); err != nil {
		return err
	}
	name := strings.TrimSpace(mustGetString(cmd, "name"))
	if name == "" {
		return fmt.Errorf("office name must not be empty")
	}

	pool, err := connectCLIStores(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	ctx := cmd.Context()
	offices, err := database.GetOfficeStore(ctx)
	if err != nil {
		return err
	}

	office := &database.StoredOffice{
		ID:           uuid.New(),
		Name:         name,
		Latitude:     zone.Center.Latitude,
		Longitude:    zone.Center.Longitude,
		RadiusMeters: zone.RadiusMeters,
		CreatedAt:    time.Now().UTC(),
	}
	if err := offices.ReplaceOffice(ctx, office); err != nil {
		return fmt.Errorf("failed to set office: %w", err)
	}

	printOffice(office)
	return nil
}

func runOfficeShow(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	pool, err := connectCLIStores(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	ctx := cmd.Context()
	offices, err := database.GetOfficeStore(ctx)
	if err != nil {
		return err
	}

	office, err := offices.GetOffice(ctx)
	if err != nil {
		return fmt.Errorf("failed to get office: %w", err)
	}
	if office == nil {
		fmt.Println("Office location not set, check-ins are accepted from anywhere")
		return nil
	}
	printOffice(office)
	return nil
}

func printOffice(o *database.StoredOffice) {
	fmt.Printf("Office:   %s\n", o.Name)
	fmt.Printf("Location: %.6f, %.6f\n", o.Latitude, o.Longitude)
	fmt.Printf("Radius:   %.0fm\n", o.RadiusMeters)
	fmt.Printf("Set at:   %s\n", o.CreatedAt.UTC().Format(time.RFC3339))
}
