package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/artpar/reshape/adapters/sqlite"
	"github.com/artpar/reshape/config"
)

var bridgesCmd = &cobra.Command{
	Use:   "bridges",
	Short: "Manage stored bridges",
	Long: `Manage version bridges stored in the database.

Stored bridges are merged with the ones declared in the config file
at startup and on every reload.

Examples:
  reshape bridges list
  reshape bridges get <bridge-id>
  reshape bridges import bridges.yaml
  reshape bridges delete <bridge-id>
  reshape bridges enable <bridge-id>
  reshape bridges disable <bridge-id>`,
}

var bridgesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored bridges",
	RunE:  runBridgesList,
}

var bridgesGetCmd = &cobra.Command{
	Use:   "get <bridge-id>",
	Short: "Get bridge details",
	Args:  cobra.ExactArgs(1),
	RunE:  runBridgesGet,
}

var bridgesImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import bridges from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE:  runBridgesImport,
}

var bridgesDeleteCmd = &cobra.Command{
	Use:   "delete <bridge-id>",
	Short: "Delete a bridge",
	Args:  cobra.ExactArgs(1),
	RunE:  runBridgesDelete,
}

var bridgesEnableCmd = &cobra.Command{
	Use:   "enable <bridge-id>",
	Short: "Enable a bridge",
	Args:  cobra.ExactArgs(1),
	RunE:  makeBridgesToggle(true),
}

var bridgesDisableCmd = &cobra.Command{
	Use:   "disable <bridge-id>",
	Short: "Disable a bridge",
	Args:  cobra.ExactArgs(1),
	RunE:  makeBridgesToggle(false),
}

func init() {
	rootCmd.AddCommand(bridgesCmd)

	bridgesCmd.AddCommand(bridgesListCmd)
	bridgesCmd.AddCommand(bridgesGetCmd)
	bridgesCmd.AddCommand(bridgesImportCmd)
	bridgesCmd.AddCommand(bridgesDeleteCmd)
	bridgesCmd.AddCommand(bridgesEnableCmd)
	bridgesCmd.AddCommand(bridgesDisableCmd)
}

func runBridgesList(cmd *cobra.Command, args []string) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	store := sqlite.NewBridgeStore(db)
	bridges, err := store.List(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list bridges: %w", err)
	}

	if len(bridges) == 0 {
		fmt.Println("No stored bridges found.")
		fmt.Println()
		fmt.Println("Import bridges with: reshape bridges import bridges.yaml")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPATH\tMATCH\tMETHODS\tVERSION\tPRIORITY\tENABLED")
	fmt.Fprintln(w, "--\t----\t----\t-----\t-------\t-------\t--------\t-------")

	for _, b := range bridges {
		methods := "*"
		if len(b.Methods) > 0 {
			methods = strings.Join(b.Methods, ",")
		}
		enabled := "no"
		if b.Enabled {
			enabled = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			b.ID, b.Name, b.PathPattern, b.MatchType, methods, b.Version, b.Priority, enabled)
	}

	w.Flush()
	return nil
}

func runBridgesGet(cmd *cobra.Command, args []string) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	store := sqlite.NewBridgeStore(db)
	b, err := store.Get(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("bridge not found: %s", args[0])
	}

	fmt.Printf("ID:          %s\n", b.ID)
	fmt.Printf("Name:        %s\n", b.Name)
	if b.Description != "" {
		fmt.Printf("Description: %s\n", b.Description)
	}
	fmt.Printf("Path:        %s\n", b.PathPattern)
	fmt.Printf("Match Type:  %s\n", b.MatchType)
	methods := "*"
	if len(b.Methods) > 0 {
		methods = strings.Join(b.Methods, ", ")
	}
	fmt.Printf("Methods:     %s\n", methods)
	fmt.Printf("Version:     %s\n", b.Version)
	fmt.Printf("Priority:    %d\n", b.Priority)
	fmt.Printf("Enabled:     %v\n", b.Enabled)
	fmt.Printf("Created:     %s\n", b.CreatedAt.Format("2006-01-02 15:04:05"))
	if !b.UpdatedAt.IsZero() {
		fmt.Printf("Updated:     %s\n", b.UpdatedAt.Format("2006-01-02 15:04:05"))
	}

	if !b.IsEmpty() {
		if data, err := json.MarshalIndent(b.Request, "", "  "); err == nil {
			fmt.Printf("Request Changes:\n%s\n", string(data))
		}
		if data, err := json.MarshalIndent(b.Response, "", "  "); err == nil {
			fmt.Printf("Response Changes:\n%s\n", string(data))
		}
	}

	return nil
}

func runBridgesImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	var decls []config.BridgeConfig
	if err := yaml.Unmarshal(data, &decls); err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}
	if len(decls) == 0 {
		return fmt.Errorf("%s contains no bridges", args[0])
	}

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return err
	}

	store := sqlite.NewBridgeStore(db)
	ctx := context.Background()

	for _, decl := range decls {
		b := decl.Bridge()
		b.ID = uuid.New().String()
		if err := store.Create(ctx, b); err != nil {
			return fmt.Errorf("import %q: %w", b.Name, err)
		}
		fmt.Printf("%s Imported bridge: %s (%s)\n", checkMark, b.Name, b.ID)
	}

	return nil
}

func runBridgesDelete(cmd *cobra.Command, args []string) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	store := sqlite.NewBridgeStore(db)
	if err := store.Delete(context.Background(), args[0]); err != nil {
		return fmt.Errorf("failed to delete bridge: %w", err)
	}

	fmt.Printf("%s Deleted bridge: %s\n", checkMark, args[0])
	return nil
}

func makeBridgesToggle(enabled bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		store := sqlite.NewBridgeStore(db)
		ctx := context.Background()

		b, err := store.Get(ctx, args[0])
		if err != nil {
			return fmt.Errorf("bridge not found: %s", args[0])
		}

		b.Enabled = enabled
		if err := store.Update(ctx, b); err != nil {
			return fmt.Errorf("failed to update bridge: %w", err)
		}

		state := "Enabled"
		if !enabled {
			state = "Disabled"
		}
		fmt.Printf("%s %s bridge: %s\n", checkMark, state, b.Name)
		return nil
	}
}

func openDatabase() (*sqlite.DB, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("no database configured: set database.dsn in %s", cfgFile)
	}

	db, err := sqlite.Open(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return db, nil
}
