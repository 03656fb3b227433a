// file: cmd/root.go
// version: 1.2.0
// guid: 4b5c6d7e-8f9a-4b0c-9d1e-2f3a4b5c6d7e

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/booktrackapp/booktrack/internal/config"
	"github.com/booktrackapp/booktrack/internal/reset"
	"github.com/booktrackapp/booktrack/internal/server"
	"github.com/booktrackapp/booktrack/internal/storage"
)

var cfgFile string
var dataDir string
var databasePath string
var listenAddr string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "booktrack",
	Short: "Track your personal book library",
	Long: `Booktrack keeps a personal reading library in an embedded local
database: books, collections, settings, and point-in-time backups.

Records survive restarts, schema upgrades run automatically on open, and
deleted books are kept recoverable until compacted.`,
}

// openStores opens the database and returns the engine plus a close func.
func openStores(ctx context.Context) (*storage.Engine, *storage.Manager, error) {
	manager := storage.NewManager(config.AppConfig.DatabasePath)
	db, err := manager.Open(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	fmt.Printf("Using database: %s\n", config.AppConfig.DatabasePath)
	return storage.NewEngine(db), manager, nil
}

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long:  `Start the web server providing the library API and admin surface.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, manager, err := openStores(cmd.Context())
		if err != nil {
			return err
		}
		defer manager.Close()

		if err := config.LoadConfigFromFile(); err != nil {
			fmt.Printf("Warning: Could not load config file: %v\n", err)
		}

		broadcaster := reset.NewBroadcaster(engine)
		srv := server.NewServer(engine, broadcaster)

		cfg := server.ServerConfig{
			Addr:         config.AppConfig.ListenAddr,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		if rt := cmd.Flag("read-timeout").Value.String(); rt != "" {
			if d, err := time.ParseDuration(rt); err == nil {
				cfg.ReadTimeout = d
			}
		}
		if wt := cmd.Flag("write-timeout").Value.String(); wt != "" {
			if d, err := time.ParseDuration(wt); err == nil {
				cfg.WriteTimeout = d
			}
		}

		fmt.Println("Starting booktrack web server...")
		return srv.Start(cfg)
	},
}

// backupCmd groups the backup subcommands
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage library backups",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a backup of the books store",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, manager, err := openStores(cmd.Context())
		if err != nil {
			return err
		}
		defer manager.Close()

		name := ""
		if len(args) > 0 {
			name = args[0]
		}
		svc := newBackupService(engine, nil)
		meta, err := svc.CreateBackup(name)
		if err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}
		fmt.Printf("Backup %d created: %d books, %d bytes\n", meta.ID, meta.BookCount, meta.Size)
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, manager, err := openStores(cmd.Context())
		if err != nil {
			return err
		}
		defer manager.Close()

		svc := newBackupService(engine, nil)
		backups, err := svc.GetBackups()
		if err != nil {
			return fmt.Errorf("failed to list backups: %w", err)
		}
		if len(backups) == 0 {
			fmt.Println("No backups found")
			return nil
		}
		for _, b := range backups {
			name := b.Name
			if name == "" {
				name = "(unnamed)"
			}
			fmt.Printf("%4d  %s  %4d books  %8d bytes  %s\n",
				b.ID, b.Timestamp.Format(time.RFC3339), b.BookCount, b.Size, name)
		}
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Restore the books store from a backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("backup id must be an integer: %q", args[0])
		}

		engine, manager, err := openStores(cmd.Context())
		if err != nil {
			return err
		}
		defer manager.Close()

		svc := newBackupService(engine, reset.NewBroadcaster(engine))
		restored, err := svc.RestoreBackup(id)
		if err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}
		fmt.Printf("Restored %d books from backup %d\n", restored, id)
		return nil
	},
}

var backupDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("backup id must be an integer: %q", args[0])
		}

		engine, manager, err := openStores(cmd.Context())
		if err != nil {
			return err
		}
		defer manager.Close()

		svc := newBackupService(engine, nil)
		if err := svc.DeleteBackup(id); err != nil {
			return fmt.Errorf("delete failed: %w", err)
		}
		fmt.Printf("Backup %d deleted\n", id)
		return nil
	},
}

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show storage statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, manager, err := openStores(cmd.Context())
		if err != nil {
			return err
		}
		defer manager.Close()

		svc := newBackupService(engine, nil)
		stats, err := svc.GetStorageStats()
		if err != nil {
			return fmt.Errorf("failed to read stats: %w", err)
		}
		fmt.Printf("Books:          %d\n", stats.Books)
		fmt.Printf("Collections:    %d\n", stats.Collections)
		fmt.Printf("Backups:        %d\n", stats.Backups)
		fmt.Printf("Schema version: %d\n", stats.SchemaVersion)
		fmt.Printf("Disk usage:     %d bytes\n", stats.DiskUsage)
		return nil
	},
}

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear all books and collections (an automatic backup is taken first)",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("yes")
		if !confirm {
			return fmt.Errorf("reset destroys all books and collections; re-run with --yes to confirm")
		}

		engine, manager, err := openStores(cmd.Context())
		if err != nil {
			return err
		}
		defer manager.Close()

		svc := newBackupService(engine, reset.NewBroadcaster(engine))
		if err := svc.ClearAllData(); err != nil {
			return fmt.Errorf("reset failed: %w", err)
		}
		fmt.Println("All books and collections cleared")
		return nil
	},
}

// compactCmd represents the compact command
var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Physically remove soft-deleted books",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, manager, err := openStores(cmd.Context())
		if err != nil {
			return err
		}
		defer manager.Close()

		books := storage.NewBookStore(engine)
		removed, err := books.CompactDeleted()
		if err != nil {
			return fmt.Errorf("compact failed: %w", err)
		}
		fmt.Printf("Removed %d soft-deleted books\n", removed)
		return nil
	},
}

func newBackupService(engine *storage.Engine, broadcaster *reset.Broadcaster) *storage.BackupService {
	books := storage.NewBookStore(engine)
	collections := storage.NewCollectionStore(engine)
	settings := storage.NewSettingsStore(engine)
	return storage.NewBackupService(engine, books, collections, settings, broadcaster)
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.booktrack.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory holding the database and config")
	rootCmd.PersistentFlags().StringVar(&databasePath, "db", "", "path to database (default: <data-dir>/booktrack.pebble)")
	rootCmd.PersistentFlags().StringVar(&listenAddr, "listen", "", "address for the web server (default: localhost:8080)")

	viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	viper.BindPFlag("database_path", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("listen_addr", rootCmd.PersistentFlags().Lookup("listen"))

	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupRestoreCmd)
	backupCmd.AddCommand(backupDeleteCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(compactCmd)

	serveCmd.Flags().String("read-timeout", "15s", "read timeout (e.g. 15s, 1m)")
	serveCmd.Flags().String("write-timeout", "15s", "write timeout (e.g. 15s, 1m)")

	resetCmd.Flags().Bool("yes", false, "confirm destructive reset")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".booktrack")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}

	config.InitConfig()

	// Ensure the database directory exists
	if config.AppConfig.DatabasePath != "" {
		dbDir := filepath.Dir(config.AppConfig.DatabasePath)
		if dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o755); err != nil {
				fmt.Printf("Error creating database directory: %v\n", err)
			}
		}
	}
}
