package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/treehouse/treehouse/internal/api"
	"github.com/treehouse/treehouse/internal/app"
	"github.com/treehouse/treehouse/internal/config"
	"github.com/treehouse/treehouse/internal/cryptoutil"
	"github.com/treehouse/treehouse/internal/hotspot"
	"github.com/treehouse/treehouse/internal/logging"
	"github.com/treehouse/treehouse/internal/notify"
	"github.com/treehouse/treehouse/internal/registry"
	"github.com/treehouse/treehouse/internal/schedule"
	"github.com/treehouse/treehouse/internal/server"
	"github.com/treehouse/treehouse/internal/storage"
	"github.com/treehouse/treehouse/internal/version"
)

type rootFlags struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
}

type overrideFlags struct {
	Timezone      string
	BaseURL       string
	Storage       string
	LocalPath     string
	S3Endpoint    string
	S3Bucket      string
	S3AccessKey   string
	S3SecretKey   string
	S3Region      string
	S3UseSSL      string
	S3PathStyle   string
	EncryptionKey string
}

func main() {
	decimal.MarshalJSONWithoutQuotes = true

	root := &rootFlags{}
	overrides := &overrideFlags{}

	rootCmd := &cobra.Command{
		Use:          "treehouse",
		Short:        "Group-order windows, signups and menus for TreeHouse",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&root.ConfigPath, "config", "", "Path to config file (yaml/toml/json or .enc)")
	rootCmd.PersistentFlags().StringVar(&root.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&root.LogFormat, "log-format", "", "Log format (json, console)")

	rootCmd.PersistentFlags().StringVar(&overrides.Timezone, "timezone", "", "IANA timezone for the ordering schedule")
	rootCmd.PersistentFlags().StringVar(&overrides.BaseURL, "base-url", "", "TreeHouse API base URL")
	rootCmd.PersistentFlags().StringVar(&overrides.Storage, "storage", "", "Snapshot storage backend (local, s3)")
	rootCmd.PersistentFlags().StringVar(&overrides.LocalPath, "storage-path", "", "Local snapshot storage path")
	rootCmd.PersistentFlags().StringVar(&overrides.S3Endpoint, "s3-endpoint", "", "S3 endpoint (MinIO/OSS)")
	rootCmd.PersistentFlags().StringVar(&overrides.S3Bucket, "s3-bucket", "", "S3 bucket")
	rootCmd.PersistentFlags().StringVar(&overrides.S3AccessKey, "s3-access-key", "", "S3 access key")
	rootCmd.PersistentFlags().StringVar(&overrides.S3SecretKey, "s3-secret-key", "", "S3 secret key")
	rootCmd.PersistentFlags().StringVar(&overrides.S3Region, "s3-region", "", "S3 region")
	rootCmd.PersistentFlags().StringVar(&overrides.S3UseSSL, "s3-ssl", "", "Use SSL for S3 endpoint (true/false)")
	rootCmd.PersistentFlags().StringVar(&overrides.S3PathStyle, "s3-path-style", "", "Force path-style S3 (true/false)")
	rootCmd.PersistentFlags().StringVar(&overrides.EncryptionKey, "encryption-key", "", "Snapshot encryption key (base64 or hex)")

	rootCmd.AddCommand(newWindowCmd(root, overrides))
	rootCmd.AddCommand(newHotSpotsCmd(root, overrides))
	rootCmd.AddCommand(newServeCmd(root, overrides))
	rootCmd.AddCommand(newSignupCmd(root, overrides))
	rootCmd.AddCommand(newMenusCmd(root, overrides))
	rootCmd.AddCommand(newOrderCmd(root, overrides))
	rootCmd.AddCommand(newBatchesCmd(root, overrides))
	rootCmd.AddCommand(newSnapshotsCmd(root, overrides))
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newWindowCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	var at string
	var watch bool

	cmd := &cobra.Command{
		Use:   "window",
		Short: "Show the current or next ordering window",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root, overrides)
			if err != nil {
				return err
			}
			sched, err := newScheduler(cfg)
			if err != nil {
				return err
			}

			if !watch {
				now := time.Now()
				if at != "" {
					now, err = time.Parse(time.RFC3339, at)
					if err != nil {
						return fmt.Errorf("--at: %w", err)
					}
				}
				printWindow(sched.Compute(now))
				return nil
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			err = schedule.Run(ctx, sched, time.Second, time.Now, func(state schedule.WindowState) {
				fmt.Printf("\r%-28s %s ", state.DisplayLabel, state.Countdown())
			})
			fmt.Println()
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "Evaluate at this instant (RFC3339) instead of now")
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep printing the countdown every second")
	return cmd
}

func newHotSpotsCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	var seed uint64

	cmd := &cobra.Command{
		Use:   "hotspots",
		Short: "Print a simulated hot-spot board",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root, overrides)
			if err != nil {
				return err
			}
			if seed != 0 {
				cfg.HotSpots.Seed = seed
			}
			board := newBoard(cfg.HotSpots)
			view := board.View(cfg.HotSpots.MaxBatchSize)

			fmt.Printf("Batch #%d\n", view.Batch+1)
			for _, spot := range view.Hot {
				tag := ""
				switch {
				case spot.HighTraffic:
					tag = " [high traffic]"
				case spot.Secondary:
					tag = " [busy]"
				}
				fmt.Printf("  %-16s $%s  %2d/%d  %-11s %s  (%s)%s\n",
					spot.Name, spot.Fee.StringFixed(2), spot.Orders, cfg.HotSpots.MaxBatchSize,
					spot.Progress.Status, spot.Progress.Message, spot.FreeItem, tag)
			}
			fmt.Println("Other restaurants")
			for _, r := range view.Others {
				fmt.Printf("  %-16s $%s  (%s)\n", r.Name, r.Fee.StringFixed(2), r.FreeItem)
			}
			return nil
		},
	}
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed for a reproducible board")
	return cmd
}

func newServeCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	var addr string
	var restore string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root, overrides)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if restore != "" {
				cfg.Snapshot.Restore = restore
			}
			logger := logging.Configure(cfg.Global.LogLevel, cfg.Global.LogFormat)
			sched, err := newScheduler(cfg)
			if err != nil {
				return err
			}

			reg := registry.New()
			notifier := notify.FromConfig(cfg.Notifications)
			opts := server.Options{
				Config:    cfg,
				Scheduler: sched,
				Registry:  reg,
				Notifier:  notifier,
				Log:       logging.Component(logger, "server"),
			}
			if cfg.HotSpots.Enabled {
				opts.Board = newBoard(cfg.HotSpots)
			}
			if cfg.Snapshot.Interval > 0 || cfg.Snapshot.Restore != "" {
				store, err := storage.New(cfg.Storage)
				if err != nil {
					return err
				}
				opts.Snapshots = app.New(cfg, reg, store, logging.Component(logger, "snapshot"), notifier)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if logger.GetLevel() > zerolog.DebugLevel {
				gin.SetMode(gin.ReleaseMode)
			}
			return server.New(opts).Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default :5001)")
	cmd.Flags().StringVar(&restore, "restore", "", "Restore a snapshot before serving (latest or an object key)")
	return cmd
}

func newSignupCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	var req api.SignupRequest

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Sign a phone number up through the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.PhoneNumber == "" {
				return fmt.Errorf("--phone is required")
			}
			cfg, err := loadConfig(root, overrides)
			if err != nil {
				return err
			}
			if req.SMSConsent {
				now := time.Now().UTC()
				req.OptInTimestamp = &now
			}
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Global.OperationTimeout)
			defer cancel()
			resp, err := api.FromConfig(cfg.API).Signup(ctx, req)
			if err != nil {
				return err
			}
			fmt.Printf("%s (user %d)\n", resp.Message, resp.UserID)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.PhoneNumber, "phone", "", "Phone number")
	cmd.Flags().StringVar(&req.DormBuilding, "dorm", "", "Dorm building")
	cmd.Flags().StringVar(&req.RoomNumber, "room", "", "Room number")
	cmd.Flags().StringVar(&req.Name, "name", "", "Name")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email")
	cmd.Flags().BoolVar(&req.SMSConsent, "sms-consent", false, "Consent to SMS notifications")
	return cmd
}

func newMenusCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	var restaurantID int64

	cmd := &cobra.Command{
		Use:   "menus",
		Short: "List menus, or the items of one restaurant",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root, overrides)
			if err != nil {
				return err
			}
			client := api.FromConfig(cfg.API)
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Global.OperationTimeout)
			defer cancel()

			if restaurantID == 0 {
				menus, err := client.Menus(ctx)
				if err != nil {
					return err
				}
				for _, m := range menus {
					fmt.Printf("%d\t%s\t%s\n", m.ID, m.RestaurantName, m.MenuPath)
				}
				return nil
			}
			items, err := client.MenuItems(ctx, restaurantID)
			if err != nil {
				return err
			}
			for _, item := range items {
				fmt.Printf("%d\t%-14s\t$%s\t%s\n", item.ID, item.ItemName, item.Price.StringFixed(2), item.Category)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&restaurantID, "restaurant-id", 0, "Restaurant (menu) id")
	return cmd
}

func newOrderCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	var (
		userID int64
		items  []string
		fee    string
	)

	cmd := &cobra.Command{
		Use:   "order",
		Short: "Place an order for the current delivery window",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := api.OrderRequest{UserID: userID}
			for _, raw := range items {
				line, err := parseOrderLine(raw)
				if err != nil {
					return err
				}
				req.Items = append(req.Items, line)
			}
			if fee != "" {
				d, err := decimal.NewFromString(fee)
				if err != nil {
					return fmt.Errorf("invalid --fee %q: %w", fee, err)
				}
				req.DeliveryFee = &d
			}
			cfg, err := loadConfig(root, overrides)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Global.OperationTimeout)
			defer cancel()
			resp, err := api.FromConfig(cfg.API).PlaceOrder(ctx, req)
			if err != nil {
				return err
			}
			fmt.Printf("%s order %d, $%s, batch %d at %s\n", resp.Message, resp.OrderID,
				resp.TotalAmount.StringFixed(2), resp.BatchID, schedule.FormatClock(resp.ScheduledDeliveryTime))
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "User id")
	cmd.Flags().StringArrayVar(&items, "item", nil, "Menu item as ID or ID:QTY, repeatable")
	cmd.Flags().StringVar(&fee, "fee", "", "Delivery fee override, e.g. 2.00")
	return cmd
}

// parseOrderLine reads "ID" or "ID:QTY".
func parseOrderLine(raw string) (api.OrderLine, error) {
	idPart, qtyPart, hasQty := strings.Cut(raw, ":")
	id, err := strconv.ParseInt(strings.TrimSpace(idPart), 10, 64)
	if err != nil {
		return api.OrderLine{}, fmt.Errorf("invalid --item %q", raw)
	}
	line := api.OrderLine{MenuItemID: id}
	if hasQty {
		qty, err := strconv.Atoi(strings.TrimSpace(qtyPart))
		if err != nil || qty <= 0 {
			return api.OrderLine{}, fmt.Errorf("invalid quantity in --item %q", raw)
		}
		line.Quantity = qty
	}
	return line, nil
}

func newBatchesCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	var date, status string

	cmd := &cobra.Command{
		Use:   "batches",
		Short: "List delivery batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root, overrides)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Global.OperationTimeout)
			defer cancel()
			batches, err := api.FromConfig(cfg.API).DeliveryBatches(ctx, date, status)
			if err != nil {
				return err
			}
			for _, b := range batches {
				fmt.Printf("%d\t%s\t%s\t%d orders\n", b.ID, b.DeliveryTime.Format(time.RFC3339), b.Status, b.OrderCount)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Delivery date, YYYY-MM-DD")
	cmd.Flags().StringVar(&status, "status", "", "Batch status, e.g. scheduled")
	return cmd
}

func newSnapshotsCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "Registry snapshot utilities",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored registry snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root, overrides)
			if err != nil {
				return err
			}
			logger := logging.Configure(cfg.Global.LogLevel, cfg.Global.LogFormat)
			store, err := storage.New(cfg.Storage)
			if err != nil {
				return err
			}
			appSvc := app.New(cfg, registry.New(), store, logger, nil)
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Global.OperationTimeout)
			defer cancel()
			items, err := appSvc.List(ctx)
			if err != nil {
				return err
			}
			for _, item := range items {
				fmt.Printf("%s\t%d\t%s\n", item.Key, item.Size, item.Modified.Format(time.RFC3339))
			}
			logger.Debug().Int("count", len(items)).Msg("list completed")
			return nil
		},
	})
	return cmd
}

func newConfigCmd() *cobra.Command {
	var input string
	var output string
	var key string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Config utilities",
	}

	encrypt := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt a config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" || output == "" || key == "" {
				return fmt.Errorf("--input, --output, and --key are required")
			}
			return config.EncryptConfigFile(input, output, key)
		},
	}
	encrypt.Flags().StringVar(&input, "input", "", "Input config file")
	encrypt.Flags().StringVar(&output, "output", "", "Output encrypted config file")
	encrypt.Flags().StringVar(&key, "key", "", "Encryption key (base64 or hex)")

	keygen := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a random encryption key",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := cryptoutil.GenerateKey()
			if err != nil {
				return err
			}
			fmt.Println(k)
			return nil
		},
	}

	cmd.AddCommand(encrypt, keygen)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("treehouse %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}

func printWindow(state schedule.WindowState) {
	if !state.Open {
		fmt.Printf("Closed. Ordering opens at %s (in %s)\n", state.DisplayLabel, state.Countdown())
		return
	}
	fmt.Printf("Next window: %s\n", state.DisplayLabel)
	fmt.Printf("Opens in:    %s\n", state.Countdown())
}

func newScheduler(cfg *config.Config) (*schedule.Scheduler, error) {
	policy, err := cfg.Schedule.Policy()
	if err != nil {
		return nil, err
	}
	return schedule.New(policy)
}

func newBoard(cfg config.HotSpotConfig) *hotspot.Board {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return hotspot.NewSeededBoard(seed)
}

func loadConfig(root *rootFlags, overrides *overrideFlags) (*config.Config, error) {
	cfg, err := config.Load(root.ConfigPath)
	if err != nil {
		return nil, err
	}
	applyOverrides(cfg, root, overrides)
	return cfg, nil
}

func applyOverrides(cfg *config.Config, root *rootFlags, overrides *overrideFlags) {
	if root.LogLevel != "" {
		cfg.Global.LogLevel = root.LogLevel
	}
	if root.LogFormat != "" {
		cfg.Global.LogFormat = root.LogFormat
	}
	if overrides.Timezone != "" {
		cfg.Schedule.Timezone = overrides.Timezone
	}
	if overrides.BaseURL != "" {
		cfg.API.BaseURL = overrides.BaseURL
	}

	if overrides.Storage != "" {
		cfg.Storage.Backend = overrides.Storage
	}
	if overrides.LocalPath != "" {
		cfg.Storage.Local.Path = overrides.LocalPath
	}
	if overrides.S3Endpoint != "" {
		cfg.Storage.S3.Endpoint = overrides.S3Endpoint
	}
	if overrides.S3Bucket != "" {
		cfg.Storage.S3.Bucket = overrides.S3Bucket
	}
	if overrides.S3AccessKey != "" {
		cfg.Storage.S3.AccessKey = overrides.S3AccessKey
	}
	if overrides.S3SecretKey != "" {
		cfg.Storage.S3.SecretKey = overrides.S3SecretKey
	}
	if overrides.S3Region != "" {
		cfg.Storage.S3.Region = overrides.S3Region
	}
	if overrides.S3UseSSL != "" {
		cfg.Storage.S3.UseSSL = parseBool(overrides.S3UseSSL)
	}
	if overrides.S3PathStyle != "" {
		cfg.Storage.S3.ForcePathStyle = parseBool(overrides.S3PathStyle)
	}
	if overrides.EncryptionKey != "" {
		cfg.Snapshot.EncryptionKey = overrides.EncryptionKey
	}
}

func parseBool(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}
