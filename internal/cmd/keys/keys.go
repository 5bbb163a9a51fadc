package keyscmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rzbill/pulse/internal/auth"
	cfgpkg "github.com/rzbill/pulse/internal/config"
	"github.com/rzbill/pulse/internal/runtime"
	pebblestore "github.com/rzbill/pulse/internal/storage/pebble"
)

func openRuntime(dataDir string) (*runtime.Runtime, error) {
	if dataDir == "" {
		dataDir = cfgpkg.DefaultDataDir()
	}
	return runtime.Open(runtime.Options{
		DataDir: filepath.Join(dataDir, "store"),
		Fsync:   pebblestore.FsyncModeAlways,
		Config:  cfgpkg.Default(),
	})
}

// NewKeysCommand returns the `keys` command tree.
func NewKeysCommand() *cobra.Command {
	keysCmd := &cobra.Command{Use: "keys", Short: "API key management"}
	keysCmd.PersistentFlags().String("data-dir", "", "Data directory (defaults to the OS-specific application data directory)")

	keysCmd.AddCommand(newGenerateCommand())
	keysCmd.AddCommand(newListCommand())
	keysCmd.AddCommand(newRevokeCommand())
	keysCmd.AddCommand(newUpdateCommand())
	return keysCmd
}

func newGenerateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, _ := cmd.Flags().GetString("data-dir")
			description, _ := cmd.Flags().GetString("description")
			rateLimit, _ := cmd.Flags().GetInt("rate-limit")
			eventTypes, _ := cmd.Flags().GetStringSlice("allowed-event-types")

			rt, err := openRuntime(dataDir)
			if err != nil {
				return err
			}
			defer rt.Close()

			secret, err := auth.GenerateSecret()
			if err != nil {
				return err
			}
			hash, err := auth.HashSecret(secret)
			if err != nil {
				return err
			}
			key := &auth.Key{
				KeyID:             uuid.NewString(),
				KeyHash:           hash,
				Status:            auth.StatusActive,
				RateLimit:         rateLimit,
				AllowedEventTypes: eventTypes,
				CreatedAt:         time.Now().UTC().Format(time.RFC3339),
				Description:       description,
			}
			if err := rt.OpenKeyStore().Put(key); err != nil {
				return err
			}

			fmt.Println("key_id:", key.KeyID)
			fmt.Println("api_key:", secret)
			fmt.Println("Store the api_key now; it is not recoverable later.")
			return nil
		},
	}
	cmd.Flags().String("description", "", "Free-form description of the key's owner or purpose")
	cmd.Flags().Int("rate-limit", 100, "Requests per minute allowed for this key")
	cmd.Flags().StringSlice("allowed-event-types", nil, "Event types this key may publish (empty allows all)")
	return cmd
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, _ := cmd.Flags().GetString("data-dir")
			rt, err := openRuntime(dataDir)
			if err != nil {
				return err
			}
			defer rt.Close()

			keys, err := rt.OpenKeyStore().List()
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				fmt.Println("no keys")
				return nil
			}
			for _, k := range keys {
				fmt.Printf("%s  status=%s  rate_limit=%d  created=%s  %s\n",
					k.KeyID, k.Status, k.RateLimit, k.CreatedAt, k.Description)
			}
			return nil
		},
	}
}

func newRevokeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <key_id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, _ := cmd.Flags().GetString("data-dir")
			rt, err := openRuntime(dataDir)
			if err != nil {
				return err
			}
			defer rt.Close()

			store := rt.OpenKeyStore()
			key, err := store.GetByID(args[0])
			if err != nil {
				return err
			}
			if key == nil {
				return fmt.Errorf("key %s not found", args[0])
			}
			key.Status = auth.StatusRevoked
			if err := store.Put(key); err != nil {
				return err
			}
			fmt.Println("revoked:", key.KeyID)
			return nil
		},
	}
}

func newUpdateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <key_id>",
		Short: "Update an API key's status, rate limit, or description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, _ := cmd.Flags().GetString("data-dir")
			rt, err := openRuntime(dataDir)
			if err != nil {
				return err
			}
			defer rt.Close()

			store := rt.OpenKeyStore()
			key, err := store.GetByID(args[0])
			if err != nil {
				return err
			}
			if key == nil {
				return fmt.Errorf("key %s not found", args[0])
			}

			if cmd.Flags().Changed("status") {
				status, _ := cmd.Flags().GetString("status")
				switch status {
				case auth.StatusActive, auth.StatusInactive, auth.StatusRevoked:
					key.Status = status
				default:
					return fmt.Errorf("invalid --status; use active|inactive|revoked")
				}
			}
			if cmd.Flags().Changed("rate-limit") {
				key.RateLimit, _ = cmd.Flags().GetInt("rate-limit")
			}
			if cmd.Flags().Changed("description") {
				key.Description, _ = cmd.Flags().GetString("description")
			}
			if cmd.Flags().Changed("allowed-event-types") {
				key.AllowedEventTypes, _ = cmd.Flags().GetStringSlice("allowed-event-types")
			}
			if err := store.Put(key); err != nil {
				return err
			}
			fmt.Println("updated:", key.KeyID)
			return nil
		},
	}
	cmd.Flags().String("status", "", "New status: active|inactive|revoked")
	cmd.Flags().Int("rate-limit", 0, "New per-minute rate limit")
	cmd.Flags().String("description", "", "New description")
	cmd.Flags().StringSlice("allowed-event-types", nil, "New allowed event type list (empty allows all)")
	return cmd
}
