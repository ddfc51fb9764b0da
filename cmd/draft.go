package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/barangay/internal/draft"
)

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Inspect and clear saved registration drafts",
	Long: `Inspect and clear registration drafts saved with ctrl+d.

The new-official draft lives under the key "barangay-official-draft". The
last draft saved from an edit form lives under "barangay-official-edit-draft".

Examples:
  # Show the new-official draft
  barangay draft show

  # Show the last edit-form draft
  barangay draft show barangay-official-edit-draft

  # Remove the new-official draft
  barangay draft clear`,
}

var draftListCmd = &cobra.Command{
	Use:   "list",
	Short: "List draft keys",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openDrafts(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		keys, err := store.Keys(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing drafts: %w", err)
		}
		for _, k := range keys {
			fmt.Fprintln(cmd.OutOrStdout(), k)
		}
		return nil
	},
}

var draftShowCmd = &cobra.Command{
	Use:   "show [key]",
	Short: "Print a draft as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDrafts(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		key := draftKey(args)
		payload, err := store.Load(cmd.Context(), key)
		if errors.Is(err, draft.ErrNotFound) {
			return fmt.Errorf("no draft saved under %q", key)
		}
		if err != nil {
			return fmt.Errorf("loading draft: %w", err)
		}

		data, err := draft.Decode(payload)
		if err != nil {
			return fmt.Errorf("draft %q is unreadable: %w", key, err)
		}
		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var draftClearCmd = &cobra.Command{
	Use:   "clear [key]",
	Short: "Delete a draft",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDrafts(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		key := draftKey(args)
		if err := store.Delete(cmd.Context(), key); err != nil {
			return fmt.Errorf("clearing draft: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", key)
		return nil
	},
}

func init() {
	draftCmd.AddCommand(draftListCmd, draftShowCmd, draftClearCmd)
	rootCmd.AddCommand(draftCmd)
}

func draftKey(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return draft.NewOfficialKey
}

func openDrafts(cmd *cobra.Command) (draft.Store, error) {
	if cfgErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", cfgErr)
	}
	store, err := draft.Open(cmd.Context(), cfg.Draft)
	if err != nil {
		return nil, fmt.Errorf("opening %s draft store: %w", cfg.Draft.Backend, err)
	}
	return store, nil
}
