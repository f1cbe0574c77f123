package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/causalgraph/crdtdb/crdt"
)

var applyCmd = &cobra.Command{
	Use:   "apply [operation.cbor]",
	Short: "Decode and apply a single CBOR-encoded operation to a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runApply,
}

func runApply(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.SnapshotPath == "" {
		return fmt.Errorf("apply requires a snapshot_path in the config")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading operation file: %w", err)
	}

	op, err := crdt.DecodeOperation(data)
	if err != nil {
		return err
	}
	if err := crdt.ValidateOperation(op); err != nil {
		return fmt.Errorf("operation failed validation: %w", err)
	}

	db, err := crdt.CreateDb(cfg)
	if err != nil {
		return fmt.Errorf("opening replica: %w", err)
	}
	defer db.Close()

	result, err := db.ApplyRemoteOp(op)
	if err != nil {
		return fmt.Errorf("applying operation: %w", err)
	}

	if db.HasStore() {
		if err := db.Save(); err != nil {
			return fmt.Errorf("saving snapshot: %w", err)
		}
	}

	fmt.Printf("outcome=%v lv=%d\n", result.Outcome, result.LV)
	return nil
}
