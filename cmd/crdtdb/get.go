package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/causalgraph/crdtdb/crdt"
)

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the materialized root value of a replica's snapshot",
	RunE:  runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.SnapshotPath == "" {
		return fmt.Errorf("get requires a snapshot_path in the config")
	}

	db, err := crdt.CreateDb(cfg)
	if err != nil {
		return fmt.Errorf("opening replica: %w", err)
	}
	defer db.Close()

	root, err := db.GetRoot()
	if err != nil {
		return fmt.Errorf("materializing root: %w", err)
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Path", "Kind", "Value"})
	appendValueRows(tw, "$", root)
	tw.Render()
	return nil
}

func appendValueRows(tw table.Writer, path string, v crdt.DBValue) {
	switch v.Kind {
	case crdt.DBNull:
		tw.AppendRow(table.Row{path, "null", nil})
	case crdt.DBPrimitive:
		tw.AppendRow(table.Row{path, "primitive", primitiveString(v.Prim)})
	case crdt.DBMap:
		tw.AppendRow(table.Row{path, "map", fmt.Sprintf("%d keys", len(v.Map))})
		for key, child := range v.Map {
			appendValueRows(tw, fmt.Sprintf("%s.%s", path, key), child)
		}
	case crdt.DBSet:
		tw.AppendRow(table.Row{path, "set", fmt.Sprintf("%d elements", len(v.Set))})
		for key, child := range v.Set {
			appendValueRows(tw, fmt.Sprintf("%s[%s]", path, key), child)
		}
	}
}

func primitiveString(p crdt.Primitive) string {
	switch p.Kind {
	case crdt.PrimNull:
		return "null"
	case crdt.PrimBool:
		return fmt.Sprintf("%t", p.Bool)
	case crdt.PrimInt64:
		return fmt.Sprintf("%d", p.Int)
	case crdt.PrimFloat64:
		return fmt.Sprintf("%g", p.Flt)
	case crdt.PrimString:
		return p.Str
	default:
		return "?"
	}
}
