package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/causalgraph/crdtdb/causalgraph"
	"github.com/causalgraph/crdtdb/crdt"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print this replica's version summary as YAML, for a peer to diff against",
	RunE:  runSummary,
}

var relateCmd = &cobra.Command{
	Use:   "relate agent:seq",
	Short: "Report how a version relates to this replica's current heads",
	Args:  cobra.ExactArgs(1),
	RunE:  runRelate,
}

var ancestorsCmd = &cobra.Command{
	Use:   "ancestors agent:seq[,agent:seq...]",
	Short: "Report the common-ancestor frontier of a set of versions",
	Args:  cobra.ExactArgs(1),
	RunE:  runAncestors,
}

var conflictsCmd = &cobra.Command{
	Use:   "conflicts agent:seq[,agent:seq...]",
	Short: "Report the operations a set of versions has beyond their common ancestors",
	Args:  cobra.ExactArgs(1),
	RunE:  runConflicts,
}

var missingCmd = &cobra.Command{
	Use:   "missing peer-summary.yaml",
	Short: "Report what this replica has that a peer's version summary does not cover",
	Args:  cobra.ExactArgs(1),
	RunE:  runMissing,
}

var logCmd = &cobra.Command{
	Use:   "log agent:seq",
	Short: "Walk this replica's causal history back from a version to its roots",
	Args:  cobra.ExactArgs(1),
	RunE:  runLog,
}

func init() {
	rootCmd.AddCommand(summaryCmd, relateCmd, ancestorsCmd, conflictsCmd, missingCmd, logCmd)
}

func parseRawVersion(s string) (causalgraph.RawVersion, error) {
	agent, seqStr, ok := strings.Cut(s, ":")
	if !ok {
		return causalgraph.RawVersion{}, fmt.Errorf("%q is not an agent:seq pair", s)
	}
	seq, err := strconv.Atoi(seqStr)
	if err != nil {
		return causalgraph.RawVersion{}, fmt.Errorf("%q: sequence number: %w", s, err)
	}
	return causalgraph.RawVersion{Agent: causalgraph.AgentID(agent), Seq: seq}, nil
}

func parseRawVersionList(s string) ([]causalgraph.RawVersion, error) {
	parts := strings.Split(s, ",")
	out := make([]causalgraph.RawVersion, len(parts))
	for i, p := range parts {
		raw, err := parseRawVersion(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out[i] = raw
	}
	return out, nil
}

func openReplica() (*crdt.Replica, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	db, err := crdt.CreateDb(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening replica: %w", err)
	}
	return db, nil
}

func runSummary(cmd *cobra.Command, args []string) error {
	db, err := openReplica()
	if err != nil {
		return err
	}
	defer db.Close()

	summary, err := db.VersionSummary()
	if err != nil {
		return fmt.Errorf("summarizing version: %w", err)
	}
	out, err := yaml.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	fmt.Print(string(out))
	return nil
}

func runRelate(cmd *cobra.Command, args []string) error {
	target, err := parseRawVersion(args[0])
	if err != nil {
		return err
	}

	db, err := openReplica()
	if err != nil {
		return err
	}
	defer db.Close()

	relations, err := db.RelateToHeads(target)
	if err != nil {
		return fmt.Errorf("relating to heads: %w", err)
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Head", "Relation"})
	for head, rel := range relations {
		tw.AppendRow(table.Row{fmt.Sprintf("%s/%d", head.Agent, head.Seq), rel})
	}
	tw.Render()
	return nil
}

func runAncestors(cmd *cobra.Command, args []string) error {
	versions, err := parseRawVersionList(args[0])
	if err != nil {
		return err
	}

	db, err := openReplica()
	if err != nil {
		return err
	}
	defer db.Close()

	ancestors, err := db.CommonAncestors(versions)
	if err != nil {
		return fmt.Errorf("finding common ancestors: %w", err)
	}
	for _, a := range ancestors {
		fmt.Printf("%s/%d\n", a.Agent, a.Seq)
	}
	return nil
}

func runConflicts(cmd *cobra.Command, args []string) error {
	versions, err := parseRawVersionList(args[0])
	if err != nil {
		return err
	}

	db, err := openReplica()
	if err != nil {
		return err
	}
	defer db.Close()

	ancestors, err := db.CommonAncestors(versions)
	if err != nil {
		return fmt.Errorf("finding common ancestors: %w", err)
	}
	ranges, err := db.Conflicting(versions, ancestors)
	if err != nil {
		return fmt.Errorf("finding conflicting versions: %w", err)
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Agent", "From seq", "Count"})
	for _, rng := range ranges {
		start, count, err := db.RangeToRaw(rng)
		if err != nil {
			return err
		}
		tw.AppendRow(table.Row{start.Agent, start.Seq, count})
	}
	tw.Render()
	return nil
}

func runMissing(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading peer summary: %w", err)
	}
	var peerSummary causalgraph.VersionSummary
	if err := yaml.Unmarshal(data, &peerSummary); err != nil {
		return fmt.Errorf("parsing peer summary: %w", err)
	}

	db, err := openReplica()
	if err != nil {
		return err
	}
	defer db.Close()

	ranges, err := db.MissingFrom(peerSummary)
	if err != nil {
		return fmt.Errorf("diffing against peer summary: %w", err)
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Agent", "From seq", "Count"})
	for _, rng := range ranges {
		start, count, err := db.RangeToRaw(rng)
		if err != nil {
			return err
		}
		tw.AppendRow(table.Row{start.Agent, start.Seq, count})
	}
	tw.Render()
	return nil
}

func runLog(cmd *cobra.Command, args []string) error {
	target, err := parseRawVersion(args[0])
	if err != nil {
		return err
	}

	db, err := openReplica()
	if err != nil {
		return err
	}
	defer db.Close()

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Agent", "Seq", "Merge"})
	err = db.History(nil, target, func(v causalgraph.RawVersion, isMerge bool) (bool, error) {
		tw.AppendRow(table.Row{v.Agent, v.Seq, isMerge})
		return false, nil
	})
	if err != nil {
		return fmt.Errorf("walking history: %w", err)
	}
	tw.Render()
	return nil
}
