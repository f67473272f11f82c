package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/caremon/internal/sqlite"
	"github.com/mesh-intelligence/caremon/pkg/types"
)

func (a *app) newPutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <kind> [file|-]",
		Short: "Insert or replace records from JSON",
		Long: `Put reads one JSON record, or a JSON array of records, and upserts it into
the table for kind. A record without an id gets a generated one. An array is
written all-or-nothing: one invalid record rejects the whole batch.

Kinds: officialSurveys, elderlySurveys, inventoryDistributions,
inventorySummary, organizations, documents.`,
		Example: `  caremon put organizations org.json
  cat surveys.json | caremon put officialSurveys -`,
		Args: rangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			name := ""
			if len(args) == 2 {
				name = args[1]
			}
			data, err := a.readInput(name)
			if err != nil {
				return err
			}
			recs, many, err := decodeRecords(kind, data)
			if err != nil {
				return err
			}

			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			saved, err := store.PutMany(cmd.Context(), kind, recs)
			if err != nil {
				return err
			}
			if many {
				return a.printJSON(saved)
			}
			return a.printJSON(saved[0])
		},
	}
}

// decodeRecords parses a single JSON object or an array of objects as
// records of kind. many reports whether the input was an array.
func decodeRecords(kind types.Kind, data []byte) (recs []types.Record, many bool, err error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, false, userErrorf("no JSON input")
	}
	if data[0] != '[' {
		rec, err := types.DecodeRecord(kind, data)
		if err != nil {
			return nil, false, userError{err}
		}
		return []types.Record{rec}, false, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, true, userErrorf("decoding %s records: %w", kind, err)
	}
	recs = make([]types.Record, len(raw))
	for i, item := range raw {
		rec, err := types.DecodeRecord(kind, item)
		if err != nil {
			return nil, true, userErrorf("record %d: %w", i, err)
		}
		recs[i] = rec
	}
	return recs, true, nil
}

func (a *app) newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <kind> <id>",
		Short: "Print one record",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			rec, err := store.Get(cmd.Context(), kind, args[1])
			if err != nil {
				return err
			}
			return a.printJSON(rec)
		},
	}
}

func (a *app) newListCmd() *cobra.Command {
	var index, value string
	cmd := &cobra.Command{
		Use:   "list <kind>",
		Short: "Print every record of a kind, optionally through an index",
		Long: `List prints all records of kind as a JSON array ordered by id. With --index
and --value only records whose indexed field equals value are printed; a date
index matched with a YYYY-MM-DD value selects the whole day.

Indexes per kind:
` + indexHelp(),
		Example: `  caremon list organizations --index by-region --value 남구
  caremon list inventoryDistributions --index by-date --value 2025-04-01`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			if index == "" && value != "" {
				return userErrorf("--value requires --index")
			}
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			var recs []types.Record
			if index != "" {
				recs, err = store.GetByIndex(cmd.Context(), kind, index, value)
				if err != nil {
					return fmt.Errorf("%w (indexes: %v)", err, sqlite.IndexNames(kind))
				}
			} else {
				recs, err = store.GetAll(cmd.Context(), kind)
				if err != nil {
					return err
				}
			}
			return a.printJSON(recs)
		},
	}
	cmd.Flags().StringVar(&index, "index", "", "index name to look up")
	cmd.Flags().StringVar(&value, "value", "", "value to match in the index")
	return cmd
}

func indexHelp() string {
	var b strings.Builder
	for _, kind := range types.AllKinds {
		if names := sqlite.IndexNames(kind); len(names) > 0 {
			fmt.Fprintf(&b, "  %-24s %s\n", kind, strings.Join(names, ", "))
		}
	}
	return b.String()
}

func (a *app) newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <kind> <id>",
		Short: "Remove a record by id",
		Long:  `Delete removes the record if present. Deleting a missing record succeeds.`,
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			if err := store.Delete(cmd.Context(), kind, args[1]); err != nil {
				return err
			}
			return a.message("deleted %s/%s", kind, args[1])
		},
	}
}
