package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bark-labs/pushover-cli/internal/model"
	"github.com/bark-labs/pushover-cli/internal/service"
)

func newHistoryCmd(configPath *string, stdout io.Writer) *cobra.Command {
	var (
		filter model.DeliveryLogFilter
		asJSON bool
		id     uint64
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded delivery attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap(cmd, *configPath)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			store, closeStore, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			logSvc := service.NewDeliveryLogService(store)
			if id != 0 {
				entry, err := logSvc.Get(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("delivery log %d: %w", id, err)
				}
				if asJSON {
					return writeJSON(stdout, entry)
				}
				return printHistory(stdout, &model.DeliveryLogPage{
					Data:     []*model.DeliveryLog{entry},
					Total:    1,
					Pages:    1,
					PageNum:  1,
					PageSize: 1,
				})
			}

			page, err := logSvc.Query(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(stdout, page)
			}
			return printHistory(stdout, page)
		},
	}
	f := cmd.Flags()
	f.StringVar(&filter.Device, "device", "", "Only show attempts for this device")
	f.StringVar(&filter.Status, "status", "", "Only show SUCCESS or FAILED attempts")
	f.IntVar(&filter.Page, "page", 1, "Page number")
	f.IntVar(&filter.PageSize, "page-size", 10, "Entries per page, at most 100")
	f.BoolVar(&asJSON, "json", false, "Print the result as JSON")
	f.Uint64Var(&id, "id", 0, "Show a single attempt by ID")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printHistory(w io.Writer, page *model.DeliveryLogPage) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIME\tDEVICE\tSTATUS\tTITLE\tRESULT")
	for _, entry := range page.Data {
		device := entry.Device
		if device == "" {
			device = "*"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			entry.ID,
			entry.CreatedAt.Local().Format(time.DateTime),
			device,
			entry.Status,
			entry.Title,
			entry.Result,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "page %d/%d, %d total\n", page.PageNum, page.Pages, page.Total)
	return err
}
