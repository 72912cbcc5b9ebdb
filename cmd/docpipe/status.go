package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [document-id]",
	Short: "Show queue stats, or one document's record if an id is given",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, flags, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := buildApp(flags, cfg)
	if err != nil {
		return err
	}

	if len(args) == 1 {
		doc, err := a.store.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out, _ := json.MarshalIndent(doc, "", "  ")
		fmt.Println(string(out))
		return nil
	}

	stats, err := a.queue.Stats(cmd.Context())
	if err != nil {
		return err
	}
	out, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Println(string(out))
	return nil
}
