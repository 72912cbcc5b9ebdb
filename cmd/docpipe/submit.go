package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/docpipe/docpipe/submission"
)

var submitCmd = &cobra.Command{
	Use:   "submit <path-or-url>",
	Short: "Submit a document for ingestion",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubmit,
}

func init() {
	submitCmd.Flags().String("method", submission.MethodUpload, "upload|url|inline")
	submitCmd.Flags().String("owner", "", "owning user id")
	submitCmd.Flags().String("name", "", "override the display/extension-sniffed name")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	cfg, flags, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := buildApp(flags, cfg)
	if err != nil {
		return err
	}

	method, _ := cmd.Flags().GetString("method")
	owner, _ := cmd.Flags().GetString("owner")
	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		name = args[0]
	}

	content := args[0]
	if method == submission.MethodInline {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("docpipe submit: read %s: %w", args[0], err)
		}
		content = string(raw)
	}

	svc := submission.New(a.store, a.queue, a.bus)
	res, err := svc.Submit(cmd.Context(), submission.Request{
		Name:    name,
		Method:  method,
		Content: content,
		OwnerID: owner,
	})
	if err != nil {
		return err
	}

	out, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(out))
	return nil
}
