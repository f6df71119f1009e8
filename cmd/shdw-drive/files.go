package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shamank/shdw-sdk-go/pkg/model"
)

var storeFilesCmd = &cobra.Command{
	Use:   "store-files <account> <file>...",
	Short: "Upload one or more files to a storage account",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		addr := parseAddress(args[0])
		files := make([]model.ShadowFile, 0, len(args)-1)
		for _, path := range args[1:] {
			files = append(files, model.FileFromPath(path))
		}

		drive, _ := openDrive()
		defer drive.Close()
		results, err := drive.Upload(cmd.Context(), addr, files)
		for _, r := range results {
			if r.OK() {
				fmt.Printf("%s\t%s\n", r.Name, r.Location)
			} else {
				fmt.Fprintf(os.Stderr, "%s\t%s: %v (attempts: %d)\n", r.Name, r.Kind, r.Err, r.Attempts)
			}
		}
		if err != nil {
			reportErrorf("Upload interrupted: %v", err)
		}
		if failed := model.FailedResults(results); len(failed) > 0 {
			reportErrorf("%d of %d files failed", len(failed), len(results))
		}
	},
}

var listFilesCmd = &cobra.Command{
	Use:   "list-files <account>",
	Short: "List all the files in a storage account",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		addr := parseAddress(args[0])
		drive, _ := openDrive()
		defer drive.Close()
		keys, err := drive.ListObjects(cmd.Context(), addr)
		if err != nil {
			reportErrorf("Unable to list files of %s: %v", addr.Hex(), err)
		}
		for _, k := range keys {
			fmt.Println(k)
		}
	},
}

var getTextCmd = &cobra.Command{
	Use:   "get-text <account> <file>",
	Short: "Get a file, assume it's text, and print it",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		addr := parseAddress(args[0])
		drive, cfg := openDrive()
		defer drive.Close()
		locator := strings.TrimSuffix(cfg.GatewayURL, "/") + "/" + addr.Hex() + "/" + args[1]
		data, err := drive.ReadFile(cmd.Context(), locator)
		if err != nil {
			reportErrorf("Unable to read %s: %v", locator, err)
		}
		fmt.Println(string(data))
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the ledger and the upload service",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		drive, _ := openDrive()
		defer drive.Close()
		hc := drive.Healthcheck()
		hash, err := hc.Ledger()
		if err != nil {
			reportErrorf("Ledger: %v", err)
		}
		fmt.Printf("Ledger:   ok (blockhash %s)\n", hash.Hex())
		if err := hc.Endpoint(); err != nil {
			reportErrorf("Endpoint: %v", err)
		}
		fmt.Println("Endpoint: ok")
	},
}
