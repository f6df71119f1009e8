package main

import (
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/shamank/shdw-sdk-go/pkg/account"
	"github.com/shamank/shdw-sdk-go/pkg/model"
)

var (
	label   string
	size    string
	version string
)

func init() {
	createCmd.Flags().StringVarP(&label, "name", "n", "", "Unique identifier for the storage account")
	createCmd.Flags().StringVarP(&size, "size", "s", "", `Size string, accepts KB, MB, GB, e.g. "10MB"`)
	createCmd.Flags().StringVar(&version, "version", account.DefaultVersion.String(), "Account layout, v1 or v2")
	_ = createCmd.MarkFlagRequired("name")
	_ = createCmd.MarkFlagRequired("size")

	for _, cmd := range []*cobra.Command{addStorageCmd, reduceStorageCmd} {
		cmd.Flags().StringVarP(&size, "size", "s", "", `Size string, accepts KB, MB, GB, e.g. "10MB"`)
		_ = cmd.MarkFlagRequired("size")
	}
}

var createCmd = &cobra.Command{
	Use:   "create-storage-account",
	Short: "Create an account on which to store data",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		bytes := parseSize(size)
		var v account.Version
		switch version {
		case "v1":
			v = account.V1
		case "v2":
			v = account.V2
		default:
			reportErrorf("Unknown account version %q", version)
		}

		drive, _ := openDrive()
		defer drive.Close()
		acct, err := drive.CreateWithVersion(cmd.Context(), v, label, bytes)
		if err != nil {
			reportErrorf("Unable to create storage account: %v", err)
		}
		printAccount(acct)
	},
}

var addStorageCmd = &cobra.Command{
	Use:     "add-storage <account>",
	Aliases: []string{"add-immutable-storage"},
	Short:   "Increase the capacity of a storage account",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		resize(cmd, args[0], int64(parseDelta(size)))
	},
}

var reduceStorageCmd = &cobra.Command{
	Use:   "reduce-storage <account>",
	Short: "Reduce the capacity of a storage account",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		resize(cmd, args[0], -int64(parseDelta(size)))
	},
}

var makeImmutableCmd = &cobra.Command{
	Use:   "make-storage-immutable <account>",
	Short: "Make a storage account immutable. This is irreversible",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		addr := parseAddress(args[0])
		drive, _ := openDrive()
		defer drive.Close()
		acct, err := drive.MarkImmutable(cmd.Context(), addr)
		if err != nil {
			reportErrorf("Unable to mark %s immutable: %v", addr.Hex(), err)
		}
		printAccount(acct)
	},
}

var getAccountCmd = &cobra.Command{
	Use:   "get-storage-account <account>",
	Short: "Fetch the metadata of a storage account",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		addr := parseAddress(args[0])
		drive, _ := openDrive()
		defer drive.Close()
		acct, err := drive.Account(cmd.Context(), addr)
		if err != nil {
			reportErrorf("Unable to read %s: %v", addr.Hex(), err)
		}
		printAccount(acct)
	},
}

var getAccountsCmd = &cobra.Command{
	Use:   "get-storage-accounts",
	Short: "List the storage accounts of the configured signer",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		drive, _ := openDrive()
		defer drive.Close()
		accounts, err := drive.Accounts(cmd.Context())
		if err != nil {
			reportErrorf("Unable to list storage accounts: %v", err)
		}
		for i, acct := range accounts {
			if i > 0 {
				fmt.Println()
			}
			printAccount(acct)
		}
	},
}

func resize(cmd *cobra.Command, target string, delta int64) {
	addr := parseAddress(target)
	drive, _ := openDrive()
	defer drive.Close()
	acct, err := drive.Resize(cmd.Context(), addr, delta)
	if err != nil {
		reportErrorf("Unable to resize %s: %v", addr.Hex(), err)
	}
	printAccount(acct)
}

func parseSize(s string) uint64 {
	n, err := model.ParseSize(s)
	if err != nil {
		reportErrorf("Invalid size %q: %v", s, err)
	}
	return n
}

func parseDelta(s string) uint64 {
	n := parseSize(s)
	if n > math.MaxInt64 {
		reportErrorf("Size %q is too large", s)
	}
	return n
}

func parseAddress(s string) common.Address {
	if !common.IsHexAddress(s) {
		reportErrorf("Invalid account address %q", s)
	}
	return common.HexToAddress(s)
}

func printAccount(acct account.StorageAccount) {
	fmt.Printf("Address:   %s\n", acct.Address().Hex())
	fmt.Printf("Label:     %s\n", acct.Label())
	fmt.Printf("Version:   %s\n", acct.Version())
	fmt.Printf("Owner:     %s\n", acct.Owner().Hex())
	fmt.Printf("Reserved:  %s\n", model.FormatSize(acct.Reserved()))
	fmt.Printf("Used:      %s\n", model.FormatSize(acct.Used()))
	fmt.Printf("Immutable: %t\n", acct.Immutable())
	if acct.ToBeDeleted() {
		fmt.Println("Marked for deletion")
	}
}
