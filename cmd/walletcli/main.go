// Command walletcli is the offline front end for wallet-key and
// transaction-assembly operations, narrowed from the teacher's
// cmd/ccoin-cli command-dispatch structure (os.Args[1] selects a
// subcommand, each subcommand owns its own flag set and usage text).
package main

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"

	"github.com/veilwallet/core/internal/persist"
	"github.com/veilwallet/core/internal/proofstub"
	"github.com/veilwallet/core/internal/txbuilder"
	"github.com/veilwallet/core/internal/walletstate"
	"github.com/veilwallet/core/pkg/noteproto"
	"github.com/veilwallet/core/pkg/walletkeys"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "version":
		fmt.Printf("walletcli v%s\n", version)
	case "help":
		printUsage()
	case "wallet":
		err = cmdWallet(os.Args[2:])
	case "tx":
		err = cmdTransaction(os.Args[2:])
	default:
		fmt.Printf("unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("walletcli - offline wallet-key and transaction tooling")
	fmt.Println()
	fmt.Println("Usage: walletcli <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  version                 Show version information")
	fmt.Println("  wallet address <mnemonic> [index]   Print a diversified address")
	fmt.Println("  tx send <state.json> <mnemonic> <amount> <fee> <denom> <destination>")
}

func cmdWallet(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: walletcli wallet address <mnemonic> [index]")
	}
	switch args[0] {
	case "address":
		if len(args) < 2 {
			return fmt.Errorf("usage: walletcli wallet address <mnemonic> [index]")
		}
		wallet, err := walletkeys.NewHDWallet(args[1], "")
		if err != nil {
			return err
		}
		want := uint64(0)
		if len(args) >= 3 {
			if _, err := fmt.Sscanf(args[2], "%d", &want); err != nil {
				return fmt.Errorf("invalid index: %w", err)
			}
		}
		// NewHDWallet already allocated index 0; diversifiers beyond that
		// are allocated sequentially, so reaching index `want` means
		// minting that many more.
		for next := uint64(1); next <= want; next++ {
			if _, err := wallet.NewDiversifier(); err != nil {
				return err
			}
		}
		label, address, err := wallet.AddressByIndex(want)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", label, address)
		return nil
	default:
		return fmt.Errorf("unknown wallet subcommand: %s", args[0])
	}
}

func cmdTransaction(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: walletcli tx send <state.json> <mnemonic> <amount> <fee> <denom> <destination>")
	}
	switch args[0] {
	case "send":
		return cmdSend(args[1:])
	default:
		return fmt.Errorf("unknown tx subcommand: %s", args[0])
	}
}

func cmdSend(args []string) error {
	if len(args) != 6 {
		return fmt.Errorf("usage: walletcli tx send <state.json> <mnemonic> <amount> <fee> <denom> <destination>")
	}
	statePath, mnemonic, amountStr, feeStr, denom, destination := args[0], args[1], args[2], args[3], args[4], args[5]

	data, err := os.ReadFile(statePath)
	if err != nil {
		return fmt.Errorf("read state: %w", err)
	}
	state, err := persist.Load(data)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	wallet, err := walletkeys.NewHDWallet(mnemonic, "")
	if err != nil {
		return fmt.Errorf("derive wallet keys: %w", err)
	}

	var amount, fee uint64
	if _, err := fmt.Sscanf(amountStr, "%d", &amount); err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	if _, err := fmt.Sscanf(feeStr, "%d", &fee); err != nil {
		return fmt.Errorf("invalid fee: %w", err)
	}

	index := walletstate.NewIndex(state, wallet)
	assembler := txbuilder.New(state, index, wallet, noteproto.Sha256NullifierDeriver{}, proofstub.NewFactory())

	tx, err := assembler.Assemble(rand.Reader, txbuilder.Request{
		Amount:      amount,
		Fee:         fee,
		Denom:       denom,
		Destination: destination,
	})
	if err != nil {
		return err
	}
	return emit(tx)
}

func emit(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
