package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"swapvault/cmd/internal/passphrase"
	"swapvault/core"
	"swapvault/core/types"
	"swapvault/crypto"
	"swapvault/ledger"
	"swapvault/rpc"
)

const (
	walletPassEnv   = "SWAPVAULT_WALLET_PASS"
	defaultKeystore = "wallet.keystore"
)

var passSource = passphrase.NewSource(walletPassEnv)

func main() {
	args := os.Args[1:]
	var err error
	args, err = applyGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if len(args) < 1 {
		printUsage()
		return
	}

	command := args[0]
	switch command {
	case "generate-key":
		file := defaultKeystore
		if len(args) > 1 {
			file = args[1]
		}
		generateKey(file)
	case "show-address":
		file := defaultKeystore
		if len(args) > 1 {
			file = args[1]
		}
		showAddress(file)
	case "balance":
		if len(args) < 3 {
			fmt.Println("Error: Please provide an owner address and an asset symbol.")
			printUsage()
			return
		}
		getBalance(args[1], args[2])
	case "escrow":
		if len(args) < 2 {
			fmt.Println("Error: Please provide an escrow ID.")
			printUsage()
			return
		}
		getEscrow(args[1])
	case "initialize":
		if len(args) < 7 {
			fmt.Println("Error: initialize requires <keyfile> <seed> <offeredAsset> <offeredAmount> <wantedAsset> <wantedAmount>.")
			printUsage()
			return
		}
		seed, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			fmt.Println("Error: Invalid seed.")
			return
		}
		initialize(args[1], seed, args[3], args[4], args[5], args[6])
	case "exchange":
		if len(args) < 3 {
			fmt.Println("Error: exchange requires <keyfile> <escrowId>.")
			printUsage()
			return
		}
		exchange(args[1], args[2])
	case "cancel":
		if len(args) < 3 {
			fmt.Println("Error: cancel requires <keyfile> <escrowId>.")
			printUsage()
			return
		}
		cancel(args[1], args[2])
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
	}
}

func applyGlobalFlags(args []string) ([]string, error) {
	remaining := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--rpc":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--rpc requires a URL argument")
			}
			i++
			rpcEndpoint = strings.TrimSpace(args[i])
		case strings.HasPrefix(arg, "--rpc="):
			rpcEndpoint = strings.TrimSpace(strings.TrimPrefix(arg, "--rpc="))
		default:
			remaining = append(remaining, arg)
		}
	}
	if rpcEndpoint == "" {
		return nil, fmt.Errorf("rpc endpoint cannot be empty")
	}
	return remaining, nil
}

func generateKey(file string) {
	if _, err := os.Stat(file); err == nil {
		fmt.Printf("Refusing to overwrite existing keystore %s.\n", file)
		return
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		panic(err)
	}
	pass, err := passSource.Get()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := crypto.SaveToKeystore(file, key, pass); err != nil {
		panic(fmt.Sprintf("Failed to save keystore to %s: %v", file, err))
	}

	fmt.Printf("Generated new key and saved to %s\n", file)
	fmt.Printf("Your public address is: %s\n", key.PubKey().Address().String())
	fmt.Println("Store this file and its passphrase securely.")
}

func showAddress(file string) {
	key, err := loadKey(file)
	if err != nil {
		fmt.Printf("Error loading keystore: %v\n", err)
		return
	}
	fmt.Println(key.PubKey().Address().String())
}

func loadKey(file string) (*crypto.PrivateKey, error) {
	if _, err := os.Stat(file); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("keystore %s not found. run swapvault-cli generate-key first", file)
		}
		return nil, err
	}
	pass, err := passSource.Get()
	if err != nil {
		return nil, err
	}
	return crypto.LoadFromKeystore(file, pass)
}

func ownerAddr(key *crypto.PrivateKey) [20]byte {
	var addr [20]byte
	copy(addr[:], key.PubKey().Address().Bytes())
	return addr
}

// tokenAccount returns the bech32 form of the canonical (owner, asset)
// account address.
func tokenAccount(owner [20]byte, asset string) string {
	derived := ledger.TokenAccountAddress(owner, asset)
	return crypto.NewAddress(crypto.SVTPrefix, derived[:]).String()
}

func getBalance(owner, asset string) {
	raw, err := callRPC("token_balance", map[string]string{"owner": owner, "asset": asset}, false)
	if err != nil {
		fmt.Printf("Error fetching balance: %v\n", err)
		return
	}
	var result rpc.BalanceResult
	if err := json.Unmarshal(raw, &result); err != nil {
		fmt.Printf("Error decoding balance: %v\n", err)
		return
	}
	fmt.Printf("Balance for %s\n", result.Owner)
	fmt.Printf("  Asset:   %s\n", result.Asset)
	fmt.Printf("  Account: %s\n", result.Account)
	fmt.Printf("  Amount:  %s\n", result.Balance)
}

func getEscrow(id string) {
	esc, err := fetchEscrow(id)
	if err != nil {
		fmt.Printf("Error fetching escrow: %v\n", err)
		return
	}
	printEscrow(esc)
}

func printEscrow(esc *rpc.EscrowResult) {
	fmt.Printf("Escrow %s\n", esc.ID)
	fmt.Printf("  Maker:    %s\n", esc.Maker)
	fmt.Printf("  Offering: %s %s\n", esc.OfferedAmount, esc.OfferedAsset)
	fmt.Printf("  Wants:    %s %s\n", esc.WantedAmount, esc.WantedAsset)
	fmt.Printf("  Vault:    %s (bump %d)\n", esc.Vault, esc.VaultBump)
}

func signAndSend(key *crypto.PrivateKey, txType types.TxType, params interface{}) (*rpc.SendTransactionResult, error) {
	nonce, err := fetchNonce(key.PubKey().Address().String())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch nonce: %w", err)
	}
	data, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	tx := &types.Transaction{Type: txType, Nonce: nonce, Data: data}
	if err := tx.Sign(key.PrivateKey); err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return sendTransaction(tx)
}

func initialize(keyFile string, seed uint64, offeredAsset, offeredAmount, wantedAsset, wantedAmount string) {
	key, err := loadKey(keyFile)
	if err != nil {
		fmt.Printf("Error loading keystore: %v\n", err)
		return
	}
	owner := ownerAddr(key)

	result, err := signAndSend(key, types.TxTypeInitialize, core.InitializeParams{
		Seed:          seed,
		Source:        tokenAccount(owner, strings.ToUpper(offeredAsset)),
		OfferedAsset:  offeredAsset,
		WantedAsset:   wantedAsset,
		OfferedAmount: offeredAmount,
		WantedAmount:  wantedAmount,
	})
	if err != nil {
		fmt.Printf("Error sending initialize transaction: %v\n", err)
		return
	}
	fmt.Printf("Escrow opened (tx %s).\n", result.TxHash)
	if result.Escrow != nil {
		printEscrow(result.Escrow)
	}
}

func exchange(keyFile, escrowID string) {
	key, err := loadKey(keyFile)
	if err != nil {
		fmt.Printf("Error loading keystore: %v\n", err)
		return
	}
	esc, err := fetchEscrow(escrowID)
	if err != nil {
		fmt.Printf("Error fetching escrow: %v\n", err)
		return
	}
	taker := ownerAddr(key)
	makerAddr, err := crypto.DecodeAddress(esc.Maker)
	if err != nil {
		fmt.Printf("Error decoding maker address: %v\n", err)
		return
	}
	var maker [20]byte
	copy(maker[:], makerAddr.Bytes())

	result, err := signAndSend(key, types.TxTypeExchange, core.ExchangeParams{
		Escrow:      escrowID,
		TakerSource: tokenAccount(taker, esc.WantedAsset),
		TakerDest:   tokenAccount(taker, esc.OfferedAsset),
		MakerDest:   tokenAccount(maker, esc.WantedAsset),
		WantedAsset: esc.WantedAsset,
	})
	if err != nil {
		fmt.Printf("Error sending exchange transaction: %v\n", err)
		return
	}
	fmt.Printf("Swap settled (tx %s).\n", result.TxHash)
	fmt.Printf("  Received %s %s into %s\n", esc.OfferedAmount, esc.OfferedAsset, tokenAccount(taker, esc.OfferedAsset))
	fmt.Printf("  Paid     %s %s to %s\n", esc.WantedAmount, esc.WantedAsset, tokenAccount(maker, esc.WantedAsset))
}

func cancel(keyFile, escrowID string) {
	key, err := loadKey(keyFile)
	if err != nil {
		fmt.Printf("Error loading keystore: %v\n", err)
		return
	}
	esc, err := fetchEscrow(escrowID)
	if err != nil {
		fmt.Printf("Error fetching escrow: %v\n", err)
		return
	}
	maker := ownerAddr(key)

	result, err := signAndSend(key, types.TxTypeCancel, core.CancelParams{
		Escrow: escrowID,
		Refund: tokenAccount(maker, esc.OfferedAsset),
	})
	if err != nil {
		fmt.Printf("Error sending cancel transaction: %v\n", err)
		return
	}
	fmt.Printf("Escrow cancelled (tx %s). Refunded %s %s.\n", result.TxHash, esc.OfferedAmount, esc.OfferedAsset)
}

func printUsage() {
	fmt.Println("Usage: swapvault-cli [--rpc <url>] <command> [args]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  generate-key [file]                     Create a new wallet keystore (default wallet.keystore)")
	fmt.Println("  show-address [file]                     Print the address of a keystore")
	fmt.Println("  balance <owner> <asset>                 Query the canonical token account balance")
	fmt.Println("  escrow <id>                             Show an open escrow")
	fmt.Println("  initialize <keyfile> <seed> <offeredAsset> <offeredAmount> <wantedAsset> <wantedAmount>")
	fmt.Println("                                          Open a swap offer, moving the offered amount into a vault")
	fmt.Println("  exchange <keyfile> <escrowId>           Take an open offer at its quoted terms")
	fmt.Println("  cancel <keyfile> <escrowId>             Cancel your own offer and reclaim the vault balance")
	fmt.Println()
	fmt.Printf("Environment: RPC_URL overrides the endpoint, %s supplies the bearer token,\n", rpc.TokenEnv)
	fmt.Printf("and %s supplies the keystore passphrase non-interactively.\n", walletPassEnv)
}
