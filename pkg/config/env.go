package config

import (
	"log"
	"os"
	"strings"
	"time"

	"vaultback/pkg/chain"
)

// ChainSettings carries the per-chain connection and custody parameters read
// from the environment.
type ChainSettings struct {
	Name           string
	RPCEndpoint    string
	WSEndpoint     string
	CustodyAddress string
	SignerAddress  string
	RealTransfers  bool
}

// AppSettings is the process-wide configuration snapshot.
type AppSettings struct {
	Env               string
	ActivationDelay   time.Duration
	ProofMaxAge       time.Duration
	TreasuryAddress   string
	KeystorePath      string
	KeystorePassword  string
	SkipVerification  bool
	InstantActivation bool
	Chains            map[string]ChainSettings
}

var Settings *AppSettings

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("Invalid duration for %s: %v", key, err)
	}
	return d
}

// InitSettings reads the environment into Settings. The trust-the-client
// shortcuts are refused outright in production.
func InitSettings() {
	s := &AppSettings{
		Env:               os.Getenv("APP_ENV"),
		ActivationDelay:   envDuration("ACTIVATION_DELAY", 72*time.Hour),
		ProofMaxAge:       envDuration("PROOF_MAX_AGE", 24*time.Hour),
		TreasuryAddress:   os.Getenv("TREASURY_ADDRESS"),
		KeystorePath:      os.Getenv("KEYSTORE_PATH"),
		KeystorePassword:  os.Getenv("KEYSTORE_PASSWORD"),
		SkipVerification:  envBool("SKIP_VERIFICATION"),
		InstantActivation: envBool("INSTANT_ACTIVATION"),
		Chains:            make(map[string]ChainSettings),
	}

	for _, name := range []string{"ethereum", "solana", "tron"} {
		prefix := strings.ToUpper(name)
		endpoint := os.Getenv(prefix + "_RPC_ENDPOINT")
		if endpoint == "" {
			continue
		}
		s.Chains[name] = ChainSettings{
			Name:           name,
			RPCEndpoint:    endpoint,
			WSEndpoint:     os.Getenv(prefix + "_WS_ENDPOINT"),
			CustodyAddress: os.Getenv(prefix + "_CUSTODY_ADDRESS"),
			SignerAddress:  os.Getenv(prefix + "_SIGNER_ADDRESS"),
			RealTransfers:  envBool(prefix + "_REAL_TRANSFERS"),
		}
	}

	if s.Env == "production" {
		if s.SkipVerification {
			log.Fatal("SKIP_VERIFICATION is not allowed in production")
		}
		if s.InstantActivation {
			log.Fatal("INSTANT_ACTIVATION is not allowed in production")
		}
	}

	Settings = s
}

// BuildVerifierRegistry wires a verifier for every configured chain.
func BuildVerifierRegistry(keystore *chain.KeyStore) *chain.Registry {
	registry := chain.NewRegistry()
	for name, cs := range Settings.Chains {
		switch name {
		case "ethereum":
			registry.Register(chain.NewEVMVerifier(name, cs.RPCEndpoint, cs.SignerAddress, cs.RealTransfers))
		case "tron":
			registry.Register(chain.NewTronVerifier(name, cs.RPCEndpoint, cs.SignerAddress, cs.RealTransfers))
		case "solana":
			registry.Register(chain.NewSolanaVerifier(name, cs.RPCEndpoint, keystore, cs.SignerAddress, Settings.KeystorePassword, cs.RealTransfers))
		}
	}
	return registry
}

// SupportedAssets is the static asset catalog per chain. Contract addresses
// come from the environment so staging can point at test deployments.
func SupportedAssets(chainName string) map[string]chain.Asset {
	switch chainName {
	case "ethereum":
		return map[string]chain.Asset{
			"ETH":  {Symbol: "ETH", Decimals: 18},
			"USDT": {Symbol: "USDT", Contract: os.Getenv("ETHEREUM_USDT_CONTRACT"), Decimals: 6, Stable: true},
			"USDC": {Symbol: "USDC", Contract: os.Getenv("ETHEREUM_USDC_CONTRACT"), Decimals: 6, Stable: true},
		}
	case "tron":
		return map[string]chain.Asset{
			"TRX":  {Symbol: "TRX", Decimals: 6},
			"USDT": {Symbol: "USDT", Contract: os.Getenv("TRON_USDT_CONTRACT"), Decimals: 6, Stable: true},
		}
	case "solana":
		return map[string]chain.Asset{
			"SOL":  {Symbol: "SOL", Decimals: 9},
			"USDC": {Symbol: "USDC", Contract: os.Getenv("SOLANA_USDC_CONTRACT"), Decimals: 6, Stable: true},
		}
	default:
		return nil
	}
}

// LookupAsset resolves an asset symbol on a chain.
func LookupAsset(chainName, symbol string) (chain.Asset, bool) {
	assets := SupportedAssets(chainName)
	asset, ok := assets[strings.ToUpper(symbol)]
	return asset, ok
}
