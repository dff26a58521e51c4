// Copyright 2025 SP Consortium
//
// cdrnode is the consortium chain node binary: it joins a named network,
// runs consensus/settlement/pipeline together, and offers two offline
// utilities (generate-keys, validate-cdr) for operators bootstrapping or
// auditing BCE data without standing up a full node.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	dbm "github.com/cometbft/cometbft-db"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sp-cdr/consortium-chain/pkg/chainstore"
	"github.com/sp-cdr/consortium-chain/pkg/commitment"
	"github.com/sp-cdr/consortium-chain/pkg/config"
	"github.com/sp-cdr/consortium-chain/pkg/consensus"
	"github.com/sp-cdr/consortium-chain/pkg/crypto/bls"
	"github.com/sp-cdr/consortium-chain/pkg/crypto/registry"
	"github.com/sp-cdr/consortium-chain/pkg/database"
	"github.com/sp-cdr/consortium-chain/pkg/network"
	"github.com/sp-cdr/consortium-chain/pkg/pipeline"
	"github.com/sp-cdr/consortium-chain/pkg/primitives"
	"github.com/sp-cdr/consortium-chain/pkg/settlement"
	"github.com/sp-cdr/consortium-chain/pkg/zk"
	"github.com/sp-cdr/consortium-chain/pkg/zk/setup"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if len(os.Args) < 2 {
		printHelp()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "start":
		err = runStart(os.Args[2:])
	case "generate-keys":
		err = runGenerateKeys(os.Args[2:])
	case "validate-cdr":
		err = runValidateCDR(os.Args[2:])
	case "-h", "--help", "help":
		printHelp()
		return
	default:
		fmt.Fprintf(os.Stderr, "cdrnode: unknown command %q\n\n", os.Args[1])
		printHelp()
		os.Exit(1)
	}
	if err != nil {
		log.Printf("❌ %v", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println(`cdrnode - SP Consortium roaming settlement node

Usage:
  cdrnode start --network {tmobile|vodafone|orange|consortium|devnet|testnet} --data-dir PATH --port PORT
  cdrnode generate-keys --output PATH
  cdrnode validate-cdr --file PATH

Commands:
  start           join the named consortium network and run consensus, settlement, and pipeline
  generate-keys   mint a new validator BLS key plus circuit-P/circuit-S proving keys
  validate-cdr    parse a BCE batch file and report whether it satisfies the accounting invariant`)
}

// ===== start =====

func runStart(args []string) error {
	fs := flag.NewFlagSet("start", flag.ContinueOnError)
	networkName := fs.String("network", "", "consortium network to join (tmobile|vodafone|orange|consortium|devnet|testnet)")
	dataDir := fs.String("data-dir", "", "base directory for chain data, keys, and reporting state")
	port := fs.Int("port", 0, "libp2p listen port")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !config.ValidNetworkName(*networkName) {
		return fmt.Errorf("unknown network %q", *networkName)
	}
	if *dataDir == "" {
		return fmt.Errorf("--data-dir is required")
	}
	if *port <= 0 || *port > 65535 {
		return fmt.Errorf("--port must be between 1 and 65535, got %d", *port)
	}

	log.Printf("🚀 starting cdrnode on network %q, data-dir=%s, port=%d", *networkName, *dataDir, *port)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	preset, err := config.LoadPreset(config.NetworkName(*networkName), "")
	if err != nil {
		return fmt.Errorf("load network preset: %w", err)
	}
	if err := preset.Validate(); err != nil {
		return fmt.Errorf("invalid network preset: %w", err)
	}
	log.Printf("📋 loaded preset for chain_id=%s, %d genesis validators, quorum=%d/%d",
		preset.ChainID, len(preset.Genesis.Validators), preset.Consensus.QuorumSize, preset.Consensus.ValidatorCount)

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	// ==========================================================================
	// PHASE 1: Validator identity and operator registry
	// ==========================================================================
	log.Println("🔐 [Phase 1] Loading validator BLS key...")
	km := bls.NewKeyManager(filepath.Join(*dataDir, "validator.key"))
	if err := km.LoadOrGenerateKey(); err != nil {
		return fmt.Errorf("load or generate validator key: %w", err)
	}
	log.Printf("✅ [Phase 1] validator public key: %s", km.GetPublicKeyHex())

	reg := registry.New()
	weights := make(map[primitives.OpId]uint64, len(preset.Genesis.Validators))
	var selfID primitives.OpId
	selfFound := false
	for _, v := range preset.Genesis.Validators {
		op := primitives.NewOperator(v.Operator, v.Country)
		pk, err := bls.PublicKeyFromHex(v.BLSPubKey)
		if err != nil {
			return fmt.Errorf("parse BLS public key for %s: %w", op, err)
		}
		if err := reg.Register(op, pk); err != nil {
			return fmt.Errorf("register validator %s: %w", op, err)
		}
		weights[op] = v.StakeCents
		if cfg.ValidatorID != "" && v.Operator == cfg.ValidatorID {
			selfID = op
			selfFound = true
		}
	}
	if !selfFound {
		if len(preset.Genesis.Validators) == 0 {
			return fmt.Errorf("preset has no genesis validators")
		}
		first := preset.Genesis.Validators[0]
		selfID = primitives.NewOperator(first.Operator, first.Country)
		log.Printf("⚠️ [Phase 1] VALIDATOR_ID %q not found in genesis validators; defaulting to %s (fine for devnet, wrong for production)", cfg.ValidatorID, selfID)
	}
	validatorSet := consensus.NewValidatorSet(weights)
	log.Printf("✅ [Phase 1] operating as validator %s, registry holds %d operators", selfID, reg.Len())

	// ==========================================================================
	// PHASE 2: Chain store
	// ==========================================================================
	log.Println("🗄️ [Phase 2] Opening chain store...")
	levelDB, err := dbm.NewGoLevelDB("cdrnode", filepath.Join(*dataDir, "blockchain"))
	if err != nil {
		return fmt.Errorf("open chain store: %w", err)
	}
	store := chainstore.New(chainstore.NewDBKV(levelDB))
	log.Println("✅ [Phase 2] chain store ready")

	// ==========================================================================
	// PHASE 3: ZK prover (circuit P / circuit S)
	// ==========================================================================
	log.Println("🔒 [Phase 3] Loading Groth16 proving/verifying keys...")
	prover := zk.NewProver()
	keysDir := filepath.Join(*dataDir, "zkp_keys")
	if cfg.KeysDir != "" {
		keysDir = cfg.KeysDir
	}
	if err := prover.LoadKeys(keysDir); err != nil {
		log.Printf("⚠️ [Phase 3] no ceremony keys at %s (%v); running a local Setup for this network", keysDir, err)
		if err := prover.Setup(); err != nil {
			return fmt.Errorf("local groth16 setup: %w", err)
		}
	}
	log.Println("✅ [Phase 3] circuit P and circuit S keys ready")

	// ==========================================================================
	// PHASE 4: Network transport
	// ==========================================================================
	log.Println("📡 [Phase 4] Starting libp2p host and gossipsub router...")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	host, err := network.NewHost(network.HostConfig{
		ListenPort: *port,
		Bootstrap:  preset.P2P.BootstrapPeers,
		Logger:     log.New(log.Writer(), "[network] ", log.LstdFlags),
	})
	if err != nil {
		return fmt.Errorf("start libp2p host: %w", err)
	}
	router, err := network.NewRouter(ctx, host, log.New(log.Writer(), "[network] ", log.LstdFlags))
	if err != nil {
		return fmt.Errorf("start gossipsub router: %w", err)
	}
	defer router.Close()
	network.DialBootstrap(ctx, host, preset.P2P.BootstrapPeers, log.New(log.Writer(), "[network] ", log.LstdFlags))
	log.Printf("✅ [Phase 4] listening on port %d, %d bootstrap peers configured", *port, len(preset.P2P.BootstrapPeers))

	// ==========================================================================
	// PHASE 5: Consensus engine
	// ==========================================================================
	log.Println("🔗 [Phase 5] Wiring consensus engine...")
	proposalBuilder := func(height uint64) (*chainstore.Block, error) {
		header := chainstore.Header{
			Network:     *networkName,
			BlockNumber: height,
			Timestamp:   time.Now(),
		}
		return chainstore.NewMicroBlockWithRoot(header, nil)
	}
	engine := consensus.NewEngine(selfID, km.GetPrivateKey(), validatorSet, reg, store, router, proposalBuilder)
	router.SetEngine(engine)
	log.Println("✅ [Phase 5] consensus engine wired, starting round 0")
	if err := engine.StartRound(); err != nil {
		return fmt.Errorf("start consensus round: %w", err)
	}

	// ==========================================================================
	// PHASE 6: Settlement negotiation and pipeline coordinator
	// ==========================================================================
	log.Println("🎯 [Phase 6] Wiring settlement negotiator and pipeline coordinator...")
	settleCfg := settlement.DefaultConfig()
	if cfg.SettlementThresholdCents > 0 {
		settleCfg.SettlementThresholdCents = cfg.SettlementThresholdCents
	}
	if cfg.AutoAcceptThresholdCents > 0 {
		settleCfg.AutoAcceptThresholdCents = cfg.AutoAcceptThresholdCents
	}
	negotiator := settlement.NewNegotiator(settleCfg)
	nettingBook := settlement.NewNettingBook(settleCfg)
	dispatcher := pipeline.NewZKDispatcher(cdrProofGate{})
	stats := pipeline.NewStats(prometheus.DefaultRegisterer)

	pipeCfg := pipeline.DefaultConfig()
	if cfg.SettlementThresholdCents > 0 {
		pipeCfg.SettlementThreshold = cfg.SettlementThresholdCents
	}
	pipeCfg.EnableTriangularNetting = cfg.EnableTriangularNetting
	coordinator := pipeline.NewCoordinator(negotiator, nettingBook, prover, prover, dispatcher, stats, pipeCfg)
	engine.OnCommit = func(block *chainstore.Block, _ primitives.Hash) {
		if err := coordinator.DispatchBlock(block.Transactions()); err != nil {
			log.Printf("⚠️ dispatch committed block %d: %v", block.BlockNumber(), err)
		}
	}
	log.Println("✅ [Phase 6] settlement and pipeline ready")

	// ==========================================================================
	// PHASE 7: Reporting database (optional — degraded mode when unset)
	// ==========================================================================
	if cfg.DatabaseURL != "" {
		log.Println("🗄️ [Phase 7] Connecting to reporting database...")
		dbClient, err := database.NewClient(cfg, database.WithLogger(log.New(log.Writer(), "[database] ", log.LstdFlags)))
		if err != nil {
			if cfg.DatabaseRequired {
				return fmt.Errorf("reporting database required but unavailable: %w", err)
			}
			log.Printf("⚠️ [Phase 7] reporting database unavailable, continuing in degraded mode: %v", err)
		} else {
			if err := dbClient.MigrateUp(ctx); err != nil {
				log.Printf("⚠️ [Phase 7] reporting database migration failed: %v", err)
			}
			repos := database.NewRepositories(dbClient)
			unsettled, err := repos.Batches.ListUnsettled(ctx)
			if err != nil {
				log.Printf("⚠️ [Phase 7] could not list unsettled batches: %v", err)
			} else {
				log.Printf("✅ [Phase 7] reporting database connected, %d unsettled batch(es) pending", len(unsettled))
			}
		}
	} else {
		log.Println("⚠️ [Phase 7] DATABASE_URL unset; batch/settlement reporting DISABLED (chain store remains authoritative)")
	}

	// ==========================================================================
	// PHASE 8: Run loop
	// ==========================================================================
	events := make(chan pipeline.NetworkEvent, 64)
	router.SetEventSink(events)
	pipelineErr := make(chan error, 1)
	go func() {
		pipelineErr <- coordinator.Run(ctx, events)
	}()

	timeoutTicker := time.NewTicker(time.Second)
	defer timeoutTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	log.Println("✅ cdrnode running — Ctrl-C to shut down")
	for {
		select {
		case <-sigCh:
			log.Println("🔻 shutdown signal received, stopping cleanly")
			cancel()
			close(events)
			<-pipelineErr
			return nil
		case now := <-timeoutTicker.C:
			if err := engine.CheckTimeout(now); err != nil {
				log.Printf("⚠️ consensus timeout check: %v", err)
			}
		case err := <-pipelineErr:
			if err != nil {
				return fmt.Errorf("pipeline coordinator stopped: %w", err)
			}
			return nil
		}
	}
}

// cdrProofGate implements pipeline.ProofVerifier for the contract
// dispatcher (C4). The substantive privacy-firewall check already happened
// in the coordinator's acceptBatchAnnouncement against the full public
// witness; by the time a transaction reaches dispatch it has already been
// committed to a block, so this gate only rejects a CDR/Settlement
// transaction that somehow carries no proof data at all.
type cdrProofGate struct{}

func (g cdrProofGate) VerifyCDRProof(tx chainstore.Transaction) error {
	switch tx.DataKind {
	case chainstore.DataCDRRecord:
		if tx.CDRRecord == nil || len(tx.CDRRecord.ZKProof) == 0 {
			return fmt.Errorf("cdrnode: CDR transaction carries no circuit-P proof")
		}
	case chainstore.DataSettlement:
		if tx.Settlement == nil {
			return fmt.Errorf("cdrnode: settlement transaction carries no settlement data")
		}
	}
	return nil
}

// ===== generate-keys =====

func runGenerateKeys(args []string) error {
	fs := flag.NewFlagSet("generate-keys", flag.ContinueOnError)
	output := fs.String("output", "", "directory to write the validator key and circuit proving/verifying keys")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *output == "" {
		return fmt.Errorf("--output is required")
	}
	if err := os.MkdirAll(*output, 0o700); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	log.Printf("🔐 generating validator BLS key under %s", *output)
	km := bls.NewKeyManager(filepath.Join(*output, "validator.key"))
	if err := km.GenerateNewKey(); err != nil {
		return fmt.Errorf("generate validator key: %w", err)
	}
	if err := km.SaveKey(); err != nil {
		return fmt.Errorf("save validator key: %w", err)
	}
	log.Printf("✅ validator public key: %s", km.GetPublicKeyHex())
	log.Printf("   validator hash: %x", km.ValidatorHash())

	// A fresh ceremony ID: no content hash exists yet for this ceremony run,
	// so a random identifier is minted instead of a primitives.Hash.
	ceremonyID := uuid.New().String()
	log.Printf("🔒 running circuit-P/circuit-S setup ceremony %s...", ceremonyID)
	ceremony := setup.NewConsortiumCeremony(*output)
	transcript, err := ceremony.Run(ceremonyID, km.GetPrivateKey(), km.GetPublicKeyHex())
	if err != nil {
		return fmt.Errorf("run setup ceremony: %w", err)
	}
	log.Printf("✅ ceremony %s complete, final parameters hash %s", transcript.CeremonyID, transcript.FinalParametersHash)
	log.Printf("✅ key material written to %s", *output)
	return nil
}

// ===== validate-cdr =====

func runValidateCDR(args []string) error {
	fs := flag.NewFlagSet("validate-cdr", flag.ContinueOnError)
	file := fs.String("file", "", "path to a JSON-encoded BCE batch file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("--file is required")
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("read %s: %w", *file, err)
	}

	var batch primitives.BCEBatch
	if err := json.Unmarshal(raw, &batch); err != nil {
		return fmt.Errorf("parse %s as a BCE batch: %w", *file, err)
	}

	fmt.Printf("batch %s: %s <-> %s, %d records, period %s to %s\n",
		batch.BatchID, batch.Home, batch.Visited, len(batch.Records),
		batch.PeriodStart.Format(time.RFC3339), batch.PeriodEnd.Format(time.RFC3339))

	if err := batch.CheckInvariant(); err != nil {
		fmt.Printf("INVALID: %v\n", err)
		return fmt.Errorf("validation failed")
	}

	digest, err := commitment.HashCanonical(batch)
	if err != nil {
		return fmt.Errorf("compute display hash: %w", err)
	}
	fmt.Printf("VALID: total_charges_cents=%d, canonical hash %s\n", batch.TotalChargesCents, digest)
	return nil
}
