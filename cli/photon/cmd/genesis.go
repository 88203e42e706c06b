package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/photon-ccm/photon/endpoint"
	"github.com/photon-ccm/photon/logger"
	"github.com/photon-ccm/photon/registry"
	"github.com/photon-ccm/photon/targets/httptarget"
	"github.com/photon-ccm/photon/types"
)

const defaultGenesisFileName = "genesis.yaml"

type (
	/*
	genesisConfig is the bootstrap configuration of the endpoint. The
	endpoint is initialized with "initialize" on the first start, later
	starts only check that the stored config exists.
	*/
	genesisConfig struct {
		ChainID    types.ChainID  `yaml:"chainId"`
		Deployer   types.Address  `yaml:"deployer"`
		Initialize *initConfig    `yaml:"initialize"`
		Targets    []targetConfig `yaml:"targets"`
	}

	initConfig struct {
		Admin               types.Address      `yaml:"admin"`
		SourceChainID       types.ChainID      `yaml:"sourceChainId"`
		MasterContract      types.Bytes32      `yaml:"masterContract"`
		ConsensusTargetRate uint64             `yaml:"consensusTargetRate"`
		Transmitters        []types.EthAddress `yaml:"transmitters"`
		Executors           []types.Address    `yaml:"executors"`
	}

	// targetConfig attaches protocol service to the protocol address.
	targetConfig struct {
		ProtocolAddress types.Address     `yaml:"protocolAddress"`
		ProtocolID      types.ProtocolID  `yaml:"protocolId"`
		URL             string            `yaml:"url"`
		Timeout         time.Duration     `yaml:"timeout"`
		Headers         map[string]string `yaml:"headers"`
	}
)

func loadGenesis(file string) (*genesisConfig, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("opening genesis file: %w", err)
	}
	defer f.Close()

	g := &genesisConfig{}
	if err := yaml.NewDecoder(f).Decode(g); err != nil {
		return nil, fmt.Errorf("decoding genesis file %s: %w", file, err)
	}
	if err := g.IsValid(); err != nil {
		return nil, fmt.Errorf("invalid genesis file %s: %w", file, err)
	}
	return g, nil
}

func (g *genesisConfig) IsValid() error {
	var errs []error
	if g.Deployer.IsZero() {
		errs = append(errs, errors.New("deployer is not set"))
	}
	seen := make(map[types.Address]struct{}, len(g.Targets))
	for i, t := range g.Targets {
		if t.ProtocolAddress.IsZero() {
			errs = append(errs, fmt.Errorf("target[%d]: protocol address is not set", i))
		}
		if _, ok := seen[t.ProtocolAddress]; ok {
			errs = append(errs, fmt.Errorf("target[%d]: duplicate protocol address %s", i, t.ProtocolAddress))
		}
		seen[t.ProtocolAddress] = struct{}{}
		if t.URL == "" {
			errs = append(errs, fmt.Errorf("target[%d]: url is not set", i))
		}
	}
	return errors.Join(errs...)
}

// endpointOptions returns the options of the engine described by the genesis.
func (g *genesisConfig) endpointOptions() ([]endpoint.Option, error) {
	opts := []endpoint.Option{
		endpoint.WithChainID(g.ChainID),
		endpoint.WithDeployer(g.Deployer),
	}
	for _, t := range g.Targets {
		var topts []httptarget.Option
		for k, v := range t.Headers {
			topts = append(topts, httptarget.WithHeader(k, v))
		}
		if t.Timeout > 0 {
			topts = append(topts, httptarget.WithHTTPClient(newHTTPClient(t.Timeout)))
		}
		client, err := httptarget.New(t.ProtocolID, t.URL, topts...)
		if err != nil {
			return nil, fmt.Errorf("creating target for %s: %w", t.ProtocolAddress, err)
		}
		opts = append(opts, endpoint.WithTarget(t.ProtocolAddress, client))
	}
	return opts, nil
}

/*
bootstrap initializes the endpoint on behalf of the deployer when the genesis
has initialization parameters and the endpoint hasn't been initialized yet.
*/
func (g *genesisConfig) bootstrap(ctx context.Context, ep *endpoint.Endpoint, log *slog.Logger) error {
	if g.Initialize == nil {
		return nil
	}
	if _, err := ep.Config(); err == nil {
		log.InfoContext(ctx, "endpoint has been initialized already")
		return nil
	} else if !errors.Is(err, types.ErrProtocolNotInit) {
		return fmt.Errorf("reading endpoint config: %w", err)
	}

	params := registry.InitParams{
		Admin:               g.Initialize.Admin,
		SourceChainID:       g.Initialize.SourceChainID,
		MasterContract:      g.Initialize.MasterContract,
		ConsensusTargetRate: g.Initialize.ConsensusTargetRate,
		Transmitters:        g.Initialize.Transmitters,
		Executors:           g.Initialize.Executors,
	}
	if err := ep.Initialize(ctx, g.Deployer, params); err != nil {
		return fmt.Errorf("initializing endpoint from genesis: %w", err)
	}
	log.InfoContext(ctx, "endpoint initialized from genesis", logger.Data(g.Initialize))
	return nil
}
