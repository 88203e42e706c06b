package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/ainvaltin/httpsrv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/photon-ccm/photon/endpoint"
	"github.com/photon-ccm/photon/events"
	"github.com/photon-ccm/photon/keyvaluedb/boltdb"
	"github.com/photon-ccm/photon/logger"
	"github.com/photon-ccm/photon/observability"
	"github.com/photon-ccm/photon/rpc"
)

const (
	defaultDBFileName = "endpoint.db"
	defaultRPCAddress = "localhost:26866"
)

type endpointConfig struct {
	Base *baseConfiguration

	DBFile             string
	GenesisFile        string
	SubscriptionBuffer int
	ShutdownTimeout    time.Duration
	AuthWindow         time.Duration

	rpc.ServerConfiguration
}

func newEndpointCmd(baseConfig *baseConfiguration) *cobra.Command {
	config := &endpointConfig{Base: baseConfig}
	var cmd = &cobra.Command{
		Use:   "endpoint",
		Short: "Starts the Photon endpoint",
		Long:  `Starts the Photon endpoint. On the first start the endpoint is initialized using the genesis file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEndpoint(cmd.Context(), config)
		},
	}

	cmd.Flags().StringVar(&config.DBFile, "db", "", fmt.Sprintf("path to the endpoint database (default %s)", filepath.Join("$PHOTON_HOME", defaultDBFileName)))
	cmd.Flags().StringVarP(&config.GenesisFile, "genesis", "g", "", fmt.Sprintf("path to the genesis file (default %s)", filepath.Join("$PHOTON_HOME", defaultGenesisFileName)))
	cmd.Flags().IntVar(&config.SubscriptionBuffer, "subscription-buffer", events.DefaultSubscriptionBuffer, "number of events buffered per subscriber, subscriber falling behind more is dropped")
	cmd.Flags().DurationVar(&config.ShutdownTimeout, "shutdown-timeout", 5*time.Second, "time given to the RPC server to finish requests on shutdown")

	cmd.Flags().StringVar(&config.Address, "rpc-server-address", defaultRPCAddress, "listen address of the REST and JSON-RPC server, empty disables the server")
	cmd.Flags().DurationVar(&config.ReadTimeout, "rpc-server-read-timeout", 10*time.Second, "maximum duration for reading the entire request, including the body")
	cmd.Flags().DurationVar(&config.ReadHeaderTimeout, "rpc-server-read-header-timeout", time.Second, "amount of time allowed to read request headers")
	cmd.Flags().DurationVar(&config.WriteTimeout, "rpc-server-write-timeout", 30*time.Second, "maximum duration before timing out writes of the response, delegated calls count in")
	cmd.Flags().DurationVar(&config.IdleTimeout, "rpc-server-idle-timeout", 60*time.Second, "maximum amount of time to wait for the next request when keep-alives are enabled")
	cmd.Flags().Int64Var(&config.MaxBodyBytes, "rpc-server-max-body", rpc.DefaultMaxBodyBytes, "maximum number of bytes the request body may be")
	cmd.Flags().DurationVar(&config.AuthWindow, "rpc-server-auth-window", rpc.DefaultAuthWindow, "maximum difference between the REST request nonce and the server clock")
	cmd.Flags().IntVar(&config.BatchItemLimit, "rpc-server-batch-item-limit", rpc.DefaultBatchItemLimit, "maximum number of requests in a JSON-RPC batch")
	cmd.Flags().IntVar(&config.BatchResponseSizeLimit, "rpc-server-batch-response-size-limit", rpc.DefaultBatchResponseSizeLimit, "maximum number of response bytes across all requests in a batch")
	return cmd
}

/*
newEndpoint opens the database, creates the engine described by the genesis
and bootstraps it. The returned close func releases the database.
*/
func newEndpoint(ctx context.Context, config *endpointConfig, obs observability.Observability) (*endpoint.Endpoint, func() error, error) {
	genesis, err := loadGenesis(config.Base.pathInHome(config.GenesisFile, defaultGenesisFileName))
	if err != nil {
		return nil, nil, err
	}
	opts, err := genesis.endpointOptions()
	if err != nil {
		return nil, nil, err
	}
	opts = append(opts, endpoint.WithEventBus(events.NewBus(config.SubscriptionBuffer)))

	db, err := boltdb.New(config.Base.pathInHome(config.DBFile, defaultDBFileName))
	if err != nil {
		return nil, nil, fmt.Errorf("opening endpoint database: %w", err)
	}
	ep, err := endpoint.New(db, obs, opts...)
	if err != nil {
		return nil, nil, errors.Join(fmt.Errorf("creating endpoint: %w", err), db.Close())
	}
	if err := genesis.bootstrap(ctx, ep, obs.Logger()); err != nil {
		return nil, nil, errors.Join(err, db.Close())
	}
	return ep, db.Close, nil
}

func runEndpoint(ctx context.Context, config *endpointConfig) error {
	obs := config.Base.observe
	log := obs.Logger()

	ep, closeDB, err := newEndpoint(ctx, config, obs)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeDB(); err != nil {
			log.WarnContext(ctx, "closing endpoint database", logger.Error(err))
		}
	}()

	if config.IsAddressEmpty() {
		log.InfoContext(ctx, "RPC server address is not set, endpoint has no host API")
		<-ctx.Done()
		return ctx.Err()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		config.APIs = []rpc.API{
			{Namespace: rpc.EndpointNamespace, Service: rpc.NewEndpointAPI(ep, obs)},
		}
		server, err := rpc.NewHTTPServer(&config.ServerConfiguration, obs,
			rpc.MetricsEndpoints(obs.MetricsHandler()),
			rpc.EndpointEndpoints(ep, log, rpc.WithAuthWindow(config.AuthWindow)),
		)
		if err != nil {
			return fmt.Errorf("creating RPC server: %w", err)
		}
		log.InfoContext(ctx, fmt.Sprintf("endpoint on chain %s, RPC server starting on %s", ep.ChainID(), server.Addr))
		return httpsrv.Run(ctx, *server, httpsrv.ShutdownTimeout(config.ShutdownTimeout))
	})
	return g.Wait()
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
