package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/photon-ccm/photon/types"
)

type opConfig struct {
	Base    *baseConfiguration
	OpFile  string
	OpHash  string
	KeyFile string
}

func newOpCmd(baseConfig *baseConfiguration) *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "op",
		Short: "Helpers for the transmitters: hashing and signing of the operations",
	}
	cmd.AddCommand(newOpHashCmd(baseConfig))
	cmd.AddCommand(newOpSignCmd(baseConfig))
	return cmd
}

func newOpHashCmd(baseConfig *baseConfiguration) *cobra.Command {
	config := &opConfig{Base: baseConfig}
	var cmd = &cobra.Command{
		Use:   "hash",
		Short: "Prints canonical hash of the operation in the JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			opHash, err := config.hash(cmd.InOrStdin())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), opHash.Hex())
			return nil
		},
	}
	cmd.Flags().StringVar(&config.OpFile, "op-file", "", "JSON file of the operation data, '-' reads from stdin")
	_ = cmd.MarkFlagRequired("op-file")
	return cmd
}

func newOpSignCmd(baseConfig *baseConfiguration) *cobra.Command {
	config := &opConfig{Base: baseConfig}
	var cmd = &cobra.Command{
		Use:   "sign",
		Short: "Signs the operation hash with the transmitter key and prints the signature as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			sig, err := config.sign(cmd.InOrStdin())
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(sig)
		},
	}
	cmd.Flags().StringVar(&config.OpFile, "op-file", "", "JSON file of the operation data, '-' reads from stdin")
	cmd.Flags().StringVar(&config.OpHash, "op-hash", "", "hex encoded operation hash, alternative to --op-file")
	cmd.Flags().StringVarP(&config.KeyFile, keyFileCmdFlag, "k", "", "path to the secp256k1 key file of the transmitter (default: $PHOTON_HOME/keys.json)")
	cmd.MarkFlagsMutuallyExclusive("op-file", "op-hash")
	cmd.MarkFlagsOneRequired("op-file", "op-hash")
	return cmd
}

func (c *opConfig) hash(stdin io.Reader) (types.Hash, error) {
	if c.OpHash != "" {
		var h types.Hash
		if err := h.UnmarshalText([]byte(c.OpHash)); err != nil {
			return h, fmt.Errorf("invalid operation hash: %w", err)
		}
		return h, nil
	}

	var r io.Reader = stdin
	if c.OpFile != "-" {
		f, err := os.Open(c.OpFile)
		if err != nil {
			return types.Hash{}, fmt.Errorf("opening operation file: %w", err)
		}
		defer f.Close()
		r = f
	}
	op := &types.OperationData{}
	if err := json.NewDecoder(r).Decode(op); err != nil {
		return types.Hash{}, fmt.Errorf("decoding operation data: %w", err)
	}
	return op.Hash()
}

func (c *opConfig) sign(stdin io.Reader) (*types.TransmitterSignature, error) {
	opHash, err := c.hash(stdin)
	if err != nil {
		return nil, err
	}
	kf, err := readKeyFile(c.Base.pathInHome(c.KeyFile, defaultKeysFileName))
	if err != nil {
		return nil, err
	}
	signer, err := kf.transmitterSigner()
	if err != nil {
		return nil, err
	}
	sig, err := signer.SignOpHash(opHash)
	if err != nil {
		return nil, fmt.Errorf("signing operation %s: %w", opHash, err)
	}
	return &sig, nil
}
