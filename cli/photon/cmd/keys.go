package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/photon-ccm/photon/crypto"
	"github.com/photon-ccm/photon/types"
)

const (
	algSecp256k1 = "secp256k1"
	algEd25519   = "ed25519"

	keyFileCmdFlag      = "key-file"
	defaultKeysFileName = "keys.json"
)

type (
	// keyFile is the JSON file of a single private key, the address is informational.
	keyFile struct {
		Algorithm  string      `json:"algorithm"`
		PrivateKey types.Bytes `json:"privateKey"`
		Address    string      `json:"address"`
	}

	keysConfig struct {
		Base      *baseConfiguration
		KeyFile   string
		Algorithm string
		Force     bool
	}
)

func newKeysCmd(baseConfig *baseConfiguration) *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "keys",
		Short: "Generates and shows keys of the transmitters (secp256k1) and callers (ed25519)",
	}
	cmd.AddCommand(newKeysGenerateCmd(baseConfig))
	cmd.AddCommand(newKeysShowCmd(baseConfig))
	return cmd
}

func newKeysGenerateCmd(baseConfig *baseConfiguration) *cobra.Command {
	config := &keysConfig{Base: baseConfig}
	var cmd = &cobra.Command{
		Use:   "generate",
		Short: "Generates new private key and writes it into the key file",
		RunE: func(cmd *cobra.Command, args []string) error {
			kf, err := generateKey(config)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s key %s written to %s\n", kf.Algorithm, kf.Address, config.keyFilePath())
			return nil
		},
	}
	config.addKeyFileFlag(cmd)
	cmd.Flags().StringVarP(&config.Algorithm, "algorithm", "a", algSecp256k1, fmt.Sprintf("key algorithm, %s for transmitters or %s for callers", algSecp256k1, algEd25519))
	cmd.Flags().BoolVarP(&config.Force, "force", "f", false, "overwrite existing key file")
	return cmd
}

func newKeysShowCmd(baseConfig *baseConfiguration) *cobra.Command {
	config := &keysConfig{Base: baseConfig}
	var cmd = &cobra.Command{
		Use:   "show",
		Short: "Prints algorithm and address of the key in the key file",
		RunE: func(cmd *cobra.Command, args []string) error {
			kf, err := readKeyFile(config.keyFilePath())
			if err != nil {
				return err
			}
			addr, err := kf.address()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", kf.Algorithm, addr)
			return nil
		},
	}
	config.addKeyFileFlag(cmd)
	return cmd
}

func (c *keysConfig) addKeyFileFlag(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&c.KeyFile, keyFileCmdFlag, "k", "", fmt.Sprintf("path to the key file (default: %s)", filepath.Join("$PHOTON_HOME", defaultKeysFileName)))
}

func (c *keysConfig) keyFilePath() string {
	return c.Base.pathInHome(c.KeyFile, defaultKeysFileName)
}

func generateKey(config *keysConfig) (*keyFile, error) {
	file := config.keyFilePath()
	if _, err := os.Stat(file); err == nil && !config.Force {
		return nil, fmt.Errorf("key file %s already exists, use --force to overwrite", file)
	}

	kf := &keyFile{Algorithm: config.Algorithm}
	switch config.Algorithm {
	case algSecp256k1:
		signer, err := crypto.NewInMemorySecp256K1Signer()
		if err != nil {
			return nil, fmt.Errorf("generating key: %w", err)
		}
		if kf.PrivateKey, err = signer.MarshalPrivateKey(); err != nil {
			return nil, err
		}
		kf.Address = signer.Address().Hex()
	case algEd25519:
		signer, err := crypto.NewInMemoryEd25519Signer()
		if err != nil {
			return nil, fmt.Errorf("generating key: %w", err)
		}
		if kf.PrivateKey, err = signer.MarshalPrivateKey(); err != nil {
			return nil, err
		}
		kf.Address = signer.Address().String()
	default:
		return nil, fmt.Errorf("unsupported key algorithm %q", config.Algorithm)
	}

	if err := writeKeyFile(file, kf); err != nil {
		return nil, err
	}
	return kf, nil
}

func writeKeyFile(file string, kf *keyFile) error {
	if err := os.MkdirAll(filepath.Dir(file), 0700); err != nil {
		return fmt.Errorf("creating key file directory: %w", err)
	}
	b, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding key file: %w", err)
	}
	if err := os.WriteFile(file, b, 0600); err != nil {
		return fmt.Errorf("writing key file: %w", err)
	}
	return nil
}

func readKeyFile(file string) (*keyFile, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("key file %s not found", file)
		}
		return nil, fmt.Errorf("reading key file: %w", err)
	}
	kf := &keyFile{}
	if err := json.Unmarshal(b, kf); err != nil {
		return nil, fmt.Errorf("decoding key file %s: %w", file, err)
	}
	return kf, nil
}

func (kf *keyFile) address() (string, error) {
	switch kf.Algorithm {
	case algSecp256k1:
		s, err := kf.transmitterSigner()
		if err != nil {
			return "", err
		}
		return s.Address().Hex(), nil
	case algEd25519:
		s, err := kf.callerSigner()
		if err != nil {
			return "", err
		}
		return s.Address().String(), nil
	default:
		return "", fmt.Errorf("unsupported key algorithm %q", kf.Algorithm)
	}
}

func (kf *keyFile) transmitterSigner() (*crypto.InMemorySecp256K1Signer, error) {
	if kf.Algorithm != algSecp256k1 {
		return nil, fmt.Errorf("transmitter key must be %s, got %s", algSecp256k1, kf.Algorithm)
	}
	s, err := crypto.NewInMemorySecp256K1SignerFromKey(kf.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid transmitter key: %w", err)
	}
	return s, nil
}

func (kf *keyFile) callerSigner() (*crypto.InMemoryEd25519Signer, error) {
	if kf.Algorithm != algEd25519 {
		return nil, fmt.Errorf("caller key must be %s, got %s", algEd25519, kf.Algorithm)
	}
	s, err := crypto.NewInMemoryEd25519SignerFromSeed(kf.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid caller key: %w", err)
	}
	return s, nil
}
