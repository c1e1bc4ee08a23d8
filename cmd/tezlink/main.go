package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/btcsuite/btclog/v2"
	"github.com/tezlink/tezlink/identity"
	"github.com/tezlink/tezlink/transport"
	"github.com/tezlink/tezlink/tzcrypto"
	"github.com/tezlink/tezlink/wire"
	"github.com/urfave/cli"
)

const (
	defaultIdentityFile = "identity.json"
	defaultNetworkName  = "TEZOS_MAINNET"
)

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[tezlink] %v\n", err)
	os.Exit(1)
}

var genIdentityCommand = cli.Command{
	Name:  "gen-identity",
	Usage: "Mine a fresh peer identity and write it to disk.",
	Description: `
	Generates a new X25519 identity key pair, mines the proof-of-work
	stamp over the public key at the requested difficulty and writes the
	result to the identity file. Mining at the default difficulty can
	take several minutes; interrupt with SIGINT to abandon it.`,
	Flags: []cli.Flag{
		cli.IntFlag{
			Name:  "difficulty",
			Value: tzcrypto.DefaultPoWDifficulty,
			Usage: "Required number of leading zero bits in the " +
				"proof-of-work digest.",
		},
		cli.BoolFlag{
			Name:  "force",
			Usage: "Overwrite an existing identity file.",
		},
	},
	Action: genIdentity,
}

func genIdentity(ctx *cli.Context) error {
	path := ctx.GlobalString("identity")

	if !ctx.Bool("force") {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists, use --force to "+
				"overwrite", path)
		}
	}

	sigCtx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt,
	)
	defer stop()

	difficulty := ctx.Int("difficulty")
	fmt.Printf("Mining identity at difficulty %d...\n", difficulty)

	id, err := identity.Generate(sigCtx, difficulty)
	if err != nil {
		return err
	}
	if err := id.Save(path); err != nil {
		return err
	}

	fmt.Printf("Wrote %s\n", path)
	fmt.Printf("Peer id: %v\n", id.PeerID)
	return nil
}

var probeCommand = cli.Command{
	Name:      "probe",
	Usage:     "Handshake with a peer and report what it advertises.",
	ArgsUsage: "address",
	Description: `
	Dials the peer at address (host:port), runs the full encrypted
	handshake with the local identity and prints the negotiated version,
	the peer's identity hash and its connection metadata. The connection
	is closed cleanly with a disconnect message afterwards.`,
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "network",
			Value: defaultNetworkName,
			Usage: "Network name to advertise during version " +
				"negotiation.",
		},
		cli.IntFlag{
			Name:  "difficulty",
			Value: tzcrypto.DefaultPoWDifficulty,
			Usage: "Difficulty to require of the remote peer's " +
				"proof-of-work stamp.",
		},
	},
	Action: probe,
}

func probe(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.ShowCommandHelp(ctx, "probe")
	}
	address := ctx.Args().First()

	id, err := identity.Load(ctx.GlobalString("identity"))
	if err != nil {
		return err
	}
	if err := id.Validate(ctx.Int("difficulty")); err != nil {
		return err
	}

	cfg := &transport.Config{
		PublicKey:     id.PublicKey,
		SecretKey:     id.SecretKey,
		PoWStamp:      id.PoWStamp,
		PoWDifficulty: ctx.Int("difficulty"),
		Versions: []wire.Version{
			{Name: ctx.String("network"), DDBVersion: 1, P2PVersion: 1},
			{Name: ctx.String("network"), DDBVersion: 2, P2PVersion: 1},
		},
		Metadata: wire.Metadata{
			DisableMempool: true,
			PrivateNode:    true,
		},
	}

	conn, err := transport.Dial(
		cfg, address, transport.DefaultHandshakeTimeout,
	)
	if err != nil {
		return err
	}
	defer conn.Close()

	meta := conn.RemoteMetadata()
	fmt.Printf("Connected to %v\n", conn.RemoteAddr())
	fmt.Printf("Peer id:    %v\n", conn.RemotePeerID())
	fmt.Printf("Version:    %v\n", conn.Version())
	fmt.Printf("Mempool:    disabled=%v\n", meta.DisableMempool)
	fmt.Printf("Private:    %v\n", meta.PrivateNode)

	return conn.WriteMessage(&wire.Disconnect{})
}

func main() {
	transport.UseLogger(btclog.NewSLogger(
		btclog.NewDefaultHandler(os.Stdout),
	))

	app := cli.NewApp()
	app.Name = "tezlink"
	app.Usage = "peer-to-peer layer tooling"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:      "identity",
			Value:     defaultIdentityFile,
			Usage:     "The path to the node identity file.",
			TakesFile: true,
		},
	}
	app.Commands = []cli.Command{
		genIdentityCommand,
		probeCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}
