// Command metasecret is the CLI front end for a single device/node: it
// wires config, storage, identity, and the sync gateway together and
// exposes the vault lifecycle (signup, join, accept, status) and secret
// lifecycle (add, recover) as subcommands, plus a `serve` command that
// runs this node as a sync server other devices push/pull against.
package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"
	"github.com/urfave/cli/v2"

	"github.com/meta-secret/meta-secret-go/internal/config"
	"github.com/meta-secret/meta-secret-go/internal/creds"
	"github.com/meta-secret/meta-secret-go/internal/logging"
	"github.com/meta-secret/meta-secret-go/internal/metaclient"
	"github.com/meta-secret/meta-secret-go/internal/model"
	"github.com/meta-secret/meta-secret-go/internal/objects"
	"github.com/meta-secret/meta-secret-go/internal/orchestrator"
	"github.com/meta-secret/meta-secret-go/internal/repo"
	"github.com/meta-secret/meta-secret-go/internal/secretshare"
	"github.com/meta-secret/meta-secret-go/internal/syncproto"
	"github.com/meta-secret/meta-secret-go/internal/syncserver"
	"github.com/meta-secret/meta-secret-go/internal/vault"
)

func main() {
	app := &cli.App{
		Name:  "metasecret",
		Usage: "decentralized, multi-device secret-sharing password manager",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "vault", Usage: "vault name this device operates against", EnvVars: []string{"METASECRET_VAULT_NAME"}},
			&cli.StringFlag{Name: "device-name", Usage: "human-readable name for this device", Value: defaultDeviceName()},
		},
		Commands: []*cli.Command{
			signupCmd,
			joinCmd,
			acceptCmd,
			declineCmd,
			statusCmd,
			addSecretCmd,
			recoverCmd,
			serveCmd,
			runCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "metasecret: %v\n", err)
		os.Exit(1)
	}
}

func defaultDeviceName() string {
	name, err := os.Hostname()
	if err != nil {
		return "metasecret-device"
	}
	return name
}

// env bundles everything a subcommand needs: the navigator over this
// node's repo, the device's own identity, and the vault name it's
// scoped to. Every subcommand builds one the same way so the on-disk
// state is always opened consistently regardless of which command ran.
type env struct {
	cfg    *config.Config
	nav    *objects.Navigator
	closer func() error
	device *creds.DeviceCreds
	self   model.UserData
	log    logr.Logger
}

func newEnv(c *cli.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.DevLogging)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	r, closer, err := openRepo(cfg)
	if err != nil {
		return nil, err
	}
	nav := objects.NewNavigator(r)

	masterKey := deriveMasterKeyFromEnv()
	pc := creds.NewPersistentCredentials(r, masterKey)

	deviceName := c.String("device-name")
	device, err := pc.GetOrGenerateDeviceCreds(c.Context, deviceName)
	if err != nil {
		closer()
		return nil, fmt.Errorf("load device credentials: %w", err)
	}

	vaultName := model.VaultName(c.String("vault"))
	if vaultName == "" {
		closer()
		return nil, fmt.Errorf("--vault is required")
	}
	userCreds, err := pc.GetOrGenerateUserCreds(c.Context, device, vaultName)
	if err != nil {
		closer()
		return nil, fmt.Errorf("load user credentials: %w", err)
	}

	return &env{
		cfg:    cfg,
		nav:    nav,
		closer: closer,
		device: device,
		self:   userCreds.UserData(),
		log:    logger,
	}, nil
}

func openRepo(cfg *config.Config) (repo.Repository, func() error, error) {
	switch cfg.Backend {
	case "memory":
		r := repo.NewMemRepo()
		return r, r.Close, nil
	case "sql":
		r, err := repo.OpenSqlRepo(filepath.Join(cfg.DataDir, "metasecret.sqlite"))
		if err != nil {
			return nil, nil, err
		}
		return r, r.Close, nil
	case "bolt", "":
		r, err := repo.OpenBoltRepo(filepath.Join(cfg.DataDir, "metasecret.bolt"))
		if err != nil {
			return nil, nil, err
		}
		return r, r.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// deriveMasterKeyFromEnv reads the at-rest encryption key for this
// node's credential store. A real deployment should source this from a
// secrets manager or an interactively-entered passphrase run through
// internal/crypto.DeriveKey; METASECRET_MASTER_KEY (base64, 32 bytes) is
// the minimal path for a single-operator node.
func deriveMasterKeyFromEnv() []byte {
	encoded := os.Getenv("METASECRET_MASTER_KEY")
	if encoded == "" {
		return make([]byte, 32)
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(key) != 32 {
		return make([]byte, 32)
	}
	return key
}

func (e *env) gateway() *syncproto.Gateway {
	remote := syncproto.NewClient(e.cfg.ServerURL, e.cfg.RequestTimeout)
	return syncproto.NewGateway(remote, e.nav, e.self, e.cfg.SyncInterval, e.cfg.MaxConsecutiveFailures, e.log)
}

func (e *env) metaClient() *metaclient.MetaClient {
	return metaclient.New(e.nav, e.self, e.device.KeyManager, e.gateway())
}

var signupCmd = &cli.Command{
	Name:  "signup",
	Usage: "create a brand-new vault with this device as its first member",
	Action: withEnv(func(c *cli.Context, e *env) error {
		if err := e.metaClient().CreateVault(c.Context); err != nil {
			return err
		}
		fmt.Printf("created vault %q for device %q\n", e.self.VaultName, e.self.Device.DeviceId)
		return nil
	}),
}

var joinCmd = &cli.Command{
	Name:  "join",
	Usage: "ask to join an existing vault",
	Action: withEnv(func(c *cli.Context, e *env) error {
		if err := e.metaClient().JoinVault(c.Context); err != nil {
			return err
		}
		fmt.Printf("queued join request for vault %q as device %q\n", e.self.VaultName, e.self.Device.DeviceId)
		return nil
	}),
}

var acceptCmd = &cli.Command{
	Name:      "accept",
	Usage:     "accept every pending join request currently outstanding for this vault",
	ArgsUsage: "<request-id>",
	Action: withEnv(func(c *cli.Context, e *env) error {
		if c.Args().Len() < 1 {
			return fmt.Errorf("usage: metasecret accept <request-id>")
		}
		requestID := c.Args().Get(0)
		status, err := e.metaClient().Status(c.Context)
		if err != nil {
			return err
		}
		client := vault.NewClient(e.nav, e.self.VaultName, e.self)
		for _, candidate := range statusPendingOutsiders(status) {
			if _, err := client.AcceptJoin(c.Context, requestID, candidate); err != nil {
				return err
			}
			fmt.Printf("accepted %s\n", candidate.Device.DeviceId)
		}
		return e.gateway().ReconcileOnce(c.Context)
	}),
}

var declineCmd = &cli.Command{
	Name:      "decline",
	Usage:     "decline a pending join request from a specific candidate device",
	ArgsUsage: "<request-id> <candidate-device-id>",
	Action: withEnv(func(c *cli.Context, e *env) error {
		if c.Args().Len() < 2 {
			return fmt.Errorf("usage: metasecret decline <request-id> <candidate-device-id>")
		}
		requestID := c.Args().Get(0)
		candidateID := model.DeviceId(c.Args().Get(1))
		status, err := e.metaClient().Status(c.Context)
		if err != nil {
			return err
		}
		var candidate *model.UserData
		for _, u := range statusPendingOutsiders(status) {
			if u.Device.DeviceId == candidateID {
				candidate = &u
				break
			}
		}
		if candidate == nil {
			return fmt.Errorf("no pending join request from device %s", candidateID)
		}
		client := vault.NewClient(e.nav, e.self.VaultName, e.self)
		if _, err := client.DeclineJoin(c.Context, requestID, *candidate); err != nil {
			return err
		}
		return e.gateway().ReconcileOnce(c.Context)
	}),
}

var statusCmd = &cli.Command{
	Name:  "status",
	Usage: "print this device's view of vault membership",
	Action: withEnv(func(c *cli.Context, e *env) error {
		status, err := e.metaClient().Status(c.Context)
		if err != nil {
			return err
		}
		fmt.Printf("vault=%s member=%v\n", e.self.VaultName, status.IsMember())
		if status.Vault != nil {
			for _, id := range status.Vault.Members() {
				fmt.Printf("  %s\n", id)
			}
		}
		return nil
	}),
}

var addSecretCmd = &cli.Command{
	Name:      "add",
	Usage:     "split and distribute a new secret to every vault member",
	ArgsUsage: "<name> <value>",
	Action: withEnv(func(c *cli.Context, e *env) error {
		if c.Args().Len() < 2 {
			return fmt.Errorf("usage: metasecret add <name> <value>")
		}
		name := c.Args().Get(0)
		value := c.Args().Get(1)
		id, err := e.metaClient().AddPassword(c.Context, name, []byte(value))
		if err != nil {
			return err
		}
		fmt.Printf("stored secret %q as %s\n", name, id.Id)
		return nil
	}),
}

var recoverCmd = &cli.Command{
	Name:      "recover",
	Usage:     "request and collect shares to reconstruct a secret this device lost",
	ArgsUsage: "<meta-password-id>",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "threshold", Value: 2, Usage: "minimum shares required to reconstruct"},
		&cli.DurationFlag{Name: "poll-interval", Value: 2 * time.Second},
		&cli.DurationFlag{Name: "timeout", Value: 30 * time.Second},
	},
	Action: withEnv(func(c *cli.Context, e *env) error {
		if c.Args().Len() < 1 {
			return fmt.Errorf("usage: metasecret recover <meta-password-id>")
		}
		metaPassId := model.MetaPasswordId{Id: c.Args().Get(0)}
		mc := e.metaClient()

		claimIds, err := mc.RequestRecovery(c.Context, metaPassId)
		if err != nil {
			return err
		}

		deadline := time.Now().Add(c.Duration("timeout"))
		for {
			secret, err := mc.CollectRecovery(c.Context, claimIds, c.Int("threshold"))
			if err == nil {
				fmt.Printf("recovered secret: %s\n", string(secret))
				return nil
			}
			if err != secretshare.ErrThresholdUnreachable {
				return err
			}
			if time.Now().After(deadline) {
				return fmt.Errorf("recover: timed out waiting for a threshold of shares")
			}
			select {
			case <-c.Context.Done():
				return c.Context.Err()
			case <-time.After(c.Duration("poll-interval")):
			}
		}
	}),
}

var serveCmd = &cli.Command{
	Name:  "serve",
	Usage: "run this node as a sync server other devices push/pull against",
	Action: withEnv(func(c *cli.Context, e *env) error {
		engine := syncproto.NewServerEngine(e.nav)
		srv := syncserver.New(engine, e.cfg.BindAddr, e.log)
		if err := srv.Start(); err != nil {
			return err
		}
		fmt.Printf("listening on %s\n", e.cfg.BindAddr)
		<-c.Context.Done()
		return srv.Stop(context.Background())
	}),
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run this device's background sync gateway and reactive orchestrator",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "auto-accept", Usage: "automatically accept any pending join request"},
	},
	Action: withEnv(func(c *cli.Context, e *env) error {
		gw := e.gateway()
		orch := orchestrator.New(e.nav, e.self, e.device.KeyManager, noShares{}, c.Bool("auto-accept"), e.cfg.SyncInterval, e.log)

		go gw.Run(c.Context)
		go orch.Run(c.Context)

		fmt.Println("sync gateway and orchestrator running, ctrl-c to stop")
		<-c.Context.Done()
		return nil
	}),
}

// noShares is the ShareStore used when a node has no locally retained
// share cache wired up yet; answerRecoveryClaims simply has nothing to
// answer with until a real store is plugged in.
type noShares struct{}

func (noShares) Get(string) ([]byte, bool) { return nil, false }

func withEnv(fn func(*cli.Context, *env) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		e, err := newEnv(c)
		if err != nil {
			return err
		}
		defer e.closer()
		return fn(c, e)
	}
}

func statusPendingOutsiders(status model.VaultStatus) []model.UserData {
	if status.Vault == nil {
		return nil
	}
	var out []model.UserData
	for _, u := range status.Vault.Users {
		if u.Kind == model.MembershipOutsider && u.Outsider == model.OutsiderPending {
			out = append(out, u.User)
		}
	}
	return out
}
