package syncproto

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/meta-secret/meta-secret-go/internal/model"
	"github.com/meta-secret/meta-secret-go/internal/objects"
	"github.com/meta-secret/meta-secret-go/internal/secretshare"
	"github.com/meta-secret/meta-secret-go/internal/vault"
)

// Gateway is the client-side reconciliation loop: on every tick it
// pushes this device's not-yet-accepted DeviceLog intents and every
// SsDeviceLog claim (the server skips claims it already holds) to the
// server, then pulls the authoritative VaultLog/SsLog back down and
// folds it into the local Vault/VaultStatus mirrors. It backs off after
// MaxConsecutiveFailures so a server outage doesn't spin the loop at
// full speed forever.
type Gateway struct {
	Remote   *Client
	Nav      *objects.Navigator
	Self     model.UserData
	Interval time.Duration
	MaxFailures int
	Log      logr.Logger

	failures int
}

func NewGateway(remote *Client, nav *objects.Navigator, self model.UserData, interval time.Duration, maxFailures int, log logr.Logger) *Gateway {
	return &Gateway{Remote: remote, Nav: nav, Self: self, Interval: interval, MaxFailures: maxFailures, Log: log}
}

// Run blocks, ticking every g.Interval until ctx is canceled.
func (g *Gateway) Run(ctx context.Context) {
	ticker := time.NewTicker(g.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := g.ReconcileOnce(ctx); err != nil {
				g.failures++
				g.Log.Error(err, "sync reconciliation failed", "consecutiveFailures", g.failures)
				if g.failures >= g.MaxFailures {
					ticker.Reset(g.Interval * time.Duration(g.failures))
				}
				continue
			}
			if g.failures > 0 {
				g.failures = 0
				ticker.Reset(g.Interval)
			}
		}
	}
}

// ReconcileOnce runs a single push-then-pull cycle.
func (g *Gateway) ReconcileOnce(ctx context.Context) error {
	if err := g.pushDeviceLog(ctx); err != nil {
		return fmt.Errorf("push device log: %w", err)
	}
	if err := g.pushSsDeviceLog(ctx); err != nil {
		return fmt.Errorf("push ss device log: %w", err)
	}
	if err := g.pullVaultLog(ctx); err != nil {
		return fmt.Errorf("pull vault log: %w", err)
	}
	if err := g.pullSsLog(ctx); err != nil {
		return fmt.Errorf("pull ss log: %w", err)
	}
	return nil
}

func (g *Gateway) pushDeviceLog(ctx context.Context) error {
	client := vault.NewClient(g.Nav, g.Self.VaultName, g.Self)
	pending, err := client.PendingIntents(ctx)
	if err != nil {
		return err
	}
	for _, intent := range pending {
		action := intent
		_, err := g.Remote.Send(ctx, SyncRequest{
			Kind:      ReqPushDeviceLogAction,
			VaultName: g.Self.VaultName,
			Action:    &action,
		})
		if err != nil && !isBenignPushError(err) {
			return err
		}
	}
	return nil
}

func (g *Gateway) pushSsDeviceLog(ctx context.Context) error {
	deviceLog := secretshare.NewSsDeviceLog(g.Nav, g.Self.Device.DeviceId)
	claims, err := deviceLog.Events(ctx)
	if err != nil {
		return err
	}
	for _, claim := range claims {
		c := claim
		_, err := g.Remote.Send(ctx, SyncRequest{
			Kind:      ReqPushSsDeviceLogClaim,
			VaultName: g.Self.VaultName,
			Claim:     &c,
		})
		if err != nil && !isBenignPushError(err) {
			return err
		}
	}
	return nil
}

// ErrChainGap is returned when a pulled batch doesn't chain directly
// onto the log this device already holds locally: the server's
// announced tail fell short of what was already pulled, or the first
// delivered entry doesn't pick up immediately where the local copy
// left off. Neither case is safe to apply, so the whole batch is
// discarded and the local tail is left untouched; the next reconcile
// cycle announces that same tail again, which is exactly "retry from
// the last good tail".
var ErrChainGap = errors.New("syncproto: pulled batch does not chain onto local tail")

// checkChainGap validates a pull response against the tail the puller
// announced. from/serverTail are as returned by VaultLog.Since /
// SsLog.Since; count is the number of entries in the batch.
func checkChainGap(localTail, from, serverTail uint64, count int) error {
	if count == 0 {
		if localTail > serverTail {
			return fmt.Errorf("%w: local tail %d ahead of server tail %d", ErrChainGap, localTail, serverTail)
		}
		return nil
	}
	if from != localTail+1 {
		return fmt.Errorf("%w: expected next entry at %d, server started batch at %d", ErrChainGap, localTail+1, from)
	}
	return nil
}

func (g *Gateway) pullVaultLog(ctx context.Context) error {
	fqdn := model.VaultLogFqdn(g.Self.VaultName)
	localTailId, hasLocal, err := g.Nav.FindTailId(ctx, fqdn)
	if err != nil {
		return err
	}
	var localTail uint64
	if hasLocal {
		localTail = localTailId.Curr
	}

	resp, err := g.Remote.Send(ctx, SyncRequest{Kind: ReqPullVaultLog, VaultName: g.Self.VaultName, Tail: localTail})
	if err != nil {
		return err
	}
	if err := checkChainGap(localTail, resp.From, resp.Tail, len(resp.VaultLog)); err != nil {
		return err
	}

	vaultLog := vault.NewVaultLog(g.Nav, g.Self.VaultName)
	for _, remoteAction := range resp.VaultLog {
		if err := vaultLog.Append(ctx, remoteAction); err != nil {
			return err
		}
	}
	if _, err := vault.Rebuild(ctx, g.Nav, g.Self.VaultName); err != nil {
		return err
	}
	data, ok, err := vault.NewVault(g.Nav, g.Self.VaultName).Latest(ctx)
	if err != nil {
		return err
	}
	if ok {
		status := data.Status(g.Self)
		if err := vault.NewVaultStatusLog(g.Nav, g.Self.VaultName, g.Self.Device.DeviceId).Update(ctx, status); err != nil {
			return err
		}
	}
	return nil
}

func (g *Gateway) pullSsLog(ctx context.Context) error {
	fqdn := model.SsLogFqdn(g.Self.VaultName)
	localTailId, hasLocal, err := g.Nav.FindTailId(ctx, fqdn)
	if err != nil {
		return err
	}
	var localTail uint64
	if hasLocal {
		localTail = localTailId.Curr
	}

	resp, err := g.Remote.Send(ctx, SyncRequest{Kind: ReqPullSsLog, VaultName: g.Self.VaultName, Tail: localTail})
	if err != nil {
		return err
	}
	if err := checkChainGap(localTail, resp.From, resp.Tail, len(resp.SsLog)); err != nil {
		return err
	}

	ssLog := secretshare.NewSsLog(g.Nav, g.Self.VaultName)
	for _, remote := range resp.SsLog {
		if err := ssLog.Append(ctx, remote); err != nil {
			return err
		}
	}
	return nil
}

// isBenignPushError treats "already accepted" style server rejections as
// non-fatal: a crashed gateway that retries the same push after restart
// should not trip the failure-backoff counter.
func isBenignPushError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 409
}
