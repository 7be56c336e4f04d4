package cluster

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/rs/zerolog"

	"github.com/edvin/gamehost/internal/artifact"
)

// DockerConfig holds the Docker-backed platform settings.
type DockerConfig struct {
	// Host is the Docker daemon address, e.g. "unix:///var/run/docker.sock".
	Host string
	// PackagingImage is the one-shot image that archives a server's data
	// volume and uploads the artifact.
	PackagingImage string
	// RestoreImage is the one-shot image that downloads an artifact and
	// unpacks it onto the data volume.
	RestoreImage string
	// VolumePrefix names server data volumes: VolumePrefix + serverID.
	VolumePrefix string
	// ContainerPrefix names server containers: ContainerPrefix + serverID.
	ContainerPrefix string
}

// DockerOrchestrator implements Orchestrator against a Docker daemon.
// Packaging and extraction run as one-shot containers sharing the server's
// data volume; stop/start act on the server's own container.
type DockerOrchestrator struct {
	cli    *client.Client
	cfg    DockerConfig
	logger zerolog.Logger
}

func NewDockerOrchestrator(cfg DockerConfig, logger zerolog.Logger) (*DockerOrchestrator, error) {
	opts := []client.Opt{client.WithAPIVersionNegotiation()}
	if cfg.Host != "" {
		opts = append(opts, client.WithHost(cfg.Host))
	} else {
		opts = append(opts, client.FromEnv)
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &DockerOrchestrator{
		cli:    cli,
		cfg:    cfg,
		logger: logger.With().Str("component", "docker-orchestrator").Logger(),
	}, nil
}

func (d *DockerOrchestrator) serverContainer(serverID string) string {
	return d.cfg.ContainerPrefix + serverID
}

func (d *DockerOrchestrator) dataVolume(serverID string) string {
	return d.cfg.VolumePrefix + serverID
}

func (d *DockerOrchestrator) RunPackagingUnit(ctx context.Context, serverID, backupID string) (UnitHandle, error) {
	config := &container.Config{
		Image: d.cfg.PackagingImage,
		Env: []string{
			"SERVER_ID=" + serverID,
			"BACKUP_ID=" + backupID,
			"TARGET_KEY=" + artifact.ObjectKey(serverID, backupID),
		},
		Labels: map[string]string{
			"gamehost.backup_id": backupID,
			"gamehost.server_id": serverID,
		},
	}
	hostConfig := &container.HostConfig{
		Binds: []string{d.dataVolume(serverID) + ":/data:ro"},
	}

	resp, err := d.cli.ContainerCreate(ctx, config, hostConfig, nil, nil, "backup-"+backupID)
	if err != nil {
		return "", fmt.Errorf("create packaging container: %w", err)
	}
	if err := d.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		// A container that never started is not pollable; clean it up now.
		_ = d.cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return "", fmt.Errorf("start packaging container: %w", err)
	}

	d.logger.Info().
		Str("server_id", serverID).
		Str("backup_id", backupID).
		Str("container_id", resp.ID).
		Msg("packaging unit submitted")
	return UnitHandle(resp.ID), nil
}

func (d *DockerOrchestrator) PollUnit(ctx context.Context, handle UnitHandle) (UnitStatus, error) {
	info, err := d.cli.ContainerInspect(ctx, string(handle))
	if err != nil {
		return UnitStatus{}, fmt.Errorf("inspect packaging container: %w", err)
	}

	if info.State == nil || info.State.Running {
		return UnitStatus{State: UnitRunning}, nil
	}

	// The unit is done; drop the container once its exit code is captured.
	exitCode := info.State.ExitCode
	stateErr := info.State.Error
	_ = d.cli.ContainerRemove(ctx, string(handle), container.RemoveOptions{Force: true})

	if exitCode == 0 {
		return UnitStatus{State: UnitSucceeded}, nil
	}
	msg := fmt.Sprintf("packaging unit exited with code %d", exitCode)
	if stateErr != "" {
		msg += ": " + stateErr
	}
	return UnitStatus{State: UnitFailed, Message: msg}, nil
}

func (d *DockerOrchestrator) StopResource(ctx context.Context, serverID string, timeout time.Duration) error {
	seconds := int(timeout.Seconds())
	err := d.cli.ContainerStop(ctx, d.serverContainer(serverID), container.StopOptions{Timeout: &seconds})
	if err != nil {
		return fmt.Errorf("stop server %s: %w", serverID, err)
	}
	return nil
}

func (d *DockerOrchestrator) StartResource(ctx context.Context, serverID string) error {
	err := d.cli.ContainerStart(ctx, d.serverContainer(serverID), container.StartOptions{})
	if err != nil {
		return fmt.Errorf("start server %s: %w", serverID, err)
	}
	return nil
}

func (d *DockerOrchestrator) ExtractArtifact(ctx context.Context, serverID string, ref artifact.Ref) error {
	config := &container.Config{
		Image: d.cfg.RestoreImage,
		Env: []string{
			"SERVER_ID=" + serverID,
			"ARTIFACT_BUCKET=" + ref.Bucket,
			"ARTIFACT_KEY=" + ref.Key,
		},
		Labels: map[string]string{"gamehost.server_id": serverID},
	}
	hostConfig := &container.HostConfig{
		Binds: []string{d.dataVolume(serverID) + ":/data"},
	}

	resp, err := d.cli.ContainerCreate(ctx, config, hostConfig, nil, nil, "")
	if err != nil {
		return fmt.Errorf("create restore container: %w", err)
	}
	defer func() {
		_ = d.cli.ContainerRemove(context.WithoutCancel(ctx), resp.ID, container.RemoveOptions{Force: true})
	}()

	if err := d.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return fmt.Errorf("start restore container: %w", err)
	}

	waitCh, errCh := d.cli.ContainerWait(ctx, resp.ID, container.WaitConditionNotRunning)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("wait for restore container: %w", err)
	case status := <-waitCh:
		if status.StatusCode != 0 {
			return fmt.Errorf("restore unit exited with code %d", status.StatusCode)
		}
	}

	d.logger.Info().
		Str("server_id", serverID).
		Str("artifact_key", ref.Key).
		Msg("artifact extracted")
	return nil
}
