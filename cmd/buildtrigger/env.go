/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"chainguard.dev/buildtrigger/config"
	"chainguard.dev/buildtrigger/remote"
	"chainguard.dev/buildtrigger/remote/githubremote"
	"chainguard.dev/buildtrigger/remote/gitremote"
	"chainguard.dev/buildtrigger/state"
	"chainguard.dev/buildtrigger/trigger"
	"cloud.google.com/go/storage"
	"github.com/chainguard-dev/clog"
	"github.com/sethvargo/go-envconfig"
	"golang.org/x/oauth2"
)

type envConfig struct {
	Port        int  `env:"PORT,default=8080"`
	GRPCPort    int  `env:"GRPC_PORT,default=8081"`
	MetricsPort int  `env:"METRICS_PORT,default=2112"`
	EnablePprof bool `env:"ENABLE_PPROF,default=false"`

	ConfigPath string `env:"CONFIG_PATH,default=/etc/buildtrigger/triggers.yaml"`

	// GitHub access. An app installation takes precedence over a token;
	// without either, repositories are mirrored with plain git.
	GitHubToken          string `env:"GITHUB_TOKEN"`
	GitHubAppID          int64  `env:"GITHUB_APP_ID"`
	GitHubInstallationID int64  `env:"GITHUB_INSTALLATION_ID"`
	GitHubAppKeyPath     string `env:"GITHUB_APP_KEY_PATH"`
	GitHubAPIURL         string `env:"GITHUB_API_URL"`
	GitHubGraphQLURL     string `env:"GITHUB_GRAPHQL_URL"`
	GitMirrorDir         string `env:"GIT_MIRROR_DIR,default=/var/cache/buildtrigger/git"`
	GitToken             string `env:"GIT_TOKEN"`

	WebhookSecret     string `env:"WEBHOOK_SECRET"`
	PostPendingStatus bool   `env:"POST_PENDING_STATUS,default=false"`

	NATSURL           string `env:"NATS_URL"`
	NATSSubjectPrefix string `env:"NATS_SUBJECT_PREFIX,default=buildtrigger.requests"`

	StateDir    string `env:"STATE_DIR"`
	StateBucket string `env:"STATE_BUCKET"`
}

func loadEnv(ctx context.Context, configPath string) (*envConfig, error) {
	var env envConfig
	if err := envconfig.Process(ctx, &env); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}
	if configPath != "" {
		env.ConfigPath = configPath
	}
	return &env, nil
}

// backend opens the state backend. The returned closer releases the storage
// client, if any.
func (e *envConfig) backend(ctx context.Context) (state.Backend, io.Closer, error) {
	switch {
	case e.StateBucket != "":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return state.Backend{}, nil, fmt.Errorf("creating storage client: %w", err)
		}
		return state.Backend{Client: client, Bucket: e.StateBucket}, client, nil
	case e.StateDir != "":
		return state.Backend{Dir: e.StateDir}, nopCloser{}, nil
	default:
		clog.WarnContext(ctx, "Neither STATE_DIR nor STATE_BUCKET is set; trigger state is kept in memory")
		return state.Backend{}, nopCloser{}, nil
	}
}

func (e *envConfig) triggers(ctx context.Context) ([]*trigger.Trigger, io.Closer, error) {
	file, err := config.Load(e.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	backend, closer, err := e.backend(ctx)
	if err != nil {
		return nil, nil, err
	}
	triggers, err := config.Build(file, backend)
	if err != nil {
		return nil, nil, errors.Join(err, closer.Close())
	}
	return triggers, closer, nil
}

func (e *envConfig) client(ctx context.Context) (remote.Client, error) {
	var opts []githubremote.Option
	if e.GitHubAPIURL != "" {
		opts = append(opts, githubremote.WithBaseURLs(e.GitHubAPIURL, e.GitHubGraphQLURL))
	}
	switch {
	case e.GitHubAppID != 0:
		clog.InfoContextf(ctx, "Using GitHub App %d installation %d", e.GitHubAppID, e.GitHubInstallationID)
		return githubremote.NewAppClient(e.GitHubAppID, e.GitHubInstallationID, e.GitHubAppKeyPath, opts...)
	case e.GitHubToken != "":
		clog.InfoContext(ctx, "Using GitHub token authentication")
		return githubremote.NewTokenClient(ctx, e.GitHubToken, opts...)
	default:
		clog.InfoContextf(ctx, "No GitHub credentials; mirroring repositories with git under %s", e.GitMirrorDir)
		return gitremote.New(filepath.Clean(e.GitMirrorDir), tokenSource(e.GitToken)), nil
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func tokenSource(token string) oauth2.TokenSource {
	if token == "" {
		return nil
	}
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
}
